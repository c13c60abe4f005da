// Orchestrates the five phases cmd/internal/ld/data.c runs in sequence from
// Ldmain: classify, preprocess dynamic relocations, lay out sections,
// assign addresses, resolve relocations. Spec §9 asks for phase ordering to
// be an explicit typed pipeline rather than a sequence of global-mutating
// function calls threaded through comments; Phase and Link below are that
// pipeline.
package ld

import (
	"fmt"

	"github.com/nightlyone/linkcore/internal/obj"
)

// Phase names one step of the pipeline, in the order Link executes them.
type Phase int

const (
	PhaseClassify Phase = iota
	PhaseDynReloc
	PhaseLayout
	PhaseAddress
	PhaseResolve
)

func (p Phase) String() string {
	switch p {
	case PhaseClassify:
		return "classify"
	case PhaseDynReloc:
		return "dynreloc"
	case PhaseLayout:
		return "layout"
	case PhaseAddress:
		return "address"
	case PhaseResolve:
		return "resolve"
	default:
		return "phase(?)"
	}
}

// Arch is the full set of architecture-specific collaborators the pipeline
// needs (spec §6): relocation evaluation, dynamic relocation emission, and
// GC-program lookup.
type Arch interface {
	ArchReloc
	DynRelocator
	TypeGCDecoder
}

// Result is everything a file-format writer collaborator needs once the
// pipeline completes (spec §6, "Exposed to file-format writer
// collaborators"): the populated segment trees and the final sorted data
// symbol list, which CodeBlk/DatBlk stream from.
type Result struct {
	Layout *Layout
	Datap  []*obj.LSym
}

// Link runs the whole pipeline over ctxt in the fixed order spec §2
// describes, logging each phase transition through ctxt.Diag so a failed
// link's log shows exactly how far it got. It returns after Resolve even if
// diagnostics fired, since spec §7 requires every phase to run to
// completion; the returned error is non-nil iff any diagnostic fired.
func Link(ctxt *obj.Link, cfg *Config, arch Arch) (*Result, error) {
	ctxt.Diag.Log.Printf("phase %s: classifying data symbols", PhaseClassify)
	datap := Classify(ctxt)

	ctxt.Diag.Log.Printf("phase %s: preprocessing dynamic relocations", PhaseDynReloc)
	Preprocess(ctxt, cfg, arch, ctxt.Textp, datap)
	PromoteRelRO(datap)
	datap = datSort(datap)

	ctxt.Diag.Log.Printf("phase %s: laying out sections", PhaseLayout)
	layout := Run(ctxt, cfg, arch, datap)

	ctxt.Diag.Log.Printf("phase %s: assigning addresses", PhaseAddress)
	AssignAddresses(ctxt, cfg, layout)

	ctxt.Diag.Log.Printf("phase %s: resolving relocations", PhaseResolve)
	Resolve(ctxt, cfg, arch, ctxt.Textp, datap)

	result := &Result{Layout: layout, Datap: datap}
	if ctxt.Diag.Failed() {
		return result, fmt.Errorf("link failed with %d diagnostic(s)", ctxt.Diag.Errors)
	}
	return result, nil
}
