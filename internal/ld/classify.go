// Derived from cmd/internal/ld/data.c's dodata (the classification and
// datsort portions).
package ld

import (
	"sort"

	"github.com/nightlyone/linkcore/internal/obj"
)

// Classify walks ctxt's symbol pool, selects the reachable data symbols
// (spec §4.2: reachable, not special, kind strictly between STEXT and
// SXREF), promotes BSS-like symbols that already carry a payload to their
// DATA-family kind, and returns them sorted by (kind, size, name).
//
// The text list is deliberately left alone: ctxt.Textp keeps the order the
// front-end produced, per spec §4.2 ("The text list is not sorted here").
func Classify(ctxt *obj.Link) []*obj.LSym {
	var datap []*obj.LSym
	for _, s := range ctxt.Hash {
		if !s.Reachable || s.Special {
			continue
		}
		if !s.Kind.InDataRange() {
			continue
		}
		if s.Outer != nil {
			// A sub-symbol is walked and emitted through its outer
			// symbol (spec §3); classifying it again here would lay it
			// out and stream it a second time, breaking the
			// non-decreasing-Value invariant Blk relies on.
			continue
		}
		datap = append(datap, s)
	}

	for _, s := range datap {
		if len(s.P) > 0 && s.Kind.IsBSSLike() {
			s.Kind = s.Kind.Promoted()
		}
	}

	return datSort(datap)
}

// PromoteRelRO reclassifies every DATA symbol the dynamic-relocation
// preprocessor marked RelRO to DATARELRO (spec §4.3's "migrates to the
// read-only-after-relocation section during the second classification
// pass"). It must run after Preprocess and before the final datSort used
// for layout.
func PromoteRelRO(datap []*obj.LSym) {
	for _, s := range datap {
		if s.RelRO {
			s.Kind = obj.SDATARELRO
		}
	}
}

// datSort is a stable sort on (kind, size, name), matching data.c's datcmp
// ordering. The teacher implements this as a hand-rolled merge sort over an
// intrusive linked list (datsort); sort.SliceStable over an owned slice is
// the idiomatic replacement spec §9 asks for ("explicit owning collections
// ... with stable indices").
func datSort(datap []*obj.LSym) []*obj.LSym {
	sort.SliceStable(datap, func(i, j int) bool {
		a, b := datap[i], datap[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Name < b.Name
	})
	return datap
}
