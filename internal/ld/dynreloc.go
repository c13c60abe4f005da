// Derived from cmd/internal/ld/data.c's dynrelocsym/dynreloc and the PLT/GOT
// byte sequences from xyproto-flapc's plt_got.go (the same FF 25 / FF 24 25
// indirect-jump encodings, assembled here with the core's own byte encoder
// instead of a bytes.Buffer + encoding/binary.Write pair).
package ld

import "github.com/nightlyone/linkcore/internal/obj"

// relSymbolName is the name of the shared relocation symbol PE dynamic
// imports are redirected through (data.c's lookup(".rel", 0)).
const relSymbolName = ".rel"

// Preprocess runs the dynamic-relocation preprocessor over textp and datap,
// in that order, exactly once and strictly before address assignment
// (spec §4.3). It grows the shared relocation symbol and the dynamic
// relocation symbol, both of which later participate in Classify's second
// pass via PromoteRelRO.
func Preprocess(ctxt *obj.Link, cfg *Config, arch DynRelocator, textp, datap []*obj.LSym) {
	switch cfg.HeadType {
	case HeadWindows:
		preprocessPE(ctxt, cfg, textp, datap)
		return
	}

	var relativeSym, got *obj.LSym
	if cfg.FlagShared {
		relativeSym = ctxt.Lookup(".rel.dyn", 0)
		got = ctxt.RLookup(".got", 0)
	}

	for _, s := range append(append([]*obj.LSym{}, textp...), datap...) {
		dynrelocsym(ctxt, cfg, arch, s, relativeSym, got)
	}
}

func preprocessPE(ctxt *obj.Link, cfg *Config, textp, datap []*obj.LSym) {
	rel := ctxt.Lookup(relSymbolName, 0)
	for _, s := range append(append([]*obj.LSym{}, textp...), datap...) {
		if s == rel {
			continue
		}
		for i := range s.R {
			r := &s.R[i]
			targ := r.Sym
			if targ == nil {
				continue
			}
			if targ.PLT == -2 && targ.GOT != -2 {
				targ.PLT = int32(rel.Size)
				r.Sym = rel
				r.Add = int64(targ.PLT)
				emitPLTStub(ctxt, cfg, rel, targ)
			} else if targ.PLT >= 0 {
				r.Sym = rel
				r.Add = int64(targ.PLT)
			}
		}
	}
}

// emitPLTStub appends one indirect-jump PLT stub to rel for targ, matching
// the teacher's two byte sequences exactly (spec §4.3, §6):
//
//	32-bit: FF 25 <abs32> 90 90      (jmp [addr], NOP-padded)
//	64-bit: FF 24 25 <abs32> 90      (jmp [abs32])
func emitPLTStub(ctxt *obj.Link, cfg *Config, rel, targ *obj.LSym) {
	switch cfg.Thechar {
	case '8':
		ctxt.AddUint(rel, 0xff, 1)
		ctxt.AddUint(rel, 0x25, 1)
		ctxt.AddAddr(rel, targ, 0)
		ctxt.AddUint(rel, 0x90, 1)
		ctxt.AddUint(rel, 0x90, 1)
	default: // amd64 and arm share the 64-bit-style stub in this core
		ctxt.AddUint(rel, 0xff, 1)
		ctxt.AddUint(rel, 0x24, 1)
		ctxt.AddUint(rel, 0x25, 1)
		ctxt.AddAddr4(rel, targ, 0)
		ctxt.AddUint(rel, 0x90, 1)
	}
}

// dynrelocSectionEligible reports whether s's kind is one of the writable
// data-ish sections spec §4.3 lists as eligible containers for a RELATIVE
// record: {GOT, DATA, GOSTRING, TYPE, RODATA}. The front end in this core
// does not distinguish GOSTRING/TYPE from ordinary DATA/RODATA, so those
// collapse onto the two kinds that remain (documented in DESIGN.md).
func dynrelocSectionEligible(s, got *obj.LSym) bool {
	if s == got {
		return true
	}
	return s.Kind == obj.SDATA || s.Kind == obj.SRODATA
}

func dynrelocsym(ctxt *obj.Link, cfg *Config, arch DynRelocator, s *obj.LSym, relativeSym, got *obj.LSym) {
	s.RelRO = false
	for i := range s.R {
		r := &s.R[i]
		if (r.Sym != nil && r.Sym.Kind == obj.SDYNIMPORT) || r.Type >= obj.RelocArchBase {
			arch.AddDynRel(s, r)
		}
		if cfg.FlagShared && relativeSym != nil && r.Sym != nil &&
			(r.Sym.Dynimpname == "" || r.Sym.Dynexport) &&
			r.Type == obj.RelocAddr && dynrelocSectionEligible(s, got) {
			arch.AddDynRela(relativeSym, s, r)
			if s.Kind == obj.SDATA {
				s.RelRO = true
			}
		}
	}
}
