// Derived from cmd/internal/ld/data.c's dodata: the alignment rules
// (alignsymsize/aligndatsize), the GC descriptor synthesis (gcaddsym), and
// the fixed section partition over the sorted data list. The Section/
// Segment shapes themselves are grounded on davejbax-pixie's
// internal/efipe partition-table model (spec §4.4).
package ld

import "github.com/nightlyone/linkcore/internal/obj"

// GC descriptor opcodes consumed by the managed runtime (spec §6).
const (
	gcCall uint64 = 1
	gcAPtr uint64 = 2
	gcEnd  uint64 = 0
)

func roundup(x, a int64) int64 {
	if a == 0 {
		return x
	}
	return (x + a - 1) / a * a
}

// alignSymSize derives an implicit alignment from a symbol's declared size,
// matching data.c's alignsymsize: sizes >= 8 round to 8, >= pointer size
// round to pointer size, > 2 round to 4, otherwise unconstrained.
func alignSymSize(size int64, ptrSize int64) int64 {
	switch {
	case size >= 8:
		return roundup(size, 8)
	case size >= ptrSize:
		return roundup(size, ptrSize)
	case size > 2:
		return roundup(size, 4)
	default:
		return size
	}
}

// alignDatSize advances datsize to the position s must start at: its
// explicit Align if set, otherwise the lowest set power-of-two bit of its
// implicit alignment (data.c's aligndatsize).
func alignDatSize(datsize int64, s *obj.LSym, ptrSize int64) int64 {
	if s.Align != 0 {
		return roundup(datsize, int64(s.Align))
	}
	t := alignSymSize(s.Size, ptrSize)
	switch {
	case t&1 != 0:
		return datsize
	case t&2 != 0:
		return roundup(datsize, 2)
	case t&4 != 0:
		return roundup(datsize, 4)
	default:
		return roundup(datsize, 8)
	}
}

// Layout is the result of the layout engine: the two populated segments,
// ready for address assignment.
type Layout struct {
	Segtext *obj.Segment
	Segdata *obj.Segment

	// Sentinels maps boundary names ("data", "edata", "bss", ...) to the
	// symbol address assignment must later define (spec §3's "foo"/"efoo"
	// sentinel pairs, §4.5's xdefine calls).
	Sentinels map[string]*obj.LSym
}

func (l *Layout) sentinel(ctxt *obj.Link, name string, sect *obj.Section) *obj.LSym {
	s := ctxt.Lookup(name, 0)
	s.Sect = sect
	l.Sentinels[name] = s
	return s
}

// Run partitions the sorted datap into output sections across segtext and
// segdata, in the fixed order spec §4.4 specifies, synthesizing GC
// descriptors for the .data and .bss sections as it goes. datap must
// already be Classify'd, dynamic-relocation Preprocess'd, and PromoteRelRO'd.
//
// The pointer into datap advances monotonically across both segments, as
// spec §4.4 requires, so the kind enumeration order and this function's
// section order must agree exactly (see internal/obj/kind.go).
func Run(ctxt *obj.Link, cfg *Config, arch TypeGCDecoder, datap []*obj.LSym) *Layout {
	l := &Layout{
		Segtext:   &obj.Segment{Name: "segtext", RWX: obj.RWX_RX},
		Segdata:   &obj.Segment{Name: "segdata", RWX: obj.RWX_RW},
		Sentinels: make(map[string]*obj.LSym),
	}
	ptrSize := int64(ctxt.PtrSize)

	gcdata1 := ctxt.Lookup("gcdata1", 0)
	gcdata1.Kind = obj.SGCDATA
	gcdata1.Reachable = true
	gcbss1 := ctxt.Lookup("gcbss1", 0)
	gcbss1.Kind = obj.SGCBSS
	gcbss1.Reachable = true
	ctxt.AddUint(gcdata1, 0, int(ptrSize)) // header slot, back-patched below
	ctxt.AddUint(gcbss1, 0, int(ptrSize))

	i := 0
	n := len(datap)

	// --- segdata ---

	// writable ELF-extension sections: one per distinct symbol name.
	var datsize int64
	for i < n && datap[i].Kind == obj.SELFSECT {
		s := datap[i]
		sect := l.Segdata.AddSection(s.Name, obj.RWX_RW)
		if s.Align != 0 {
			datsize = roundup(datsize, int64(s.Align))
		}
		sect.Vaddr = uint64(datsize)
		s.Sect = sect
		s.Kind = obj.SDATA
		s.Value = datsize
		datsize += roundup(s.Size, ptrSize)
		sect.Len = uint64(datsize) - sect.Vaddr
		i++
	}

	// .noptrdata
	sect := l.Segdata.AddSection(".noptrdata", obj.RWX_RW)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "noptrdata", sect)
	l.sentinel(ctxt, "enoptrdata", sect)
	for i < n && datap[i].Kind == obj.SNOPTRDATA {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SDATA
		t := alignSymSize(s.Size, ptrSize)
		datsize = alignDatSize(datsize, s, ptrSize)
		s.Value = datsize
		datsize += t
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	// .data.rel.ro (shared-library builds only)
	if cfg.FlagShared {
		sect = l.Segdata.AddSection(".data.rel.ro", obj.RWX_RW)
		sect.Vaddr = uint64(datsize)
		l.sentinel(ctxt, "datarelro", sect)
		l.sentinel(ctxt, "edatarelro", sect)
		for i < n && datap[i].Kind == obj.SDATARELRO {
			s := datap[i]
			if s.Align != 0 {
				datsize = roundup(datsize, int64(s.Align))
			}
			s.Sect = sect
			s.Kind = obj.SDATA
			s.Value = datsize
			datsize += roundup(s.Size, ptrSize)
			i++
		}
		sect.Len = uint64(datsize) - sect.Vaddr
		datsize = roundup(datsize, ptrSize)
	}

	// .data
	sect = l.Segdata.AddSection(".data", obj.RWX_RW)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "data", sect)
	l.sentinel(ctxt, "edata", sect)
	for i < n && datap[i].Kind == obj.SDATA {
		s := datap[i]
		s.Sect = sect
		t := alignSymSize(s.Size, ptrSize)
		datsize = alignDatSize(datsize, s, ptrSize)
		s.Value = datsize
		gcAddSym(ctxt, arch, gcdata1, s, datsize-int64(sect.Vaddr), ptrSize)
		datsize += t
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)
	ctxt.AddUint(gcdata1, gcEnd, int(ptrSize))
	ctxt.SetUint(gcdata1, 0, uint64(sect.Len), int(ptrSize))

	// .bss
	sect = l.Segdata.AddSection(".bss", obj.RWX_RW)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "bss", sect)
	l.sentinel(ctxt, "ebss", sect)
	for i < n && datap[i].Kind == obj.SBSS {
		s := datap[i]
		s.Sect = sect
		t := alignSymSize(s.Size, ptrSize)
		datsize = alignDatSize(datsize, s, ptrSize)
		s.Value = datsize
		gcAddSym(ctxt, arch, gcbss1, s, datsize-int64(sect.Vaddr), ptrSize)
		datsize += t
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)
	ctxt.AddUint(gcbss1, gcEnd, int(ptrSize))
	ctxt.SetUint(gcbss1, 0, uint64(sect.Len), int(ptrSize))

	// .noptrbss (also absorbs any STLSBSS-kind symbols)
	sect = l.Segdata.AddSection(".noptrbss", obj.RWX_RW)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "noptrbss", sect)
	l.sentinel(ctxt, "enoptrbss", sect)
	for i < n && (datap[i].Kind == obj.SNOPTRBSS || datap[i].Kind == obj.STLSBSS) {
		s := datap[i]
		s.Sect = sect
		t := alignSymSize(s.Size, ptrSize)
		datsize = alignDatSize(datsize, s, ptrSize)
		s.Value = datsize
		datsize += t
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	l.sentinel(ctxt, "end", sect)

	// --- segtext (besides .text itself, assigned by AssignAddresses) ---

	sect = l.Segtext.AddSection(".rodata", obj.RWX_R)
	sect.Vaddr = 0
	l.sentinel(ctxt, "rodata", sect)
	l.sentinel(ctxt, "erodata", sect)
	datsize = 0
	for i < n && datap[i].Kind == obj.SRODATA {
		s := datap[i]
		s.Sect = sect
		if s.Align != 0 {
			datsize = roundup(datsize, int64(s.Align))
		}
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += roundup(s.Size, ptrSize)
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	sect = l.Segtext.AddSection(".typelink", obj.RWX_R)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "typelink", sect)
	l.sentinel(ctxt, "etypelink", sect)
	for i < n && datap[i].Kind == obj.STYPELINK {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += s.Size
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	sect = l.Segtext.AddSection(".gcdata", obj.RWX_R)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "gcdata", sect)
	l.sentinel(ctxt, "egcdata", sect)
	for i < n && datap[i].Kind == obj.SGCDATA {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += s.Size
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	sect = l.Segtext.AddSection(".gcbss", obj.RWX_R)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "gcbss", sect)
	l.sentinel(ctxt, "egcbss", sect)
	for i < n && datap[i].Kind == obj.SGCBSS {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += s.Size
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	sect = l.Segtext.AddSection(".gosymtab", obj.RWX_R)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "symtab", sect)
	l.sentinel(ctxt, "esymtab", sect)
	for i < n && datap[i].Kind == obj.SGOSYMTAB {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += s.Size
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	sect = l.Segtext.AddSection(".gopclntab", obj.RWX_R)
	sect.Vaddr = uint64(datsize)
	l.sentinel(ctxt, "pclntab", sect)
	l.sentinel(ctxt, "epclntab", sect)
	for i < n && datap[i].Kind == obj.SPCLNTAB {
		s := datap[i]
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += s.Size
		i++
	}
	sect.Len = uint64(datsize) - sect.Vaddr
	datsize = roundup(datsize, ptrSize)

	// read-only ELF-extension sections: one per residual symbol.
	for i < n && datap[i].Kind == obj.SELFROSECT {
		s := datap[i]
		sect = l.Segtext.AddSection(s.Name, obj.RWX_R)
		if s.Align != 0 {
			datsize = roundup(datsize, int64(s.Align))
		}
		sect.Vaddr = uint64(datsize)
		s.Sect = sect
		s.Kind = obj.SRODATA
		s.Value = datsize
		datsize += roundup(s.Size, ptrSize)
		sect.Len = uint64(datsize) - sect.Vaddr
		i++
	}

	if i != n {
		ctxt.Diag.CurSym = datap[i]
		ctxt.Diag.Errorf("unexpected symbol kind %s in layout", datap[i].Kind)
	}

	return l
}

// gcAddSym appends one symbol's contribution to a GC descriptor stream,
// matching data.c's gcaddsym exactly:
//   - symbols smaller than a pointer contribute nothing;
//   - the synthetic ".string" symbol contributes nothing;
//   - a typed pointer contributes a GC_CALL triple (plus, on 64-bit
//     targets, a trailing zero word for alignment);
//   - an untyped symbol conservatively marks every pointer-aligned slot
//     it spans as GC_APTR.
func gcAddSym(ctxt *obj.Link, arch TypeGCDecoder, gc *obj.LSym, s *obj.LSym, off int64, ptrSize int64) {
	if s.Size < ptrSize {
		return
	}
	if s.Name == ".string" {
		return
	}

	if s.Gotype != nil {
		ctxt.AddUint(gc, gcCall, int(ptrSize))
		ctxt.AddUint(gc, uint64(off), int(ptrSize))
		ctxt.AddPCRel(gc, arch.DecodeTypeGC(s.Gotype), 3*ptrSize+4)
		if ptrSize == 8 {
			ctxt.AddUint(gc, 0, 4)
		}
		return
	}

	for a := (-off) & (ptrSize - 1); a+ptrSize <= s.Size; a += ptrSize {
		ctxt.AddUint(gc, gcAPtr, int(ptrSize))
		ctxt.AddUint(gc, uint64(off+a), int(ptrSize))
	}
}
