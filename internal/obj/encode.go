// Derived from cmd/internal/ld/data.c's symgrow/setuintxx/adduintxx/
// addaddrplus/addpcrelplus/addsize/addstring/savedata family, with the
// permutation tables (inuxi/fnuxi) replaced by encoding/binary.ByteOrder
// the way xyproto-flapc's plt_got.go and codegen_*_writer.go assemble
// little-endian PLT/GOT/PE bytes: a Link's Order is fixed once per target
// and every write goes through it instead of hand-indexed byte tables.
package obj

import (
	"math"
)

// initial payload capacity before the first doubling, matching data.c's
// symgrow (maxp starts at 8).
const initialPayloadCap = 8

// Grow ensures s's payload has length n, zero-filling any extension, and
// sets len(s.P) = n. Capacity doubles starting from 8 bytes (spec §4.1).
func (ctxt *Link) Grow(s *LSym, n int32) {
	if int32(len(s.P)) >= n {
		return
	}
	if n < 0 {
		ctxt.Diag.CurSym = s
		ctxt.Diag.Fatalf("out of memory")
	}
	cap := int32(cap(s.P))
	if cap == 0 {
		cap = initialPayloadCap
	}
	for cap < n {
		cap <<= 1
	}
	p := make([]byte, n, cap)
	copy(p, s.P)
	s.P = p
}

// addRel appends a zeroed relocation record to s and returns a pointer to it,
// matching data.c's addrel (the Go slice already handles the realloc
// doubling, so there is no separate maxr bookkeeping to replicate).
func (s *LSym) addRel() *Reloc {
	s.R = append(s.R, Reloc{})
	return &s.R[len(s.R)-1]
}

// SetUint writes value into s's payload at off using width bytes (1, 2, 4,
// or 8) in the link's byte order, growing the payload as needed. If s is
// unclassified it is promoted to SDATA and marked reachable, matching
// data.c's setuintxx.
func (ctxt *Link) SetUint(s *LSym, off int64, value uint64, width int) int64 {
	if s.Kind == Sxxx {
		s.Kind = SDATA
	}
	s.Reachable = true
	if s.Size < off+int64(width) {
		s.Size = off + int64(width)
		ctxt.Grow(s, int32(s.Size))
	}
	buf := s.P[off : off+int64(width)]
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		ctxt.Order.PutUint16(buf, uint16(value))
	case 4:
		ctxt.Order.PutUint32(buf, uint32(value))
	case 8:
		ctxt.Order.PutUint64(buf, value)
	default:
		ctxt.Diag.CurSym = s
		ctxt.Diag.Errorf("bad integer width %d", width)
	}
	return off
}

// AddUint appends value at s's current size and returns the prior offset
// (data.c's adduintxx).
func (ctxt *Link) AddUint(s *LSym, value uint64, width int) int64 {
	off := s.Size
	ctxt.SetUint(s, off, value, width)
	return off
}

// AddAddr appends a pointer-sized slot referencing target with the given
// addend and records an ADDR relocation, returning the prior offset
// (data.c's addaddrplus).
func (ctxt *Link) AddAddr(s *LSym, target *LSym, add int64) int64 {
	return ctxt.addAddrWidth(s, target, add, ctxt.PtrSize)
}

// AddAddr4 forces a 4-byte address slot, used for PE 32-bit absolute slots
// in otherwise 64-bit images (data.c's addaddrplus4).
func (ctxt *Link) AddAddr4(s *LSym, target *LSym, add int64) int64 {
	return ctxt.addAddrWidth(s, target, add, 4)
}

func (ctxt *Link) addAddrWidth(s *LSym, target *LSym, add int64, width int) int64 {
	if s.Kind == Sxxx {
		s.Kind = SDATA
	}
	s.Reachable = true
	off := s.Size
	s.Size += int64(width)
	ctxt.Grow(s, int32(s.Size))
	r := s.addRel()
	r.Sym = target
	r.Off = int32(off)
	r.Siz = uint8(width)
	r.Type = RelocAddr
	r.Add = add
	return off
}

// AddPCRel appends a 4-byte slot referencing target PC-relative plus addend
// and records a PCREL relocation (data.c's addpcrelplus).
func (ctxt *Link) AddPCRel(s *LSym, target *LSym, add int64) int64 {
	if s.Kind == Sxxx {
		s.Kind = SDATA
	}
	s.Reachable = true
	off := s.Size
	s.Size += 4
	ctxt.Grow(s, int32(s.Size))
	r := s.addRel()
	r.Sym = target
	r.Off = int32(off)
	r.Add = add
	r.Type = RelocPCRel
	r.Siz = 4
	return off
}

// AddSize appends a pointer-sized slot holding target's eventual size
// (data.c's addsize).
func (ctxt *Link) AddSize(s *LSym, target *LSym) int64 {
	if s.Kind == Sxxx {
		s.Kind = SDATA
	}
	s.Reachable = true
	off := s.Size
	s.Size += int64(ctxt.PtrSize)
	ctxt.Grow(s, int32(s.Size))
	r := s.addRel()
	r.Sym = target
	r.Off = int32(off)
	r.Siz = uint8(ctxt.PtrSize)
	r.Type = RelocSize
	return off
}

// SetAddr rewrites the pointer-sized slot at off to reference target,
// growing s if the slot falls past its current size (data.c's
// setaddrplus/setaddr).
func (ctxt *Link) SetAddr(s *LSym, off int64, target *LSym, add int64) int64 {
	if s.Kind == Sxxx {
		s.Kind = SDATA
	}
	s.Reachable = true
	if off+int64(ctxt.PtrSize) > s.Size {
		s.Size = off + int64(ctxt.PtrSize)
		ctxt.Grow(s, int32(s.Size))
	}
	r := s.addRel()
	r.Sym = target
	r.Off = int32(off)
	r.Siz = uint8(ctxt.PtrSize)
	r.Type = RelocAddr
	r.Add = add
	return off
}

// AddString appends NUL-terminated bytes to s and returns the prior offset
// (data.c's addstring). Symbols named ".shstrtab" are the ELF string-table
// registry and are handled by the (out-of-scope) file-format writer, which
// is free to observe the appended bytes directly; this core does not special
// case the name beyond what spec §4.1 requires of it.
func (ctxt *Link) AddString(s *LSym, text string) int64 {
	if s.Kind == Sxxx {
		s.Kind = SNOPTRDATA
	}
	s.Reachable = true
	off := s.Size
	n := int64(len(text)) + 1
	ctxt.Grow(s, int32(off+n))
	copy(s.P[off:], text)
	s.P[off+n-1] = 0
	s.Size += n
	return off
}

// SetStringData implements the -X name=value flag (data.c's addstrdata):
// it builds a NOPTRDATA symbol named name+".str" holding the raw string
// bytes, then rewrites name to a {addr, len[, pad]} Go-string header
// pointing at it, marked dupok so repeated -X flags for packages that
// import each other don't conflict.
func (ctxt *Link) SetStringData(name, value string) {
	sp := ctxt.Lookup(name+".str", 0)
	ctxt.AddString(sp, value)

	s := ctxt.Lookup(name, 0)
	s.Size = 0
	s.Dupok = true
	ctxt.AddAddr(s, sp, 0)
	ctxt.AddUint(s, uint64(len(value)), 4)
	if ctxt.PtrSize == 8 {
		ctxt.AddUint(s, 0, 4) // round struct to pointer width
	}
	sp.Reachable = s.Reachable
}

// DataKind distinguishes the constant shapes SaveData accepts, standing in
// for the assembler Prog.to.type values data.c's savedata switches on.
type DataKind int

const (
	DataFloat DataKind = iota
	DataRaw
	DataInt
	DataAddr
	DataSize
)

// DataSpec is one constant to write into a symbol's payload at a given
// offset, as savedata's Prog carries (spec §4.1, "save_data").
type DataSpec struct {
	Kind  DataKind
	Off   int32
	Siz   int32
	Float float64 // DataFloat
	Raw   []byte  // DataRaw
	Int   int64   // DataInt
	Sym   *LSym   // DataAddr, DataSize
	Add   int64   // DataAddr
}

// save_data's heuristic sanity bounds (spec §9, open question: these are
// diagnostics, not correctness limits, and are preserved as such).
const (
	maxSaveDataOff = 1 << 30
	maxSaveDataSiz = 100
)

// SaveData writes one constant into s at spec.Off, growing the payload to
// spec.Off+spec.Siz first (data.c's savedata). Integer and float constants
// are written directly; address and size constants append a relocation
// record instead, exactly like AddAddr/AddSize but at a caller-chosen
// offset rather than appended at the end.
func (ctxt *Link) SaveData(s *LSym, spec DataSpec) {
	ctxt.Diag.CurSym = s
	if spec.Off < 0 || spec.Siz < 0 || spec.Off >= maxSaveDataOff || spec.Siz >= maxSaveDataSiz {
		ctxt.Diag.Fatalf("mangled data: off=%d siz=%d", spec.Off, spec.Siz)
		return
	}
	ctxt.Grow(s, spec.Off+spec.Siz)

	switch spec.Kind {
	case DataFloat:
		switch spec.Siz {
		case 4:
			ctxt.Order.PutUint32(s.P[spec.Off:], math.Float32bits(float32(spec.Float)))
		case 8:
			ctxt.Order.PutUint64(s.P[spec.Off:], math.Float64bits(spec.Float))
		default:
			ctxt.Diag.Errorf("bad float size %d", spec.Siz)
		}

	case DataRaw:
		copy(s.P[spec.Off:spec.Off+spec.Siz], spec.Raw)

	case DataInt:
		switch spec.Siz {
		case 1:
			s.P[spec.Off] = byte(spec.Int)
		case 2:
			ctxt.Order.PutUint16(s.P[spec.Off:], uint16(spec.Int))
		case 4:
			ctxt.Order.PutUint32(s.P[spec.Off:], uint32(spec.Int))
		case 8:
			ctxt.Order.PutUint64(s.P[spec.Off:], uint64(spec.Int))
		default:
			ctxt.Diag.Errorf("bad integer width %d", spec.Siz)
		}

	case DataAddr, DataSize:
		r := s.addRel()
		r.Off = spec.Off
		r.Siz = uint8(spec.Siz)
		r.Sym = spec.Sym
		if spec.Kind == DataSize {
			r.Type = RelocSize
		} else {
			r.Type = RelocAddr
		}
		r.Add = spec.Add

	default:
		ctxt.Diag.Errorf("bad data kind %d", spec.Kind)
	}
}
