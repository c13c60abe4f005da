// External collaborators named in spec §6 but explicitly out of this core's
// scope (§1): per-architecture relocation emission, dynamic relocation
// emission, and GC program lookup. The core depends
// on these only through the narrow interfaces below; concrete
// architectures plug in an implementation.
package ld

import "github.com/nightlyone/linkcore/internal/obj"

// ArchReloc evaluates a relocation type the core does not understand
// (RelocType >= obj.RelocArchBase). ok == false means "unknown"
// (spec §6).
type ArchReloc interface {
	ArchReloc(r *obj.Reloc, s *obj.LSym) (o int64, ok bool)
}

// DynRelocator emits architecture-specific dynamic relocations: adddynrel
// rewrites a relocation against a SDYNIMPORT target or an opaque
// architecture-specific type; adddynrela additionally emits a RELATIVE
// record into rel for shared-library absolute-address slots (spec §4.3,
// §6).
type DynRelocator interface {
	AddDynRel(s *obj.LSym, r *obj.Reloc)
	AddDynRela(rel *obj.LSym, s *obj.LSym, r *obj.Reloc)
}

// TypeGCDecoder resolves the symbol holding a type's GC program
// (decodetype_gc, spec §6).
type TypeGCDecoder interface {
	DecodeTypeGC(gotype *obj.LSym) *obj.LSym
}

// NopArch is a do-nothing ArchReloc/DynRelocator/TypeGCDecoder, useful for
// tests and for builds with no dynamic imports and no opaque relocation
// types to forward.
type NopArch struct{}

func (NopArch) ArchReloc(r *obj.Reloc, s *obj.LSym) (int64, bool) { return 0, false }
func (NopArch) AddDynRel(s *obj.LSym, r *obj.Reloc)               {}
func (NopArch) AddDynRela(rel, s *obj.LSym, r *obj.Reloc)         {}
func (NopArch) DecodeTypeGC(gotype *obj.LSym) *obj.LSym           { return gotype }
