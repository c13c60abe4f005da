// Derived from Inferno utils/6l/obj.c and utils/6l/span.c
// http://code.google.com/p/inferno-os/source/browse/utils/6l/obj.c
// http://code.google.com/p/inferno-os/source/browse/utils/6l/span.c
//
//	Copyright © 1994-1999 Lucent Technologies Inc.  All rights reserved.
//	Portions Copyright © 1995-1997 C H Forsyth (forsyth@terzarima.net)
//	Portions Copyright © 1997-1999 Vita Nuova Limited
//	Portions Copyright © 2000-2007 Vita Nuova Holdings Limited (www.vitanuova.com)
//	Portions Copyright © 2004,2006 Bruce Ellis
//	Portions Copyright © 2005-2007 C H Forsyth (forsyth@terzarima.net)
//	Revisions Copyright © 2000-2007 Lucent Technologies Inc. and others
//	Portions Copyright © 2009 The Go Authors.  All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package obj owns the symbol store: the global pool of symbols together
// with their payload and relocation buffers, plus the endianness-aware byte
// encoder that mutates them. It is the leaf component of the data-layout and
// relocation core (spec §2, component 1 and 2).
package obj

import "encoding/binary"

// SymVer is the hash key under which a symbol is interned: a name plus a
// version disambiguating multiple instantiations of the same name (e.g.
// per-package static symbols reusing a local name across object files).
type SymVer struct {
	Name    string
	Version int
}

// Link is the linker context threaded explicitly through every phase
// function, replacing the teacher's package-level globals (allsym, datap,
// textp, cursym, debug) per spec §9's re-architecture note. A Link owns all
// symbol storage for one link.
type Link struct {
	Hash map[SymVer]*LSym

	// Textp is the ordered list of reachable code symbols, in the order
	// the front-end produced them. Unlike the data list it is never
	// sorted (spec §4.2).
	Textp []*LSym

	PtrSize int // target pointer width in bytes: 4 or 8

	// Order is the target's byte order, selected once per link the way
	// the teacher's inuxi/fnuxi permutation tables are selected per
	// thechar. Every encoder write goes through it (spec §4.1,
	// "endianness-aware writers").
	Order binary.ByteOrder

	Diag *Diag
}

// NewLink creates an empty symbol store for a link targeting the given
// pointer size and byte order.
func NewLink(ptrSize int, order binary.ByteOrder) *Link {
	return &Link{
		Hash:    make(map[SymVer]*LSym),
		PtrSize: ptrSize,
		Order:   order,
		Diag:    NewDiag(),
	}
}

// Lookup interns or resolves a symbol by name and version, creating it with
// kind Sxxx if it does not already exist. This is the sole external
// interface collaborators use to intern/resolve a symbol (spec §6).
func (ctxt *Link) Lookup(name string, version int) *LSym {
	key := SymVer{name, version}
	if s, ok := ctxt.Hash[key]; ok {
		return s
	}
	s := &LSym{Name: name, Version: int16(version)}
	ctxt.Hash[key] = s
	return s
}

// RLookup is a read-only lookup: it returns nil rather than creating the
// symbol if absent.
func (ctxt *Link) RLookup(name string, version int) *LSym {
	return ctxt.Hash[SymVer{name, version}]
}

// LSym is the central entity of the core: a named object with a size,
// optional payload bytes, and a list of relocations (spec §3, "Symbol").
type LSym struct {
	Name    string
	Version int16
	Kind    SymKind

	Size int64 // declared size; may exceed len(P)

	P []byte  // growable payload buffer, len(P) <= Size
	R []Reloc // growable relocation list

	Align int32 // explicit alignment; 0 means derive from size

	Value int64 // assigned address/offset; meaning depends on lifecycle stage

	Sect *Section // back-reference to containing output section, post-layout

	Reachable bool
	Special   bool // excluded from layout
	Dupok     bool // duplicate definitions allowed
	Local     bool

	Gotype *LSym // type-descriptor symbol used to derive GC shape

	Outer *LSym // parent symbol, for symbols nested inside another (SUB)
	Sub   *LSym // head of this symbol's list of nested sub-symbols
	Subid *LSym // next sibling in the parent's sub-symbol list (see SubSymbols)

	PLT int32 // index into the synthesized PLT area; -1 absent, -2 pending
	GOT int32 // index into the synthesized GOT area; -1 absent, -2 pending

	Dynimpname string
	Dynexport  bool

	RelRO bool // DATA symbol promoted to DATARELRO under shared-library mode

	// Text, for STEXT symbols, holds the byte offsets (relative to the
	// symbol's own start) of each instruction the front-end emitted.
	// Address assignment rebases these in place to absolute PCs, per
	// spec §4.5 ("bump each instruction's pc field by sub.value"). This
	// stands in for the full Prog instruction stream, which belongs to
	// the out-of-scope per-architecture instruction emitter (spec §1).
	Text []int64
}

// subIterNext returns the next sub-symbol after s in its parent's
// sub-symbol chain, or nil. Sub-symbols form a singly linked list off
// Outer.Sub via Subid, giving two-way traversal (parent -> children via
// Sub/Subid, child -> parent via Outer) without raw intrusive pointers
// shared with the hash table, per spec §9.
func (s *LSym) subIterNext() *LSym { return s.Subid }

// SubSymbols returns the symbols nested inside s (text sub-symbols, or a
// data symbol's trailing string literal), in insertion order.
func (s *LSym) SubSymbols() []*LSym {
	var out []*LSym
	for c := s.Sub; c != nil; c = c.subIterNext() {
		out = append(out, c)
	}
	return out
}

// AddSub appends child as a nested sub-symbol of s.
func (s *LSym) AddSub(child *LSym) {
	child.Outer = s
	if s.Sub == nil {
		s.Sub = child
		return
	}
	last := s.Sub
	for last.Subid != nil {
		last = last.Subid
	}
	last.Subid = child
}

// Outermost walks Outer references to the root ancestor of s (itself if s
// has no parent). Used by the relocation resolver's object-emission ADDR
// path (spec §4.6 step 6).
func (s *LSym) Outermost() *LSym {
	r := s
	for r.Outer != nil {
		r = r.Outer
	}
	return r
}
