// Derived from cmd/internal/ld/data.c's textaddress and address: the two
// passes that turn the layout engine's section-relative offsets into
// absolute virtual addresses and define every boundary sentinel symbol
// (spec §4.5).
package ld

import "github.com/nightlyone/linkcore/internal/obj"

// sentinelPair names one (start, end) boundary symbol pair address
// assignment defines from a section's absolute bounds. The "datarelro" pair
// is only populated when layout ran in shared mode, so lookups against
// l.Sentinels must tolerate a miss.
var sentinelPairs = []struct{ start, end string }{
	{"rodata", "erodata"},
	{"typelink", "etypelink"},
	{"gcdata", "egcdata"},
	{"gcbss", "egcbss"},
	{"symtab", "esymtab"},
	{"pclntab", "epclntab"},
	{"noptrdata", "enoptrdata"},
	{"datarelro", "edatarelro"},
	{"data", "edata"},
	{"bss", "ebss"},
	{"noptrbss", "enoptrbss"},
}

// AssignAddresses runs both address-assignment passes over a completed
// Layout: first textAddress lays out Link.Textp (and its sub-symbols and
// instruction offsets) starting at cfg.InitText, then the data sections
// already partitioned by Run, and the symbols placed in them, are slid to
// their absolute addresses. Every
// boundary sentinel Run created is given its final Value here, plus
// "text"/"etext" and the parentless "end" which textAddress/the data pass
// own directly.
func AssignAddresses(ctxt *obj.Link, cfg *Config, l *Layout) {
	textEnd := textAddress(ctxt, cfg, l)
	l.Segtext.Vaddr = uint64(cfg.InitText)

	// .text (Segtext.Sections[0]) already carries its final absolute
	// address; only the sections layout appended after it are still
	// segment-relative and need sliding. 128 bytes is the literal constant
	// data.c rounds up to here ("likely overkill but definitely cheap"),
	// not an architecture-derived quantity.
	rodataBase := roundup(textEnd, 128)
	slideSections(l.Segtext.Sections[1:], rodataBase)

	segtextEnd := rodataBase
	if n := len(l.Segtext.Sections); n > 0 {
		last := l.Segtext.Sections[n-1]
		segtextEnd = int64(last.Vaddr + last.Len)
	}
	l.Segtext.Length = uint64(segtextEnd) - l.Segtext.Vaddr

	segdataBase := roundup(segtextEnd, int64(cfg.InitRnd))
	l.Segdata.Vaddr = uint64(segdataBase)
	slideSections(l.Segdata.Sections, segdataBase)
	if n := len(l.Segdata.Sections); n > 0 {
		last := l.Segdata.Sections[n-1]
		l.Segdata.Length = last.Vaddr + last.Len - l.Segdata.Vaddr
	}

	// Run placed each data symbol at a segment-relative offset; rebase it
	// by the same amount its section was slid.
	for _, s := range ctxt.Hash {
		if s.Sect == nil {
			continue
		}
		switch s.Sect.Segment {
		case l.Segdata:
			s.Value += segdataBase
		case l.Segtext:
			s.Value += rodataBase
		}
	}

	ctxt.Lookup("text", 0).Value = int64(l.Segtext.Vaddr)
	ctxt.Lookup("etext", 0).Value = textEnd

	for _, p := range sentinelPairs {
		start, ok1 := l.Sentinels[p.start]
		end, ok2 := l.Sentinels[p.end]
		if !ok1 || !ok2 {
			continue
		}
		sect := start.Sect
		start.Value = int64(sect.Vaddr)
		end.Value = int64(sect.Vaddr + sect.Len)
	}
	if endSym, ok := l.Sentinels["end"]; ok {
		sect := endSym.Sect
		endSym.Value = int64(sect.Vaddr + sect.Len)
	}
}

// slideSections rebases every section in sects, currently holding the
// segment-relative offsets Run computed, by base, turning them into
// absolute virtual addresses.
func slideSections(sects []*obj.Section, base int64) {
	for _, sect := range sects {
		sect.Vaddr += uint64(base)
	}
}

// textAddress assigns an absolute program counter to every reachable text
// symbol in ctxt.Textp, in list order: a symbol with an explicit s.Align
// rounds to that instead, and a symbol with no instruction stream (s.Text
// == nil) isn't rounded at all (data.c's textaddress, "if(sym->align != 0)
// va = rnd(va, sym->align); else if(sym->text != P) va = rnd(va,
// FuncAlign)"). Sub-symbols (spec §3, the SUB relationship) are
// rebased to outer.Value plus their own offset within the outer symbol, and each
// instruction offset recorded in LSym.Text is bumped to an absolute PC the
// same way. It also prepends the ".text" section layout never populated,
// already holding its final absolute address, and returns the ending PC.
func textAddress(ctxt *obj.Link, cfg *Config, l *Layout) int64 {
	va := cfg.InitText

	for _, s := range ctxt.Textp {
		switch {
		case s.Align != 0:
			va = roundup(va, int64(s.Align))
		case s.Text != nil:
			va = roundup(va, int64(cfg.FuncAlign))
		}
		s.Value = va

		for _, sub := range s.SubSymbols() {
			subVA := va + sub.Value
			sub.Value = subVA
			for i, pc := range sub.Text {
				sub.Text[i] = pc + subVA
			}
		}
		for i, pc := range s.Text {
			s.Text[i] = pc + va
		}

		va += s.Size
	}

	sect := l.Segtext.AddSection(".text", obj.RWX_RX)
	// Move .text to the front: it must lead segtext's section order (spec
	// §4.4, ".text, then .rodata, .typelink, ...") but Run appended the
	// rest of segtext's sections before this function ever ran.
	n := len(l.Segtext.Sections)
	copy(l.Segtext.Sections[1:], l.Segtext.Sections[:n-1])
	l.Segtext.Sections[0] = sect
	sect.Vaddr = uint64(cfg.InitText)
	sect.Len = uint64(va - cfg.InitText)

	return va
}
