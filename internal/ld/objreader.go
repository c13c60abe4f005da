// Derived from cmd/internal/ld/objfile.go's ldobjfile/readsym: the
// front-end object-file loader that turns the wire-format symbol stream
// into populated LSym entries in the symbol store. Trimmed to the fields
// this core's data-layout and relocation scope actually needs — the
// per-instruction Pcln/Auto/Funcdata tables belong to the out-of-scope
// instruction-stream and debug-info emitters (spec §1) and are not read
// here.
package ld

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nightlyone/linkcore/internal/obj"
)

var objStartMagic = []byte("\x00\x00go13ld")
var objEndMagic = []byte("\xff\xffgo13ld")

// dupCount numbers the scratch ".dup" symbols ReadObject stashes duplicate
// payloads under, matching the teacher's readsym_ndup counter (spec §4.1
// feature supplement: object files may define the same symbol twice when a
// dupok-marked inline body is emitted into more than one package).
var dupCount int

// ReadObject parses one object file's symbol stream from r into ctxt,
// appending STEXT symbols to ctxt.Textp in the order they are read (spec
// §4.2, "the text list is not sorted"). Symbol names are interned exactly
// as read: pkg is passed through but no package-qualifier expansion is
// performed on them.
func ReadObject(ctxt *obj.Link, r io.Reader, pkg string) error {
	br := bufio.NewReader(r)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return fmt.Errorf("reading object header: %w", err)
	}
	if string(magic[:]) != string(objStartMagic) {
		return fmt.Errorf("invalid object file start %x", magic)
	}
	version, err := br.ReadByte()
	if err != nil {
		return err
	}
	if version != 1 {
		return fmt.Errorf("unsupported object file version %d", version)
	}

	for {
		peek, err := br.Peek(1)
		if err != nil {
			return fmt.Errorf("peeking symbol stream: %w", err)
		}
		if peek[0] == 0xff {
			break
		}
		if err := readsym(ctxt, br, pkg); err != nil {
			return err
		}
	}

	var end [8]byte
	if _, err := io.ReadFull(br, end[:]); err != nil {
		return fmt.Errorf("reading object trailer: %w", err)
	}
	if string(end[:]) != string(objEndMagic) {
		return fmt.Errorf("invalid object file end")
	}
	return nil
}

func readsym(ctxt *obj.Link, r *bufio.Reader, pkg string) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if tag != 0xfe {
		return fmt.Errorf("readsym out of sync")
	}

	kindVal, err := rdint(r)
	if err != nil {
		return err
	}
	name, err := rdstring(r)
	if err != nil {
		return err
	}
	version, err := rdint(r)
	if err != nil {
		return err
	}
	flags, err := rdint(r)
	if err != nil {
		return err
	}
	dupok := flags&1 != 0
	local := flags&2 != 0

	size, err := rdint(r)
	if err != nil {
		return err
	}
	typ, err := rdsym(ctxt, r, pkg)
	if err != nil {
		return err
	}
	data, err := rddata(r)
	if err != nil {
		return err
	}
	nreloc, err := rdint(r)
	if err != nil {
		return err
	}

	v := 0
	if version != 0 {
		v = 1
	}
	s := ctxt.Lookup(name, v)

	kind := obj.SymKind(kindVal)
	var dup *obj.LSym
	if s.Kind != obj.Sxxx && s.Kind != obj.SXREF {
		if len(s.P) > 0 && !dupok && !s.Dupok {
			return fmt.Errorf("duplicate symbol %s (kinds %s and %s)", s.Name, s.Kind, kind)
		}
		if len(s.P) > 0 {
			// The ".dup" path: the earlier definition keeps the name and
			// this later definition's payload is stashed under a scratch
			// symbol so both survive, rather than
			// silently discarding one (spec supplement: preserves the
			// teacher's dupok-hash-collision diagnostics' data source).
			dup = s
			s = ctxt.Lookup(".dup", dupCount)
			dupCount++
		}
	}

	s.Kind = kind
	s.Dupok = dupok
	s.Local = local
	if s.Size < size {
		s.Size = size
	}
	if typ != nil {
		s.Gotype = typ
	}
	if dup != nil && typ != nil {
		dup.Gotype = typ
	}
	s.P = data
	s.Size = int64(len(data))
	if s.Size < size {
		s.Size = size
	}

	if nreloc > 0 {
		s.R = make([]obj.Reloc, nreloc)
		for i := int64(0); i < nreloc; i++ {
			off, err := rdint(r)
			if err != nil {
				return err
			}
			siz, err := rdint(r)
			if err != nil {
				return err
			}
			typVal, err := rdint(r)
			if err != nil {
				return err
			}
			add, err := rdint(r)
			if err != nil {
				return err
			}
			sym, err := rdsym(ctxt, r, pkg)
			if err != nil {
				return err
			}
			s.R[i] = obj.Reloc{
				Off:  int32(off),
				Siz:  uint8(siz),
				Type: obj.RelocType(typVal),
				Add:  add,
				Sym:  sym,
			}
		}
	}

	if kind == obj.STEXT && dup == nil {
		ctxt.Textp = append(ctxt.Textp, s)
	}

	return nil
}

func rdint(r *bufio.Reader) (int64, error) {
	var uv uint64
	for shift := uint(0); ; shift += 7 {
		if shift >= 64 {
			return 0, fmt.Errorf("corrupt varint")
		}
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		uv |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			break
		}
	}
	return int64(uv>>1) ^ (int64(uv<<63) >> 63), nil
}

func rdstring(r *bufio.Reader) (string, error) {
	n, err := rdint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func rddata(r *bufio.Reader) ([]byte, error) {
	n, err := rdint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func rdsym(ctxt *obj.Link, r *bufio.Reader, pkg string) (*obj.LSym, error) {
	n, err := rdint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := rdint(r); err != nil { // version, unused for a nil reference
			return nil, err
		}
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	v, err := rdint(r)
	if err != nil {
		return nil, err
	}
	vv := 0
	if v != 0 {
		vv = 1
	}
	return ctxt.Lookup(string(buf), vv), nil
}
