package ld

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlyone/linkcore/internal/obj"
)

func TestRelocsymWritesAbsoluteAddress(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	targ := ctxt.Lookup("target", 0)
	targ.Kind = obj.SDATA
	targ.Reachable = true
	targ.Value = 0x2000

	s := ctxt.Lookup("holder", 0)
	ctxt.AddAddr(s, targ, 5)

	relocsym(ctxt, cfg, NopArch{}, s)

	got := ctxt.Order.Uint64(s.P)
	assert.Equal(t, uint64(0x2005), got)
}

func TestRelocsymComputesPCRelative(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	targ := ctxt.Lookup("target", 0)
	targ.Kind = obj.STEXT
	targ.Reachable = true
	targ.Value = 100

	s := ctxt.Lookup("caller", 0)
	s.Value = 40
	ctxt.AddPCRel(s, targ, 0)

	relocsym(ctxt, cfg, NopArch{}, s)

	got := int32(ctxt.Order.Uint32(s.P))
	// target(100) + add(0) - (s.value(40) + off(0) + siz(4)) = 56
	assert.Equal(t, int32(56), got)
}

func TestRelocsymReportsUndefinedTarget(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	targ := ctxt.Lookup("undefined", 0)
	// Kind stays Sxxx: never defined by any front-end collaborator.

	s := ctxt.Lookup("holder", 0)
	ctxt.AddAddr(s, targ, 0)

	relocsym(ctxt, cfg, NopArch{}, s)
	assert.Equal(t, 1, ctxt.Diag.Errors)
}

func TestRelocsymReportsOutOfRangeOffset(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	s := ctxt.Lookup("holder", 0)
	s.P = []byte{1, 2, 3}
	s.R = append(s.R, obj.Reloc{Off: 10, Siz: 4, Type: obj.RelocAddr})

	relocsym(ctxt, cfg, NopArch{}, s)
	assert.Equal(t, 1, ctxt.Diag.Errors)
}

func TestBlkZeroFillsGapsBetweenSymbols(t *testing.T) {
	ctxt := newTestLink()

	a := ctxt.Lookup("a", 0)
	a.Value = 0
	a.Size = 4
	a.P = []byte{1, 2, 3, 4}

	b := ctxt.Lookup("b", 0)
	b.Value = 8
	b.Size = 4
	b.P = []byte{5, 6, 7, 8}

	var buf bytes.Buffer
	err := Blk(ctxt, &buf, []*obj.LSym{a, b}, 0, 12)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0, 5, 6, 7, 8}, buf.Bytes())
}

func TestBlkPadsTailUpToBoundary(t *testing.T) {
	ctxt := newTestLink()

	a := ctxt.Lookup("a", 0)
	a.Value = 0
	a.Size = 4
	a.P = []byte{9, 9, 9, 9}

	var buf bytes.Buffer
	err := Blk(ctxt, &buf, []*obj.LSym{a}, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9, 0, 0, 0, 0}, buf.Bytes())
}
