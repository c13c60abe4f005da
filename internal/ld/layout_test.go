package ld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlyone/linkcore/internal/obj"
)

func TestAlignSymSizeThresholds(t *testing.T) {
	assert.Equal(t, int64(16), alignSymSize(10, 8))
	assert.Equal(t, int64(8), alignSymSize(8, 8))
	assert.Equal(t, int64(4), alignSymSize(4, 8))
	assert.Equal(t, int64(4), alignSymSize(3, 8))
	assert.Equal(t, int64(2), alignSymSize(2, 8))
}

func TestRunOrdersSegtextSectionsRodataBeforeTypelinkBeforeGCData(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	ro := ctxt.Lookup("readonly", 0)
	ro.Kind = obj.SRODATA
	ro.Reachable = true
	ro.Size = 8

	tl := ctxt.Lookup("typelinks", 0)
	tl.Kind = obj.STYPELINK
	tl.Reachable = true
	tl.Size = 8

	gc := ctxt.Lookup("gcprog", 0)
	gc.Kind = obj.SGCDATA
	gc.Reachable = true
	gc.Size = 8

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)

	names := make([]string, 0, len(l.Segtext.Sections))
	for _, s := range l.Segtext.Sections {
		names = append(names, s.Name)
	}
	require.Contains(t, names, ".rodata")
	require.Contains(t, names, ".typelink")
	require.Contains(t, names, ".gcdata")

	idxRodata := indexOf(names, ".rodata")
	idxTypelink := indexOf(names, ".typelink")
	idxGCData := indexOf(names, ".gcdata")
	assert.Less(t, idxRodata, idxTypelink)
	assert.Less(t, idxTypelink, idxGCData)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRunNormalizesDataSymbolKindsToDataOrRodata(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	d := ctxt.Lookup("somedata", 0)
	d.Kind = obj.SDATA
	d.Reachable = true
	d.Size = 8

	ro := ctxt.Lookup("someconst", 0)
	ro.Kind = obj.SRODATA
	ro.Reachable = true
	ro.Size = 8

	gc := ctxt.Lookup("gcthing", 0)
	gc.Kind = obj.SGCDATA
	gc.Reachable = true
	gc.Size = 8

	datap := Classify(ctxt)
	Run(ctxt, cfg, NopArch{}, datap)

	assert.Equal(t, obj.SDATA, d.Kind)
	assert.Equal(t, obj.SRODATA, ro.Kind)
	assert.Equal(t, obj.SRODATA, gc.Kind, "GCDATA normalizes to SRODATA once placed in its read-only section")
}

func TestGCAddSymSkipsSymbolsSmallerThanPointer(t *testing.T) {
	ctxt := newTestLink()
	gcSym := ctxt.Lookup("gc1", 0)
	s := ctxt.Lookup("tiny", 0)
	s.Size = 2

	before := gcSym.Size
	gcAddSym(ctxt, NopArch{}, gcSym, s, 0, 8)
	assert.Equal(t, before, gcSym.Size)
}

func TestGCAddSymEmitsCallTripleForTypedPointer(t *testing.T) {
	ctxt := newTestLink()
	gcSym := ctxt.Lookup("gc1", 0)
	gotype := ctxt.Lookup("type.foo", 0)
	s := ctxt.Lookup("ptrfield", 0)
	s.Size = 8
	s.Gotype = gotype

	before := gcSym.Size
	gcAddSym(ctxt, NopArch{}, gcSym, s, 16, 8)
	assert.Greater(t, gcSym.Size, before)
	require.NotEmpty(t, gcSym.R)
}

func TestGCAddSymMarksEveryPointerSlotForUntyped(t *testing.T) {
	ctxt := newTestLink()
	gcSym := ctxt.Lookup("gc1", 0)
	s := ctxt.Lookup("blob", 0)
	s.Size = 24 // three pointer-sized slots, untyped

	gcAddSym(ctxt, NopArch{}, gcSym, s, 0, 8)
	// 3 slots * (opcode + offset), each a pointer-width uint write.
	assert.Equal(t, int64(3*2*8), gcSym.Size)
}
