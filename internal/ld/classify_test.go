package ld

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlyone/linkcore/internal/obj"
)

func newTestLink() *obj.Link {
	return obj.NewLink(8, binary.LittleEndian)
}

func TestClassifyExcludesUnreachableAndSpecial(t *testing.T) {
	ctxt := newTestLink()

	live := ctxt.Lookup("live", 0)
	live.Kind = obj.SDATA
	live.Reachable = true

	dead := ctxt.Lookup("dead", 0)
	dead.Kind = obj.SDATA
	dead.Reachable = false

	special := ctxt.Lookup("special", 0)
	special.Kind = obj.SDATA
	special.Reachable = true
	special.Special = true

	text := ctxt.Lookup("text.fn", 0)
	text.Kind = obj.STEXT
	text.Reachable = true

	datap := Classify(ctxt)
	require.Len(t, datap, 1)
	assert.Equal(t, "live", datap[0].Name)
}

func TestClassifyExcludesSubSymbols(t *testing.T) {
	ctxt := newTestLink()

	outer := ctxt.Lookup("outer", 0)
	outer.Kind = obj.SDATA
	outer.Reachable = true
	outer.Size = 16

	sub := ctxt.Lookup("outer.sub", 0)
	sub.Kind = obj.SDATA
	sub.Reachable = true
	sub.Size = 4
	outer.AddSub(sub)

	datap := Classify(ctxt)
	require.Len(t, datap, 1, "a sub-symbol must not be classified a second time alongside its outer symbol")
	assert.Equal(t, "outer", datap[0].Name)
}

func TestClassifyPromotesBSSWithPayload(t *testing.T) {
	ctxt := newTestLink()

	s := ctxt.Lookup("hasinit", 0)
	s.Kind = obj.SBSS
	s.Reachable = true
	ctxt.SetUint(s, 0, 7, 1)

	datap := Classify(ctxt)
	require.Len(t, datap, 1)
	assert.Equal(t, obj.SDATA, datap[0].Kind)
}

func TestClassifyLeavesEmptyBSSAlone(t *testing.T) {
	ctxt := newTestLink()

	s := ctxt.Lookup("zeroed", 0)
	s.Kind = obj.SNOPTRBSS
	s.Reachable = true
	s.Size = 64

	datap := Classify(ctxt)
	require.Len(t, datap, 1)
	assert.Equal(t, obj.SNOPTRBSS, datap[0].Kind)
}

func TestDatSortOrdersByKindThenSizeThenName(t *testing.T) {
	ctxt := newTestLink()

	b := ctxt.Lookup("b", 0)
	b.Kind = obj.SDATA
	b.Reachable = true
	b.Size = 8

	a := ctxt.Lookup("a", 0)
	a.Kind = obj.SDATA
	a.Reachable = true
	a.Size = 8

	small := ctxt.Lookup("small", 0)
	small.Kind = obj.SDATA
	small.Reachable = true
	small.Size = 4

	rodata := ctxt.Lookup("ro", 0)
	rodata.Kind = obj.SRODATA
	rodata.Reachable = true

	datap := Classify(ctxt)
	require.Len(t, datap, 4)
	assert.Equal(t, []string{"small", "a", "b", "ro"}, []string{datap[0].Name, datap[1].Name, datap[2].Name, datap[3].Name})
}

func TestPromoteRelROReclassifiesMarkedSymbols(t *testing.T) {
	ctxt := newTestLink()
	s := ctxt.Lookup("relro", 0)
	s.Kind = obj.SDATA
	s.Reachable = true
	s.RelRO = true

	datap := []*obj.LSym{s}
	PromoteRelRO(datap)
	assert.Equal(t, obj.SDATARELRO, s.Kind)
}
