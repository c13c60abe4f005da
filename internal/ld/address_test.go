package ld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlyone/linkcore/internal/obj"
)

func TestAssignAddressesOrdersSegtextBeforeSegdata(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	fn := ctxt.Lookup("main.main", 0)
	fn.Kind = obj.STEXT
	fn.Reachable = true
	fn.Size = 32
	fn.Text = []int64{0, 4, 8}
	ctxt.Textp = []*obj.LSym{fn}

	d := ctxt.Lookup("global", 0)
	d.Kind = obj.SDATA
	d.Reachable = true
	d.Size = 8

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	assert.Equal(t, int64(cfg.InitText), fn.Value)
	assert.Equal(t, []int64{cfg.InitText, cfg.InitText + 4, cfg.InitText + 8}, fn.Text)
	assert.Less(t, int64(l.Segtext.Vaddr), int64(l.Segdata.Vaddr))
	assert.GreaterOrEqual(t, d.Value, int64(l.Segdata.Vaddr))
}

func TestAssignAddressesDefinesTextSentinels(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	fn := ctxt.Lookup("main.main", 0)
	fn.Kind = obj.STEXT
	fn.Reachable = true
	fn.Size = 16
	ctxt.Textp = []*obj.LSym{fn}

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	text := ctxt.RLookup("text", 0)
	etext := ctxt.RLookup("etext", 0)
	require.NotNil(t, text)
	require.NotNil(t, etext)
	assert.Equal(t, int64(cfg.InitText), text.Value)
	assert.Equal(t, int64(cfg.InitText+16), etext.Value)
}

func TestAssignAddressesDefinesDataBoundarySentinels(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	b := ctxt.Lookup("bulk", 0)
	b.Kind = obj.SDATA
	b.Reachable = true
	b.Size = 8

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	data := l.Sentinels["data"]
	edata := l.Sentinels["edata"]
	require.NotNil(t, data)
	require.NotNil(t, edata)
	assert.Equal(t, b.Value, data.Value)
	assert.Greater(t, edata.Value, data.Value)
}

func TestTextAddressHonorsExplicitAlignOverFuncAlign(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)
	cfg.FuncAlign = 16

	first := ctxt.Lookup("main.main", 0)
	first.Kind = obj.STEXT
	first.Reachable = true
	first.Size = 3 // leaves va unaligned for the next symbol

	aligned := ctxt.Lookup("main.bigAligned", 0)
	aligned.Kind = obj.STEXT
	aligned.Reachable = true
	aligned.Size = 8
	aligned.Align = 64

	ctxt.Textp = []*obj.LSym{first, aligned}

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	assert.Zero(t, aligned.Value%64, "explicit s.Align must win over cfg.FuncAlign")
}

func TestTextAddressSkipsAlignmentForTextlessSymbol(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)
	cfg.FuncAlign = 16

	first := ctxt.Lookup("main.main", 0)
	first.Kind = obj.STEXT
	first.Reachable = true
	first.Size = 3
	first.Text = []int64{0}

	noBody := ctxt.Lookup("main.declOnly", 0)
	noBody.Kind = obj.STEXT
	noBody.Reachable = true
	noBody.Size = 1
	// Text left nil: no instruction stream, so no rounding to FuncAlign.

	ctxt.Textp = []*obj.LSym{first, noBody}

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	assert.Equal(t, first.Value+first.Size, noBody.Value)
}

func TestAssignAddressesRebasesSubSymbols(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	outer := ctxt.Lookup("main.main", 0)
	outer.Kind = obj.STEXT
	outer.Reachable = true
	outer.Size = 32

	sub := ctxt.Lookup("main.main.func1", 0)
	sub.Kind = obj.STEXT
	sub.Value = 20 // offset within outer, as recorded by the front end
	sub.Text = []int64{0}
	outer.AddSub(sub)

	ctxt.Textp = []*obj.LSym{outer}

	datap := Classify(ctxt)
	l := Run(ctxt, cfg, NopArch{}, datap)
	AssignAddresses(ctxt, cfg, l)

	assert.Equal(t, outer.Value+20, sub.Value)
	assert.Equal(t, []int64{sub.Value}, sub.Text)
}
