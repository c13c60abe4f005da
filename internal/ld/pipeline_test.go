package ld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlyone/linkcore/internal/obj"
)

func TestLinkRunsFullPipelineToCompletion(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	fn := ctxt.Lookup("main.main", 0)
	fn.Kind = obj.STEXT
	fn.Reachable = true
	fn.Size = 16
	ctxt.Textp = []*obj.LSym{fn}

	greeting := ctxt.Lookup("greeting", 0)
	ctxt.SetStringData("greeting", "hello")

	result, err := Link(ctxt, cfg, NopArch{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Contains(t, result.Datap, greeting)
	assert.Equal(t, int64(cfg.InitText), fn.Value)
	assert.False(t, ctxt.Diag.Failed())
}

func TestLinkReportsFailureButStillCompletesAllPhases(t *testing.T) {
	ctxt := newTestLink()
	cfg := testConfig('6', HeadELF, false)

	s := ctxt.Lookup("holder", 0)
	broken := ctxt.Lookup("nevernamed", 0) // left Sxxx: an unresolved reference
	ctxt.AddAddr(s, broken, 0)
	s.Reachable = true
	s.Kind = obj.SDATA

	_, err := Link(ctxt, cfg, NopArch{})
	require.Error(t, err)
	assert.True(t, ctxt.Diag.Failed())
}
