package styles

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfinfo/internal/render"
)

func TestRenderKeepsText(t *testing.T) {
	for _, c := range []render.Class{render.Banner, render.Register, render.CFI, render.Dim} {
		out := Render(c, "rbp")
		assert.Contains(t, out, "rbp")
		assert.NotEqual(t, "rbp", out, "class %d", c)
	}
}

func TestRenderKeepsTabs(t *testing.T) {
	assert.Contains(t, Render(render.CFI, "a\tb"), "a\tb")
}

func TestSink(t *testing.T) {
	var plain, styled bytes.Buffer

	render.New(Sink(&plain, false)).Put(render.Error, "error").Text(": x").Nl()
	assert.Equal(t, "error: x\n", plain.String())

	render.New(Sink(&styled, true)).Put(render.Error, "error").Text(": x").Nl()
	assert.Contains(t, styled.String(), "\x1b[")
	assert.Contains(t, styled.String(), ": x\n")
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("## Legend\n\n- **F** function\n", 60)
	require.NoError(t, err)
	assert.Contains(t, out, "Legend")
	assert.Contains(t, out, "function")
}
