package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizePrint(t *testing.T) {
	assert.Equal(t, "0x00000000'00401000", SizePrint{Is64: true}.Hex(0x401000))
	assert.Equal(t, "0x00000001'00000002", SizePrint{Is64: true}.Hex(0x100000002))
	assert.Equal(t, "0x0804'9000", SizePrint{}.Hex(0x08049000))
	assert.Len(t, SizePrint{Is64: true}.Hex(0), SizePrint{Is64: true}.Width())
	assert.Len(t, SizePrint{}.Hex(0), SizePrint{}.Width())
}

func TestBinSize(t *testing.T) {
	tests := []struct {
		n     uint64
		width int
		want  string
	}{
		{n: 12, want: "12 B"},
		{n: 2048, want: "2.00 KiB"},
		{n: 3 * 1024 * 1024, want: "3.00 MiB"},
		{n: 12, width: 10, want: "    12 B  "},
		{n: 1536, width: 10, want: "  1.50 KiB"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BinSize(tc.n, tc.width))
	}
}

func TestPlainSinkIgnoresClasses(t *testing.T) {
	var buf bytes.Buffer
	o := New(NewPlainSink(&buf))
	o.Put(Register, "%rsp").Text(" + ").Put(Number, "8").Nl()
	assert.Equal(t, "%rsp + 8\n", buf.String())
}

func TestStyledSinkLeavesPlainAndWhitespace(t *testing.T) {
	var buf bytes.Buffer
	style := func(c Class, s string) string { return "<" + s + ">" }
	o := New(NewStyledSink(&buf, style))
	o.Put(Mnemonic, "mov").Put(Dim, "   ").Text(" x").Nl()
	assert.Equal(t, "<mov>    x\n", buf.String())
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	o := New(&rec)
	o.Put(Register, "rbp").Text(" ").Put(Register, "rsp").Nl().Warn("odd")

	assert.Equal(t, []string{"rbp", "rsp"}, rec.Classed(Register))
	assert.Equal(t, []string{"rbp rsp", "warning: odd"}, rec.Lines())
}

func TestBanner(t *testing.T) {
	var rec Recorder
	New(&rec).PrintBanner("SECTIONS (3)")
	line := rec.Lines()[0]
	assert.True(t, strings.HasPrefix(line, "───┤ SECTIONS (3) ├─"))
	assert.Equal(t, len([]rune("───┤  ├"))+BannerWidth, len([]rune(line)))
}

func TestPairTable(t *testing.T) {
	var rec Recorder
	o := New(&rec)
	PairTable(8).Row(o, "Version", Plain, "1")
	assert.Equal(t, []string{" Version │ 1"}, rec.Lines())
	assert.Equal(t, []string{" Version"}, rec.Classed(Field))
}

func TestHexdump(t *testing.T) {
	var rec Recorder
	New(&rec).Hexdump([]byte("ELF\x00abcdefghijklmnopq"), 0x100)
	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "     100 │  45 4c 46 00 61 62 63 64 │ 65 66 67 68 69 6a 6b 6c  │ELF╳abcd│efghijkl│", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "     110 │  6d 6e 6f 70 71"))
	assert.True(t, strings.HasSuffix(lines[1], "mnopq───│────────│"))
}
