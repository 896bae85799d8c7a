package disasm

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfinfo/internal/diag"
)

func TestX86Prologue(t *testing.T) {
	d, err := New(elf.EM_X86_64, ATT, nil)
	require.NoError(t, err)

	s := d.Disassemble([]byte{0x55, 0x48, 0x89, 0xe5, 0xc3}, 0x401000)
	require.Len(t, s, 3)

	assert.Equal(t, "push", s[0].Op)
	assert.Equal(t, 1, s[0].Len)
	assert.Contains(t, s[0].Text, "%rbp")

	assert.Equal(t, "mov", s[1].Op)
	assert.Equal(t, uint64(0x401001), s[1].VA)
	assert.Equal(t, []byte{0x48, 0x89, 0xe5}, s[1].Bytes)
	assert.Contains(t, s[1].Text, "%rsp,%rbp")

	assert.Equal(t, "ret", s[2].Op)
	assert.Equal(t, uint64(0x401004), s[2].VA)
}

func TestX86Intel(t *testing.T) {
	d, err := New(elf.EM_X86_64, Intel, nil)
	require.NoError(t, err)
	in := d.Decode([]byte{0x48, 0x89, 0xe5}, 0)
	assert.Contains(t, in.Text, "rbp, rsp")
}

func TestX86SymbolOperand(t *testing.T) {
	resolve := func(addr uint64) (string, uint64, bool) {
		if addr == 0x2000 {
			return "puts", 0x2000, true
		}
		return "", 0, false
	}
	d, err := New(elf.EM_X86_64, ATT, resolve)
	require.NoError(t, err)

	in := d.Decode([]byte{0xe8, 0xfb, 0x0f, 0x00, 0x00}, 0x1000)
	assert.Equal(t, 5, in.Len)
	assert.Contains(t, in.Text, "puts")
	assert.Equal(t, []string{"puts"}, d.Used())
}

func TestX86BadBytes(t *testing.T) {
	d, err := New(elf.EM_X86_64, ATT, nil)
	require.NoError(t, err)
	s := d.Disassemble([]byte{0x06, 0xc3}, 0)
	require.Len(t, s, 2)
	assert.True(t, s[0].Bad)
	assert.Equal(t, "(bad)", s[0].Text)
	assert.Equal(t, "ret", s[1].Op)
}

func TestARM64(t *testing.T) {
	resolve := func(addr uint64) (string, uint64, bool) {
		if addr >= 0x1008 {
			return "foo", 0x1008, true
		}
		return "", 0, false
	}
	d, err := New(elf.EM_AARCH64, ATT, resolve)
	require.NoError(t, err)

	s := d.Disassemble([]byte{
		0xfd, 0x7b, 0xbf, 0xa9, // stp x29, x30, [sp,#-16]!
		0x02, 0x00, 0x00, 0x94, // bl .+8
		0xc0, 0x03, 0x5f, 0xd6, // ret
		0x00, 0x00, // truncated
	}, 0x1000)
	require.Len(t, s, 4)
	assert.Equal(t, "stp", s[0].Op)
	assert.Equal(t, "bl 0x1008 <foo>", s[1].Text)
	assert.Equal(t, "ret", s[2].Text)
	assert.True(t, s[3].Bad)
	assert.Equal(t, 2, s[3].Len)
}

func TestUnsupportedMachine(t *testing.T) {
	_, err := New(elf.EM_MIPS, ATT, nil)
	assert.True(t, diag.Is(err, diag.Unsupported))
}

func TestParseSyntax(t *testing.T) {
	s, err := ParseSyntax("Intel")
	require.NoError(t, err)
	assert.Equal(t, Intel, s)
	s, err = ParseSyntax("att")
	require.NoError(t, err)
	assert.Equal(t, ATT, s)
	_, err = ParseSyntax("plan9")
	assert.Error(t, err)
}
