package ehframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfinfo/internal/diag"
	"elfinfo/internal/render"
)

func newTestTracker(loc uint64) (*Tracker, *render.Recorder, *render.Out) {
	var rec render.Recorder
	tr := NewTracker(X86_64, render.SizePrint{Is64: true})
	tr.Reset(loc, &CIE{CodeAlign: 1, DataAlign: -8})
	return tr, &rec, render.New(&rec)
}

func TestTrackerOffsetUsesDataAlign(t *testing.T) {
	tr, rec, o := newTestTracker(0)
	require.NoError(t, tr.Apply(o, Instruction{Op: OpOffset, Reg: 6, Operand: 2}))

	assert.Equal(t, []string{"DW_CFA_offset(6, 2)\t\t%rbp @ cfa − 16"}, rec.Lines())
	assert.Equal(t, Rule{Kind: RuleOffset, Offset: -16}, tr.State().Registers[6])
	assert.Equal(t, []string{"%rbp"}, rec.Classed(render.Register))
}

func TestTrackerCFARules(t *testing.T) {
	tr, rec, o := newTestTracker(0x1000)
	prog := []Instruction{
		{Op: OpDefCFA, Reg: 7, Operand: 8},
		{Op: OpAdvanceLoc, Operand: 4},
		{Op: OpDefCFAOffset, Operand: 16},
		{Op: OpDefCFARegister, Reg: 6},
		{Op: OpNop},
	}
	for _, in := range prog {
		require.NoError(t, tr.Apply(o, in))
	}

	assert.Equal(t, []string{
		"DW_CFA_def_cfa(7, 8)\t\tcfa = %rsp + 8",
		"DW_CFA_advance_loc(4)\tloc += 4\tloc = 0x00000000'00001004",
		"DW_CFA_def_cfa_offset(16)\tcfa = %rsp + 16",
		"DW_CFA_def_cfa_register(6)\tcfa = %rbp + 16",
		"DW_CFA_nop()",
	}, rec.Lines())
	assert.Equal(t, uint64(0x1004), tr.Loc())

	st := tr.State()
	assert.Equal(t, uint64(6), st.CFARegister)
	assert.Equal(t, int64(16), st.CFAOffset)
	assert.Contains(t, rec.Classed(render.Dim), "%rsp")
}

func TestTrackerCodeAlign(t *testing.T) {
	tr, rec, o := newTestTracker(0x400)
	tr.Reset(0x400, &CIE{CodeAlign: 4, DataAlign: -8})
	require.NoError(t, tr.Apply(o, Instruction{Op: OpAdvanceLoc1, Operand: 3}))
	assert.Equal(t, uint64(0x40c), tr.Loc())
	assert.Equal(t, "DW_CFA_advance_loc1(3)\tloc += 12\tloc = 0x00000000'0000040c", rec.Lines()[0])
}

func TestTrackerZeroCodeAlign(t *testing.T) {
	tr, _, o := newTestTracker(0x400)
	tr.Reset(0x400, &CIE{CodeAlign: 0, DataAlign: -8})
	require.NoError(t, tr.Apply(o, Instruction{Op: OpAdvanceLoc, Operand: 3}))
	assert.Equal(t, uint64(0x403), tr.Loc())
}

func TestTrackerSetLoc(t *testing.T) {
	tr, rec, o := newTestTracker(0x2000)
	require.NoError(t, tr.Apply(o, Instruction{Op: OpSetLoc, Address: 0x2010}))
	assert.Equal(t, uint64(0x2010), tr.Loc())

	err := tr.Apply(o, Instruction{Op: OpSetLoc, Address: 0x1000, Offset: 0x24})
	assert.True(t, diag.Is(err, diag.Malformed))
	assert.Equal(t, uint64(0x2010), tr.Loc())

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, uint64(0x24), de.Offset)

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "DW_CFA_set_loc(0x2010)\tloc = 0x00000000'00002010", lines[0])
	assert.Contains(t, lines[1], "loc = 0x00000000'00002010")
	assert.Equal(t, []string{"(backward, ignored)"}, rec.Classed(render.Warning))
}

func TestTrackerRememberRestore(t *testing.T) {
	tr, _, o := newTestTracker(0)
	prog := []Instruction{
		{Op: OpDefCFA, Reg: 7, Operand: 8},
		{Op: OpRememberState},
		{Op: OpDefCFAOffset, Operand: 32},
		{Op: OpOffset, Reg: 3, Operand: 3},
		{Op: OpRestoreState},
	}
	for _, in := range prog {
		require.NoError(t, tr.Apply(o, in))
	}
	st := tr.State()
	assert.Equal(t, int64(8), st.CFAOffset)
	assert.NotContains(t, st.Registers, uint64(3))

	err := tr.Apply(o, Instruction{Op: OpRestoreState, Offset: 0x33})
	assert.True(t, diag.Is(err, diag.Advisory))
	assert.Contains(t, err.Error(), "0x33")
}

func TestTrackerRestoreToInitial(t *testing.T) {
	tr, rec, o := newTestTracker(0)
	require.NoError(t, tr.Prime([]Instruction{
		{Op: OpDefCFA, Reg: 7, Operand: 8},
		{Op: OpOffset, Reg: 16, Operand: 1},
	}))
	assert.Empty(t, rec.Tokens)

	require.NoError(t, tr.Apply(o, Instruction{Op: OpOffset, Reg: 16, Operand: 4}))
	require.NoError(t, tr.Apply(o, Instruction{Op: OpRestore, Reg: 16}))
	assert.Equal(t, Rule{Kind: RuleOffset, Offset: -8}, tr.State().Registers[16])
	assert.Equal(t, "DW_CFA_restore(16)\t\t%rip @ (initial rule)", rec.Lines()[1])
}

func TestTrackerRegisterRules(t *testing.T) {
	tr, rec, o := newTestTracker(0)
	for _, in := range []Instruction{
		{Op: OpUndefined, Reg: 16},
		{Op: OpSameValue, Reg: 3},
		{Op: OpRegister, Reg: 6, Reg2: 7},
		{Op: OpExpression, Reg: 6, Expr: []byte{0x77, 0x08}},
		{Op: OpValOffsetSf, Reg: 12, Operand: -1},
		{Op: OpDefCFASf, Reg: 7, Operand: -2},
		{Op: OpGNUArgsSize, Operand: 16},
		{Op: OpOffset, Reg: 200, Operand: 1},
	} {
		require.NoError(t, tr.Apply(o, in))
	}
	assert.Equal(t, []string{
		"DW_CFA_undefined(16)\t\t%rip @ ??? (unrecoverable)",
		"DW_CFA_same_value(3)\t\t%rbx untouched",
		"DW_CFA_register(6, 7)\t%rbp = %rsp",
		"DW_CFA_expression(6, [77, 08])\t\t%rbp = ...",
		"DW_CFA_val_offset_sf(12, -1)\t\t%r12 = cfa + 8",
		"DW_CFA_def_cfa_sf(7, -2)\t\tcfa = %rsp + 16",
		"DW_CFA_GNU_args_size(16)",
		"DW_CFA_offset(200, 1)\t\t%??? @ cfa − 8",
	}, rec.Lines())
}

func TestRegisterNames(t *testing.T) {
	tests := []struct {
		names RegisterNames
		id    uint64
		want  string
	}{
		{X86_64, 7, "rsp"},
		{X86_64, 12, "r12"},
		{X86_64, 16, "rip"},
		{X86_64, 17, "xmm0"},
		{X86_64, 32, "xmm15"},
		{X86_64, 41, "mm0"},
		{AArch64, 29, "x29"},
		{AArch64, 31, "sp"},
		{AArch64, 95, "v31"},
		{I386, 4, "esp"},
		{X86_64, 500, "???"},
		{nil, 0, "???"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RegisterName(tc.names, tc.id))
	}
}
