package analysis

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfinfo/internal/diag"
	"elfinfo/internal/disasm"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/render"
)

// ehFrame holds a "zR" CIE (def_cfa(rsp, 8), offset(rip, 1), nop, nop) and
// one FDE for [0x1000, 0x1010) with advance_loc(4), def_cfa_offset(16),
// advance_loc(4), offset(rbp, 2), nop.
func ehFrame(secAddr uint64) []byte {
	le := binary.LittleEndian
	cie := []byte{
		0, 0, 0, 0, 1, 'z', 'R', 0, 1, 0x78, 16, 1, 0x1b,
		0x0c, 0x07, 0x08, 0x90, 0x01, 0x00, 0x00,
	}
	b := le.AppendUint32(nil, uint32(len(cie)))
	b = append(b, cie...)

	b = le.AppendUint32(b, 20)
	b = le.AppendUint32(b, uint32(len(b)))
	pc := secAddr + uint64(len(b))
	b = le.AppendUint32(b, uint32(int32(0x1000-int64(pc))))
	b = le.AppendUint32(b, 0x10)
	b = append(b, 0, 0x44, 0x0e, 0x10, 0x44, 0x86, 0x02, 0x00)
	return le.AppendUint32(b, 0)
}

func testFDE(t *testing.T) *ehframe.FDE {
	t.Helper()
	sec := ehframe.NewSection(".eh_frame", ehFrame(0x2000), 0x2000, ehframe.DefaultCodec)
	fde, err := sec.FDEFor(0x1000)
	require.NoError(t, err)
	return fde
}

func TestCFIEvents(t *testing.T) {
	fde := testFDE(t)
	prog, err := fde.Program()
	require.NoError(t, err)

	events := CFIEvents(prog, fde.InitialAddress, fde.CIE.CodeFactor())
	addrs := make([]uint64, len(events))
	for i, e := range events {
		addrs[i] = e.Addr
	}
	assert.Equal(t, []uint64{0x1004, 0x1004, 0x1008, 0x1008, 0x1008}, addrs)

	set := []ehframe.Instruction{
		{Op: ehframe.OpSetLoc, Address: 0x2000},
		{Op: ehframe.OpAdvanceLoc1, Operand: 2},
	}
	events = CFIEvents(set, 0x1000, 4)
	assert.Equal(t, uint64(0x2000), events[0].Addr)
	assert.Equal(t, uint64(0x2008), events[1].Addr)
}

func TestCFIEventsBackwardSetLoc(t *testing.T) {
	prog := []ehframe.Instruction{
		{Op: ehframe.OpAdvanceLoc, Operand: 8},
		{Op: ehframe.OpSetLoc, Address: 0x1004},
		{Op: ehframe.OpDefCFAOffset, Operand: 16},
	}
	events := CFIEvents(prog, 0x1000, 1)
	require.Len(t, events, 3)
	assert.False(t, events[0].Backward)
	assert.True(t, events[1].Backward)
	assert.Equal(t, uint64(0x1008), events[1].Addr)
	assert.Equal(t, uint64(0x1008), events[2].Addr)

	// The tracker keeps the same location and reports the bad instruction.
	tr := ehframe.NewTracker(ehframe.X86_64, render.SizePrint{Is64: true})
	tr.Reset(0x1000, &ehframe.CIE{CodeAlign: 1, DataAlign: -8})
	o := render.New(render.Discard)
	require.NoError(t, tr.Apply(o, prog[0]))
	assert.True(t, diag.Is(tr.Apply(o, prog[1]), diag.Malformed))
	assert.Equal(t, events[2].Addr, tr.Loc())
}

func TestOverlayPlacesEventsBetweenInstructions(t *testing.T) {
	fde := testFDE(t)
	tr := ehframe.NewTracker(ehframe.RegistersFor(elf.EM_X86_64), render.SizePrint{Is64: true})
	printer := func(o *render.Out, in disasm.Inst) {
		o.Textf("INST %#x", in.VA).Nl()
	}
	ov, err := NewOverlay(fde, tr, printer)
	require.NoError(t, err)

	var rec render.Recorder
	o := render.New(&rec)
	ov.Step(o, disasm.Inst{VA: 0x1000, Len: 4})
	ov.Step(o, disasm.Inst{VA: 0x1004, Len: 4})
	assert.Equal(t, 3, ov.Pending())
	ov.Flush(o)
	assert.Zero(t, ov.Pending())
	assert.Empty(t, ov.Advisories)

	lines := rec.Lines()
	index := func(sub string) int {
		for i, l := range lines {
			if strings.Contains(l, sub) {
				return i
			}
		}
		return -1
	}

	first, second := index("INST 0x1000"), index("INST 0x1004")
	cfa := index("DW_CFA_def_cfa_offset(16)")
	require.NotEqual(t, -1, cfa)
	assert.Greater(t, cfa, first)
	assert.Less(t, cfa, second)
	assert.Contains(t, lines[cfa], "cfa = %rsp + 16")
	assert.Contains(t, lines[cfa], CFIPrefix)

	// The CIE program comes first, once.
	assert.Equal(t, 0, index("DW_CFA_def_cfa(7, 8)"))
	assert.Equal(t, 2, first)
	assert.Greater(t, index("%rbp @ cfa − 16"), second)
	assert.Equal(t, -1, index("DW_CFA_advance_loc"))
	assert.Equal(t, -1, index("DW_CFA_nop"))
	assert.Len(t, lines, 6)
}

func TestOverlayRun(t *testing.T) {
	fde := testFDE(t)
	tr := ehframe.NewTracker(ehframe.RegistersFor(elf.EM_X86_64), render.SizePrint{Is64: true})
	var seen []uint64
	ov, err := NewOverlay(fde, tr, func(o *render.Out, in disasm.Inst) {
		seen = append(seen, in.VA)
		o.Text(fmt.Sprint(in.VA)).Nl()
	})
	require.NoError(t, err)

	var rec render.Recorder
	ov.Run(render.New(&rec), disasm.Stream{{VA: 0x1000}, {VA: 0x1004}, {VA: 0x1008}, {VA: 0x100c}})
	assert.Equal(t, []uint64{0x1000, 0x1004, 0x1008, 0x100c}, seen)
	assert.Zero(t, ov.Pending())
	assert.NotEmpty(t, rec.Classed(render.CFI))
}

func TestNoUnwindData(t *testing.T) {
	sec := ehframe.NewSection(".eh_frame", ehFrame(0x2000), 0x2000, ehframe.DefaultCodec)
	_, err := sec.FDEFor(0x5000)
	assert.True(t, diag.Is(err, diag.NotFound))
}
