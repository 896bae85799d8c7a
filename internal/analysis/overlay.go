// Package analysis correlates a function's machine instructions with the
// call frame instructions describing its stack frame.
package analysis

import (
	"elfinfo/internal/disasm"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/render"
)

// CFIPrefix starts every call frame line in an overlaid listing.
const CFIPrefix = "[CFI] "

// Event is a call frame instruction with the address it takes effect at.
// For an advance that is the location it moves to.
type Event struct {
	Addr uint64
	Inst ehframe.Instruction
	// Backward marks a DW_CFA_set_loc below the current location. It keeps
	// the previous address, as the tracker does.
	Backward bool
}

// CFIEvents places each instruction of prog, which starts at start, with
// advances scaled by codeAlign (see ehframe.CIE.CodeFactor). The addresses
// never decrease.
func CFIEvents(prog []ehframe.Instruction, start, codeAlign uint64) []Event {
	events := make([]Event, 0, len(prog))
	loc := start
	for _, in := range prog {
		switch in.Op {
		case ehframe.OpSetLoc:
			if in.Address < loc {
				events = append(events, Event{Addr: loc, Inst: in, Backward: true})
				continue
			}
			loc = in.Address
		case ehframe.OpAdvanceLoc, ehframe.OpAdvanceLoc1, ehframe.OpAdvanceLoc2, ehframe.OpAdvanceLoc4:
			loc += uint64(in.Operand) * codeAlign
		}
		events = append(events, Event{Addr: loc, Inst: in})
	}
	return events
}

// InstPrinter writes one machine instruction line, newline included.
type InstPrinter func(o *render.Out, in disasm.Inst)

// Overlay merges two forward only sequences: decoded instructions and the
// call frame events of the FDE covering them.
type Overlay struct {
	tracker *ehframe.Tracker
	print   InstPrinter
	cie     []ehframe.Instruction
	events  []Event
	next    int
	started bool

	// Advisories collects the non fatal problems met while replaying.
	Advisories []error
}

// NewOverlay prepares the overlay of fde. The tracker is reset to the FDE's
// initial address.
func NewOverlay(fde *ehframe.FDE, tr *ehframe.Tracker, print InstPrinter) (*Overlay, error) {
	cie, err := fde.CIE.Program()
	if err != nil {
		return nil, err
	}
	prog, err := fde.Program()
	if err != nil {
		return nil, err
	}
	tr.Reset(fde.InitialAddress, fde.CIE)
	return &Overlay{
		tracker: tr,
		print:   print,
		cie:     cie,
		events:  CFIEvents(prog, fde.InitialAddress, fde.CIE.CodeFactor()),
	}, nil
}

// apply replays in. Advances and padding only move the tracker; the
// listing itself shows where the location changed.
func (ov *Overlay) apply(o *render.Out, in ehframe.Instruction) {
	if in.IsAdvance() || in.Op == ehframe.OpNop {
		_ = ov.tracker.Apply(render.New(render.Discard), in)
		return
	}
	o.Put(render.CFI, CFIPrefix)
	if err := ov.tracker.Apply(o, in); err != nil {
		ov.Advisories = append(ov.Advisories, err)
	}
}

// prologue replays the CIE's initial instructions, once.
func (ov *Overlay) prologue(o *render.Out) {
	if ov.started {
		return
	}
	ov.started = true
	for _, in := range ov.cie {
		ov.apply(o, in)
	}
	ov.tracker.MarkInitial()
}

// Step prints every pending event that takes effect at or before in.VA and
// then in itself.
func (ov *Overlay) Step(o *render.Out, in disasm.Inst) {
	ov.prologue(o)
	for ov.next < len(ov.events) && ov.events[ov.next].Addr <= in.VA {
		ov.apply(o, ov.events[ov.next].Inst)
		ov.next++
	}
	ov.print(o, in)
}

// Flush prints the events left after the last instruction.
func (ov *Overlay) Flush(o *render.Out) {
	ov.prologue(o)
	for ; ov.next < len(ov.events); ov.next++ {
		ov.apply(o, ov.events[ov.next].Inst)
	}
}

// Pending is the number of events not printed yet.
func (ov *Overlay) Pending() int { return len(ov.events) - ov.next }

// Run overlays the whole stream.
func (ov *Overlay) Run(o *render.Out, stream disasm.Stream) {
	for _, in := range stream {
		ov.Step(o, in)
	}
	ov.Flush(o)
}
