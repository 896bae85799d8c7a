package views

import (
	"debug/elf"
	"fmt"
	"strconv"
	"strings"

	"elfinfo/internal/analysis"
	"elfinfo/internal/diag"
	"elfinfo/internal/disasm"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/elfx"
	"elfinfo/internal/render"
	"elfinfo/internal/ui/colorize"
)

// FunctionOptions select the function to disassemble and how.
type FunctionOptions struct {
	Name string
	// Address makes Name a hexadecimal address, with or without 0x.
	Address bool
	CFI     bool
	Syntax  disasm.Syntax
}

// ParseAddress parses a hexadecimal address with an optional 0x prefix.
func ParseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, diag.Invalidf("couldn't parse memory address '%s'", s).Wrap(err)
	}
	return v, nil
}

func (c *Context) lookupFunction(opts FunctionOptions) (*elfx.Symbol, error) {
	if !opts.Address {
		return c.Image.FindSymbol(opts.Name)
	}
	addr, err := ParseAddress(opts.Name)
	if err != nil {
		return nil, err
	}
	return c.Image.SymbolContaining(addr)
}

// functionRange returns the bytes to disassemble for sym. A symbol without
// a size runs to the end of its section.
func (c *Context) functionRange(sym *elfx.Symbol, name string) ([]byte, error) {
	size := sym.Size
	if size == 0 {
		s, ok := c.Image.SectionContaining(sym.Value)
		if !ok {
			return nil, diag.Invalidf("symbol %q has no size and no section holds %#x", name, sym.Value)
		}
		size = s.Addr + s.Size - sym.Value
		c.warn(diag.Advisoryf("symbol %q has no size, disassembling up to the end of %s", name, s.Name))
	}
	return c.Image.SliceVA(sym.Value, size)
}

// Function disassembles one function, optionally with its call frame
// information interleaved.
func (c *Context) Function(opts FunctionOptions) error {
	o, im := c.Out, c.Image
	sym, err := c.lookupFunction(opts)
	if err != nil {
		return err
	}
	name := sym.DisplayName(c.Demangle)

	if sym.Type != elf.STT_FUNC {
		typ, _ := symbolType(sym.Type)
		c.warn(diag.Advisoryf("Symbol %q has type %s", name, typ))
	}

	code, err := c.functionRange(sym, name)
	if err != nil {
		return err
	}

	dec, err := disasm.New(im.File.Machine, opts.Syntax, func(addr uint64) (string, uint64, bool) {
		return im.SymbolName(addr, c.Demangle)
	})
	if err != nil {
		return err
	}
	stream := dec.Disassemble(code, sym.Value)
	c.debug("disassembled", "symbol", name, "instructions", len(stream))

	classifier := colorize.ForMachine(im.File.Machine, opts.Syntax == disasm.Intel)
	used := dec.Used()
	printer := func(o *render.Out, in disasm.Inst) {
		c.instLine(o, classifier, used, in)
	}

	o.Put(render.Bright, name+":").Nl()

	if opts.CFI {
		ov, err := c.overlayFor(sym.Value, printer)
		if err != nil {
			if diag.KindOf(err) == diag.Malformed {
				return err
			}
			c.warn(err)
		} else {
			ov.Run(o, stream)
			for _, a := range ov.Advisories {
				c.cfaAdvisory(a)
			}
			return nil
		}
	}

	for _, in := range stream {
		printer(o, in)
	}
	return nil
}

// overlayFor finds the FDE covering addr in .eh_frame, or .debug_frame.
func (c *Context) overlayFor(addr uint64, printer analysis.InstPrinter) (*analysis.Overlay, error) {
	sec, err := c.frameSection("")
	if err != nil {
		return nil, err
	}
	fde, err := sec.FDEFor(addr)
	if err != nil {
		return nil, err
	}
	tr := ehframe.NewTracker(c.Regs, c.SP)
	return analysis.NewOverlay(fde, tr, printer)
}

// instLine prints "address │  bytes │  text".
func (c *Context) instLine(o *render.Out, cl *colorize.Classifier, used []string, in disasm.Inst) {
	o.Put(render.Address, c.SP.Hex(in.VA))
	o.Put(render.Bright, " │  ")

	var hex strings.Builder
	if len(in.Bytes) > 12 {
		for _, b := range in.Bytes {
			fmt.Fprintf(&hex, "%02x", b)
		}
	} else {
		for _, b := range in.Bytes {
			fmt.Fprintf(&hex, "%02x ", b)
		}
	}
	o.Textf("%-24s", hex.String())
	o.Put(render.Bright, " │  ")

	if in.Bad {
		o.Put(render.Error, in.Text).Nl()
		return
	}
	o.Tokens(cl.Tokens(in.Text, used)).Nl()
}
