package views

import (
	"fmt"

	"elfinfo/internal/diag"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/render"
)

// EhOptions select the unwind section and the FDEs to show.
type EhOptions struct {
	// Section overrides the .eh_frame/.debug_frame lookup.
	Section string
	// Symbol restricts the listing to the FDE covering that symbol.
	Symbol     string
	Address    uint64
	HasAddress bool
}

const (
	cieIndent = "│  ├╴"
	cieInsn   = "│  ├──⮞ "
	fdeIndent = "│  │  ├╴"
	fdeInsn   = "│  │  ├──⮞ "
)

// frameSection opens the named unwind section, or .eh_frame then
// .debug_frame when name is empty.
func (c *Context) frameSection(name string) (*ehframe.Section, error) {
	im := c.Image
	if name == "" {
		name = ".eh_frame"
		if im.File.Section(name) == nil {
			name = ".debug_frame"
		}
		if im.File.Section(name) == nil {
			return nil, diag.NotFoundf("", "couldn't find section `.eh_frame` or `.debug_frame`")
		}
	}
	s, err := im.Section(name)
	if err != nil {
		return nil, err
	}
	data, err := im.SectionBytes(s)
	if err != nil {
		return nil, err
	}
	return ehframe.NewSection(s.Name, data, s.Addr, c.codec()), nil
}

// EhFrame lists the CIEs and FDEs of an unwind section.
func (c *Context) EhFrame(opts EhOptions) error {
	sec, err := c.frameSection(opts.Section)
	if err != nil {
		return err
	}

	var filter *uint64
	if opts.HasAddress {
		addr := opts.Address
		filter = &addr
	}
	if opts.Symbol != "" {
		sym, err := c.Image.FindSymbol(opts.Symbol)
		if err != nil {
			return err
		}
		addr := sym.Value
		filter = &addr
	}
	return c.ehFrame(sec.Name, sec.Data, sec.Addr, filter)
}

func (c *Context) ehFrame(name string, data []byte, addr uint64, filter *uint64) error {
	sec := ehframe.NewSection(name, data, addr, c.codec())
	tr := ehframe.NewTracker(c.Regs, c.SP)

	var cies, fdes int
	it := sec.Entries()
	for it.Next() {
		e := it.Entry()
		switch {
		case e.Err != nil:
			c.warn(e.Err)

		case e.CIE != nil:
			cies++
			c.cieHeader(e.CIE)
			prog, err := e.CIE.Program()
			if err != nil {
				c.warn(err)
			}
			tr.Reset(0, e.CIE)
			c.replay(tr, prog, cieInsn)

		case e.FDE != nil:
			fde := e.FDE
			if filter != nil && !fde.Contains(*filter) {
				continue
			}
			fdes++
			c.fdeHeader(fde)
			tr.Reset(fde.InitialAddress, fde.CIE)
			if cieProg, err := fde.CIE.Program(); err == nil {
				c.cfaAdvisory(tr.Prime(cieProg))
			}
			prog, err := fde.Program()
			if err != nil {
				c.warn(err)
			}
			c.replay(tr, prog, fdeInsn)
		}
	}
	c.debug("unwind section listed", "section", name, "cies", cies, "fdes", fdes)
	return it.Err()
}

func (c *Context) replay(tr *ehframe.Tracker, prog []ehframe.Instruction, prefix string) {
	for _, in := range prog {
		c.Out.Text(prefix)
		c.cfaAdvisory(tr.Apply(c.Out, in))
	}
}

// cfaAdvisory logs a tracker result. Advisories are expected in real
// binaries and only go to the debug log; anything else is a warning.
func (c *Context) cfaAdvisory(err error) {
	switch {
	case err == nil:
	case diag.KindOf(err) == diag.Advisory:
		c.debug("cfa advisory", "err", err)
	default:
		c.warn(err)
	}
}

func (c *Context) cieHeader(cie *ehframe.CIE) {
	o := c.Out
	table := render.PairTable(20)
	row := func(name string, class render.Class, value string) {
		o.Text(cieIndent)
		table.Row(o, name, class, value)
	}

	o.Text("│").Nl()
	o.Text("├╴ ").Put(render.Bright, "CIE").Textf("  offset=%s", c.SP.Hex(cie.Offset)).Nl()
	row("Version", render.Plain, fmt.Sprint(cie.Version))
	row("Length", render.Plain, fmt.Sprint(cie.Length))
	row("Augmentation", render.Plain, cie.Augmentation)
	row("Code alignment", render.Plain, fmt.Sprint(cie.CodeAlign))
	row("Data alignment", render.Plain, fmt.Sprint(cie.DataAlign))
	o.Text(cieIndent)
	table.Field(o, "Return addr register")
	o.Textf("%d (", cie.ReturnRegister).
		Put(render.Register, "%"+ehframe.RegisterName(c.Regs, cie.ReturnRegister)).
		Text(")").Nl()
}

func (c *Context) fdeHeader(fde *ehframe.FDE) {
	o := c.Out
	table := render.PairTable(10)

	o.Text("│  │").Nl()
	o.Text("│  ├╴ ").Put(render.Bright, "FDE").
		Textf("  offset=%s  CIE=%s", c.SP.Hex(fde.Offset), c.SP.Hex(fde.CIE.Offset)).Nl()

	o.Text(fdeIndent)
	table.Field(o, "PC range")
	o.Put(render.Address, c.SP.Hex(fde.InitialAddress)).Text("..").
		Put(render.Address, c.SP.Hex(fde.End())).Nl()

	if sym, ok := c.Image.NearestSymbol(fde.InitialAddress); ok {
		o.Text(fdeIndent)
		table.Field(o, "Symbol")
		o.Put(render.FunctionAddr, sym.DisplayName(c.Demangle)).
			Textf(" + %#x", fde.InitialAddress-sym.Value).Nl()
	}
}

// EhFrameHdr renders the binary search table of .eh_frame_hdr.
func (c *Context) EhFrameHdr(data []byte, addr uint64) error {
	o := c.Out
	hdr, err := ehframe.ParseHdr(data, addr, c.codec())
	if hdr == nil {
		return err
	}

	table := render.PairTable(22)
	o.PrintHeading("Header")
	table.Row(o, "Version", render.Plain, fmt.Sprint(hdr.Version))
	table.Row(o, "eh_frame_ptr encoding", render.Plain, hdr.EhFramePtrEnc.Describe())
	table.Row(o, "fde_count encoding", render.Plain, hdr.FDECountEnc.Describe())
	table.Row(o, "Table encoding", render.Plain, hdr.TableEnc.Describe())
	table.Field(o, ".eh_frame pointer")
	o.Text(hdr.EhFramePtr.String()).Text("  (-> ").
		Put(render.Address, c.SP.Hex(hdr.EhFramePtrAddr)).Text(")").Nl()
	table.Row(o, "Nr entries", render.Plain, fmt.Sprint(hdr.Count))

	o.Nl()
	o.PrintHeading("Table content")
	for _, e := range hdr.Entries {
		o.Text("\t").Putf(render.Dim, "(%10s)", e.Start.String()).
			Text("  ").Put(render.Address, c.SP.Hex(e.StartAddr)).
			Text("  ->  ").Put(render.Address, c.SP.Hex(e.FDEAddr)).
			Text("  ").Putf(render.Dim, "(%10s)", e.FDE.String()).Nl()
	}
	if err != nil {
		c.warn(err)
	}
	return nil
}
