package views

import (
	"fmt"

	"elfinfo/internal/elfx"
	"elfinfo/internal/render"
)

// Relocations lists every REL and RELA section, one banner per section.
func (c *Context) Relocations() error {
	o, im := c.Out, c.Image
	secs, err := im.Relocations()

	w := c.SP.Width()
	for i, rs := range secs {
		if i > 0 {
			o.Nl()
		}
		o.PrintBanner(fmt.Sprintf("%s (%d)", rs.Section.Name, len(rs.Entries)))
		o.Putf(render.Field, "%*s", w, "Offset").Put(render.Bright, " │ ").
			Putf(render.Field, "%-24s", "Type").Put(render.Bright, " │ ").
			Putf(render.Field, "%-19s", "Addend").Put(render.Bright, " │ ").
			Put(render.Field, "Symbol").Nl()

		for _, r := range rs.Entries {
			c.relocLine(r)
		}
	}
	if len(secs) == 0 {
		o.Put(render.Dim, "no relocation sections").Nl()
	}
	return err
}

func (c *Context) relocLine(r elfx.Relocation) {
	o := c.Out
	o.Put(render.Address, c.SP.Hex(r.Offset))
	sep(o)
	o.Putf(render.Yellow, "%-24s", elfx.RelocTypeName(c.Image.File.Machine, r.Type))
	sep(o)
	switch {
	case !r.HasAddend:
		o.Putf(render.Dim, "%-19s", "-")
	case r.Addend < 0:
		o.Putf(render.Number, "%-19s", fmt.Sprintf("-%#x", -r.Addend))
	default:
		o.Putf(render.Number, "%-19s", fmt.Sprintf("%#x", r.Addend))
	}
	sep(o)
	if r.Symbol != nil && r.Symbol.Name != "" {
		o.Put(nameClass(r.Symbol), r.Symbol.DisplayName(c.Demangle))
	} else {
		o.Putf(render.Dim, "[%d]", r.SymIndex)
	}
	o.Nl()
}
