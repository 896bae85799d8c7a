package render

import (
	"fmt"
	"strings"
)

// BannerWidth is the width of a section banner.
const BannerWidth = 70

// SizePrint formats addresses with a quote between the high and low halves,
// sized after the ELF class.
type SizePrint struct {
	Is64 bool
}

// Hex renders v as 0xhhhhhhhh'llllllll (ELF64) or 0xhhhh'llll (ELF32).
func (sp SizePrint) Hex(v uint64) string {
	if sp.Is64 {
		return fmt.Sprintf("0x%08x'%08x", v>>32, v&0xffffffff)
	}
	return fmt.Sprintf("0x%04x'%04x", v>>16, v&0xffff)
}

// Width is the printed width of Hex.
func (sp SizePrint) Width() int {
	if sp.Is64 {
		return 19
	}
	return 11
}

// BinSize renders n with a binary unit, right aligned in width when width > 0.
func BinSize(n uint64, width int) string {
	var (
		size float64
		unit string
	)
	switch {
	case n < 1024:
		size, unit = float64(n), "B"
	case n < 1024*1024:
		size, unit = float64(n)/1024, "KiB"
	case n < 1024*1024*1024:
		size, unit = float64(n)/1024/1024, "MiB"
	default:
		size, unit = float64(n)/1024/1024/1024, "GiB"
	}

	uw := len(unit)
	if width > 0 {
		uw = 3
	}
	nw := width - uw - 1
	if nw < 0 {
		nw = 0
	}
	if unit == "B" {
		return fmt.Sprintf("%*d %-*s", nw, n, uw, unit)
	}
	return fmt.Sprintf("%*.2f %-*s", nw, size, uw, unit)
}

// PrintBanner emits "───┤ NAME ├───…" padded to BannerWidth.
func (o *Out) PrintBanner(name string) {
	pad := BannerWidth - len([]rune(name))
	if pad < 0 {
		pad = 0
	}
	o.Putf(Banner, "───┤ %s ├%s", name, strings.Repeat("─", pad)).Nl()
}

// PrintHeading emits a "─── name ───" sub heading.
func (o *Out) PrintHeading(name string) {
	o.Putf(Heading, "─── %s ───", name).Nl()
}

// PairTable prints right aligned field names followed by a separator.
type PairTable int

// Field emits the name column.
func (t PairTable) Field(o *Out, name string) {
	o.Putf(Field, "%*s", int(t), name).Put(Bright, " │ ")
}

// Row emits a complete name/value line.
func (t PairTable) Row(o *Out, name string, c Class, value string) {
	t.Field(o, name)
	o.Put(c, value).Nl()
}
