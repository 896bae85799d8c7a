package views

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"

	"elfinfo/internal/diag"
	"elfinfo/internal/render"
)

// Sections lists every section header.
func (c *Context) Sections() error {
	o, secs := c.Out, c.Image.File.Sections
	w := c.SP.Width()

	o.PrintBanner(fmt.Sprintf("SECTIONS (%d)", len(secs)))
	o.Putf(render.Bright, "%2s │ %-20s │ %-12s │ %-*s │ %-22s │", "No", "Name", "Type", w, "Virt. addr.", "Size").Nl()
	o.Put(render.Bright, fmt.Sprintf("%s┼%s┼%s┼%s┼%s┤",
		strings.Repeat("─", 3), strings.Repeat("─", 22), strings.Repeat("─", 14),
		strings.Repeat("─", w+2), strings.Repeat("─", 24))).Nl()

	small := render.SizePrint{}
	for i, s := range secs {
		typ, class := sectionType(s.Type)
		o.Textf("%2d", i)
		sep(o).Textf("%-20s", s.Name)
		sep(o).Putf(class, "%-12s", typ)
		sep(o).Put(dimIfZero(s.Addr, render.Address), c.SP.Hex(s.Addr))
		sep(o)

		size := small.Hex(s.Size)
		if s.Size >= 0xffffffff {
			size = c.SP.Hex(s.Size)
		}
		o.Put(dimIfZero(s.Size, render.Plain), size+" "+render.BinSize(s.Size, 10))
		o.Put(render.Bright, " │").Nl()
	}
	return nil
}

// SectionOptions select what the section view shows.
type SectionOptions struct {
	Name    string
	Output  string
	Hexdump bool
	// Size and Skip are ignored when negative.
	Size int64
	Skip int64
}

// window applies the skip and size options to a section of n bytes,
// reporting the clamps as advisories.
func (c *Context) window(n uint64, opts SectionOptions) (lo, hi uint64) {
	lo, hi = 0, n
	if opts.Skip >= 0 {
		if uint64(opts.Skip) >= n {
			c.warn(diag.Advisoryf("skipping more bytes than in section"))
			lo = n
		} else {
			lo = uint64(opts.Skip)
		}
	}
	if opts.Size >= 0 && hi-lo > uint64(opts.Size) {
		hi = lo + uint64(opts.Size)
	}
	return lo, hi
}

// Section prints one section's header and content, or exports its content
// to opts.Output.
func (c *Context) Section(opts SectionOptions) error {
	o := c.Out
	s, err := c.Image.Section(opts.Name)
	if err != nil {
		return err
	}
	data, err := c.Image.SectionBytes(s)
	if err != nil {
		return err
	}

	nobits := s.Type == elf.SHT_NOBITS
	base := uint64(0)
	if nobits {
		if opts.Skip >= 0 {
			c.warn(diag.Advisoryf("byte skipping specified on a NOBITS section"))
		}
		if opts.Size >= 0 {
			c.warn(diag.Advisoryf("number of bytes specified on a NOBITS section"))
		}
	} else {
		lo, hi := c.window(uint64(len(data)), opts)
		data, base = data[lo:hi], lo
	}

	if opts.Output != "" {
		if nobits {
			return diag.Invalidf("section %q is NOBITS and, therefore, has no content to export", opts.Name)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return fmt.Errorf("couldn't export content to file '%s': %w", opts.Output, err)
		}
		o.Textf("Section %q has been saved to %q", opts.Name, opts.Output).Nl()
		return nil
	}

	typ, class := sectionType(s.Type)
	table := render.PairTable(18)

	o.PrintBanner(fmt.Sprintf("SECTION %q", opts.Name))
	table.Row(o, "Name", render.Plain, s.Name)
	table.Field(o, "Type")
	o.Put(class, typ).Textf(" (%#010x)", uint32(s.Type)).Nl()
	table.Row(o, "Virtual address", dimIfZero(s.Addr, render.Address), c.SP.Hex(s.Addr))
	table.Row(o, "Offset in ELF", render.Plain, c.SP.Hex(s.Offset)+" B")
	table.Row(o, "Size", render.Plain, fmt.Sprintf("%s B (%s)", c.SP.Hex(s.Size), render.BinSize(s.Size, 0)))
	table.Row(o, "Alignment", render.Plain, c.SP.Hex(s.Addralign)+" B")
	table.Row(o, "Entry size", dimIfZero(s.Entsize, render.Plain), c.SP.Hex(s.Entsize)+" B")
	if s.Flags != 0 {
		table.Row(o, "Flags", render.Plain, s.Flags.String())
	}

	if nobits {
		return nil
	}
	o.Nl()

	// Decoded views only make sense on the whole section.
	whole := base == 0 && uint64(len(data)) == s.Size
	switch {
	case opts.Hexdump || !whole:
		o.Hexdump(data, base)
	case s.Type == elf.SHT_STRTAB:
		strtab(o, data)
	case s.Name == ".eh_frame_hdr":
		return c.EhFrameHdr(data, s.Addr)
	case s.Name == ".eh_frame" || s.Name == ".debug_frame":
		return c.ehFrame(s.Name, data, s.Addr, nil)
	default:
		o.Hexdump(data, base)
	}
	return nil
}

// strtab lists the NUL terminated strings of a string table.
func strtab(o *render.Out, data []byte) {
	i := 0
	for len(data) > 0 {
		end := bytes.IndexByte(data, 0)
		if end < 0 {
			end = len(data)
		}
		o.Putf(render.Dim, "%4d", i).Text(" ").Text(strconv.Quote(string(data[:end]))).Nl()
		i++
		if end == len(data) {
			break
		}
		data = data[end+1:]
	}
}
