package views

import (
	"debug/elf"
	"fmt"
	"strings"

	"elfinfo/internal/render"
)

// fileType names e_type the way readelf users expect.
func fileType(t elf.Type) string {
	switch {
	case t == elf.ET_NONE:
		return "None"
	case t == elf.ET_REL:
		return "Relocatable"
	case t == elf.ET_EXEC:
		return "Executable"
	case t == elf.ET_DYN:
		return "Shared object"
	case t == elf.ET_CORE:
		return "Core file"
	case t >= elf.ET_LOOS && t < elf.ET_HIOS:
		return fmt.Sprintf("OS-specific (%#06x)", uint16(t))
	case t >= elf.ET_LOPROC && t < elf.ET_HIPROC:
		return fmt.Sprintf("Processor-specific (%#06x)", uint16(t))
	}
	return fmt.Sprintf("Unknown (%#06x)", uint16(t))
}

func machineName(m elf.Machine) string {
	if name, ok := strings.CutPrefix(m.String(), "EM_"); ok {
		return name
	}
	return m.String()
}

// Header prints the file header.
func (c *Context) Header() error {
	o, f := c.Out, c.Image.File
	h, err := c.Image.Header()
	if err != nil {
		return err
	}
	table := render.PairTable(22)

	o.PrintBanner("ELF HEADER")
	table.Row(o, "Version", render.Plain, fmt.Sprint(h.Version))
	table.Row(o, "Type", render.Plain, fileType(f.Type))

	table.Field(o, "Ident's class")
	switch f.Class {
	case elf.ELFCLASS32:
		o.Text("ELF32").Nl()
	case elf.ELFCLASS64:
		o.Text("ELF64").Nl()
	default:
		o.Put(render.Warning, "[warning: invalid ident class]").Nl()
	}

	table.Field(o, "Ident's data")
	switch f.Data {
	case elf.ELFDATA2LSB:
		o.Text("Little-endian").Nl()
	case elf.ELFDATA2MSB:
		o.Text("Big-endian").Nl()
	default:
		o.Put(render.Warning, "[warning: invalid ident data]").Nl()
	}

	table.Row(o, "Machine", render.Plain, machineName(f.Machine))
	table.Row(o, "Entry point address", dimIfZero(f.Entry, render.Address), c.SP.Hex(f.Entry))
	table.Row(o, "Flags", render.Plain, fmt.Sprintf("%#010x", h.Flags))

	if interp, ok := c.Image.Interpreter(); ok {
		table.Row(o, "Interpreter", render.Plain, interp)
	}
	if soname, ok := c.Image.SOName(); ok {
		table.Row(o, "SO name", render.Plain, soname)
	}

	table.Field(o, "")
	o.Nl()
	table.Row(o, "Nr. prog. headers", render.Plain, fmt.Sprintf("%16d", h.PhNum))
	table.Row(o, "Prog. headers offset", render.Plain, fmt.Sprintf("%16d B", h.PhOff))
	table.Row(o, "Prog. header size", render.Plain, fmt.Sprintf("%16d B", h.PhEntSize))
	table.Row(o, "Nr. section headers", render.Plain, fmt.Sprintf("%16d", h.ShNum))
	table.Row(o, "Section headers offset", render.Plain, fmt.Sprintf("%16d B", h.ShOff))
	table.Row(o, "Section header size", render.Plain, fmt.Sprintf("%16d B", h.ShEntSize))
	return nil
}

// ProgramHeaders prints every program header on two lines: addresses, then
// sizes.
func (c *Context) ProgramHeaders() error {
	o, progs := c.Out, c.Image.File.Progs
	w := c.SP.Width() + 1

	o.PrintBanner(fmt.Sprintf("PROGRAM HEADERS (%d)", len(progs)))
	o.Putf(render.Field, "%12s", "Type")
	sep(o).Putf(render.Field, "%-*s", w, "Virt. addr.")
	sep(o).Putf(render.Field, "%-*s", w, "Phys. addr.")
	sep(o).Putf(render.Field, "%-8s", "Flags").Nl()

	o.Putf(render.Field, "%12s", "")
	sep(o).Putf(render.Field, "%-*s", w, "Memory size")
	sep(o).Putf(render.Field, "%-*s", w, "In-ELF size")
	sep(o).Putf(render.Field, "%-*s", w, "In-ELF off.").Nl()

	rule := strings.Repeat("─", w+2)
	o.Put(render.Bright, strings.Repeat("─", 13)+"┼"+rule+"┼"+rule+"┼").Nl()

	for _, p := range progs {
		typ, class := progType(p.Type)
		o.Putf(class, "%12s", typ)
		sep(o).Put(render.Address, c.SP.Hex(p.Vaddr))
		o.Put(render.Bright, " ╶┼> ").Put(render.Address, c.SP.Hex(p.Paddr))
		o.Text("  ").Text(progFlags(p.Flags)).Nl()

		o.Textf("%12s", "")
		sep(o).Text(c.SP.Hex(p.Memsz))
		o.Text(" ").Put(render.Bright, " │  ").Text(c.SP.Hex(p.Filesz))
		o.Put(render.Bright, "  │ ").Put(dimIfZero(p.Off, render.Plain), c.SP.Hex(p.Off)).Nl()
	}
	return nil
}

func progType(t elf.ProgType) (string, render.Class) {
	if name, ok := strings.CutPrefix(t.String(), "PT_"); ok {
		return name, render.Plain
	}
	return "[unknown]", render.Warning
}

// progFlags renders p_flags as "rwx" with dashes.
func progFlags(f elf.ProgFlag) string {
	b := []byte("---")
	if f&elf.PF_R != 0 {
		b[0] = 'r'
	}
	if f&elf.PF_W != 0 {
		b[1] = 'w'
	}
	if f&elf.PF_X != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// Summary prints the header, program headers and sections.
func (c *Context) Summary() error {
	if err := c.Header(); err != nil {
		return err
	}
	c.Out.Nl()
	if err := c.ProgramHeaders(); err != nil {
		return err
	}
	c.Out.Nl()
	return c.Sections()
}
