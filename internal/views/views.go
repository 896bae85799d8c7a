// Package views renders the reports of every elfinfo command. Each view
// writes classified tokens to a render.Out and returns an error only when
// the report cannot be produced; advisories are printed inline.
package views

import (
	"debug/elf"
	"strings"

	"github.com/charmbracelet/log"

	"elfinfo/internal/disasm"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/elfx"
	"elfinfo/internal/render"
)

// Context is what every view works from.
type Context struct {
	Image    *elfx.Image
	Out      *render.Out
	SP       render.SizePrint
	Regs     ehframe.RegisterNames
	Demangle bool
	// Syntax is the default x86 syntax of Function.
	Syntax disasm.Syntax
	Logger *log.Logger
	// Markdown, when set, renders legends for a terminal.
	Markdown func(md string) (string, error)
}

// New returns a context for im writing to o, with register names chosen
// from the image's machine.
func New(im *elfx.Image, o *render.Out) *Context {
	return &Context{
		Image:    im,
		Out:      o,
		SP:       render.SizePrint{Is64: im.Is64()},
		Regs:     ehframe.RegistersFor(im.File.Machine),
		Demangle: true,
	}
}

// warn prints an advisory and logs it.
func (c *Context) warn(err error) {
	c.Out.Warn(err.Error())
	if c.Logger != nil {
		c.Logger.Warn(err.Error())
	}
}

func (c *Context) debug(msg string, kv ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, kv...)
	}
}

func (c *Context) codec() ehframe.Codec {
	codec := ehframe.DefaultCodec
	if c.Image.File.ByteOrder != nil {
		codec.Order = c.Image.File.ByteOrder
	}
	codec.PtrSize = c.Image.PtrSize()
	return codec
}

// sep emits the bright column separator.
func sep(o *render.Out) *render.Out { return o.Put(render.Bright, " │ ") }

// dimIfZero picks Dim for zero values, c otherwise.
func dimIfZero(v uint64, c render.Class) render.Class {
	if v == 0 {
		return render.Dim
	}
	return c
}

// sectionType returns the display name and class of a section type.
func sectionType(t elf.SectionType) (string, render.Class) {
	switch t {
	case elf.SHT_PROGBITS:
		return "PROGBITS", render.Blue
	case elf.SHT_NULL:
		return "NULL", render.Dim
	case elf.SHT_NOBITS:
		return "NOBITS", render.Dim
	case elf.SHT_STRTAB:
		return "STRTAB", render.Green
	case elf.SHT_DYNAMIC:
		return "DYNAMIC", render.Magenta
	case elf.SHT_DYNSYM:
		return "DYNSYM", render.BrightMagenta
	case elf.SHT_RELA:
		return "RELA", render.Yellow
	case elf.SHT_SYMTAB:
		return "SYMTAB", render.Red
	case elf.SHT_NOTE:
		return "NOTE", render.Cyan
	}
	if name, ok := strings.CutPrefix(t.String(), "SHT_"); ok {
		return name, render.Plain
	}
	return "[unknown]", render.Warning
}

// symbolType is the long display name of a symbol type.
func symbolType(t elf.SymType) (string, render.Class) {
	switch t {
	case elf.STT_NOTYPE:
		return "NONE", render.Dim
	case elf.STT_OBJECT:
		return "OBJECT", render.Blue
	case elf.STT_FUNC:
		return "FUNCTION", render.Green
	case elf.STT_SECTION:
		return "SECTION", render.Red
	case elf.STT_FILE:
		return "FILE", render.Cyan
	case elf.STT_COMMON:
		return "COMMON", render.Plain
	case elf.STT_TLS:
		return "TLS", render.Magenta
	case elf.STT_NUM:
		return "NUM", render.Plain
	}
	return "???", render.Plain
}
