package views

import (
	"debug/elf"
	"fmt"
	"regexp"
	"strings"

	"elfinfo/internal/diag"
	"elfinfo/internal/elfx"
	"elfinfo/internal/render"
)

// SymbolOptions filter the symbol listing.
type SymbolOptions struct {
	Dynamic    bool
	NoDemangle bool
	NoRustStd  bool
	Filter     *regexp.Regexp
	Local      bool
	Global     bool
	Weak       bool
	Visible    bool
	Defined    bool
	// Type restricts the listing to one symbol type when HasType is set.
	Type    elf.SymType
	HasType bool
}

var symbolTypes = map[string]elf.SymType{
	"none":    elf.STT_NOTYPE,
	"func":    elf.STT_FUNC,
	"section": elf.STT_SECTION,
	"object":  elf.STT_OBJECT,
	"file":    elf.STT_FILE,
	"common":  elf.STT_COMMON,
	"tls":     elf.STT_TLS,
	"num":     elf.STT_NUM,
}

// ParseSymbolType accepts the names listed by SymbolTypeNames.
func ParseSymbolType(s string) (elf.SymType, error) {
	if t, ok := symbolTypes[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, diag.Invalidf("unknown symbol type %q, want one of %s", s, SymbolTypeNames)
}

// SymbolTypeNames lists the accepted --type values.
const SymbolTypeNames = "none, func, section, object, file, common, tls, num"

var (
	stdAsTrait = regexp.MustCompile(`^<(std|core|alloc)::.+ as .+>`)
	traitOfStd = regexp.MustCompile(`^<.+ as (std|core|alloc)::.+>`)
)

// isStdSym reports whether a demangled name belongs to Rust's std, core or
// alloc crates.
func isStdSym(name string) bool {
	return strings.HasPrefix(name, "core::") ||
		strings.HasPrefix(name, "std::") ||
		strings.HasPrefix(name, "alloc::") ||
		stdAsTrait.MatchString(name) ||
		traitOfStd.MatchString(name)
}

func (opts SymbolOptions) keep(s *elfx.Symbol, name string) bool {
	switch {
	case opts.Global && s.Bind != elf.STB_GLOBAL,
		opts.Local && s.Bind != elf.STB_LOCAL,
		opts.Weak && s.Bind != elf.STB_WEAK,
		opts.Visible && s.Vis != elf.STV_DEFAULT,
		opts.Defined && !s.Defined(),
		opts.HasType && s.Type != opts.Type:
		return false
	case !opts.NoDemangle && opts.NoRustStd && isStdSym(name):
		return false
	case opts.Filter != nil && !opts.Filter.MatchString(name):
		return false
	}
	return true
}

// typeGlyph is the four column type tag of the listing.
func typeGlyph(t elf.SymType) (string, render.Class) {
	switch t {
	case elf.STT_NOTYPE:
		return "NONE", render.Dim
	case elf.STT_OBJECT:
		return " OBJ", render.Blue
	case elf.STT_FUNC:
		return "FUNC", render.Green
	case elf.STT_SECTION:
		return "SECT", render.Red
	case elf.STT_FILE:
		return "FILE", render.Cyan
	case elf.STT_COMMON:
		return "COMM", render.Plain
	case elf.STT_TLS:
		return " TLS", render.Magenta
	case elf.STT_NUM:
		return " NUM", render.Plain
	}
	return "    ", render.Plain
}

func visGlyph(v elf.SymVis) (string, render.Class) {
	switch v {
	case elf.STV_DEFAULT:
		return "+", render.Plain
	case elf.STV_INTERNAL:
		return "i", render.Plain
	case elf.STV_HIDDEN:
		return "−", render.Red
	case elf.STV_PROTECTED:
		return "#", render.Yellow
	}
	return "?", render.Plain
}

func bindGlyph(b elf.SymBind, defined bool) (string, render.Class) {
	switch b {
	case elf.STB_LOCAL:
		return "l", render.Dim
	case elf.STB_GLOBAL:
		if defined {
			return "G", render.Bright
		}
		return "U", render.BrightRed
	case elf.STB_WEAK:
		return "W", render.Cyan
	case elf.STB_GNU_UNIQUE:
		return "u", render.Red
	}
	return "?", render.Warning
}

// Symbols lists .symtab, or .dynsym with opts.Dynamic.
func (c *Context) Symbols(opts SymbolOptions) error {
	o := c.Out
	syms := c.Image.Symbols(opts.Dynamic)
	w := c.SP.Width()

	title := "SYMBOLS"
	if opts.Dynamic {
		title = "DYNAMIC SYMBOLS"
	}
	o.PrintBanner(fmt.Sprintf("%s (%d)", title, len(syms)))
	o.Putf(render.Bright, "%*s │ %-7s │ %-10s │ %s", w, "Value", "Type VB", "Size", "Name").Nl()
	o.Put(render.Bright, strings.Repeat("─", w+1)+"┼"+strings.Repeat("─", 9)+"┼"+
		strings.Repeat("─", 12)+"┼"+strings.Repeat("─", 60)).Nl()

	shown := 0
	for i := range syms {
		s := &syms[i]
		name := s.DisplayName(!opts.NoDemangle)
		if !opts.keep(s, name) {
			continue
		}
		shown++

		typ, tc := typeGlyph(s.Type)
		vis, vc := visGlyph(s.Vis)
		bind, bc := bindGlyph(s.Bind, s.Defined())
		size := strings.Repeat(" ", 10)
		if s.Size != 0 {
			size = fmt.Sprintf("%#010x", s.Size)
		}

		o.Put(dimIfZero(s.Value, render.Address), c.SP.Hex(s.Value))
		sep(o).Put(tc, typ).Text(" ").Put(vc, vis).Put(bc, bind)
		sep(o).Text(size)
		sep(o).Put(nameClass(s), name).Nl()
	}
	c.debug("symbols listed", "shown", shown, "total", len(syms))

	o.Nl()
	if c.Markdown != nil {
		if md, err := c.Markdown(SymbolLegendMarkdown); err == nil {
			o.Text(md).Nl()
			return nil
		}
	}
	symbolLegend(o)
	return nil
}

func nameClass(s *elfx.Symbol) render.Class {
	switch {
	case !s.Defined():
		return render.Dim
	case s.Type == elf.STT_FUNC:
		return render.FunctionAddr
	}
	return render.Plain
}

// SymbolLegendMarkdown is the legend of the V and B columns for terminals
// that render markdown.
const SymbolLegendMarkdown = `| Visibility [V] | | Binding [B] | |
|---|---|---|---|
| ` + "`+`" + ` | Default | ` + "`l`" + ` | Local |
| ` + "`#`" + ` | Protected | ` + "`G`" + ` | Global |
| ` + "`−`" + ` | Hidden | ` + "`U`" + ` | Global (undefined) |
| ` + "`i`" + ` | Internal | ` + "`W`" + ` | Weak |
| | | ` + "`u`" + ` | GNU unique |
`

func symbolLegend(o *render.Out) {
	type entry struct {
		glyph string
		class render.Class
		text  string
	}
	vis := []entry{
		{"+", render.Plain, "Default"},
		{"#", render.Yellow, "Protected"},
		{"−", render.Red, "Hidden"},
		{"i", render.Plain, "Internal"},
	}
	bind := []entry{
		{"l", render.Dim, "Local"},
		{"G", render.Bright, "Global"},
		{"U", render.BrightRed, "Global (undefined)"},
		{"W", render.Cyan, "Weak"},
		{"u", render.Red, "GNU unique"},
	}

	o.Put(render.Bright, "Visibility [V]:        Binding [B]:").Nl()
	for i := range max(len(vis), len(bind)) {
		if i < len(vis) {
			o.Text("  ").Put(vis[i].class, vis[i].glyph).Textf("  %-18s", vis[i].text)
		} else {
			o.Text(strings.Repeat(" ", 23))
		}
		if i < len(bind) {
			o.Put(bind[i].class, bind[i].glyph).Text("  " + bind[i].text)
		}
		o.Nl()
	}
}
