package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"elfinfo/internal/render"
)

// DisasmDark is the palette for instruction tokens.
var DisasmDark = styles.Register(chroma.MustNewStyle("elfinfo-disasm", chroma.StyleEntries{
	chroma.Text:          "#FFFFFF",
	chroma.Comment:       "#6C6C6C",
	chroma.NameFunction:  "#FFFFFF",
	chroma.NameVariable:  "#7C9C9D",
	chroma.LiteralNumber: "#FF5F87",
	chroma.NameLabel:     "#FFD700",
	chroma.NameConstant:  "#EBC2ED",
}))

var classTokens = map[render.Class]chroma.TokenType{
	render.Mnemonic:     chroma.NameFunction,
	render.Register:     chroma.NameVariable,
	render.Number:       chroma.LiteralNumber,
	render.LabelAddr:    chroma.NameLabel,
	render.FunctionAddr: chroma.NameConstant,
	render.Dim:          chroma.Comment,
}

// Colour returns the "#rrggbb" colour DisasmDark gives instruction class c.
func Colour(c render.Class) (string, bool) {
	tt, ok := classTokens[c]
	if !ok {
		return "", false
	}
	e := DisasmDark.Get(tt)
	if !e.Colour.IsSet() {
		return "", false
	}
	return e.Colour.String(), true
}
