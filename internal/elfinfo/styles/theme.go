// Package styles holds the terminal look of elfinfo: the lipgloss style of
// every render class and the glamour theme used for legends.
package styles

import (
	"image/color"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"

	"elfinfo/internal/render"
	"elfinfo/internal/ui/colorize"
)

var (
	classStyles map[render.Class]lipgloss.Style
	buildOnce   sync.Once
)

func base() lipgloss.Style {
	return lipgloss.NewStyle().TabWidth(lipgloss.NoTabConversion)
}

func fg(c color.Color) lipgloss.Style { return base().Foreground(c) }

func build() {
	classStyles = map[render.Class]lipgloss.Style{
		render.Dim:           base().Faint(true),
		render.Bright:        base().Bold(true),
		render.Field:         fg(charmtone.Smoke),
		render.Banner:        fg(charmtone.Charple).Bold(true),
		render.Heading:       fg(charmtone.Malibu).Bold(true),
		render.Warning:       fg(charmtone.Mustard).Bold(true),
		render.Error:         fg(charmtone.Cherry).Bold(true),
		render.Address:       fg(charmtone.Sardine),
		render.CFI:           fg(charmtone.Guac),
		render.Green:         fg(charmtone.Guac),
		render.Blue:          fg(charmtone.Malibu),
		render.Magenta:       fg(charmtone.Hazy),
		render.Red:           fg(charmtone.Coral),
		render.Cyan:          fg(charmtone.Sardine),
		render.Yellow:        fg(charmtone.Mustard),
		render.BrightRed:     fg(charmtone.Cherry).Bold(true),
		render.BrightMagenta: fg(charmtone.Charple).Bold(true),
	}

	// Instruction classes follow the disassembly palette.
	for _, c := range []render.Class{
		render.Mnemonic, render.Register, render.Number,
		render.FunctionAddr, render.LabelAddr,
	} {
		if hex, ok := colorize.Colour(c); ok {
			classStyles[c] = fg(lipgloss.Color(hex))
		}
	}
}

// Style returns the style of class c. Unknown classes are unstyled.
func Style(c render.Class) lipgloss.Style {
	buildOnce.Do(build)
	if s, ok := classStyles[c]; ok {
		return s
	}
	return base()
}

// Render is a render.Styler backed by Style.
func Render(c render.Class, text string) string {
	return Style(c).Render(text)
}

// Sink returns the sink for w: styled when colour is on, plain otherwise.
func Sink(w io.Writer, colour bool) render.Sink {
	if colour {
		return render.NewStyledSink(w, Render)
	}
	return render.NewPlainSink(w)
}
