// Package colorize splits formatted instruction text into classified tokens
// using chroma's assembly lexers.
package colorize

import (
	"debug/elf"
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"elfinfo/internal/render"
)

// intelWords are the size and pointer keywords of Intel syntax operands.
var intelWords = map[string]bool{
	"ptr": true, "byte": true, "word": true, "dword": true, "qword": true,
	"tword": true, "xmmword": true, "ymmword": true, "zmmword": true,
	"fword": true, "mmword": true, "far": true, "near": true,
}

var (
	hexNumber = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)
	// AArch64 registers the armasm lexer does not recognise.
	armRegister = regexp.MustCompile(`\b(?:sp|wsp|xzr|wzr|lr|fp|nzcv|fpcr|fpsr)\b`)
)

// Classifier tokenizes instruction text for one architecture.
type Classifier struct {
	lexer chroma.Lexer
	intel bool
	arm   bool
}

// ForMachine returns the classifier for machine m. Intel selects the x86
// Intel syntax rules.
func ForMachine(m elf.Machine, intel bool) *Classifier {
	c := &Classifier{intel: intel}
	if m == elf.EM_AARCH64 || m == elf.EM_ARM {
		c.arm = true
		c.lexer = getAssemblyLexer("armasm", "gas")
	} else {
		c.lexer = getAssemblyLexer("gas", "nasm")
	}
	return c
}

// getAssemblyLexer returns the first available lexer in candidates.
func getAssemblyLexer(candidates ...string) chroma.Lexer {
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// Tokens classifies text. Occurrences of the names in symbols become
// FunctionAddr tokens. Concatenating the token texts gives back text.
func (c *Classifier) Tokens(text string, symbols []string) []render.Token {
	if text == "" {
		return nil
	}
	spans := findSymbols(text, symbols)
	spans = addMatches(spans, text, hexNumber, render.Number)
	if c.arm {
		spans = addMatches(spans, text, armRegister, render.Register)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var raw []chroma.Token
	if c.lexer != nil {
		if it, err := c.lexer.Tokenise(nil, text); err == nil {
			raw = it.Tokens()
		}
	}
	if raw == nil {
		raw = []chroma.Token{{Type: chroma.Text, Value: text}}
	}

	var out tokenList
	pos, first := 0, true
	for _, t := range raw {
		if pos >= len(text) {
			break
		}
		v := t.Value
		// ensure_nl lexers append a newline text never had.
		if pos+len(v) > len(text) {
			v = v[:len(text)-pos]
		}
		class := c.classify(t.Type, v, first)
		if strings.TrimSpace(v) != "" {
			first = false
		}
		out.split(pos, v, class, spans)
		pos += len(v)
	}
	if pos < len(text) {
		out.split(pos, text[pos:], render.Plain, spans)
	}
	return out
}

func (c *Classifier) classify(tt chroma.TokenType, v string, first bool) render.Class {
	switch {
	case strings.TrimSpace(v) == "":
		return render.Plain
	case tt == chroma.NameFunction || tt == chroma.NameAttribute:
		return render.Mnemonic
	case first && c.arm && tt == chroma.Text:
		return render.Mnemonic
	case tt == chroma.NameVariable || tt == chroma.NameClass:
		return render.Register
	case tt.InSubCategory(chroma.LiteralNumber):
		return render.Number
	case tt.InCategory(chroma.Comment):
		return render.Dim
	case tt == chroma.NameConstant:
		w := strings.ToLower(v)
		switch {
		case intelWords[w]:
			return render.Dim
		case c.intel:
			return render.Register
		default:
			return render.LabelAddr
		}
	}
	return render.Plain
}

type span struct {
	start, end int
	class      render.Class
}

// findSymbols returns the non overlapping byte ranges of text holding one
// of names. Longer names are matched first.
func findSymbols(text string, names []string) []span {
	if len(names) == 0 {
		return nil
	}
	sorted := append([]string(nil), names...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var spans []span
	for _, n := range sorted {
		if n == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(text[from:], n)
			if i < 0 {
				break
			}
			s := span{from + i, from + i + len(n), render.FunctionAddr}
			if !overlaps(spans, s) {
				spans = append(spans, s)
			}
			from = s.end
		}
	}
	return spans
}

// addMatches adds the matches of re that do not overlap earlier spans.
func addMatches(spans []span, text string, re *regexp.Regexp, class render.Class) []span {
	for _, m := range re.FindAllStringIndex(text, -1) {
		s := span{m[0], m[1], class}
		if !overlaps(spans, s) {
			spans = append(spans, s)
		}
	}
	return spans
}

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

type tokenList []render.Token

// split appends v, which starts at pos in the original text, cutting it
// where spans begin and end. Text inside a span takes the span's class.
func (l *tokenList) split(pos int, v string, class render.Class, spans []span) {
	for v != "" {
		cut, c := len(v), class
		for _, s := range spans {
			switch {
			case pos >= s.start && pos < s.end:
				c = s.class
				cut = min(cut, s.end-pos)
			case s.start > pos && s.start-pos < cut:
				cut = s.start - pos
			}
		}
		l.add(c, v[:cut])
		v, pos = v[cut:], pos+cut
	}
}

func (l *tokenList) add(c render.Class, text string) {
	if n := len(*l); n > 0 && (*l)[n-1].Class == c {
		(*l)[n-1].Text += text
		return
	}
	*l = append(*l, render.Token{Class: c, Text: text})
}
