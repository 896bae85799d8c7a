// Package render carries report output as classified text tokens. Renderers
// never decide colours: they emit a Class with each fragment and the Sink
// chosen by the command layer decides how a class looks.
package render

import (
	"fmt"
	"io"
	"strings"
)

// Class is the semantic kind of a text fragment.
type Class uint8

const (
	Plain Class = iota
	Dim
	Bright
	Field
	Banner
	Heading
	Warning
	Error
	Address
	Number
	Register
	Mnemonic
	FunctionAddr
	LabelAddr
	CFI
	Green
	Blue
	Magenta
	Red
	Cyan
	Yellow
	BrightRed
	BrightMagenta
)

// Token is one classified fragment. Newlines are always emitted as Plain.
type Token struct {
	Class Class
	Text  string
}

// Sink receives tokens in output order.
type Sink interface {
	Emit(t Token)
}

// Out is a small convenience layer over a Sink.
type Out struct {
	sink Sink
}

// New wraps s.
func New(s Sink) *Out { return &Out{sink: s} }

// Sink returns the wrapped sink.
func (o *Out) Sink() Sink { return o.sink }

// Put emits text with class c. Empty text is dropped.
func (o *Out) Put(c Class, text string) *Out {
	if text != "" {
		o.sink.Emit(Token{Class: c, Text: text})
	}
	return o
}

// Putf is Put with fmt formatting.
func (o *Out) Putf(c Class, format string, args ...any) *Out {
	return o.Put(c, fmt.Sprintf(format, args...))
}

// Text emits plain text.
func (o *Out) Text(text string) *Out { return o.Put(Plain, text) }

// Textf emits formatted plain text.
func (o *Out) Textf(format string, args ...any) *Out {
	return o.Put(Plain, fmt.Sprintf(format, args...))
}

// Tokens re-emits a token slice.
func (o *Out) Tokens(ts []Token) *Out {
	for _, t := range ts {
		o.Put(t.Class, t.Text)
	}
	return o
}

// Nl ends the current line.
func (o *Out) Nl() *Out { return o.Put(Plain, "\n") }

// Warn emits a "warning: msg" line.
func (o *Out) Warn(msg string) *Out {
	return o.Put(Warning, "warning").Text(": " + msg).Nl()
}

// PlainSink writes token text verbatim. The first write error is kept.
type PlainSink struct {
	w   io.Writer
	err error
}

// NewPlainSink returns a sink without any styling.
func NewPlainSink(w io.Writer) *PlainSink { return &PlainSink{w: w} }

func (s *PlainSink) Emit(t Token) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, t.Text)
}

// Err returns the first write error.
func (s *PlainSink) Err() error { return s.err }

// Styler renders one fragment of a class. It must be a pure function.
type Styler func(c Class, text string) string

// StyledSink passes every non plain fragment through a Styler.
type StyledSink struct {
	w     io.Writer
	style Styler
	err   error
}

// NewStyledSink returns a sink that styles tokens with style.
func NewStyledSink(w io.Writer, style Styler) *StyledSink {
	return &StyledSink{w: w, style: style}
}

func (s *StyledSink) Emit(t Token) {
	if s.err != nil {
		return
	}
	text := t.Text
	if t.Class != Plain && strings.TrimSpace(text) != "" {
		text = s.style(t.Class, text)
	}
	_, s.err = io.WriteString(s.w, text)
}

// Err returns the first write error.
func (s *StyledSink) Err() error { return s.err }

// Discard drops every token.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Token) {}

// Recorder keeps every token, mostly for tests.
type Recorder struct {
	Tokens []Token
}

func (r *Recorder) Emit(t Token) { r.Tokens = append(r.Tokens, t) }

// String concatenates the recorded text.
func (r *Recorder) String() string {
	var b strings.Builder
	for _, t := range r.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Lines splits the recorded text into lines without the trailing empty one.
func (r *Recorder) Lines() []string {
	s := strings.TrimSuffix(r.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Classed returns the text of every token with class c.
func (r *Recorder) Classed(c Class) []string {
	var out []string
	for _, t := range r.Tokens {
		if t.Class == c {
			out = append(out, t.Text)
		}
	}
	return out
}
