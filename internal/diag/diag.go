// Package diag defines the error kinds reported while decoding an ELF image.
// Every component returns one of these instead of aborting; only the command
// layer decides whether an error ends the run.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Malformed input: truncated data, bad encodings, dangling references.
	Malformed Kind = iota + 1
	// NotFound means a requested section, symbol or address has no entry.
	NotFound
	// Unsupported marks a well-formed encoding this decoder does not implement.
	Unsupported
	// Advisory is a warning; the operation continued on a clamped range.
	Advisory
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case NotFound:
		return "not found"
	case Unsupported:
		return "unsupported"
	case Advisory:
		return "warning"
	default:
		return "error"
	}
}

// Error is the structured error carried across package boundaries.
type Error struct {
	Kind      Kind
	Offset    uint64
	HasOffset bool
	Query     string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	switch {
	case e.Kind == NotFound && e.Query != "":
		msg = fmt.Sprintf("%s %q", msg, e.Query)
	case e.HasOffset:
		msg = fmt.Sprintf("%s at offset %#x", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Malformedf reports invalid data found at offset.
func Malformedf(offset uint64, format string, args ...any) *Error {
	return &Error{Kind: Malformed, Offset: offset, HasOffset: true, Msg: fmt.Sprintf(format, args...)}
}

// Invalidf reports malformed data whose offset the caller attaches later
// with At.
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: Malformed, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf reports a failed lookup. The query is quoted in the message.
func NotFoundf(query string, format string, args ...any) *Error {
	return &Error{Kind: NotFound, Query: query, Msg: fmt.Sprintf(format, args...)}
}

// Unsupportedf reports an encoding that is valid but not implemented.
func Unsupportedf(format string, args ...any) *Error {
	return &Error{Kind: Unsupported, Msg: fmt.Sprintf(format, args...)}
}

// Advisoryf reports a condition the caller should print and then continue past.
func Advisoryf(format string, args ...any) *Error {
	return &Error{Kind: Advisory, Msg: fmt.Sprintf(format, args...)}
}

// At returns a copy of e anchored at offset, unless it already has one.
func (e *Error) At(offset uint64) *Error {
	if e.HasOffset {
		return e
	}
	c := *e
	c.Offset, c.HasOffset = offset, true
	return &c
}

// Wrap attaches a cause.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
