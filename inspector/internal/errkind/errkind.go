// Package errkind classifies inspector failures so that every surface
// (HTTP, MCP, CLI) can map them to a status without string matching.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is the failure category.
type Kind int

const (
	Unknown Kind = iota
	Validation
	Transport
	Parse
	FileRead
	Extraction
	NoSnapshot
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Transport:
		return "transport"
	case Parse:
		return "parse"
	case FileRead:
		return "file_read"
	case Extraction:
		return "extraction"
	case NoSnapshot:
		return "no_snapshot"
	}
	return "unknown"
}

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load started after it.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing text for err: the innermost message for
// classified errors, the full chain otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
