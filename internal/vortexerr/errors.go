// Package vortexerr defines the typed compile-time error taxonomy for the
// Vortex pipeline (spec §7). Every fatal compilation failure is one of the
// Kind values below; IntegrityFailure is the one recoverable kind: inside
// internal/optimize each failing pass is rolled back, and Pipeline.Run
// returns it only when the module still fails the check after the loop.
package vortexerr

import "fmt"

// Kind discriminates the compile-time error taxonomy.
type Kind int

const (
	UnsupportedSyntax Kind = iota
	UnallocatedVariable
	UnknownFunction
	MissingString
	InvalidStateReference
	IllegalJump
	IntegrityFailure
)

func (k Kind) String() string {
	switch k {
	case UnsupportedSyntax:
		return "UnsupportedSyntax"
	case UnallocatedVariable:
		return "UnallocatedVariable"
	case UnknownFunction:
		return "UnknownFunction"
	case MissingString:
		return "MissingString"
	case InvalidStateReference:
		return "InvalidStateReference"
	case IllegalJump:
		return "IllegalJump"
	case IntegrityFailure:
		return "IntegrityFailure"
	default:
		return "UnknownKind"
	}
}

// CompileError is the concrete error type raised by every pipeline stage.
// Pos is a best-effort source offset; 0 means unknown/unavailable.
type CompileError struct {
	Kind Kind
	Pos  int
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *CompileError) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("%s at %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CompileError) Unwrap() error { return e.Err }

// New builds a CompileError with no source position.
func New(kind Kind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds a CompileError anchored to a source position.
func At(kind Kind, pos int, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a CompileError that wraps an underlying cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
