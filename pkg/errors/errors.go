package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// Error is the interface implemented by all runtime errors.
type Error interface {
	error
	Pos() Position
	Kind() string // e.g. "Type", "Range", "Resolution"
	// Message returns the error message without position info.
	Message() string
	Unwrap() error
}

// Kind names reported by Error.Kind.
const (
	KindSyntax        = "Syntax"
	KindType          = "Type"
	KindRange         = "Range"
	KindReference     = "Reference"
	KindResolution    = "Resolution"
	KindMalformedName = "MalformedName"
)

// SyntaxError is reported by the front end when module source cannot be parsed.
type SyntaxError struct {
	Position
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return KindSyntax }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// TypeError covers invariant violations in the object model and call protocol.
type TypeError struct {
	Position
	Msg   string
	Cause error
}

func (e *TypeError) Error() string {
	if e.Line == 0 {
		return "TypeError: " + e.Msg
	}
	return fmt.Sprintf("TypeError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *TypeError) Pos() Position   { return e.Position }
func (e *TypeError) Kind() string    { return KindType }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) CausedBy(cause error) *TypeError {
	e.Cause = cause
	return e
}

// RangeError covers invalid length-like arguments.
type RangeError struct {
	Position
	Msg   string
	Cause error
}

func (e *RangeError) Error() string {
	if e.Line == 0 {
		return "RangeError: " + e.Msg
	}
	return fmt.Sprintf("RangeError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RangeError) Pos() Position   { return e.Position }
func (e *RangeError) Kind() string    { return KindRange }
func (e *RangeError) Message() string { return e.Msg }
func (e *RangeError) Unwrap() error   { return e.Cause }
func (e *RangeError) CausedBy(cause error) *RangeError {
	e.Cause = cause
	return e
}

// ReferenceError is raised when a declarative binding is read or written
// before it is initialized, or a name cannot be found.
type ReferenceError struct {
	Position
	Name  string
	Msg   string
	Cause error
}

func (e *ReferenceError) Error() string {
	return "ReferenceError: " + e.Msg
}
func (e *ReferenceError) Pos() Position   { return e.Position }
func (e *ReferenceError) Kind() string    { return KindReference }
func (e *ReferenceError) Message() string { return e.Msg }
func (e *ReferenceError) Unwrap() error   { return e.Cause }
func (e *ReferenceError) CausedBy(cause error) *ReferenceError {
	e.Cause = cause
	return e
}

// ResolutionError is raised when a module export cannot be resolved, is
// ambiguous, or a binding is read before it is initialized.
type ResolutionError struct {
	Position
	Module string // source identifier of the module being resolved, if known
	Name   string // export or binding name, if known
	Msg    string
	Cause  error
}

func (e *ResolutionError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("ResolutionError in %s: %s", e.Module, e.Msg)
	}
	return "ResolutionError: " + e.Msg
}
func (e *ResolutionError) Pos() Position   { return e.Position }
func (e *ResolutionError) Kind() string    { return KindResolution }
func (e *ResolutionError) Message() string { return e.Msg }
func (e *ResolutionError) Unwrap() error   { return e.Cause }
func (e *ResolutionError) CausedBy(cause error) *ResolutionError {
	e.Cause = cause
	return e
}

// MalformedNameError is raised when a module specifier cannot be normalized.
type MalformedNameError struct {
	Position
	Specifier string
	Msg       string
	Cause     error
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("MalformedNameError: %q: %s", e.Specifier, e.Msg)
}
func (e *MalformedNameError) Pos() Position   { return e.Position }
func (e *MalformedNameError) Kind() string    { return KindMalformedName }
func (e *MalformedNameError) Message() string { return e.Msg }
func (e *MalformedNameError) Unwrap() error   { return e.Cause }
func (e *MalformedNameError) CausedBy(cause error) *MalformedNameError {
	e.Cause = cause
	return e
}

// --- Helpers ---

// NewTypeError formats a TypeError without position information.
func NewTypeError(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// NewRangeError formats a RangeError without position information.
func NewRangeError(format string, args ...any) *RangeError {
	return &RangeError{Msg: fmt.Sprintf(format, args...)}
}

// NewReferenceError formats a ReferenceError for the given binding name.
func NewReferenceError(name, format string, args ...any) *ReferenceError {
	return &ReferenceError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// NewResolutionError formats a ResolutionError for the given module.
func NewResolutionError(module, name, format string, args ...any) *ResolutionError {
	return &ResolutionError{Module: module, Name: name, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first Error in err's chain, or "" if none.
func KindOf(err error) string {
	var e Error
	if stderrors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}

// --- Error Reporting ---

// DisplayErrors writes errors to w, quoting the offending source line with a
// position marker when the error carries a usable position.
func DisplayErrors(w io.Writer, source string, errs []Error) {
	if len(errs) == 0 {
		return
	}

	lines := strings.Split(source, "\n")

	for _, err := range errs {
		pos := err.Pos()
		kind := err.Kind()
		msg := err.Message()

		lineIdx := pos.Line - 1
		if lineIdx < 0 || lineIdx >= len(lines) {
			fmt.Fprintf(w, "%sError: %s\n", kind, msg)
			continue
		}

		trimmedLine := strings.TrimRight(lines[lineIdx], "\r\n\t ")

		fmt.Fprintf(w, "%sError at %d:%d: %s\n", kind, pos.Line, pos.Column, msg)
		fmt.Fprintf(w, "  %s\n", trimmedLine)

		col := pos.Column - 1
		if col < 0 {
			col = 0
		}
		fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", col))
		fmt.Fprintln(w)
	}
}
