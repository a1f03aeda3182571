// Package diag provides the diagnostic (error/warning) types shared by the
// parser, the type checker and the runtime.
package diag

import (
	"errors"
	"fmt"
	"humanlang/internal/span"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Kind classifies an error in the language's error taxonomy.
type Kind int

const (
	RuntimeFailure Kind = iota
	StructuralParseError
	DeclarationError
	TypeMismatchError
	UnknownIdentifierError
	ArgumentCountError
)

var kindNames = map[Kind]string{
	RuntimeFailure:         "RuntimeFailure",
	StructuralParseError:   "StructuralParseError",
	DeclarationError:       "DeclarationError",
	TypeMismatchError:      "TypeMismatchError",
	UnknownIdentifierError: "UnknownIdentifierError",
	ArgumentCountError:     "ArgumentCountError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Recoverable reports whether an error-guarded block may absorb errors of this kind.
func (k Kind) Recoverable() bool {
	switch k {
	case RuntimeFailure, UnknownIdentifierError, ArgumentCountError:
		return true
	default:
		return false
	}
}

// Diagnostic represents a compiler or runtime diagnostic message.
type Diagnostic struct {
	Code     string    `json:"code"`           // stable error code, e.g. "E1001"
	Kind     Kind      `json:"kind"`           // taxonomy bucket
	Severity Severity  `json:"severity"`       // error or warning
	Message  string    `json:"message"`        // human-readable description
	Span     span.Span `json:"span"`           // source location
	Hint     string    `json:"hint,omitempty"` // optional hint
	Cause    error     `json:"-"`              // wrapped collaborator error
}

// String returns a human-readable representation of the diagnostic.
func (d *Diagnostic) String() string {
	prefix := d.Severity.String()
	msg := fmt.Sprintf("[%s] %s", d.Code, prefix)
	if !d.Span.IsZero() {
		msg += fmt.Sprintf(" at line %d", d.Span.Start.Line)
	}
	msg += fmt.Sprintf(": %s: %s", d.Kind, d.Message)
	if d.Hint != "" {
		msg += " (hint: " + d.Hint + ")"
	}
	return msg
}

func (d *Diagnostic) Error() string { return d.String() }

func (d *Diagnostic) Unwrap() error { return d.Cause }

// WithHint attaches a hint and returns the diagnostic.
func (d *Diagnostic) WithHint(hint string) *Diagnostic {
	d.Hint = hint
	return d
}

// At sets the span if the diagnostic does not have one yet.
func (d *Diagnostic) At(s span.Span) *Diagnostic {
	if d.Span.IsZero() {
		d.Span = s
	}
	return d
}

// Errorf creates an error diagnostic of the given kind at the given span.
func Errorf(kind Kind, code string, s span.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Kind:     kind,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// Warningf creates a warning diagnostic at the given span.
func Warningf(code string, s span.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Kind:     StructuralParseError,
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// Wrap turns an arbitrary error into a runtime diagnostic. Diagnostics pass
// through unchanged.
func Wrap(code string, s span.Span, err error) *Diagnostic {
	if d, ok := As(err); ok {
		return d.At(s)
	}
	return &Diagnostic{
		Code:     code,
		Kind:     RuntimeFailure,
		Severity: Error,
		Message:  err.Error(),
		Span:     s,
		Cause:    err,
	}
}

// As extracts the diagnostic from an error chain.
func As(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err; errors that are not diagnostics
// count as runtime failures.
func KindOf(err error) Kind {
	if d, ok := As(err); ok {
		return d.Kind
	}
	return RuntimeFailure
}

// Message returns the bare message of err without code or location.
func Message(err error) string {
	if d, ok := As(err); ok {
		return d.Message
	}
	return err.Error()
}

// HasErrors reports whether any diagnostic in the list has error severity.
func HasErrors(diags []*Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// FirstError returns the first error-severity diagnostic, or nil.
func FirstError(diags []*Diagnostic) *Diagnostic {
	for _, d := range diags {
		if d.Severity == Error {
			return d
		}
	}
	return nil
}
