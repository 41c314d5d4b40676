// internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	LexError          ErrorType = "LexError"
	ParseError        ErrorType = "ParseError"
	CompileError      ErrorType = "CompileError"
	RuntimeError      ErrorType = "RuntimeError"
	TypeError         ErrorType = "TypeError"
	NameError         ErrorType = "NameError"
	IndexError        ErrorType = "IndexError"
	ValueError        ErrorType = "ValueError"
	ZeroDivisionError ErrorType = "ZeroDivisionError"
)

// CompileTime reports whether errors of this type are raised before a program runs.
func (t ErrorType) CompileTime() bool {
	return t == LexError || t == ParseError || t == CompileError
}

// SourceLocation represents a location in source code
type SourceLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is an interpreter error with source location information
type Error struct {
	Type     ErrorType      `json:"type"`
	Message  string         `json:"message"`
	Location SourceLocation `json:"location"`
	Source   string         `json:"source,omitempty"` // The source line where error occurred
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))

	if e.Location.Line > 0 {
		sb.WriteString(fmt.Sprintf("\n  at line %d, column %d", e.Location.Line, e.Location.Column))

		if e.Source != "" {
			prefix := fmt.Sprintf("  %d | ", e.Location.Line)
			sb.WriteString("\n\n" + prefix + e.Source + "\n")
			sb.WriteString(strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^")
		}
	}

	return sb.String()
}

// New creates an error of the given type at line/column.
func New(typ ErrorType, message string, line, column int) *Error {
	return &Error{
		Type:    typ,
		Message: message,
		Location: SourceLocation{
			Line:   line,
			Column: column,
		},
	}
}

// Newf is New with a format string.
func Newf(typ ErrorType, line, column int, format string, args ...any) *Error {
	return New(typ, fmt.Sprintf(format, args...), line, column)
}

// WithSource adds source code context to the error
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// At fills in the location when the error does not carry one yet.
func (e *Error) At(line, column int) *Error {
	if e.Location.Line == 0 {
		e.Location = SourceLocation{Line: line, Column: column}
	}
	return e
}

// AttachSource looks up the error's line in lines and attaches it.
func (e *Error) AttachSource(lines []string) *Error {
	if e.Source == "" && e.Location.Line > 0 && e.Location.Line <= len(lines) {
		e.Source = strings.TrimRight(lines[e.Location.Line-1], "\r")
	}
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given type.
func Is(err error, typ ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == typ
}
