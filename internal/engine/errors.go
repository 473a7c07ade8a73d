package engine

import (
	"fmt"

	"rill/internal/diag"
	"rill/internal/source"
)

// ParseFailedError aggregates a failed parse into one error naming the
// first offending diagnostic, tagged with the span of the input that
// was being parsed.
type ParseFailedError struct {
	Path string
	Span source.Span
	Diag diag.Diagnostic
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("failed to parse content: %s", e.Diag.Message)
}

// InternalError marks a broken internal invariant: a state the parser
// or engine was supposed to make impossible. Distinct from user errors;
// not recoverable by the user.
type InternalError struct {
	Msg  string
	Help string
	Span source.Span
}

func (e *InternalError) Error() string {
	if e.Help == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (%s)", e.Msg, e.Help)
}

// EvalError is a user-level evaluation failure with a span.
type EvalError struct {
	Msg  string
	Span source.Span
}

func (e *EvalError) Error() string { return e.Msg }

func evalErrorf(span source.Span, format string, args ...any) error {
	return &EvalError{Msg: fmt.Sprintf(format, args...), Span: span}
}
