package diag

import (
	"fmt"

	"rill/internal/source"
)

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported problem, anchored to a span in the global
// source address space.
type Diagnostic struct {
	Severity Severity
	Message  string
	Primary  source.Span
	Notes    []Note
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s: %s", d.Severity, d.Primary, d.Message)
}

// Error builds an error-severity diagnostic.
func Error(primary source.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SevError,
		Message:  fmt.Sprintf(format, args...),
		Primary:  primary,
	}
}
