package source

// Spanned pairs a value with the span it originated from, so provenance
// travels with the value instead of being re-derived downstream.
type Spanned[T any] struct {
	Item T
	Span Span
}

// WithSpan wraps an item together with its span.
func WithSpan[T any](item T, span Span) Spanned[T] {
	return Spanned[T]{Item: item, Span: span}
}
