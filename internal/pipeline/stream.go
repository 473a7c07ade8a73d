package pipeline

import (
	"sync/atomic"

	"rill/internal/source"
	"rill/internal/value"
)

// ListStream is a lazily produced, single-pass sequence of values.
// Nothing is computed until Next is called, and the shared interrupt
// flag is polled between pulls so a stream can be cancelled mid-flight
// without consuming further upstream elements.
type ListStream struct {
	next      func() (value.Value, bool)
	interrupt *atomic.Bool
	span      source.Span
	done      bool
}

// FromFunc wraps a pull function. next must return false once exhausted
// and keep returning false afterwards.
func FromFunc(next func() (value.Value, bool), interrupt *atomic.Bool, span source.Span) *ListStream {
	return &ListStream{next: next, interrupt: interrupt, span: span}
}

// FromSlice streams over vals.
func FromSlice(vals []value.Value, interrupt *atomic.Bool, span source.Span) *ListStream {
	i := 0
	return FromFunc(func() (value.Value, bool) {
		if i >= len(vals) {
			return value.Value{}, false
		}
		v := vals[i]
		i++
		return v, true
	}, interrupt, span)
}

// Next pulls the next element. A set interrupt flag terminates the
// stream before any further upstream work happens; elements already
// yielded stay valid.
func (ls *ListStream) Next() (value.Value, bool) {
	if ls == nil || ls.done {
		return value.Value{}, false
	}
	if ls.interrupt != nil && ls.interrupt.Load() {
		ls.done = true
		return value.Value{}, false
	}
	v, ok := ls.next()
	if !ok {
		ls.done = true
	}
	return v, ok
}

// Span reports where the stream originated.
func (ls *ListStream) Span() source.Span { return ls.span }

// Collect drains the stream into a list value. Respects cancellation:
// a stream interrupted mid-drain yields the elements pulled so far.
func (ls *ListStream) Collect() value.Value {
	var vals []value.Value
	for {
		v, ok := ls.Next()
		if !ok {
			break
		}
		vals = append(vals, v)
	}
	return value.List(vals, ls.span)
}
