// Package pipeline defines the value carrier flowing between pipeline
// stages: nothing, a single value, or a lazy cancellable stream, plus
// metadata that survives transformation stages.
package pipeline

import (
	"sync/atomic"

	"rill/internal/source"
	"rill/internal/value"
)

// Metadata tags a pipeline with provenance. Stages must pass it through
// unchanged unless they explicitly replace it.
type Metadata struct {
	DataSource string
}

type dataKind uint8

const (
	kindEmpty dataKind = iota
	kindValue
	kindStream
)

// Data is the tagged carrier between pipeline stages.
type Data struct {
	kind   dataKind
	value  value.Value
	stream *ListStream
	meta   *Metadata
}

// Empty is the no-value carrier.
func Empty() Data {
	return Data{kind: kindEmpty}
}

// FromValue wraps a single value.
func FromValue(v value.Value, meta *Metadata) Data {
	return Data{kind: kindValue, value: v, meta: meta}
}

// FromStream wraps a lazy stream.
func FromStream(ls *ListStream, meta *Metadata) Data {
	return Data{kind: kindStream, stream: ls, meta: meta}
}

func (d Data) IsEmpty() bool { return d.kind == kindEmpty }

// SingleValue reports whether the carrier holds exactly one non-list
// value, and returns it.
func (d Data) SingleValue() (value.Value, bool) {
	if d.kind == kindValue && d.value.Kind != value.KindList {
		return d.value, true
	}
	return value.Value{}, false
}

// Metadata returns the carrier's metadata, which may be nil.
func (d Data) Metadata() *Metadata { return d.meta }

// WithMetadata returns the same carrier tagged with meta.
func (d Data) WithMetadata(meta *Metadata) Data {
	d.meta = meta
	return d
}

// IntoValue materializes the carrier as one value: streams are drained
// into a list, empty becomes nothing.
func (d Data) IntoValue(span source.Span) value.Value {
	switch d.kind {
	case kindValue:
		return d.value
	case kindStream:
		return d.stream.Collect()
	default:
		return value.Nothing(span)
	}
}

// Iter is a pull iterator over a carrier's elements.
type Iter struct {
	stream *ListStream
	list   []value.Value
	pos    int
	single *value.Value
}

// IntoIter iterates the carrier's elements: a stream element by
// element, a list value over its items, any other single value once,
// empty not at all.
func (d Data) IntoIter() *Iter {
	switch d.kind {
	case kindStream:
		return &Iter{stream: d.stream}
	case kindValue:
		if d.value.Kind == value.KindList {
			return &Iter{list: d.value.List}
		}
		v := d.value
		return &Iter{single: &v}
	default:
		return &Iter{}
	}
}

func (it *Iter) Next() (value.Value, bool) {
	switch {
	case it.stream != nil:
		return it.stream.Next()
	case it.list != nil:
		if it.pos >= len(it.list) {
			return value.Value{}, false
		}
		v := it.list[it.pos]
		it.pos++
		return v, true
	case it.single != nil:
		v := *it.single
		it.single = nil
		return v, true
	default:
		return value.Value{}, false
	}
}

// IntoInterruptible rewraps the carrier so element production is gated
// by interrupt. Single values and empty carriers pass through; the flag
// only matters once there is a sequence to cut short.
func (d Data) IntoInterruptible(interrupt *atomic.Bool, span source.Span) Data {
	if d.kind != kindStream {
		return d
	}
	it := d.stream
	return Data{
		kind:   kindStream,
		stream: FromFunc(it.Next, interrupt, span),
		meta:   d.meta,
	}
}
