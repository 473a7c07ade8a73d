package source

import "fmt"

// Span is a byte range in the global source address space. All loaded
// source text shares one append-only offset space, so a span alone is
// enough to find the file and position it points at.
//
// Start is inclusive, End is exclusive.
type Span struct {
	Start uint32
	End   uint32
}

// New builds a span from offsets. end < start is a programming error.
func New(start, end uint32) Span {
	if end < start {
		panic(fmt.Sprintf("span end < start: start=%d, end=%d", start, end))
	}
	return Span{Start: start, End: end}
}

// Unknown is the zero span used for synthetic values and test data.
// It points at nothing.
func Unknown() Span {
	return Span{}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Offset shifts both bounds left by delta. Used to re-base spans from a
// sub-parse into the caller's address space.
func (s Span) Offset(delta uint32) Span {
	return New(s.Start-delta, s.End-delta)
}

// Contains reports whether pos falls inside the half-open range.
func (s Span) Contains(pos uint32) bool {
	return pos >= s.Start && pos < s.End
}

// ContainsSpan reports whether other lies fully inside s.
func (s Span) ContainsSpan(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Past points to the space just after the span, useful for diagnostics
// on missing tokens.
func (s Span) Past() Span {
	return Span{Start: s.End, End: s.End}
}

// Cover reduces an ordered sequence of spans to its covering span: the
// first span's start, the max end over all. An empty input yields the
// unknown span; callers that tolerate empty lists rely on that.
func Cover(spans []Span) Span {
	switch len(spans) {
	case 0:
		return Unknown()
	case 1:
		return spans[0]
	}
	end := spans[0].End
	for _, sp := range spans[1:] {
		if sp.End > end {
			end = sp.End
		}
	}
	return New(spans[0].Start, end)
}
