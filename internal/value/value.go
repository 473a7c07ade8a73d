package value

import (
	"fmt"
	"strconv"
	"strings"

	"rill/internal/source"
)

// Kind tags the variant carried by a Value.
type Kind uint8

const (
	KindNothing Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindRecord
	KindClosure
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindClosure:
		return "closure"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Value is a shell runtime value. The zero value is nothing.
type Value struct {
	Kind Kind
	Span source.Span

	Bool    bool
	Int     int64
	Float   float64
	Str     string
	List    []Value
	Record  *Record
	Closure *Closure
	Err     error
}

// Record is an ordered column/value mapping.
type Record struct {
	Cols []string
	Vals []Value
}

func Nothing(span source.Span) Value { return Value{Kind: KindNothing, Span: span} }

func Bool(v bool, span source.Span) Value { return Value{Kind: KindBool, Span: span, Bool: v} }

func Int(v int64, span source.Span) Value { return Value{Kind: KindInt, Span: span, Int: v} }

func Float(v float64, span source.Span) Value { return Value{Kind: KindFloat, Span: span, Float: v} }

func String(v string, span source.Span) Value { return Value{Kind: KindString, Span: span, Str: v} }

func List(vals []Value, span source.Span) Value { return Value{Kind: KindList, Span: span, List: vals} }

// Error wraps a recovered evaluation error as a value, so a failing
// pipeline element can flow downstream in place of its result.
func Error(err error, span source.Span) Value { return Value{Kind: KindError, Span: span, Err: err} }

func ClosureValue(c *Closure, span source.Span) Value {
	return Value{Kind: KindClosure, Span: span, Closure: c}
}

// IsTrue reports the value's truthiness: only a true boolean counts.
// Predicates that evaluate to anything else filter their element out.
func (v Value) IsTrue() bool {
	return v.Kind == KindBool && v.Bool
}

func (v Value) IsNothing() bool { return v.Kind == KindNothing }

func (v Value) IsError() bool { return v.Kind == KindError }

// AsClosure unwraps a closure value.
func (v Value) AsClosure() (*Closure, error) {
	if v.Kind != KindClosure || v.Closure == nil {
		return nil, fmt.Errorf("expected closure, found %s", v.Kind)
	}
	return v.Closure, nil
}

// AsString unwraps a string value.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("expected string, found %s", v.Kind)
	}
	return v.Str, nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindNothing:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		if v.Record == nil {
			return "{}"
		}
		parts := make([]string, len(v.Record.Cols))
		for i, c := range v.Record.Cols {
			parts[i] = c + ": " + v.Record.Vals[i].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindClosure:
		return "<closure>"
	case KindError:
		return "error: " + v.Err.Error()
	default:
		return "<invalid>"
	}
}
