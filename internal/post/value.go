package post

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the scalar type of a declared field or a query value.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
	KindTime
	KindID
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "timestamp"
	case KindID:
		return "identifier"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar read from a post field or parsed from a query.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// ID returns a post identifier value.
func ID(v string) Value { return Value{kind: KindID, s: v} }

// Time returns a timestamp value.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the value as a plain Go scalar, suitable for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString, KindID:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return nil
	}
}

// String formats the value.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString, KindID:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Compare orders two values by their natural ordering. Integers and floats
// compare numerically with each other; any other pair of differing kinds is
// a TypeMismatchError.
func Compare(a, b Value) (int, error) {
	if a.kind == KindInt && b.kind == KindInt {
		return cmp.Compare(a.i, b.i), nil
	}

	if af, ok := a.numeric(); ok {
		if bf, ok := b.numeric(); ok {
			return cmp.Compare(af, bf), nil
		}
	}

	if a.kind != b.kind {
		return 0, &TypeMismatchError{Want: a.kind, Got: b.kind, Value: b.String()}
	}

	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s), nil
	case KindTime:
		return a.t.Compare(b.t), nil
	case KindID:
		return compareID(a.s, b.s), nil
	default:
		return 0, fmt.Errorf("compare values of kind %d", a.kind)
	}
}

// compareID orders integer ids numerically and places them before textual
// ids, which compare lexically.
func compareID(a, b string) int {
	ai, aerr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bi, berr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)

	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(ai, bi)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// timeLayouts are the textual date formats accepted for timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseTime parses a textual timestamp in one of the accepted layouts.
func ParseTime(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseValue parses query text as a value of the given kind.
func ParseValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			// Allow float thresholds against integer fields, e.g. likes>=9.5.
			f, ferr := strconv.ParseFloat(strings.TrimSpace(text), 64)
			if ferr != nil {
				return Value{}, &TypeMismatchError{Want: kind, Got: KindString, Value: text}
			}

			return Float(f), nil
		}

		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, &TypeMismatchError{Want: kind, Got: KindString, Value: text}
		}

		return Float(f), nil
	case KindString:
		return String(text), nil
	case KindID:
		return ID(text), nil
	case KindTime:
		t, ok := ParseTime(text)
		if !ok {
			return Value{}, &TypeMismatchError{Want: kind, Got: KindString, Value: text}
		}

		return Time(t), nil
	default:
		return Value{}, fmt.Errorf("parse value of kind %d", kind)
	}
}
