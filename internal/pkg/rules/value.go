package rules

import (
	"fmt"
	"strconv"
	"time"
)

// DataType classifies attribute values. Every catalog attribute, filter
// operator and custom variable is typed with one of these.
type DataType string

const (
	TypeNumber DataType = "Number"
	TypeDate   DataType = "Date"
	TypeText   DataType = "Text"
)

// ValueKind discriminates the Value union.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindDate
	KindText
)

// Value is a typed attribute value. The zero value is the explicit empty
// value used when a resolver has nothing to report.
type Value struct {
	Kind ValueKind
	Num  float64
	Time time.Time
	Text string
}

// Empty is the explicit "no value" result. It marshals to an empty string
// so survey platforms receive a blank embedded-data field, never an error.
var Empty = Value{}

func Number(f float64) Value  { return Value{Kind: KindNumber, Num: f} }
func Date(t time.Time) Value  { return Value{Kind: KindDate, Time: t} }
func Text(s string) Value     { return Value{Kind: KindText, Text: s} }
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// String renders the value the way it is injected into a survey platform
// field. Numbers drop trailing zeros, dates use RFC 3339.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Time.UTC().Format(time.RFC3339)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// Record is one normalized row of a provider data category: attribute name
// to typed value. Adapters produce records, the evaluator consumes them.
type Record map[string]Value

// ParseTyped parses a raw string into a Value of the given data type.
// Filter comparison values entered by researchers go through this.
func ParseTyped(dt DataType, raw string) (Value, error) {
	switch dt {
	case TypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Empty, fmt.Errorf("not a number: %q", raw)
		}
		return Number(f), nil
	case TypeDate:
		t, err := parseInstant(raw)
		if err != nil {
			return Empty, err
		}
		return Date(t), nil
	case TypeText:
		return Text(raw), nil
	default:
		return Empty, fmt.Errorf("unknown data type %q", dt)
	}
}

// parseInstant accepts the date formats researchers actually type as well
// as full RFC 3339 instants coming back from provider APIs.
func parseInstant(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date: %q", raw)
}
