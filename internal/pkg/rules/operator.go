package rules

import (
	"fmt"
	"regexp"
)

// Operator is a comparison between a record attribute and a filter value.
// The set is closed per data type; unknown combinations are rejected when a
// custom variable is defined, not when it resolves.
type Operator string

const (
	// Number
	OpEquals       Operator = "equals"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
	// Date (OpEquals is shared across all three types)
	OpAfter  Operator = "after"
	OpBefore Operator = "before"
	// Text
	OpMatches Operator = "matches"
)

var operatorsByType = map[DataType][]Operator{
	TypeNumber: {OpEquals, OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual},
	TypeDate:   {OpEquals, OpAfter, OpBefore},
	TypeText:   {OpEquals, OpMatches},
}

// OperatorsFor returns the operators registered for a data type, in their
// canonical order.
func OperatorsFor(dt DataType) []Operator {
	ops := operatorsByType[dt]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// ValidOperator reports whether op is registered for the data type.
func ValidOperator(dt DataType, op Operator) bool {
	for _, o := range operatorsByType[dt] {
		if o == op {
			return true
		}
	}
	return false
}

// apply evaluates "left op right" for two values of the same kind. The
// caller guarantees the operator is registered for the type; anything else
// is a programming error and returns false with an error.
func apply(op Operator, left, right Value) (bool, error) {
	switch left.Kind {
	case KindNumber:
		switch op {
		case OpEquals:
			return left.Num == right.Num, nil
		case OpGreaterThan:
			return left.Num > right.Num, nil
		case OpLessThan:
			return left.Num < right.Num, nil
		case OpGreaterEqual:
			return left.Num >= right.Num, nil
		case OpLessEqual:
			return left.Num <= right.Num, nil
		}
	case KindDate:
		switch op {
		case OpEquals:
			return left.Time.Equal(right.Time), nil
		case OpAfter:
			return left.Time.After(right.Time), nil
		case OpBefore:
			return left.Time.Before(right.Time), nil
		}
	case KindText:
		switch op {
		case OpEquals:
			return left.Text == right.Text, nil
		case OpMatches:
			re, err := regexp.Compile("(?i)" + right.Text)
			if err != nil {
				return false, fmt.Errorf("invalid pattern %q: %w", right.Text, err)
			}
			return re.MatchString(left.Text), nil
		}
	}
	return false, fmt.Errorf("operator %q not defined for value kind %d", op, left.Kind)
}
