package rules

import (
	"fmt"
	"math/rand"
	"sort"
)

// Filter is one attribute/operator/value triple. Value holds the researcher
// supplied comparison value already parsed to the attribute's data type.
type Filter struct {
	Attribute string
	Operator  Operator
	Value     Value
}

// Evaluate applies filters to records as a logical AND, in order. A record
// that is missing a referenced attribute is excluded (fail-closed). The
// returned slice preserves the input order, so Evaluate is idempotent.
func Evaluate(records []Record, filters []Filter) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		keep := true
		for _, f := range filters {
			left, ok := rec[f.Attribute]
			if !ok || left.IsEmpty() {
				keep = false
				break
			}
			match, err := apply(f.Operator, left, f.Value)
			if err != nil {
				return nil, err
			}
			if !match {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SelectOperator reduces a filtered record set to at most one record.
type SelectOperator string

const (
	SelectMin    SelectOperator = "min"
	SelectMax    SelectOperator = "max"
	SelectRandom SelectOperator = "random"
)

// Selection names the attribute to order by and how to pick. Attribute is
// empty exactly when Operator is SelectRandom. Seed, when set, makes random
// selection deterministic for design-time previews; production leaves it
// nil and uses the shared unseeded source.
type Selection struct {
	Attribute string
	Operator  SelectOperator
	Seed      *int64
}

// Select picks at most one record. Empty input yields (nil, nil) — an empty
// result is a normal outcome, not an error. Min/max sort by the selection
// attribute with a stable tie-break on the original order; records missing
// the attribute never win a min/max selection.
func Select(records []Record, sel Selection) (Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	switch sel.Operator {
	case SelectRandom:
		if sel.Seed != nil {
			rng := rand.New(rand.NewSource(*sel.Seed))
			return records[rng.Intn(len(records))], nil
		}
		return records[rand.Intn(len(records))], nil

	case SelectMin, SelectMax:
		idx := make([]int, 0, len(records))
		for i, rec := range records {
			if v, ok := rec[sel.Attribute]; ok && !v.IsEmpty() {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			return nil, nil
		}
		sort.SliceStable(idx, func(a, b int) bool {
			va, vb := records[idx[a]][sel.Attribute], records[idx[b]][sel.Attribute]
			less, _ := isLess(va, vb)
			if sel.Operator == SelectMax {
				greater, _ := isLess(vb, va)
				return greater
			}
			return less
		})
		return records[idx[0]], nil

	default:
		return nil, fmt.Errorf("unknown selection operator %q", sel.Operator)
	}
}

// isLess orders two values of the same kind numerically or chronologically.
func isLess(a, b Value) (bool, error) {
	switch a.Kind {
	case KindNumber:
		return a.Num < b.Num, nil
	case KindDate:
		return a.Time.Before(b.Time), nil
	case KindText:
		return a.Text < b.Text, nil
	default:
		return false, fmt.Errorf("value kind %d is not orderable", a.Kind)
	}
}
