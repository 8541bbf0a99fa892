package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activityRecords() []Record {
	return []Record{
		{"name": Text("Walk"), "calories": Number(80), "distance": Number(5)},
		{"name": Text("Run"), "calories": Number(150), "distance": Number(10)},
	}
}

func TestEvaluateActivitiesScenario(t *testing.T) {
	records := activityRecords()
	filters := []Filter{
		{Attribute: "name", Operator: OpMatches, Value: Text("run")},
		{Attribute: "calories", Operator: OpGreaterThan, Value: Number(100)},
	}

	filtered, err := Evaluate(records, filters)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Run", filtered[0]["name"].Text)

	selected, err := Select(filtered, Selection{Attribute: "distance", Operator: SelectMin})
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, float64(10), selected["distance"].Num)
}

func TestEvaluateIsSubsetAndIdempotent(t *testing.T) {
	records := []Record{
		{"n": Number(1)},
		{"n": Number(2)},
		{"n": Number(3)},
		{"n": Number(4)},
	}
	filters := []Filter{{Attribute: "n", Operator: OpGreaterEqual, Value: Number(2)}}

	once, err := Evaluate(records, filters)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(once), len(records))
	for _, rec := range once {
		assert.Contains(t, records, rec)
	}

	twice, err := Evaluate(once, filters)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestEvaluateMissingAttributeFailsClosed(t *testing.T) {
	records := []Record{
		{"calories": Number(120)},
		{"name": Text("Swim"), "calories": Number(200)},
	}
	filters := []Filter{{Attribute: "name", Operator: OpEquals, Value: Text("Swim")}}

	filtered, err := Evaluate(records, filters)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Swim", filtered[0]["name"].Text)
}

func TestEvaluateDateOperators(t *testing.T) {
	cutoff := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{"date": Date(cutoff.AddDate(0, 0, -3))},
		{"date": Date(cutoff)},
		{"date": Date(cutoff.AddDate(0, 0, 7))},
	}

	tests := []struct {
		name string
		op   Operator
		want int
	}{
		{"after excludes the boundary", OpAfter, 1},
		{"before excludes the boundary", OpBefore, 1},
		{"equals matches the instant", OpEquals, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, err := Evaluate(records, []Filter{{Attribute: "date", Operator: tt.op, Value: Date(cutoff)}})
			require.NoError(t, err)
			assert.Len(t, filtered, tt.want)
		})
	}
}

func TestSelectMinMaxProperty(t *testing.T) {
	records := []Record{
		{"d": Number(7)},
		{"d": Number(3)},
		{"d": Number(9)},
		{"d": Number(3)},
	}

	minRec, err := Select(records, Selection{Attribute: "d", Operator: SelectMin})
	require.NoError(t, err)
	for _, rec := range records {
		assert.LessOrEqual(t, minRec["d"].Num, rec["d"].Num)
	}

	maxRec, err := Select(records, Selection{Attribute: "d", Operator: SelectMax})
	require.NoError(t, err)
	for _, rec := range records {
		assert.GreaterOrEqual(t, maxRec["d"].Num, rec["d"].Num)
	}
}

func TestSelectStableTieBreak(t *testing.T) {
	first := Record{"d": Number(3), "tag": Text("first")}
	second := Record{"d": Number(3), "tag": Text("second")}

	selected, err := Select([]Record{first, second}, Selection{Attribute: "d", Operator: SelectMin})
	require.NoError(t, err)
	assert.Equal(t, "first", selected["tag"].Text)
}

func TestSelectSkipsRecordsMissingAttribute(t *testing.T) {
	records := []Record{
		{"other": Number(1)},
		{"d": Number(5)},
	}
	selected, err := Select(records, Selection{Attribute: "d", Operator: SelectMax})
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, float64(5), selected["d"].Num)
}

func TestSelectEmptyInputYieldsNone(t *testing.T) {
	selected, err := Select(nil, Selection{Attribute: "d", Operator: SelectMin})
	require.NoError(t, err)
	assert.Nil(t, selected)

	selected, err = Select([]Record{}, Selection{Operator: SelectRandom})
	require.NoError(t, err)
	assert.Nil(t, selected)
}

func TestSelectRandomIsRoughlyUniform(t *testing.T) {
	records := []Record{
		{"id": Text("a")},
		{"id": Text("b")},
		{"id": Text("c")},
	}

	const trials = 10000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		rec, err := Select(records, Selection{Operator: SelectRandom})
		require.NoError(t, err)
		counts[rec["id"].Text]++
	}

	// Each candidate should land near trials/3. A 20% relative tolerance is
	// far beyond any plausible random fluctuation at 10k trials but still
	// catches a fixed-first or otherwise skewed picker.
	expected := trials / len(records)
	for id, n := range counts {
		assert.InDelta(t, expected, n, float64(expected)*0.2, "candidate %s drawn %d times", id, n)
	}
	assert.Len(t, counts, len(records))
}

func TestSelectRandomSeededIsDeterministic(t *testing.T) {
	records := []Record{
		{"id": Text("a")},
		{"id": Text("b")},
		{"id": Text("c")},
	}
	seed := int64(42)

	first, err := Select(records, Selection{Operator: SelectRandom, Seed: &seed})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Select(records, Selection{Operator: SelectRandom, Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOperatorRegistry(t *testing.T) {
	assert.True(t, ValidOperator(TypeNumber, OpGreaterThan))
	assert.True(t, ValidOperator(TypeDate, OpAfter))
	assert.True(t, ValidOperator(TypeText, OpMatches))
	assert.False(t, ValidOperator(TypeText, OpGreaterThan))
	assert.False(t, ValidOperator(TypeDate, OpMatches))
	assert.False(t, ValidOperator(TypeNumber, Operator("contains")))
}

func TestParseTyped(t *testing.T) {
	v, err := ParseTyped(TypeNumber, "12.5")
	require.NoError(t, err)
	assert.Equal(t, Number(12.5), v)

	v, err = ParseTyped(TypeDate, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2026, v.Time.Year())

	_, err = ParseTyped(TypeNumber, "twelve")
	assert.Error(t, err)

	_, err = ParseTyped(TypeDate, "not a date")
	assert.Error(t, err)
}
