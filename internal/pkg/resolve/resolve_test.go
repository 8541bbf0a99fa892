package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/provider"
	"github.com/varweave/varweave/internal/pkg/rules"
)

// fakeClient serves canned records per category and tracks which
// attributes were requested.
type fakeClient struct {
	name         string
	records      map[string][]rules.Record
	fetchedAttrs map[string][]string
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) AuthorizeURL(conn provider.Conn, state string) (string, error) {
	return "https://example.org/authorize?state=" + state, nil
}

func (f *fakeClient) ExchangeCode(ctx context.Context, conn provider.Conn, code string) (*provider.Identity, error) {
	return &provider.Identity{Provider: f.name, UserID: "user-" + code}, nil
}

func (f *fakeClient) FetchCategory(ctx context.Context, conn provider.Conn, token provider.Token, cat *catalog.Category, attrs []string) ([]rules.Record, error) {
	if f.fetchedAttrs == nil {
		f.fetchedAttrs = map[string][]string{}
	}
	f.fetchedAttrs[cat.Name] = attrs
	return f.records[cat.Name], nil
}

func activitiesVariable(t *testing.T) *models.CustomVariable {
	t.Helper()
	cv := &models.CustomVariable{
		ProjectID:    1,
		VariableName: "fav_run",
		DataProvider: "fitbit",
		DataCategory: "activities",
	}
	require.NoError(t, cv.SetAttributeList([]models.CVAttribute{
		{Name: "distance", Enabled: true},
		{Name: "calories", Enabled: false},
	}))
	require.NoError(t, cv.SetFilterList([]models.CVFilter{
		{Attribute: "name", Operator: "matches", Value: "run"},
		{Attribute: "calories", Operator: "greater_than", Value: "100"},
	}))
	attr := "distance"
	require.NoError(t, cv.SetSelectionRule(models.CVSelection{Attribute: &attr, Operator: "min"}))
	require.NoError(t, cv.Validate())
	return cv
}

func TestResolveCustomActivitiesScenario(t *testing.T) {
	client := &fakeClient{
		name: "fitbit",
		records: map[string][]rules.Record{
			"activities": {
				{"name": rules.Text("Walk"), "calories": rules.Number(80), "distance": rules.Number(5)},
				{"name": rules.Text("Run"), "calories": rules.Number(150), "distance": rules.Number(10)},
			},
		},
	}
	deps := Deps{Client: client}

	values, err := ResolveCustom(context.Background(), deps, activitiesVariable(t))
	require.NoError(t, err)
	require.Len(t, values, 1, "only the enabled attribute is emitted")

	assert.Equal(t, QualifiedName("qn.fitbit.custom.activities.fav_run.distance"), values[0].Name)
	assert.Equal(t, rules.Number(10), values[0].Value)

	// The disabled calories attribute is still fetched: the filter needs it.
	assert.ElementsMatch(t, []string{"name", "calories", "distance"}, client.fetchedAttrs["activities"])
}

func TestResolveCustomNoSurvivorsYieldsEmptyValue(t *testing.T) {
	client := &fakeClient{
		name: "fitbit",
		records: map[string][]rules.Record{
			"activities": {
				{"name": rules.Text("Walk"), "calories": rules.Number(80), "distance": rules.Number(5)},
			},
		},
	}

	values, err := ResolveCustom(context.Background(), Deps{Client: client}, activitiesVariable(t))
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.True(t, values[0].Value.IsEmpty())
	assert.Equal(t, "", values[0].Value.String())
}

func TestResolveBuiltinsIndexedList(t *testing.T) {
	// qn.fitbit.top_activities ranks activity names by frequency; three
	// distinct names back five indexed variables.
	client := &fakeClient{
		name: "fitbit",
		records: map[string][]rules.Record{
			"activities": {
				{"name": rules.Text("Run")},
				{"name": rules.Text("Run")},
				{"name": rules.Text("Run")},
				{"name": rules.Text("Walk")},
				{"name": rules.Text("Walk")},
				{"name": rules.Text("Swim")},
			},
		},
	}

	vars := make([]models.BuiltinVariable, 0, 5)
	for i := 1; i <= 5; i++ {
		vars = append(vars, models.BuiltinVariable{
			QualifiedName: fmt.Sprintf("qn.fitbit.top_activities.%d", i),
			DataType:      "Text",
			Enabled:       true,
			Index:         i,
		})
	}

	values, err := ResolveBuiltins(context.Background(), Deps{Client: client}, vars)
	require.NoError(t, err)
	require.Len(t, values, 5)

	assert.Equal(t, rules.Text("Run"), values[0].Value)
	assert.Equal(t, rules.Text("Walk"), values[1].Value)
	assert.Equal(t, rules.Text("Swim"), values[2].Value)
	assert.True(t, values[3].Value.IsEmpty(), "index 4 is past the list end")
	assert.True(t, values[4].Value.IsEmpty(), "index 5 is past the list end")

	// One fetch for all five variables.
	assert.Len(t, client.fetchedAttrs, 1)
}

func TestResolveBuiltinsScalar(t *testing.T) {
	client := &fakeClient{
		name: "spotify",
		records: map[string][]rules.Record{
			"playlists": {
				{"name": rules.Text("Focus")},
				{"name": rules.Text("Morning")},
			},
		},
	}

	values, err := ResolveBuiltins(context.Background(), Deps{Client: client}, []models.BuiltinVariable{
		{QualifiedName: "qn.spotify.playlist_count", DataType: "Number", Enabled: true},
	})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, rules.Number(2), values[0].Value)
}

func TestResolveBuiltinsSkipsDisabled(t *testing.T) {
	client := &fakeClient{name: "spotify", records: map[string][]rules.Record{}}

	values, err := ResolveBuiltins(context.Background(), Deps{Client: client}, []models.BuiltinVariable{
		{QualifiedName: "qn.spotify.playlist_count", DataType: "Number", Enabled: false},
	})
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Empty(t, client.fetchedAttrs)
}

func TestResolveBuiltinsUnknownResolver(t *testing.T) {
	client := &fakeClient{name: "fitbit"}
	_, err := ResolveBuiltins(context.Background(), Deps{Client: client}, []models.BuiltinVariable{
		{QualifiedName: "qn.fitbit.no_such_builtin", DataType: "Number", Enabled: true},
	})
	assert.Error(t, err)
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"qn.fitbit.average_daily_steps", true},
		{"qn.spotify.top_artists.1", true},
		{"qn.fitbit.custom.activities.fav_run.distance", true},
		{"plain", false},
		{"Qn.Fitbit.Steps", false},
		{"qn..double_dot", false},
		{"qn.spaces in name", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ParseQualifiedName(tt.raw)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCustomQualifiedNameRejectsBadSegments(t *testing.T) {
	_, err := CustomQualifiedName("fitbit", "activities", "Bad Name", "distance")
	assert.Error(t, err)

	name, err := CustomQualifiedName("fitbit", "activities", "fav_run", "distance")
	require.NoError(t, err)
	assert.Equal(t, "qn.fitbit.custom.activities.fav_run.distance", name.String())
}
