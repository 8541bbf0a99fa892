package surveyplatform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryContents(t *testing.T) {
	assert.Equal(t, []string{"qualtrics", "surveymonkey"}, Names())

	q, err := Lookup("qualtrics")
	require.NoError(t, err)
	_, isExchanger := q.(CodeExchanger)
	assert.False(t, isExchanger, "qualtrics uses a static API token")

	sm, err := Lookup("surveymonkey")
	require.NoError(t, err)
	_, isExchanger = sm.(CodeExchanger)
	assert.True(t, isExchanger, "surveymonkey authenticates via OAuth")

	_, err = Lookup("typeform")
	assert.Error(t, err)
}

// qualtricsServer fakes the survey and flow endpoints, remembering the last
// flow PUT so tests can inspect what a sync wrote.
type qualtricsServer struct {
	active   bool
	flow     []map[string]interface{}
	putCount int
}

func (f *qualtricsServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/API/v3/surveys/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{"name": "Daily Habits", "isActive": f.active},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/flow"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{"Type": "Root", "FlowID": "FL_1", "Flow": f.flow},
			})
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/flow"):
			body, _ := io.ReadAll(r.Body)
			var parsed struct {
				Flow []map[string]interface{} `json:"Flow"`
			}
			json.Unmarshal(body, &parsed)
			f.flow = parsed.Flow
			f.putCount++
			json.NewEncoder(w).Encode(map[string]interface{}{"meta": map[string]string{"httpStatus": "200 - OK"}})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestQualtricsSyncVariablesIsIdempotent(t *testing.T) {
	fake := &qualtricsServer{active: true, flow: []map[string]interface{}{
		{"Type": "Block", "FlowID": "FL_2", "ID": "BL_1"},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	creds := Creds{"base_url": srv.URL, "api_token": "tok", "survey_id": "SV_1"}
	q, _ := Lookup("qualtrics")
	defs := []VariableDef{
		{QualifiedName: "qn.fitbit.average_daily_steps", DataType: "number", TestValue: "7500"},
		{QualifiedName: "qn.fitbit.custom.activities.fav_run.distance", DataType: "number", TestValue: "10"},
	}

	require.NoError(t, q.SyncVariables(context.Background(), creds, "SV_1", defs))
	require.NoError(t, q.SyncVariables(context.Background(), creds, "SV_1", defs))

	assert.Equal(t, 2, fake.putCount)
	require.Len(t, fake.flow, 2, "re-sync rewrites the element instead of stacking")
	assert.Equal(t, "EmbeddedData", fake.flow[0]["Type"], "embedded data runs before the block")
	assert.Equal(t, "Block", fake.flow[1]["Type"])

	embedded := fake.flow[0]["EmbeddedData"].([]interface{})
	require.Len(t, embedded, 2)
	first := embedded[0].(map[string]interface{})
	assert.Equal(t, "qn.fitbit.average_daily_steps", first["Field"])
	assert.Equal(t, "7500", first["Value"])
}

func TestQualtricsRefusesDistributionWhenInactive(t *testing.T) {
	fake := &qualtricsServer{active: false}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	creds := Creds{"base_url": srv.URL, "api_token": "tok", "survey_id": "SV_1"}
	q, _ := Lookup("qualtrics")

	_, err := q.CreateDistribution(context.Background(), creds, "SV_1", "resp-1", nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInactiveSurvey, pe.Kind)
	assert.Equal(t, "qualtrics", pe.Platform)
}

func TestQualtricsDistributionCarriesResolvedValues(t *testing.T) {
	fake := &qualtricsServer{active: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	creds := Creds{"base_url": srv.URL, "api_token": "tok", "survey_id": "SV_1"}
	q, _ := Lookup("qualtrics")

	link, err := q.CreateDistribution(context.Background(), creds, "SV_1", "resp-1", map[string]string{
		"qn.fitbit.average_daily_steps": "7500",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/jfe/form/SV_1", parsed.Path)
	assert.Equal(t, "resp-1", parsed.Query().Get("respondent_id"))
	assert.Equal(t, "7500", parsed.Query().Get("qn.fitbit.average_daily_steps"))
}

func TestQualtricsCheckConnection(t *testing.T) {
	fake := &qualtricsServer{active: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	q, _ := Lookup("qualtrics")
	status, err := q.CheckConnection(context.Background(), Creds{"base_url": srv.URL, "api_token": "tok", "survey_id": "SV_1"})
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "Daily Habits", status.SurveyName)
	assert.Equal(t, SurveyActive, status.SurveyStatus)
}

// surveymonkeyServer fakes the survey, collectors and oauth endpoints.
type surveymonkeyServer struct {
	customVars      map[string]string
	collectorStatus string
	lastPatch       map[string]string
}

func (f *surveymonkeyServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/oauth/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "sm-token"})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/collectors"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{
					{"type": "weblink", "status": f.collectorStatus, "url": "https://www.surveymonkey.com/r/ABCDEF"},
				},
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v3/surveys/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"title":            "Daily Habits",
				"custom_variables": f.customVars,
			})
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/v3/surveys/"):
			body, _ := io.ReadAll(r.Body)
			var parsed struct {
				CustomVariables map[string]string `json:"custom_variables"`
			}
			json.Unmarshal(body, &parsed)
			f.customVars = parsed.CustomVariables
			f.lastPatch = parsed.CustomVariables
			json.NewEncoder(w).Encode(map[string]string{"id": "1"})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestSurveyMonkeySyncMergesAndStaysIdempotent(t *testing.T) {
	fake := &surveymonkeyServer{
		customVars:      map[string]string{"preexisting": "preexisting"},
		collectorStatus: "open",
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	creds := Creds{"base_url": srv.URL, "access_token": "tok", "survey_id": "123"}
	sm, _ := Lookup("surveymonkey")
	defs := []VariableDef{{QualifiedName: "qn.spotify.playlist_count", DataType: "number", TestValue: "4"}}

	require.NoError(t, sm.SyncVariables(context.Background(), creds, "123", defs))
	require.NoError(t, sm.SyncVariables(context.Background(), creds, "123", defs))

	assert.Equal(t, map[string]string{
		"preexisting":               "preexisting",
		"qn.spotify.playlist_count": "qn.spotify.playlist_count",
	}, fake.customVars, "existing variables kept, new upserted once")
}

func TestSurveyMonkeyDistributionAndInactiveRefusal(t *testing.T) {
	fake := &surveymonkeyServer{collectorStatus: "open"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	creds := Creds{"base_url": srv.URL, "access_token": "tok", "survey_id": "123"}
	sm, _ := Lookup("surveymonkey")

	link, err := sm.CreateDistribution(context.Background(), creds, "123", "resp-9", map[string]string{
		"qn.spotify.playlist_count": "4",
	})
	require.NoError(t, err)
	assert.Contains(t, link, "https://www.surveymonkey.com/r/ABCDEF?")
	assert.Contains(t, link, "respondent_id=resp-9")

	fake.collectorStatus = "closed"
	_, err = sm.CreateDistribution(context.Background(), creds, "123", "resp-9", nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInactiveSurvey, pe.Kind)
}

func TestSurveyMonkeyExchangeCode(t *testing.T) {
	fake := &surveymonkeyServer{collectorStatus: "open"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	sm, _ := Lookup("surveymonkey")
	exchanger := sm.(CodeExchanger)

	token, err := exchanger.ExchangeCode(context.Background(), Creds{
		"base_url": srv.URL, "client_id": "cid", "client_secret": "sec", "redirect_uri": "https://app/cb",
	}, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "sm-token", token)
}
