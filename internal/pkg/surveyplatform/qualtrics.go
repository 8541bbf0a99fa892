package surveyplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

func init() {
	Register(&qualtricsPlatform{})
}

// qualtricsPlatform publishes variables as embedded-data fields on the
// survey flow and distributes via the anonymous survey link, passing the
// resolved values as query parameters (Qualtrics reads query parameters
// into embedded data whose field names match).
type qualtricsPlatform struct{}

func (q *qualtricsPlatform) Name() string { return "qualtrics" }

func (q *qualtricsPlatform) baseURL(creds Creds) string {
	if override := creds["base_url"]; override != "" {
		return override
	}
	dc := creds["datacenter"]
	if dc == "" {
		dc = "eu"
	}
	return fmt.Sprintf("https://%s.qualtrics.com", dc)
}

func (q *qualtricsPlatform) headers(creds Creds) map[string]string {
	return map[string]string{"X-API-TOKEN": creds["api_token"]}
}

func (q *qualtricsPlatform) CheckConnection(ctx context.Context, creds Creds) (*Status, error) {
	surveyID := creds["survey_id"]
	if surveyID == "" {
		return &Status{Connected: false, SurveyStatus: SurveyUnknown}, nil
	}
	body, err := doJSON(ctx, q.Name(), http.MethodGet,
		q.baseURL(creds)+"/API/v3/surveys/"+surveyID, q.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	status := SurveyInactive
	switch {
	case !body.Get("result.isActive").Exists():
		status = SurveyUnknown
	case body.Get("result.isActive").Bool():
		status = SurveyActive
	}
	return &Status{
		Connected:    true,
		SurveyName:   body.Get("result.name").String(),
		SurveyStatus: status,
	}, nil
}

// SyncVariables upserts one embedded-data flow element holding every
// variable definition. Re-running the sync rewrites the same element, so the
// operation is idempotent and never duplicates fields.
func (q *qualtricsPlatform) SyncVariables(ctx context.Context, creds Creds, surveyID string, defs []VariableDef) error {
	base := q.baseURL(creds)
	flowURL := base + "/API/v3/survey-definitions/" + surveyID + "/flow"

	body, err := doJSON(ctx, q.Name(), http.MethodGet, flowURL, q.headers(creds), nil)
	if err != nil {
		return err
	}

	var flow map[string]interface{}
	if err := json.Unmarshal([]byte(body.Get("result").Raw), &flow); err != nil {
		return connectionFailed(q.Name(), "malformed survey flow: "+err.Error())
	}

	embedded := make([]map[string]interface{}, 0, len(defs))
	for _, def := range defs {
		embedded = append(embedded, map[string]interface{}{
			"Description": def.QualifiedName,
			"Field":       def.QualifiedName,
			"Type":        "Recipient",
			"Value":       def.TestValue,
		})
	}
	element := map[string]interface{}{
		"Type":         "EmbeddedData",
		"FlowID":       embeddedFlowID,
		"EmbeddedData": embedded,
	}

	flow["Flow"] = upsertFlowElement(flowElements(body), element)

	payload, err := json.Marshal(flow)
	if err != nil {
		return connectionFailed(q.Name(), err.Error())
	}
	_, err = doJSON(ctx, q.Name(), http.MethodPut, flowURL, q.headers(creds), payload)
	return err
}

// embeddedFlowID marks the flow element this engine owns. Reusing one id
// keeps repeated syncs from stacking elements.
const embeddedFlowID = "FL_varweave"

func flowElements(body gjson.Result) []map[string]interface{} {
	var out []map[string]interface{}
	for _, el := range body.Get("result.Flow").Array() {
		var m map[string]interface{}
		if json.Unmarshal([]byte(el.Raw), &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

// upsertFlowElement replaces the engine-owned element in place or prepends
// it so embedded data is set before any survey block runs.
func upsertFlowElement(elements []map[string]interface{}, element map[string]interface{}) []map[string]interface{} {
	for i, el := range elements {
		if el["FlowID"] == embeddedFlowID {
			elements[i] = element
			return elements
		}
	}
	return append([]map[string]interface{}{element}, elements...)
}

func (q *qualtricsPlatform) CreateDistribution(ctx context.Context, creds Creds, surveyID, respondentID string, values map[string]string) (string, error) {
	status, err := q.CheckConnection(ctx, creds)
	if err != nil {
		return "", err
	}
	if status.SurveyStatus != SurveyActive {
		return "", inactiveSurvey(q.Name(), fmt.Sprintf("survey %s is not accepting responses", surveyID))
	}

	params := url.Values{}
	params.Set("respondent_id", respondentID)
	for name, value := range values {
		params.Set(name, value)
	}
	return q.baseURL(creds) + "/jfe/form/" + surveyID + "?" + params.Encode(), nil
}
