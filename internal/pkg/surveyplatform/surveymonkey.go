package surveyplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func init() {
	Register(&surveymonkeyPlatform{})
}

// surveymonkeyPlatform authenticates the researcher via OAuth (it implements
// CodeExchanger), publishes variables as survey custom variables and
// distributes through the survey's open weblink collector with the resolved
// values as custom query parameters.
type surveymonkeyPlatform struct{}

func (s *surveymonkeyPlatform) Name() string { return "surveymonkey" }

func (s *surveymonkeyPlatform) baseURL(creds Creds) string {
	if override := creds["base_url"]; override != "" {
		return override
	}
	return "https://api.surveymonkey.com"
}

func (s *surveymonkeyPlatform) headers(creds Creds) map[string]string {
	return map[string]string{"Authorization": "Bearer " + creds["access_token"]}
}

// ExchangeCode trades the OAuth authorization code for the researcher's
// long-lived access token.
func (s *surveymonkeyPlatform) ExchangeCode(ctx context.Context, creds Creds, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", creds["client_id"])
	form.Set("client_secret", creds["client_secret"])
	form.Set("code", code)
	form.Set("redirect_uri", creds["redirect_uri"])
	form.Set("grant_type", "authorization_code")

	body, err := doJSON(ctx, s.Name(), http.MethodPost,
		s.baseURL(creds)+"/oauth/token?"+form.Encode(), nil, []byte("{}"))
	if err != nil {
		return "", err
	}
	token := body.Get("access_token").String()
	if token == "" {
		return "", connectionFailed(s.Name(), "token response carried no access_token")
	}
	return token, nil
}

func (s *surveymonkeyPlatform) CheckConnection(ctx context.Context, creds Creds) (*Status, error) {
	surveyID := creds["survey_id"]
	if surveyID == "" {
		return &Status{Connected: false, SurveyStatus: SurveyUnknown}, nil
	}
	base := s.baseURL(creds)
	survey, err := doJSON(ctx, s.Name(), http.MethodGet, base+"/v3/surveys/"+surveyID, s.headers(creds), nil)
	if err != nil {
		return nil, err
	}

	// Surveys themselves carry no open/closed flag; the collectors do.
	status := SurveyUnknown
	if _, collErr := s.openWeblink(ctx, creds, surveyID); collErr == nil {
		status = SurveyActive
	} else if pe, ok := collErr.(*Error); ok && pe.Kind == ErrInactiveSurvey {
		status = SurveyInactive
	}

	return &Status{
		Connected:    true,
		SurveyName:   survey.Get("title").String(),
		SurveyStatus: status,
	}, nil
}

// SyncVariables merges the definitions into the survey's custom_variables
// map. Existing keys are overwritten with the same value on re-sync, so the
// operation is idempotent.
func (s *surveymonkeyPlatform) SyncVariables(ctx context.Context, creds Creds, surveyID string, defs []VariableDef) error {
	base := s.baseURL(creds)
	survey, err := doJSON(ctx, s.Name(), http.MethodGet, base+"/v3/surveys/"+surveyID, s.headers(creds), nil)
	if err != nil {
		return err
	}

	merged := map[string]string{}
	for name, label := range survey.Get("custom_variables").Map() {
		merged[name] = label.String()
	}
	for _, def := range defs {
		merged[def.QualifiedName] = def.QualifiedName
	}

	payload, err := json.Marshal(map[string]interface{}{"custom_variables": merged})
	if err != nil {
		return connectionFailed(s.Name(), err.Error())
	}
	_, err = doJSON(ctx, s.Name(), http.MethodPatch, base+"/v3/surveys/"+surveyID, s.headers(creds), payload)
	return err
}

// openWeblink finds the survey's open weblink collector, the thing a
// distribution link hangs off.
func (s *surveymonkeyPlatform) openWeblink(ctx context.Context, creds Creds, surveyID string) (string, error) {
	base := s.baseURL(creds)
	body, err := doJSON(ctx, s.Name(), http.MethodGet,
		base+"/v3/surveys/"+surveyID+"/collectors?include=type,status,url", s.headers(creds), nil)
	if err != nil {
		return "", err
	}
	sawWeblink := false
	for _, coll := range body.Get("data").Array() {
		if coll.Get("type").String() != "weblink" {
			continue
		}
		sawWeblink = true
		if coll.Get("status").String() == "open" {
			return coll.Get("url").String(), nil
		}
	}
	if sawWeblink {
		return "", inactiveSurvey(s.Name(), fmt.Sprintf("survey %s has no open collector", surveyID))
	}
	return "", inactiveSurvey(s.Name(), fmt.Sprintf("survey %s has no weblink collector", surveyID))
}

func (s *surveymonkeyPlatform) CreateDistribution(ctx context.Context, creds Creds, surveyID, respondentID string, values map[string]string) (string, error) {
	link, err := s.openWeblink(ctx, creds, surveyID)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("respondent_id", respondentID)
	for name, value := range values {
		params.Set(name, value)
	}
	sep := "?"
	if u, err := url.Parse(link); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return link + sep + params.Encode(), nil
}
