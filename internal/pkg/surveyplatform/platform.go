// Package surveyplatform contains the adapters that publish resolved
// variables to the survey platform a project uses and mint per-respondent
// distribution links. Platform-specific behavior hides behind the Platform
// interface and a name-keyed registry, mirroring the provider adapters.
package surveyplatform

import (
	"context"
	"fmt"
	"sort"
)

// Creds is the decoded survey_platform_fields blob of a project. Keys are
// platform-specific (api_token, datacenter, survey_id, access_token, ...).
// The base_url key, when present, overrides the platform endpoint; tests
// point it at httptest servers.
type Creds map[string]string

// SurveyStatus reports whether the platform will accept responses.
type SurveyStatus string

const (
	SurveyActive   SurveyStatus = "active"
	SurveyInactive SurveyStatus = "inactive"
	SurveyUnknown  SurveyStatus = "unknown"
)

// Status is the result of a connection check.
type Status struct {
	Connected    bool         `json:"connected"`
	SurveyName   string       `json:"survey_name"`
	SurveyStatus SurveyStatus `json:"survey_status"`
}

// VariableDef is one field to upsert on the platform side, keyed by the
// variable's qualified name. TestValue seeds the platform's preview mode.
type VariableDef struct {
	QualifiedName string
	DataType      string
	TestValue     string
}

// Platform is the per-survey-platform adapter contract. SyncVariables must
// be idempotent: syncing the same definitions twice leaves the platform in
// the same state. CreateDistribution must refuse when the survey is not
// active.
type Platform interface {
	Name() string
	CheckConnection(ctx context.Context, creds Creds) (*Status, error)
	SyncVariables(ctx context.Context, creds Creds, surveyID string, defs []VariableDef) error
	CreateDistribution(ctx context.Context, creds Creds, surveyID, respondentID string, values map[string]string) (string, error)
}

// CodeExchanger is the optional capability for platforms that authenticate
// the researcher via OAuth instead of a static API token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, creds Creds, code string) (string, error)
}

// ErrorKind classifies platform failures for the HTTP layer.
type ErrorKind string

const (
	ErrInactiveSurvey   ErrorKind = "inactive_survey"
	ErrConnectionFailed ErrorKind = "connection_failed"
)

// Error carries the platform's own message through unmodified.
type Error struct {
	Platform string
	Kind     ErrorKind
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Kind, e.Message)
}

var registry = map[string]Platform{}

// Register adds a platform to the registry. Called from adapter init funcs;
// the registry is read-only afterwards.
func Register(p Platform) {
	registry[p.Name()] = p
}

// Lookup returns the platform registered under the given name.
func Lookup(name string) (Platform, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for survey platform %q", name)
	}
	return p, nil
}

// Names lists the registered platform names sorted alphabetically.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
