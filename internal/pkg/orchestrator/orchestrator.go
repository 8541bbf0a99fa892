// Package orchestrator drives one prepare-survey call: fan out variable
// resolution across the respondent's connected providers, merge the results
// with frontend-tracked values and push everything to the survey platform.
// The call is all-or-nothing per respondent; no partial distribution link is
// ever issued.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/oauthflow"
	"github.com/varweave/varweave/internal/pkg/provider"
	"github.com/varweave/varweave/internal/pkg/resolve"
	"github.com/varweave/varweave/internal/pkg/surveyplatform"
)

// defaultProviderTimeout bounds one provider branch. Expiry counts as a
// transient provider failure.
const defaultProviderTimeout = 45 * time.Second

// Orchestrator wires resolution to providers and the survey platform. The
// function fields default to the package registries and the manager's token
// unsealing; tests swap them for fakes.
type Orchestrator struct {
	Clients         func(name string) (provider.Client, error)
	Platforms       func(name string) (surveyplatform.Platform, error)
	OpenConn        func(dc *models.DataConnection) (provider.Conn, error)
	OpenToken       func(t *models.OAuthToken) (provider.Token, error)
	ProviderTimeout time.Duration
}

// New builds the production orchestrator on top of the OAuth session
// manager, which owns credential unsealing.
func New(manager *oauthflow.Manager) *Orchestrator {
	return &Orchestrator{
		Clients:         provider.Lookup,
		Platforms:       surveyplatform.Lookup,
		OpenConn:        manager.OpenConn,
		OpenToken:       manager.OpenToken,
		ProviderTimeout: defaultProviderTimeout,
	}
}

// PrepareInput carries everything one prepare call needs, loaded by the
// controller layer so the orchestrator itself stays storage-free.
type PrepareInput struct {
	Project     *models.Project
	Respondent  *models.Respondent
	Connections map[string]*models.DataConnection
	Tokens      []models.OAuthToken
	Builtins    []models.BuiltinVariable
	Customs     []models.CustomVariable
	Frontend    map[string]string
}

// branchResult is one provider branch's outcome. Branches write only their
// own slot; merging happens after the barrier.
type branchResult struct {
	provider string
	values   []resolve.ResolvedValue
	err      error
}

// PrepareSurvey resolves all variables, syncs them to the platform and
// returns the distribution URL, persisting it on the respondent.
func (o *Orchestrator) PrepareSurvey(ctx context.Context, in PrepareInput) (string, error) {
	builtinsByProvider := map[string][]models.BuiltinVariable{}
	for _, b := range in.Builtins {
		if !b.Enabled {
			continue
		}
		builtinsByProvider[b.Provider()] = append(builtinsByProvider[b.Provider()], b)
	}
	customsByProvider := map[string][]models.CustomVariable{}
	for _, cv := range in.Customs {
		customsByProvider[cv.DataProvider] = append(customsByProvider[cv.DataProvider], cv)
	}

	tokensByProvider := map[string]*models.OAuthToken{}
	for i := range in.Tokens {
		tokensByProvider[in.Tokens[i].Provider] = &in.Tokens[i]
	}

	var branches []string
	for name := range builtinsByProvider {
		if name != "frontend" {
			branches = append(branches, name)
		}
	}
	for name := range customsByProvider {
		if _, seen := builtinsByProvider[name]; !seen && name != "frontend" {
			branches = append(branches, name)
		}
	}

	results := make([]branchResult, len(branches))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, name := range branches {
		i, name := i, name
		results[i].provider = name
		group.Go(func() error {
			values, err := o.resolveProvider(groupCtx, in, name,
				builtinsByProvider[name], customsByProvider[name], tokensByProvider[name])
			results[i].values = values
			results[i].err = err
			if err != nil && mandatoryAffected(builtinsByProvider[name], customsByProvider[name]) {
				return fmt.Errorf("provider %s: %w", name, err)
			}
			// Optional-only branch: tolerated, siblings keep running.
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	values := map[string]string{}
	for _, res := range results {
		if res.err != nil {
			// Tolerated failure: the branch's values stay absent from the
			// distribution; its field definitions still sync below.
			continue
		}
		for _, rv := range res.values {
			values[rv.Name.String()] = rv.Value.String()
		}
	}
	for name, value := range in.Frontend {
		values[name] = value
	}

	defs, err := VariableDefs(in.Builtins, in.Customs)
	if err != nil {
		return "", err
	}

	platform, err := o.Platforms(in.Project.SurveyPlatformName)
	if err != nil {
		return "", err
	}
	creds, err := in.Project.PlatformFields()
	if err != nil {
		return "", err
	}
	surveyID := creds["survey_id"]

	if err := platform.SyncVariables(ctx, creds, surveyID, defs); err != nil {
		return "", err
	}
	link, err := platform.CreateDistribution(ctx, creds, surveyID, in.Respondent.ID, values)
	if err != nil {
		return "", err
	}

	in.Respondent.DistributionID = surveyID
	in.Respondent.DistributionURL = link
	in.Respondent.Status = models.RESPONDENT_READY
	return link, nil
}

// resolveProvider runs one branch under its own timeout. Custom variables
// fetch independent categories, so they run concurrently; builtin resolvers
// run sequentially afterwards since they may share fetched data.
func (o *Orchestrator) resolveProvider(ctx context.Context, in PrepareInput, name string, builtins []models.BuiltinVariable, customs []models.CustomVariable, token *models.OAuthToken) ([]resolve.ResolvedValue, error) {
	if token == nil {
		return nil, &provider.Error{Provider: name, Kind: provider.ErrPermanent, Err: errors.New("respondent has no finalized token")}
	}
	dc, ok := in.Connections[name]
	if !ok {
		return nil, &provider.Error{Provider: name, Kind: provider.ErrPermanent, Err: errors.New("project has no connection configured")}
	}

	client, err := o.Clients(name)
	if err != nil {
		return nil, err
	}
	conn, err := o.OpenConn(dc)
	if err != nil {
		return nil, err
	}
	opened, err := o.OpenToken(token)
	if err != nil {
		return nil, err
	}
	deps := resolve.Deps{Client: client, Conn: conn, Token: opened}

	timeout := o.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	branchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	customValues := make([][]resolve.ResolvedValue, len(customs))
	inner, innerCtx := errgroup.WithContext(branchCtx)
	for i := range customs {
		i := i
		inner.Go(func() error {
			vals, err := resolve.ResolveCustom(innerCtx, deps, &customs[i])
			if err != nil {
				return err
			}
			customValues[i] = vals
			return nil
		})
	}
	if err := inner.Wait(); err != nil {
		return nil, asBranchError(branchCtx, name, err)
	}

	var out []resolve.ResolvedValue
	for _, vals := range customValues {
		out = append(out, vals...)
	}

	builtinValues, err := resolve.ResolveBuiltins(branchCtx, deps, builtins)
	if err != nil {
		return nil, asBranchError(branchCtx, name, err)
	}
	return append(out, builtinValues...), nil
}

// asBranchError maps a branch timeout to a transient provider failure;
// adapter errors pass through untouched.
func asBranchError(ctx context.Context, name string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &provider.Error{Provider: name, Kind: provider.ErrTransient, Err: context.DeadlineExceeded}
	}
	return err
}

// mandatoryAffected reports whether a branch failure must abort the call.
func mandatoryAffected(builtins []models.BuiltinVariable, customs []models.CustomVariable) bool {
	for _, b := range builtins {
		if !b.Optional {
			return true
		}
	}
	for _, cv := range customs {
		if !cv.Optional {
			return true
		}
	}
	return false
}

// VariableDefs lists every field the platform must know about, custom
// variables expanded per enabled attribute. Definitions sync even when a
// tolerated branch failed, so the platform field set stays stable. The
// researcher-initiated sync endpoint uses the same expansion.
func VariableDefs(builtins []models.BuiltinVariable, customs []models.CustomVariable) ([]surveyplatform.VariableDef, error) {
	var defs []surveyplatform.VariableDef
	for _, b := range builtins {
		if !b.Enabled {
			continue
		}
		defs = append(defs, surveyplatform.VariableDef{QualifiedName: b.QualifiedName, DataType: b.DataType, TestValue: b.TestValue})
	}
	for i := range customs {
		cv := &customs[i]
		attrs, err := cv.AttributeList()
		if err != nil {
			return nil, err
		}
		for _, a := range attrs {
			if !a.Enabled {
				continue
			}
			qn, err := resolve.CustomQualifiedName(cv.DataProvider, cv.DataCategory, cv.VariableName, a.Name)
			if err != nil {
				return nil, err
			}
			defs = append(defs, surveyplatform.VariableDef{QualifiedName: qn.String(), DataType: attrType(cv, a.Name)})
		}
	}
	return defs, nil
}

func attrType(cv *models.CustomVariable, attr string) string {
	prov, ok := catalog.Get(cv.DataProvider)
	if !ok {
		return ""
	}
	cat, ok := prov.Category(cv.DataCategory)
	if !ok {
		return ""
	}
	a, ok := cat.Attribute(attr)
	if !ok {
		return ""
	}
	return string(a.Type)
}
