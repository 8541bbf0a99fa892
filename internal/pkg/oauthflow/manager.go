// Package oauthflow drives the respondent-side OAuth state machine:
// authorize URL, code exchange, connect/finalize with the cross-respondent
// identity dedup invariant, and disconnect.
package oauthflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/provider"
	"github.com/varweave/varweave/internal/pkg/security"
)

const stateTTL = 15 * time.Minute

// Manager owns the per-respondent provider connection lifecycle.
type Manager struct {
	store  Store
	states StateStore
	sealer *security.Sealer

	// clients resolves provider adapters; overridable in tests.
	clients func(name string) (provider.Client, error)
}

func NewManager(store Store, states StateStore, sealer *security.Sealer) *Manager {
	return &Manager{
		store:   store,
		states:  states,
		sealer:  sealer,
		clients: provider.Lookup,
	}
}

// OpenConn unseals a project's provider connection into adapter credentials.
func (m *Manager) OpenConn(dc *models.DataConnection) (provider.Conn, error) {
	secret := ""
	if dc.ClientSecretSealed != "" {
		var err error
		secret, err = m.sealer.Open(dc.ClientSecretSealed)
		if err != nil {
			return provider.Conn{}, fmt.Errorf("open %s client secret: %w", dc.Provider, err)
		}
	}
	return provider.Conn{
		Provider:     dc.Provider,
		ClientID:     dc.ClientID,
		ClientSecret: secret,
		CallbackURL:  dc.CallbackURL,
	}, nil
}

// OpenToken unseals a stored respondent token for adapter use.
func (m *Manager) OpenToken(t *models.OAuthToken) (provider.Token, error) {
	access, err := m.sealer.Open(t.AccessTokenSealed)
	if err != nil {
		return provider.Token{}, fmt.Errorf("open %s access token: %w", t.Provider, err)
	}
	refresh := ""
	if t.RefreshTokenSealed != "" {
		refresh, err = m.sealer.Open(t.RefreshTokenSealed)
		if err != nil {
			return provider.Token{}, fmt.Errorf("open %s refresh token: %w", t.Provider, err)
		}
	}
	return provider.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       t.ExternalUserID,
		Scopes:       t.ScopeList(),
		IssuedAt:     t.IssuedAt,
	}, nil
}

// AuthorizeURL starts a flow: Unconnected -> AuthorizationRequested. The
// returned URL carries a one-shot state nonce bound to the respondent.
func (m *Manager) AuthorizeURL(respondent *models.Respondent, dc *models.DataConnection) (string, error) {
	client, err := m.clients(dc.Provider)
	if err != nil {
		return "", err
	}
	conn, err := m.OpenConn(dc)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	if err := m.states.Put(state, StateValue{RespondentID: respondent.ID, Provider: dc.Provider}, stateTTL); err != nil {
		return "", fmt.Errorf("store authorize state: %w", err)
	}
	return client.AuthorizeURL(conn, state)
}

// ExchangeCode completes AwaitingCodeExchange -> Connected (token persisted,
// not yet finalized). grantedScopes, when the provider reported them on the
// callback, are checked against the catalog's required set; a shortfall
// returns the required and accepted sets verbatim and persists nothing.
func (m *Manager) ExchangeCode(ctx context.Context, respondent *models.Respondent, dc *models.DataConnection, code, state string, grantedScopes []string) (*models.OAuthToken, error) {
	val, err := m.states.Take(state)
	if err != nil {
		return nil, err
	}
	if val.RespondentID != respondent.ID || val.Provider != dc.Provider {
		return nil, &ErrInvalidState{Reason: "bound to a different flow"}
	}

	// The connection row is stored data, not compile-time fixed; a name the
	// catalog does not know must surface as an error, never a panic.
	cat, ok := catalog.Get(dc.Provider)
	if !ok {
		return nil, &provider.Error{
			Provider: dc.Provider,
			Kind:     provider.ErrPermanent,
			Err:      fmt.Errorf("provider %q is not in the catalog", dc.Provider),
		}
	}
	required := cat.Scopes
	if len(grantedScopes) > 0 {
		if missing := missingScopes(required, grantedScopes); len(missing) > 0 {
			return nil, &provider.Error{
				Provider: dc.Provider,
				Kind:     provider.ErrScopeMismatch,
				Required: required,
				Accepted: grantedScopes,
			}
		}
	}

	client, err := m.clients(dc.Provider)
	if err != nil {
		return nil, err
	}
	conn, err := m.OpenConn(dc)
	if err != nil {
		return nil, err
	}
	identity, err := client.ExchangeCode(ctx, conn, code)
	if err != nil {
		return nil, err
	}

	sealedAccess, err := m.sealer.Seal(identity.AccessToken)
	if err != nil {
		return nil, err
	}
	sealedRefresh := ""
	if identity.RefreshToken != "" {
		sealedRefresh, err = m.sealer.Seal(identity.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	token := &models.OAuthToken{
		RespondentID:       respondent.ID,
		ProjectID:          respondent.ProjectID,
		Provider:           dc.Provider,
		ExternalUserID:     identity.UserID,
		AccessTokenSealed:  sealedAccess,
		RefreshTokenSealed: sealedRefresh,
		Scopes:             joinScopes(grantedScopes, required),
		IssuedAt:           identity.IssuedAt,
		Finalized:          false,
	}
	if err := m.store.SaveToken(token); err != nil {
		return nil, err
	}
	return token, nil
}

// WasUsed reports whether the identity triple was finalized by anyone.
func (m *Manager) WasUsed(projectID uint, providerName, externalUserID string) (bool, error) {
	owner, err := m.store.IdentityOwner(projectID, providerName, externalUserID)
	if err != nil {
		return false, err
	}
	return owner != "", nil
}

// Connect finalizes the respondent's provider set.
//
// Fresh connect: every named provider must have an exchanged token and an
// unclaimed (or self-claimed) identity; claims and finalization happen
// atomically so concurrent respondents cannot share an identity.
//
// Resume (the respondent already finalized a set before): the offered set
// must match the previous one provider-for-provider and identity-for-
// identity, or the whole call is rejected and nothing changes.
func (m *Manager) Connect(ctx context.Context, respondent *models.Respondent, providers []string) error {
	if len(providers) == 0 {
		return fmt.Errorf("connect requires at least one provider")
	}

	tokens, err := m.store.TokensByRespondent(respondent.ID)
	if err != nil {
		return err
	}
	byProvider := map[string]*models.OAuthToken{}
	for i := range tokens {
		byProvider[tokens[i].Provider] = &tokens[i]
	}

	selected := make([]models.OAuthToken, 0, len(providers))
	for _, name := range providers {
		t, ok := byProvider[name]
		if !ok {
			return fmt.Errorf("no exchanged token for provider %q", name)
		}
		selected = append(selected, *t)
	}

	prior, err := m.store.FinalizedTokensByRespondent(respondent.ID)
	if err != nil {
		return err
	}
	if len(prior) > 0 {
		if offender, ok := resumeMismatch(prior, selected); ok {
			return &DuplicateIdentityError{Provider: offender, Resume: true}
		}
	}

	// Pre-check claims for a friendly error before the transactional claim;
	// the ledger's unique index still decides races.
	for _, t := range selected {
		owner, err := m.store.IdentityOwner(t.ProjectID, t.Provider, t.ExternalUserID)
		if err != nil {
			return err
		}
		if owner != "" && owner != respondent.ID {
			return &DuplicateIdentityError{Provider: t.Provider}
		}
	}

	return m.store.Finalize(respondent, selected)
}

// Disconnect discards the local token (Connected -> Disconnected). When the
// adapter supports provider-side revocation it is attempted best-effort;
// the dedup ledger keeps the identity burned either way.
func (m *Manager) Disconnect(ctx context.Context, respondent *models.Respondent, dc *models.DataConnection) error {
	stored, err := m.store.TokensByRespondent(respondent.ID)
	if err != nil {
		return err
	}
	var token *models.OAuthToken
	for i := range stored {
		if stored[i].Provider == dc.Provider {
			token = &stored[i]
			break
		}
	}
	if token == nil {
		return fmt.Errorf("no token for provider %q", dc.Provider)
	}

	client, err := m.clients(dc.Provider)
	if err != nil {
		return err
	}
	if revoker, ok := client.(provider.Revoker); ok {
		conn, connErr := m.OpenConn(dc)
		opened, tokErr := m.OpenToken(token)
		if connErr == nil && tokErr == nil {
			if err := revoker.Revoke(ctx, conn, opened); err != nil {
				log.Printf("provider-side revocation failed for %s: %v", dc.Provider, err)
			}
		}
	}

	return m.store.DeleteToken(respondent.ID, dc.Provider)
}

// resumeMismatch compares a previously finalized set with the offered one.
// Returns the first offending provider name (alphabetical, for determinism)
// and whether any mismatch exists.
func resumeMismatch(prior, offered []models.OAuthToken) (string, bool) {
	priorIDs := map[string]string{}
	for _, t := range prior {
		priorIDs[t.Provider] = t.ExternalUserID
	}
	offeredIDs := map[string]string{}
	for _, t := range offered {
		offeredIDs[t.Provider] = t.ExternalUserID
	}

	var offenders []string
	for name, id := range priorIDs {
		if got, ok := offeredIDs[name]; !ok || got != id {
			offenders = append(offenders, name)
		}
	}
	for name := range offeredIDs {
		if _, ok := priorIDs[name]; !ok {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) == 0 {
		return "", false
	}
	sort.Strings(offenders)
	return offenders[0], true
}

func missingScopes(required, granted []string) []string {
	have := map[string]bool{}
	for _, s := range granted {
		have[s] = true
	}
	var missing []string
	for _, s := range required {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

func joinScopes(granted, required []string) string {
	scopes := granted
	if len(scopes) == 0 {
		scopes = required
	}
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
