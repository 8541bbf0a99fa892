// Package provider contains the client adapters that normalize external
// account APIs into typed records. Adapters are pure network clients; they
// never touch persistence. Provider-specific behavior hides behind the
// Client interface and a name-keyed registry.
package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

// Conn carries a project's opened credentials for one provider. BaseURL
// and AuthBaseURL are empty in production and point at test servers in
// adapter tests.
type Conn struct {
	Provider     string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	BaseURL      string
}

// Token is an opened (unsealed) respondent token.
type Token struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Scopes       []string
	IssuedAt     time.Time
}

// Identity is the result of a successful code exchange.
type Identity struct {
	Provider       string
	UserID         string
	AccessToken    string
	RefreshToken   string
	AcceptedScopes []string
	IssuedAt       time.Time
}

// Client is the per-provider adapter contract.
type Client interface {
	Name() string
	AuthorizeURL(conn Conn, state string) (string, error)
	ExchangeCode(ctx context.Context, conn Conn, code string) (*Identity, error)
	FetchCategory(ctx context.Context, conn Conn, token Token, cat *catalog.Category, attrs []string) ([]rules.Record, error)
}

// Revoker is the optional provider-side token revocation capability.
// Disconnect always discards the local token; adapters implementing this
// additionally invalidate it at the provider.
type Revoker interface {
	Revoke(ctx context.Context, conn Conn, token Token) error
}

var registry = map[string]Client{}

// Register adds a client to the registry. Called from adapter init funcs;
// the registry is read-only afterwards.
func Register(c Client) {
	registry[c.Name()] = c
}

// Lookup returns the client registered under the provider name.
func Lookup(name string) (Client, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", name)
	}
	return c, nil
}

// Names lists the registered provider names sorted alphabetically.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
