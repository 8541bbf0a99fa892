// Package catalog holds the static registry of data providers, their data
// categories and typed attributes. It is populated once at init and shared
// read-only across concurrent resolutions; nothing here mutates afterwards.
package catalog

import (
	"fmt"
	"sort"

	"github.com/varweave/varweave/internal/pkg/rules"
)

// ProviderKind distinguishes how a provider is driven.
type ProviderKind string

const (
	KindOAuth    ProviderKind = "oauth"
	KindAPIKey   ProviderKind = "api_key"
	KindFrontend ProviderKind = "frontend-tracked"
)

// Attribute is one typed column of a data category. Origin is the gjson
// path that extracts the raw value from a provider record.
type Attribute struct {
	Name   string
	Label  string
	Type   rules.DataType
	Unit   string
	Origin string
	DocURL string
}

// Category is a provider-scoped collection of attribute records. Endpoint
// is the REST path the provider adapter fetches, RecordsPath the gjson path
// locating the record array inside the response body.
type Category struct {
	Name        string
	Label       string
	Endpoint    string
	RecordsPath string
	Attributes  []Attribute
}

// Provider describes one external account type and its capabilities.
type Provider struct {
	Name         string
	Kind         ProviderKind
	Scopes       []string
	RequiresApp  bool
	CallbackPath string
	Categories   []Category
}

// Category returns the named category of the provider.
func (p *Provider) Category(name string) (*Category, bool) {
	for i := range p.Categories {
		if p.Categories[i].Name == name {
			return &p.Categories[i], true
		}
	}
	return nil, false
}

// Attribute returns the named attribute of the category.
func (c *Category) Attribute(name string) (*Attribute, bool) {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i], true
		}
	}
	return nil, false
}

var registry map[string]*Provider

// Get looks up a provider by name.
func Get(name string) (*Provider, bool) {
	p, ok := registry[name]
	return p, ok
}

// MustGet looks up a provider by name and panics when it is unknown. Only
// used from init-time builtin registration.
func MustGet(name string) *Provider {
	p, ok := registry[name]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown provider %q", name))
	}
	return p
}

// Providers returns all registered providers sorted by name.
func Providers() []*Provider {
	out := make([]*Provider, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
