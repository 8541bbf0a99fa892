package resolve

import (
	"context"
	"fmt"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/provider"
	"github.com/varweave/varweave/internal/pkg/rules"
)

// Deps bundles what a resolver needs to reach its provider.
type Deps struct {
	Client provider.Client
	Conn   provider.Conn
	Token  provider.Token
}

// ScalarFunc computes one builtin value.
type ScalarFunc func(ctx context.Context, deps Deps) (rules.Value, error)

// ListFunc computes an ordered list backing indexed builtin variables.
type ListFunc func(ctx context.Context, deps Deps) ([]rules.Value, error)

var (
	scalarResolvers = map[string]ScalarFunc{}
	listResolvers   = map[string]ListFunc{}
)

// RegisterScalar binds a qualified name to a scalar resolver.
func RegisterScalar(name string, fn ScalarFunc) {
	if _, err := ParseQualifiedName(name); err != nil {
		panic(err)
	}
	scalarResolvers[name] = fn
}

// RegisterList binds a base name to a list resolver. Indexed builtin
// variables <base>.<n> share one invocation of the backing function.
func RegisterList(name string, fn ListFunc) {
	if _, err := ParseQualifiedName(name); err != nil {
		panic(err)
	}
	listResolvers[name] = fn
}

// HasResolver reports whether a builtin variable is backed by a registered
// resolver.
func HasResolver(v *models.BuiltinVariable) bool {
	if v.Index < 1 {
		_, ok := scalarResolvers[v.QualifiedName]
		return ok
	}
	_, ok := listResolvers[v.ResolverName()]
	return ok
}

// ResolveBuiltins computes every enabled builtin variable of one provider.
// Variables sharing a list resolver trigger a single fetch; an index past
// the end of the list yields the explicit empty value, never an error.
func ResolveBuiltins(ctx context.Context, deps Deps, vars []models.BuiltinVariable) ([]ResolvedValue, error) {
	listCache := map[string][]rules.Value{}
	out := make([]ResolvedValue, 0, len(vars))

	for i := range vars {
		v := &vars[i]
		if !v.Enabled {
			continue
		}
		name, err := ParseQualifiedName(v.QualifiedName)
		if err != nil {
			return nil, err
		}

		if v.Index < 1 {
			fn, ok := scalarResolvers[v.QualifiedName]
			if !ok {
				return nil, fmt.Errorf("no builtin resolver registered for %q", v.QualifiedName)
			}
			value, err := fn(ctx, deps)
			if err != nil {
				return nil, err
			}
			out = append(out, ResolvedValue{Name: name, Value: value})
			continue
		}

		base := v.ResolverName()
		list, cached := listCache[base]
		if !cached {
			fn, ok := listResolvers[base]
			if !ok {
				return nil, fmt.Errorf("no builtin list resolver registered for %q", base)
			}
			list, err = fn(ctx, deps)
			if err != nil {
				return nil, err
			}
			listCache[base] = list
		}

		value := rules.Empty
		if v.Index <= len(list) {
			value = list[v.Index-1]
		}
		out = append(out, ResolvedValue{Name: name, Value: value})
	}
	return out, nil
}

// fetchAll pulls a whole category with the given attributes; shared
// plumbing for the builtin implementations below.
func fetchAll(ctx context.Context, deps Deps, providerName, categoryName string, attrs ...string) ([]rules.Record, error) {
	prov, ok := catalog.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
	cat, ok := prov.Category(categoryName)
	if !ok {
		return nil, fmt.Errorf("provider %q has no category %q", providerName, categoryName)
	}
	return deps.Client.FetchCategory(ctx, deps.Conn, deps.Token, cat, attrs)
}
