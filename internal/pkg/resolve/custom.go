package resolve

import (
	"context"
	"fmt"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

// ResolveCustom computes a researcher-defined variable for one respondent:
// fetch only the referenced attributes, filter, select one record, then
// project every enabled attribute under its derived qualified name.
//
// The variable passed the definition-time completeness check when it was
// stored, so catalog lookups failing here mean the catalog changed under a
// persisted definition and are reported as errors.
func ResolveCustom(ctx context.Context, deps Deps, cv *models.CustomVariable) ([]ResolvedValue, error) {
	prov, ok := catalog.Get(cv.DataProvider)
	if !ok {
		return nil, fmt.Errorf("custom variable %q: unknown provider %q", cv.VariableName, cv.DataProvider)
	}
	cat, ok := prov.Category(cv.DataCategory)
	if !ok {
		return nil, fmt.Errorf("custom variable %q: provider %q has no category %q", cv.VariableName, cv.DataProvider, cv.DataCategory)
	}

	attrs, err := cv.AttributeList()
	if err != nil {
		return nil, err
	}
	cvFilters, err := cv.FilterList()
	if err != nil {
		return nil, err
	}
	selRule, err := cv.SelectionRule()
	if err != nil {
		return nil, err
	}
	if selRule == nil {
		return nil, fmt.Errorf("custom variable %q has no selection", cv.VariableName)
	}

	// Fetch only what filters, selection or enabled attributes reference.
	needed := map[string]bool{}
	for _, f := range cvFilters {
		needed[f.Attribute] = true
	}
	if selRule.Attribute != nil {
		needed[*selRule.Attribute] = true
	}
	var enabled []string
	for _, a := range attrs {
		if a.Enabled {
			enabled = append(enabled, a.Name)
			needed[a.Name] = true
		}
	}
	fetchAttrs := make([]string, 0, len(needed))
	for name := range needed {
		fetchAttrs = append(fetchAttrs, name)
	}

	records, err := deps.Client.FetchCategory(ctx, deps.Conn, deps.Token, cat, fetchAttrs)
	if err != nil {
		return nil, err
	}

	filters := make([]rules.Filter, 0, len(cvFilters))
	for _, f := range cvFilters {
		attr, ok := cat.Attribute(f.Attribute)
		if !ok {
			return nil, fmt.Errorf("custom variable %q: category %q has no attribute %q", cv.VariableName, cv.DataCategory, f.Attribute)
		}
		value, err := rules.ParseTyped(attr.Type, f.Value)
		if err != nil {
			return nil, fmt.Errorf("custom variable %q: %w", cv.VariableName, err)
		}
		filters = append(filters, rules.Filter{Attribute: f.Attribute, Operator: rules.Operator(f.Operator), Value: value})
	}

	filtered, err := rules.Evaluate(records, filters)
	if err != nil {
		return nil, err
	}

	selection := rules.Selection{Operator: rules.SelectOperator(selRule.Operator), Seed: selRule.Seed}
	if selRule.Attribute != nil {
		selection.Attribute = *selRule.Attribute
	}
	selected, err := rules.Select(filtered, selection)
	if err != nil {
		return nil, err
	}

	// One value per enabled attribute. No selected record means explicit
	// empty values, never an error.
	out := make([]ResolvedValue, 0, len(enabled))
	for _, attrName := range enabled {
		name, err := CustomQualifiedName(cv.DataProvider, cv.DataCategory, cv.VariableName, attrName)
		if err != nil {
			return nil, err
		}
		value := rules.Empty
		if selected != nil {
			if v, ok := selected[attrName]; ok {
				value = v
			}
		}
		out = append(out, ResolvedValue{Name: name, Value: value})
	}
	return out, nil
}
