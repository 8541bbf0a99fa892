package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

// CustomVariable is a researcher-defined variable: filter a provider data
// category down and select one record, then project the enabled attributes.
// Attribute, filter and selection definitions live in JSON columns; the
// typed accessors below decode them.
type CustomVariable struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"index" json:"project_id"`
	VariableName string    `gorm:"type:varchar(100)" json:"variable_name" validate:"required,max=100"`
	DataProvider string    `gorm:"type:varchar(50)" json:"data_provider" validate:"required"`
	DataCategory string    `gorm:"type:varchar(100)" json:"data_category" validate:"required"`
	Optional     bool      `gorm:"default:false" json:"optional"`
	Attributes   string    `gorm:"type:text" json:"-"`
	Filters      string    `gorm:"type:text" json:"-"`
	Selection    string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CVAttribute is one category attribute picked for the variable. Disabled
// attributes may still be fetched for filtering but are never emitted.
type CVAttribute struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// CVFilter is one attribute/operator/value triple, value as entered.
type CVFilter struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// CVSelection reduces the filtered record set. Attribute is nil exactly
// when Operator is "random". Seed switches random selection into its
// deterministic preview mode.
type CVSelection struct {
	Attribute *string `json:"attribute"`
	Operator  string  `json:"operator"`
	Seed      *int64  `json:"seed,omitempty"`
}

func (cv *CustomVariable) AttributeList() ([]CVAttribute, error) {
	var out []CVAttribute
	if cv.Attributes == "" {
		return nil, nil
	}
	err := json.Unmarshal([]byte(cv.Attributes), &out)
	return out, err
}

func (cv *CustomVariable) FilterList() ([]CVFilter, error) {
	var out []CVFilter
	if cv.Filters == "" {
		return nil, nil
	}
	err := json.Unmarshal([]byte(cv.Filters), &out)
	return out, err
}

func (cv *CustomVariable) SelectionRule() (*CVSelection, error) {
	if cv.Selection == "" {
		return nil, nil
	}
	var out CVSelection
	if err := json.Unmarshal([]byte(cv.Selection), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (cv *CustomVariable) SetAttributeList(attrs []CVAttribute) error {
	return cv.encode(&cv.Attributes, attrs)
}
func (cv *CustomVariable) SetFilterList(filters []CVFilter) error {
	return cv.encode(&cv.Filters, filters)
}
func (cv *CustomVariable) SetSelectionRule(sel CVSelection) error {
	return cv.encode(&cv.Selection, sel)
}

func (cv *CustomVariable) encode(dst *string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*dst = string(raw)
	return nil
}

// variableNamePattern is the identifier grammar for variable names: they
// become qualified-name segments, so only lowercase identifiers are safe.
var variableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate runs the definition-time completeness check. It rejects the
// variable before persistence; a variable that passed here never produces a
// validation failure at resolution time.
func (cv *CustomVariable) Validate() error {
	v := validator.New()
	if err := v.Struct(cv); err != nil {
		return err
	}
	if !variableNamePattern.MatchString(cv.VariableName) {
		return &ValidationError{Field: "variable_name", Message: fmt.Sprintf("%q is not a valid identifier", cv.VariableName)}
	}

	prov, ok := catalog.Get(cv.DataProvider)
	if !ok {
		return &ValidationError{Field: "data_provider", Message: fmt.Sprintf("unknown provider %q", cv.DataProvider)}
	}
	cat, ok := prov.Category(cv.DataCategory)
	if !ok {
		return &ValidationError{Field: "data_category", Message: fmt.Sprintf("provider %q has no category %q", cv.DataProvider, cv.DataCategory)}
	}

	attrs, err := cv.AttributeList()
	if err != nil {
		return &ValidationError{Field: "cv_attributes", Message: err.Error()}
	}
	if len(attrs) == 0 {
		return &ValidationError{Field: "cv_attributes", Message: "at least one attribute is required"}
	}
	for _, a := range attrs {
		if _, ok := cat.Attribute(a.Name); !ok {
			return &ValidationError{Field: "cv_attributes", Message: fmt.Sprintf("category %q has no attribute %q", cv.DataCategory, a.Name)}
		}
	}

	filters, err := cv.FilterList()
	if err != nil {
		return &ValidationError{Field: "filters", Message: err.Error()}
	}
	for i, f := range filters {
		if f.Attribute == "" || f.Operator == "" || f.Value == "" {
			return &ValidationError{Field: "filters", Message: fmt.Sprintf("filter %d is incomplete", i+1)}
		}
		attr, ok := cat.Attribute(f.Attribute)
		if !ok {
			return &ValidationError{Field: "filters", Message: fmt.Sprintf("category %q has no attribute %q", cv.DataCategory, f.Attribute)}
		}
		if !rules.ValidOperator(attr.Type, rules.Operator(f.Operator)) {
			return &ValidationError{Field: "filters", Message: fmt.Sprintf("operator %q is not registered for %s attributes", f.Operator, attr.Type)}
		}
		if _, err := rules.ParseTyped(attr.Type, f.Value); err != nil {
			return &ValidationError{Field: "filters", Message: fmt.Sprintf("filter %d: %v", i+1, err)}
		}
	}

	sel, err := cv.SelectionRule()
	if err != nil {
		return &ValidationError{Field: "selection", Message: err.Error()}
	}
	if sel == nil {
		return &ValidationError{Field: "selection", Message: "selection is required"}
	}
	switch rules.SelectOperator(sel.Operator) {
	case rules.SelectRandom:
		if sel.Attribute != nil {
			return &ValidationError{Field: "selection", Message: "random selection must not name an attribute"}
		}
	case rules.SelectMin, rules.SelectMax:
		if sel.Attribute == nil || *sel.Attribute == "" {
			return &ValidationError{Field: "selection", Message: fmt.Sprintf("%s selection requires an attribute", sel.Operator)}
		}
		attr, ok := cat.Attribute(*sel.Attribute)
		if !ok {
			return &ValidationError{Field: "selection", Message: fmt.Sprintf("category %q has no attribute %q", cv.DataCategory, *sel.Attribute)}
		}
		if attr.Type == rules.TypeText {
			return &ValidationError{Field: "selection", Message: "min/max selection needs a numeric or date attribute"}
		}
	default:
		return &ValidationError{Field: "selection", Message: fmt.Sprintf("unknown selection operator %q", sel.Operator)}
	}

	return nil
}
