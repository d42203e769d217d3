package rules

import (
	"fmt"
)

// Canonical rule table names.
const (
	TableHematological    = "HEMATOLOGICAL_RULES"
	TableSystemicToxicity = "SYSTEMIC_TOXICITY_RULES"
	TableTreatment        = "TREATMENT_RULES"
)

// Rule table field names.
const (
	FieldHemoglobinState       = "hemoglobin_state"
	FieldWBCLevel              = "wbc_level"
	FieldFeverLevel            = "fever_level"
	FieldChills                = "chills"
	FieldSkinLook              = "skin_look"
	FieldAllergicState         = "allergic_state"
	FieldGender                = "gender"
	FieldHematologicalState    = "hematological_state"
	FieldSystemicToxicityGrade = "systemic_toxicity_grade"
)

// Registry is an immutable holder of the named rule tables, built once
// at process start and passed explicitly to consumers.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry validates every table and builds a registry. The three
// canonical tables must all be present.
func NewRegistry(tables []*Table) (*Registry, error) {
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("validating rule table: %w", err)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate rule table %s", t.Name)
		}
		byName[t.Name] = t
	}

	for _, required := range []string{TableHematological, TableSystemicToxicity, TableTreatment} {
		if _, ok := byName[required]; !ok {
			return nil, fmt.Errorf("missing required rule table %s", required)
		}
	}

	return &Registry{tables: byName}, nil
}

// Table returns the named table, or nil when unknown.
func (r *Registry) Table(name string) *Table {
	return r.tables[name]
}

// Hematological returns the 2:1 hematological state table.
func (r *Registry) Hematological() *Table {
	return r.tables[TableHematological]
}

// SystemicToxicity returns the 4:1 systemic toxicity table.
func (r *Registry) SystemicToxicity() *Table {
	return r.tables[TableSystemicToxicity]
}

// Treatment returns the 4:1 treatment recommendation table.
func (r *Registry) Treatment() *Table {
	return r.tables[TableTreatment]
}

// Names returns the registered table names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}
