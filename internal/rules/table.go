// Package rules implements exact-match decision table lookup over
// categorical clinical inputs.
package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Row maps one tuple of input-field values to a single output value.
type Row struct {
	Inputs map[string]string `json:"inputs"`
	Output string            `json:"output"`
}

// Table is a named, finite decision table. Fields declares the input
// schema in documented order; matching itself is order-insensitive.
// Tables are immutable after load.
type Table struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Rows   []Row    `json:"rows"`
}

// Apply finds the first row whose every declared field equals the
// corresponding entry in inputs. It returns ("", false) when no row
// matches or when inputs lacks a declared field. Apply never fails:
// incomplete input is a no-match, consistent with the fail-closed
// policy elsewhere.
func (t *Table) Apply(inputs map[string]*string) (string, bool) {
	for _, field := range t.Fields {
		v, ok := inputs[field]
		if !ok || v == nil {
			return "", false
		}
	}

	for _, row := range t.Rows {
		if t.rowMatches(row, inputs) {
			return row.Output, true
		}
	}
	return "", false
}

func (t *Table) rowMatches(row Row, inputs map[string]*string) bool {
	for _, field := range t.Fields {
		want, ok := row.Inputs[field]
		if !ok {
			return false
		}
		got := inputs[field]
		if got == nil || *got != want {
			return false
		}
	}
	return true
}

// Validate checks the table's structural integrity: a non-empty schema,
// rows covering exactly the declared fields, and no duplicate input
// tuples. Duplicates are rejected at load time so Apply can stay
// first-match without ever resolving conflicts at runtime.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("rule table has no name")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("rule table %s declares no input fields", t.Name)
	}
	if len(t.Rows) == 0 {
		return fmt.Errorf("rule table %s has no rows", t.Name)
	}

	seen := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		if row.Output == "" {
			return fmt.Errorf("rule table %s row %d has no output", t.Name, i)
		}
		for _, field := range t.Fields {
			if _, ok := row.Inputs[field]; !ok {
				return fmt.Errorf("rule table %s row %d missing field %q", t.Name, i, field)
			}
		}
		for field := range row.Inputs {
			if !t.hasField(field) {
				return fmt.Errorf("rule table %s row %d has undeclared field %q", t.Name, i, field)
			}
		}

		key := t.tupleKey(row)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("rule table %s rows %d and %d share input tuple %s", t.Name, prev, i, key)
		}
		seen[key] = i
	}

	return nil
}

func (t *Table) hasField(name string) bool {
	for _, f := range t.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// tupleKey builds a canonical key for a row's input tuple.
func (t *Table) tupleKey(row Row) string {
	fields := make([]string, len(t.Fields))
	copy(fields, t.Fields)
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+"="+row.Inputs[f])
	}
	return strings.Join(parts, "|")
}
