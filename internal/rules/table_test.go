package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func testTable() *Table {
	return &Table{
		Name:   "TEST_RULES",
		Fields: []string{"color", "size"},
		Rows: []Row{
			{Inputs: map[string]string{"color": "red", "size": "small"}, Output: "A"},
			{Inputs: map[string]string{"color": "red", "size": "large"}, Output: "B"},
			{Inputs: map[string]string{"color": "blue", "size": "small"}, Output: "C"},
		},
	}
}

func TestTableApply(t *testing.T) {
	table := testTable()

	tests := []struct {
		name      string
		inputs    map[string]*string
		want      string
		wantMatch bool
	}{
		{
			name:      "exact match",
			inputs:    map[string]*string{"color": strptr("red"), "size": strptr("large")},
			want:      "B",
			wantMatch: true,
		},
		{
			name:      "no matching row",
			inputs:    map[string]*string{"color": strptr("blue"), "size": strptr("large")},
			wantMatch: false,
		},
		{
			name:      "missing declared field",
			inputs:    map[string]*string{"color": strptr("red")},
			wantMatch: false,
		},
		{
			name:      "nil value treated as absent",
			inputs:    map[string]*string{"color": strptr("red"), "size": nil},
			wantMatch: false,
		},
		{
			name:      "extra undeclared fields are ignored",
			inputs:    map[string]*string{"color": strptr("red"), "size": strptr("small"), "weight": strptr("heavy")},
			want:      "A",
			wantMatch: true,
		},
		{
			name:      "empty inputs",
			inputs:    map[string]*string{},
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Apply(tt.inputs)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestTableApply_Deterministic(t *testing.T) {
	table := testTable()
	inputs := map[string]*string{"color": strptr("blue"), "size": strptr("small")}

	first, ok := table.Apply(inputs)
	require.True(t, ok)

	for i := 0; i < 100; i++ {
		got, ok := table.Apply(inputs)
		require.True(t, ok)
		require.Equal(t, first, got)
	}
}

func TestTableApply_FirstMatchWins(t *testing.T) {
	table := &Table{
		Name:   "SHADOWED",
		Fields: []string{"k"},
		Rows: []Row{
			{Inputs: map[string]string{"k": "v"}, Output: "first"},
			{Inputs: map[string]string{"k": "v"}, Output: "second"},
		},
	}

	got, ok := table.Apply(map[string]*string{"k": strptr("v")})
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Table)
		wantErr string
	}{
		{
			name:   "valid table",
			mutate: func(*Table) {},
		},
		{
			name:    "no name",
			mutate:  func(tbl *Table) { tbl.Name = "" },
			wantErr: "no name",
		},
		{
			name:    "no fields",
			mutate:  func(tbl *Table) { tbl.Fields = nil },
			wantErr: "no input fields",
		},
		{
			name:    "no rows",
			mutate:  func(tbl *Table) { tbl.Rows = nil },
			wantErr: "no rows",
		},
		{
			name: "row missing declared field",
			mutate: func(tbl *Table) {
				delete(tbl.Rows[0].Inputs, "size")
			},
			wantErr: `missing field "size"`,
		},
		{
			name: "row with undeclared field",
			mutate: func(tbl *Table) {
				tbl.Rows[0].Inputs["weight"] = "heavy"
			},
			wantErr: "undeclared field",
		},
		{
			name: "row without output",
			mutate: func(tbl *Table) {
				tbl.Rows[1].Output = ""
			},
			wantErr: "no output",
		},
		{
			name: "duplicate input tuple",
			mutate: func(tbl *Table) {
				tbl.Rows[2].Inputs = map[string]string{"color": "red", "size": "small"}
			},
			wantErr: "share input tuple",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := testTable()
			tt.mutate(table)

			err := table.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(DefaultTables())
	require.NoError(t, err)

	assert.NotNil(t, registry.Hematological())
	assert.NotNil(t, registry.SystemicToxicity())
	assert.NotNil(t, registry.Treatment())
	assert.Nil(t, registry.Table("UNKNOWN"))
	assert.Len(t, registry.Names(), 3)
}

func TestNewRegistry_MissingRequiredTable(t *testing.T) {
	tables := DefaultTables()[:2] // drop TREATMENT_RULES

	_, err := NewRegistry(tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TREATMENT_RULES")
}

func TestNewRegistry_RejectsConflictingRows(t *testing.T) {
	tables := DefaultTables()
	hema := tables[0]
	hema.Rows = append(hema.Rows, Row{
		Inputs: map[string]string{
			FieldHemoglobinState: "Low",
			FieldWBCLevel:        "Low-Low",
		},
		Output: "Conflicting State",
	})

	_, err := NewRegistry(tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share input tuple")
}

func TestDefaultTables_AllValid(t *testing.T) {
	for _, table := range DefaultTables() {
		assert.NoError(t, table.Validate(), table.Name)
	}
}
