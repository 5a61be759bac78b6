package tablemap

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// row binds vals against testColumns. Columns missing from vals are absent.
func row(vals map[string]any) []Binding {
	var out []Binding
	for _, c := range testColumns() {
		v, ok := vals[c.Name]
		out = append(out, Binding{Column: c, Value: v, Present: ok && v != nil})
	}
	return out
}

func target(ph Placeholder) Target {
	return Target{Schema: "TEST_SCHEMA", Table: "TEST_TABLE", Placeholder: ph}
}

func TestBuildStatements(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		build   func() (Statement, error)
		op      Op
		args    []any
		columns []string
	}{
		{
			name: "insert_all",
			build: func() (Statement, error) {
				return BuildInsert(target(PlaceholderQuestion), row(map[string]any{
					"ID":          "T1",
					"NAME":        "first",
					"AMOUNT":      "100.50",
					"CREATE_DATE": "2024-01-02 03:04:05",
					"VERSION":     "1",
				}))
			},
			op:      OpInsert,
			args:    []any{"T1", "first", nil, decimal.RequireFromString("100.5"), created, nil, "1"},
			columns: []string{"ID", "NAME", "DESCRIPTION", "AMOUNT", "CREATE_DATE", "UPDATE_DATE", "VERSION"},
		},
		{
			name: "insert_atp_unqualified",
			build: func() (Statement, error) {
				cols := testColumns()[:2]
				return BuildInsert(Target{Table: "TEST_TABLE", Placeholder: PlaceholderAtP}, []Binding{
					{Column: cols[0], Value: "T1", Present: true},
					{Column: cols[1], Value: "", Present: true},
				})
			},
			op:      OpInsert,
			args:    []any{"T1", ""},
			columns: []string{"ID", "NAME"},
		},
		{
			name: "update_partial",
			build: func() (Statement, error) {
				return BuildUpdate(target(PlaceholderQuestion), row(map[string]any{"ID": "T1", "NAME": "renamed"}), []string{"ID"})
			},
			op:      OpUpdate,
			args:    []any{"renamed", "T1"},
			columns: []string{"NAME", "ID"},
		},
		{
			name: "update_multi_key",
			build: func() (Statement, error) {
				return BuildUpdate(target(PlaceholderQuestion), row(map[string]any{
					"ID":      "T1",
					"NAME":    "n",
					"AMOUNT":  5,
					"VERSION": "2",
				}), []string{"ID", "VERSION"})
			},
			op:      OpUpdate,
			args:    []any{"n", 5, "T1", "2"},
			columns: []string{"NAME", "AMOUNT", "ID", "VERSION"},
		},
		{
			name: "update_dollar",
			build: func() (Statement, error) {
				return BuildUpdate(target(PlaceholderDollar), row(map[string]any{
					"ID":          "T1",
					"NAME":        "n",
					"DESCRIPTION": "",
				}), []string{"id"})
			},
			op:      OpUpdate,
			args:    []any{"n", "", "T1"},
			columns: []string{"NAME", "DESCRIPTION", "ID"},
		},
		{
			name: "update_empty_execute",
			build: func() (Statement, error) {
				tg := target(PlaceholderQuestion)
				tg.EmptyUpdate = EmptyUpdateExecute
				return BuildUpdate(tg, row(map[string]any{"ID": "T1"}), []string{"ID"})
			},
			op:      OpUpdate,
			args:    []any{"T1"},
			columns: []string{"ID"},
		},
		{
			name: "delete_colon",
			build: func() (Statement, error) {
				return BuildDelete(target(PlaceholderColonNum), row(map[string]any{"ID": "T1", "NAME": "ignored"}), []string{"ID"})
			},
			op:      OpDelete,
			args:    []any{"T1"},
			columns: []string{"ID"},
		},
		{
			name: "delete_multi_key",
			build: func() (Statement, error) {
				return BuildDelete(target(PlaceholderQuestion), row(map[string]any{"ID": "T1", "VERSION": "3"}), []string{"VERSION", "ID"})
			},
			op:      OpDelete,
			args:    []any{"3", "T1"},
			columns: []string{"VERSION", "ID"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := tc.build()
			require.NoError(t, err)
			assert.Equal(t, tc.op, stmt.Op)
			assert.False(t, stmt.Empty())

			g := goldie.New(t)
			g.Assert(t, tc.name, []byte(stmt.SQL))

			if diff := cmp.Diff(tc.args, stmt.Args, decimalEqual); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.columns, stmt.Columns); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, stmt.Kinds, len(stmt.Args))
		})
	}
}

func TestBuildUpdate_EmptySetSkips(t *testing.T) {
	stmt, err := BuildUpdate(target(PlaceholderQuestion), row(map[string]any{"ID": "T1"}), []string{"ID"})
	require.NoError(t, err)
	assert.True(t, stmt.Empty())
	assert.Equal(t, OpUpdate, stmt.Op)
	assert.Empty(t, stmt.Args)
}

func TestBuildUpdate_NullNeverOverwrites(t *testing.T) {
	stmt, err := BuildUpdate(target(PlaceholderQuestion), row(map[string]any{
		"ID":          "T1",
		"DESCRIPTION": "d",
		"NAME":        nil,
	}), []string{"ID"})
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "NAME")
	assert.NotContains(t, stmt.Columns, "NAME")
}

func TestBuildUpdate_KeysNeverAssigned(t *testing.T) {
	stmt, err := BuildUpdate(target(PlaceholderQuestion), row(map[string]any{
		"ID":      "T1",
		"VERSION": "2",
		"NAME":    "n",
	}), []string{"ID", "VERSION"})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE TEST_SCHEMA.TEST_TABLE SET NAME = ? WHERE ID = ? AND VERSION = ?", stmt.SQL)
}

func TestBuildMissingKey(t *testing.T) {
	b := row(map[string]any{"ID": "T1", "NAME": "n"})
	tests := []struct {
		name string
		keys []string
	}{
		{"no keys", nil},
		{"unknown column", []string{"NOPE"}},
		{"null key", []string{"VERSION"}},
		{"one of two null", []string{"ID", "VERSION"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildUpdate(target(PlaceholderQuestion), b, tc.keys)
			assert.ErrorIs(t, err, ErrMissingKey)
			_, err = BuildDelete(target(PlaceholderQuestion), b, tc.keys)
			assert.ErrorIs(t, err, ErrMissingKey)
		})
	}
}

func TestBuildInsert_NoBindings(t *testing.T) {
	_, err := BuildInsert(target(PlaceholderQuestion), nil)
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestBuildCoercionFailure(t *testing.T) {
	b := row(map[string]any{"ID": "T1", "AMOUNT": "lots", "CREATE_DATE": "soon"})

	_, err := BuildInsert(target(PlaceholderQuestion), b)
	require.ErrorIs(t, err, ErrValueCoercion)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "AMOUNT", ce.Column)

	_, err = BuildUpdate(target(PlaceholderQuestion), b, []string{"ID"})
	assert.ErrorIs(t, err, ErrValueCoercion)

	// Delete only binds keys, so a bad non-key value is never looked at.
	stmt, err := BuildDelete(target(PlaceholderQuestion), b, []string{"ID"})
	require.NoError(t, err)
	assert.Equal(t, []any{"T1"}, stmt.Args)
}

func TestParseEmptyUpdate(t *testing.T) {
	for in, want := range map[string]EmptyUpdate{"": EmptyUpdateSkip, "skip": EmptyUpdateSkip, " Execute ": EmptyUpdateExecute} {
		got, err := ParseEmptyUpdate(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseEmptyUpdate("maybe")
	assert.Error(t, err)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "update", OpUpdate.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Op(9).String())
}

func TestPlaceholders(t *testing.T) {
	for in, want := range map[string]Placeholder{
		"question": PlaceholderQuestion,
		"?":        PlaceholderQuestion,
		"Dollar":   PlaceholderDollar,
		"$":        PlaceholderDollar,
		"atp":      PlaceholderAtP,
		"colon":    PlaceholderColonNum,
		":":        PlaceholderColonNum,
	} {
		got, err := ParsePlaceholder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePlaceholder("%s")
	assert.Error(t, err)

	assert.Equal(t, PlaceholderDollar, PlaceholderFor("pgx"))
	assert.Equal(t, PlaceholderAtP, PlaceholderFor("sqlserver"))
	assert.Equal(t, PlaceholderColonNum, PlaceholderFor("godror"))
	assert.Equal(t, PlaceholderQuestion, PlaceholderFor("mysql"))
}
