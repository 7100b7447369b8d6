package schema

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
)

func col(name string, domain fieldtypes.Domain) ColumnMetadata {
	return ColumnMetadata{Name: name, Label: name, Domain: domain, Removable: true}
}

func personSpec() TableSpec {
	return TableSpec{
		Name:        "person",
		Label:       "Person",
		PluralLabel: "People",
		Columns: []ColumnMetadata{
			col("id", fieldtypes.AutoIncrement),
			col("first_name", fieldtypes.Text),
			col("last_name", fieldtypes.Text),
			col("full_name", fieldtypes.Formula).WithFormula("concat($first_name, ' ', $last_name)"),
			col("owner", fieldtypes.UUID),
		},
	}
}

func TestNewTable_InfersAutoIncrementKey(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	assert.Equal(t, "id", table.PrimaryKey().Name)
	assert.Equal(t, TableStandard, table.Type())
	assert.Equal(t, 5, table.NumColumns())

	for _, c := range table.Columns() {
		assert.Equal(t, c.Name == "id", c.PrimaryKey, c.Name)
	}
}

func TestNewTable_InfersColumnNamedID(t *testing.T) {
	table, err := NewTable(TableSpec{
		Name:    "tag",
		Columns: []ColumnMetadata{col("label", fieldtypes.Text), col("id", fieldtypes.UUID)},
	})
	require.NoError(t, err)
	assert.Equal(t, "id", table.PrimaryKey().Name)
}

func TestNewTable_ExplicitKey(t *testing.T) {
	spec := personSpec()
	spec.PrimaryKey = "owner"
	table, err := NewTable(spec)
	require.NoError(t, err)
	assert.Equal(t, "owner", table.PrimaryKey().Name)

	flagged := TableSpec{Name: "t", Columns: []ColumnMetadata{col("a", fieldtypes.Text), col("code", fieldtypes.Text)}}
	flagged.Columns[1].PrimaryKey = true
	table, err = NewTable(flagged)
	require.NoError(t, err)
	assert.Equal(t, "code", table.PrimaryKey().Name)
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		spec  TableSpec
		check func(error) bool
	}{
		{
			name:  "primary key not among columns",
			spec:  TableSpec{Name: "t", PrimaryKey: "missing", Columns: []ColumnMetadata{col("id", fieldtypes.AutoIncrement)}},
			check: appErrors.IsValidation,
		},
		{
			name:  "no key can be inferred",
			spec:  TableSpec{Name: "t", Columns: []ColumnMetadata{col("name", fieldtypes.Text)}},
			check: appErrors.IsValidation,
		},
		{
			name:  "no columns",
			spec:  TableSpec{Name: "t"},
			check: appErrors.IsValidation,
		},
		{
			name:  "bad table name",
			spec:  TableSpec{Name: "drop table;", Columns: []ColumnMetadata{col("id", fieldtypes.AutoIncrement)}},
			check: appErrors.IsValidation,
		},
		{
			name:  "bad column name",
			spec:  TableSpec{Name: "t", Columns: []ColumnMetadata{col("id", fieldtypes.AutoIncrement), col("a b", fieldtypes.Text)}},
			check: appErrors.IsValidation,
		},
		{
			name:  "unknown domain",
			spec:  TableSpec{Name: "t", Columns: []ColumnMetadata{col("id", fieldtypes.AutoIncrement), col("x", fieldtypes.Domain(42))}},
			check: appErrors.IsUnknownDomain,
		},
		{
			name: "invalid formula",
			spec: TableSpec{Name: "t", Columns: []ColumnMetadata{
				col("id", fieldtypes.AutoIncrement),
				col("f", fieldtypes.Formula).WithFormula("upper($nope)"),
			}},
			check: appErrors.IsFormulaValidation,
		},
		{
			name: "formula referencing a formula",
			spec: TableSpec{Name: "t", Columns: []ColumnMetadata{
				col("id", fieldtypes.AutoIncrement),
				col("a", fieldtypes.Text),
				col("f", fieldtypes.Formula).WithFormula("upper($a)"),
				col("g", fieldtypes.Formula).WithFormula("lower($f)"),
			}},
			check: appErrors.IsFormulaValidation,
		},
		{
			name: "formula referencing a password",
			spec: TableSpec{Name: "t", Columns: []ColumnMetadata{
				col("id", fieldtypes.AutoIncrement),
				col("secret", fieldtypes.Password),
				col("tag", fieldtypes.Formula).WithFormula("concat('#', $secret)"),
			}},
			check: appErrors.IsFormulaValidation,
		},
		{
			name:  "formula key",
			spec:  TableSpec{Name: "t", PrimaryKey: "f", Columns: []ColumnMetadata{col("f", fieldtypes.Formula)}},
			check: appErrors.IsValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			table, err := NewTable(tc.spec)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, tc.check(err), "unexpected error: %v", err)
		})
	}
}

func TestNewTable_DuplicateNameFirstWins(t *testing.T) {
	table, err := NewTable(TableSpec{Name: "t", Columns: []ColumnMetadata{
		col("id", fieldtypes.AutoIncrement),
		col("x", fieldtypes.Integer),
		col("x", fieldtypes.Text),
	}})
	require.NoError(t, err)

	d, err := table.ResolveColumn("x")
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.Integer, d)
}

func TestTableMetadata_IsImmutable(t *testing.T) {
	spec := personSpec()
	table, err := NewTable(spec)
	require.NoError(t, err)

	spec.Columns[1].Name = "mutated"
	cols := table.Columns()
	cols[2].Name = "mutated"
	cols[3].AdditionalProperties[fieldtypes.FormulaPropertyKey] = "upper($x)"

	c, err := table.Column("first_name")
	require.NoError(t, err)
	assert.Equal(t, "first_name", c.Name)
	ln, _ := table.Column("last_name")
	assert.Equal(t, "last_name", ln.Name)
	fn, _ := table.Column("full_name")
	assert.Equal(t, "concat($first_name, ' ', $last_name)", fn.Formula())
}

func TestTableMetadata_With(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	id := uuid.New()
	withID := table.WithID(id)
	assert.Equal(t, id, withID.ID())
	assert.Equal(t, uuid.Nil, table.ID())

	relabeled := table.WithLabels("Human", "Humans")
	assert.Equal(t, "Humans", relabeled.PluralLabel())
	assert.Equal(t, "People", table.PluralLabel())

	cols := table.Columns()
	colID := uuid.New()
	cols[1].ID = colID
	rebuilt, err := table.WithColumns(cols)
	require.NoError(t, err)
	c, _ := rebuilt.Column("first_name")
	assert.Equal(t, colID, c.ID)
	assert.Equal(t, "id", rebuilt.PrimaryKey().Name)
	orig, _ := table.Column("first_name")
	assert.Equal(t, uuid.Nil, orig.ID)

	_, err = table.WithColumns(cols[1:3])
	assert.True(t, appErrors.IsValidation(err), "dropping the key leaves nothing to infer")
}

func TestColumnLookupMiss(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	_, err = table.Column("nope")
	assert.True(t, appErrors.IsUnknownColumn(err))
	_, err = table.ResolveColumn("nope")
	assert.True(t, appErrors.IsUnknownColumn(err))
	assert.Contains(t, err.Error(), "person")
	assert.False(t, table.HasColumn("nope"))
}

func TestGenerateSelectStatement(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	sql, err := table.GenerateSelectStatement(query.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, first_name, last_name, (coalesce(first_name, '') || ' ' || coalesce(last_name, '')) AS full_name, owner FROM person",
		sql)

	sql, err = table.GenerateSelectStatement(query.MySQL)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, first_name, last_name, (concat(first_name, ' ', last_name)) AS full_name, owner FROM person",
		sql)
}

func TestGenerateSelectStatement_BlankFormula(t *testing.T) {
	table, err := NewTable(TableSpec{Name: "Odd", Columns: []ColumnMetadata{
		col("id", fieldtypes.AutoIncrement),
		col("f", fieldtypes.Formula),
	}})
	require.NoError(t, err)

	sql, err := table.GenerateSelectStatement(query.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT id, (NULL) AS f FROM "Odd"`, sql)
}

func TestBuildWhere(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	for _, c := range []query.Criterion{nil, query.AllOf()} {
		w, err := table.BuildWhere(c)
		require.NoError(t, err)
		assert.Equal(t, "", w.SQL)
		assert.Empty(t, w.Params)
	}

	w, err := table.BuildWhere(query.Eq("first_name", nil))
	require.NoError(t, err)
	assert.Equal(t, "WHERE first_name IS NULL", w.SQL)

	owner := uuid.New()
	w, err = table.BuildWhere(query.AllOf(query.Eq("owner", owner.String()), query.In("id")))
	require.NoError(t, err)
	assert.Equal(t, "WHERE (owner = :p1::uuid AND 1=0)", w.SQL)
	assert.Equal(t, owner, w.Params["p1"])

	w, err = table.BuildWhereFor(query.MySQL, query.Eq("owner", owner))
	require.NoError(t, err)
	assert.Equal(t, "WHERE owner = :p1", w.SQL)

	_, err = table.BuildWhere(query.Eq("middle_name", "x"))
	assert.True(t, appErrors.IsUnknownColumn(err))
}

func TestFormulaColumns_SkipPasswords(t *testing.T) {
	table, err := NewTable(TableSpec{Name: "account", Columns: []ColumnMetadata{
		col("id", fieldtypes.AutoIncrement),
		col("login", fieldtypes.Text),
		col("secret", fieldtypes.Password),
		col("shout", fieldtypes.Formula).WithFormula("upper($login)"),
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "login", "secret"}, table.StoredColumns())
	assert.Equal(t, []string{"id", "login"}, table.FormulaColumns())
}

func TestBuildWhere_FormulaColumn(t *testing.T) {
	table, err := NewTable(personSpec())
	require.NoError(t, err)

	tests := []struct {
		dialect query.Dialect
		c       query.Criterion
		sql     string
	}{
		{query.Postgres, query.Eq("full_name", "Ann Lee"),
			"WHERE (coalesce(first_name, '') || ' ' || coalesce(last_name, '')) = :p1"},
		{query.MySQL, query.Eq("full_name", "Ann Lee"),
			"WHERE (concat(first_name, ' ', last_name)) = :p1"},
		{query.Postgres, query.IsNull("full_name"),
			"WHERE (coalesce(first_name, '') || ' ' || coalesce(last_name, '')) IS NULL"},
	}

	for _, tc := range tests {
		t.Run(string(tc.dialect)+" "+tc.sql, func(t *testing.T) {
			w, err := table.BuildWhereFor(tc.dialect, tc.c)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, w.SQL)
			assert.NotContains(t, w.SQL, "full_name")
		})
	}

	blank, err := NewTable(TableSpec{Name: "odd", Columns: []ColumnMetadata{
		col("id", fieldtypes.AutoIncrement),
		col("f", fieldtypes.Formula),
	}})
	require.NoError(t, err)
	w, err := blank.BuildWhere(query.IsNull("f"))
	require.NoError(t, err)
	assert.Equal(t, "WHERE (NULL) IS NULL", w.SQL)
}
