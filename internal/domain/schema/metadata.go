// Package schema holds the immutable description of a user-defined table:
// its columns, their domains and defaults, and the primary key. Statements
// that depend only on the metadata (SELECT lists, WHERE clauses) are
// generated here.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/formula"
	"github.com/kkkppp/p2proto/pkg/query"
)

// MaxIdentifierLength is the longest table or column name accepted
const MaxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableType classifies a table
type TableType string

const (
	TableStandard TableType = "STANDARD"
	TableUsers    TableType = "USERS"
	TableAccess   TableType = "ACCESS"
)

// ColumnMetadata describes one column
type ColumnMetadata struct {
	ID                   uuid.UUID         `json:"id"`
	Name                 string            `json:"name"`
	Label                string            `json:"label"`
	Domain               fieldtypes.Domain `json:"domain"`
	PrimaryKey           bool              `json:"primaryKey"`
	Removable            bool              `json:"removable"`
	DefaultValue         *DefaultHolder    `json:"defaultValue,omitempty"`
	AdditionalProperties map[string]string `json:"additionalProperties,omitempty"`
}

// Formula returns the formula text of a FORMULA column
func (c ColumnMetadata) Formula() string {
	return c.AdditionalProperties[fieldtypes.FormulaPropertyKey]
}

// WithFormula returns a copy of c carrying the formula text
func (c ColumnMetadata) WithFormula(text string) ColumnMetadata {
	out := c.clone()
	if out.AdditionalProperties == nil {
		out.AdditionalProperties = make(map[string]string)
	}
	out.AdditionalProperties[fieldtypes.FormulaPropertyKey] = text
	return out
}

func (c ColumnMetadata) clone() ColumnMetadata {
	out := c
	out.DefaultValue = c.DefaultValue.clone()
	if c.AdditionalProperties != nil {
		out.AdditionalProperties = make(map[string]string, len(c.AdditionalProperties))
		for k, v := range c.AdditionalProperties {
			out.AdditionalProperties[k] = v
		}
	}
	return out
}

// TableSpec is the input to NewTable. PrimaryKey names the key column; when
// empty the key is taken from a column flagged PrimaryKey, then the first
// auto-increment column, then a column named "id".
type TableSpec struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	PluralLabel string           `json:"pluralLabel"`
	Type        TableType        `json:"type"`
	Columns     []ColumnMetadata `json:"columns"`
	PrimaryKey  string           `json:"primaryKey,omitempty"`
}

// TableMetadata is an immutable table description. Build it with NewTable;
// the With* methods return new values.
type TableMetadata struct {
	id            uuid.UUID
	name          string
	label         string
	pluralLabel   string
	tableType     TableType
	columns       []ColumnMetadata
	columnsByName map[string]int
	primaryKey    int
}

// NewTable validates spec and builds the metadata. Formula columns are
// compiled against the stored columns, so an invalid formula fails here.
func NewTable(spec TableSpec) (*TableMetadata, error) {
	if err := ValidateIdentifier("name", spec.Name); err != nil {
		return nil, err
	}
	if len(spec.Columns) == 0 {
		return nil, appErrors.NewValidationError("columns", "a table needs at least one column")
	}

	t := &TableMetadata{
		id:            spec.ID,
		name:          spec.Name,
		label:         spec.Label,
		pluralLabel:   spec.PluralLabel,
		tableType:     spec.Type,
		columns:       make([]ColumnMetadata, 0, len(spec.Columns)),
		columnsByName: make(map[string]int, len(spec.Columns)),
	}
	if t.tableType == "" {
		t.tableType = TableStandard
	}

	for _, col := range spec.Columns {
		if err := ValidateIdentifier("columns.name", col.Name); err != nil {
			return nil, err
		}
		if !col.Domain.Valid() {
			return nil, appErrors.NewUnknownDomainCodeError(int(col.Domain))
		}
		if _, dup := t.columnsByName[col.Name]; !dup {
			t.columnsByName[col.Name] = len(t.columns)
		}
		t.columns = append(t.columns, col.clone())
	}

	pk, err := t.resolvePrimaryKey(spec)
	if err != nil {
		return nil, err
	}
	t.primaryKey = pk
	for i := range t.columns {
		t.columns[i].PrimaryKey = i == pk
	}
	if t.columns[pk].Domain.Virtual() {
		return nil, appErrors.NewValidationError("primaryKey", "a formula column cannot be the primary key")
	}

	stored := t.FormulaColumns()
	for _, col := range t.columns {
		if col.Domain != fieldtypes.Formula {
			continue
		}
		if _, err := formula.Compile(col.Formula(), stored, query.Postgres); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *TableMetadata) resolvePrimaryKey(spec TableSpec) (int, error) {
	if spec.PrimaryKey != "" {
		idx, ok := t.columnsByName[spec.PrimaryKey]
		if !ok {
			return 0, appErrors.NewValidationError("primaryKey",
				fmt.Sprintf("primary key '%s' is not a column of table '%s'", spec.PrimaryKey, spec.Name))
		}
		return idx, nil
	}
	for i, col := range t.columns {
		if col.PrimaryKey {
			return i, nil
		}
	}
	for i, col := range t.columns {
		if col.Domain.AutoIncrement() {
			return i, nil
		}
	}
	if idx, ok := t.columnsByName["id"]; ok {
		return idx, nil
	}
	return 0, appErrors.NewValidationError("primaryKey",
		fmt.Sprintf("table '%s' has no primary key: add an auto-increment column or a column named id", spec.Name))
}

// ValidateIdentifier checks a table or column name
func ValidateIdentifier(field, name string) error {
	if name == "" {
		return appErrors.NewValidationError(field, "name is required")
	}
	if len(name) > MaxIdentifierLength {
		return appErrors.NewValidationError(field, fmt.Sprintf("'%s' is longer than %d characters", name, MaxIdentifierLength))
	}
	if !identifierPattern.MatchString(name) {
		return appErrors.NewValidationError(field, fmt.Sprintf("'%s' must start with a letter or underscore and contain only letters, digits and underscores", name))
	}
	return nil
}

func (t *TableMetadata) ID() uuid.UUID       { return t.id }
func (t *TableMetadata) Name() string        { return t.name }
func (t *TableMetadata) Label() string       { return t.label }
func (t *TableMetadata) PluralLabel() string { return t.pluralLabel }
func (t *TableMetadata) Type() TableType     { return t.tableType }
func (t *TableMetadata) NumColumns() int     { return len(t.columns) }

// PrimaryKey returns the key column
func (t *TableMetadata) PrimaryKey() ColumnMetadata {
	return t.columns[t.primaryKey].clone()
}

// Columns returns a copy of the columns in declaration order
func (t *TableMetadata) Columns() []ColumnMetadata {
	out := make([]ColumnMetadata, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.clone()
	}
	return out
}

// Column looks a column up by name
func (t *TableMetadata) Column(name string) (ColumnMetadata, error) {
	idx, ok := t.columnsByName[name]
	if !ok {
		return ColumnMetadata{}, appErrors.NewUnknownColumnError(t.name, name)
	}
	return t.columns[idx].clone(), nil
}

// HasColumn reports whether name is a column of the table
func (t *TableMetadata) HasColumn(name string) bool {
	_, ok := t.columnsByName[name]
	return ok
}

// ResolveColumn returns the domain of a column; it lets the table act as
// the column resolver of the WHERE renderer
func (t *TableMetadata) ResolveColumn(name string) (fieldtypes.Domain, error) {
	idx, ok := t.columnsByName[name]
	if !ok {
		return 0, appErrors.NewUnknownColumnError(t.name, name)
	}
	return t.columns[idx].Domain, nil
}

// StoredColumns lists the non-virtual columns
func (t *TableMetadata) StoredColumns() []string {
	names := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !c.Domain.Virtual() {
			names = append(names, c.Name)
		}
	}
	return names
}

// FormulaColumns lists the names a formula may reference: the stored
// columns except PASSWORD ones, whose hashes never leave the table
func (t *TableMetadata) FormulaColumns() []string {
	names := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !c.Domain.Virtual() && c.Domain != fieldtypes.Password {
			names = append(names, c.Name)
		}
	}
	return names
}

// ColumnExpression returns the SQL a criterion on a formula column compares
// against. A WHERE clause cannot see select aliases, so the compiled formula
// stands in for the column name.
func (t *TableMetadata) ColumnExpression(dialect query.Dialect, name string) (string, error) {
	col, err := t.Column(name)
	if err != nil {
		return "", err
	}
	if col.Domain != fieldtypes.Formula {
		return dialect.QuoteIdent(name), nil
	}
	compiled, err := formula.Compile(col.Formula(), t.FormulaColumns(), dialect)
	if err != nil {
		return "", err
	}
	if compiled.IsEmpty() {
		return "(NULL)", nil
	}
	return "(" + compiled.SQL + ")", nil
}

// WithID returns a copy with a new table id
func (t *TableMetadata) WithID(id uuid.UUID) *TableMetadata {
	out := t.copy()
	out.id = id
	return out
}

// WithLabels returns a copy with new labels
func (t *TableMetadata) WithLabels(label, pluralLabel string) *TableMetadata {
	out := t.copy()
	out.label = label
	out.pluralLabel = pluralLabel
	return out
}

// WithColumns rebuilds the table with another column list, validating it
// like NewTable. The current primary key is kept when it is still present.
func (t *TableMetadata) WithColumns(columns []ColumnMetadata) (*TableMetadata, error) {
	spec := t.Spec()
	spec.Columns = columns
	spec.PrimaryKey = ""
	pk := t.columns[t.primaryKey].Name
	for _, c := range columns {
		if c.Name == pk {
			spec.PrimaryKey = pk
			break
		}
	}
	return NewTable(spec)
}

// Spec returns the input that rebuilds this table
func (t *TableMetadata) Spec() TableSpec {
	return TableSpec{
		ID:          t.id,
		Name:        t.name,
		Label:       t.label,
		PluralLabel: t.pluralLabel,
		Type:        t.tableType,
		Columns:     t.Columns(),
		PrimaryKey:  t.columns[t.primaryKey].Name,
	}
}

func (t *TableMetadata) copy() *TableMetadata {
	out := *t
	out.columns = t.Columns()
	out.columnsByName = make(map[string]int, len(t.columnsByName))
	for k, v := range t.columnsByName {
		out.columnsByName[k] = v
	}
	return &out
}

// MarshalJSON renders the table in its spec shape
func (t *TableMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Spec())
}

// SelectFields returns the projection of every column for the dialect: a
// quoted identifier for stored columns and "(expr) AS name" for formulas
func (t *TableMetadata) SelectFields(dialect query.Dialect) ([]string, error) {
	stored := t.FormulaColumns()
	fields := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if c.Domain != fieldtypes.Formula {
			fields = append(fields, dialect.QuoteIdent(c.Name))
			continue
		}
		compiled, err := formula.Compile(c.Formula(), stored, dialect)
		if err != nil {
			return nil, err
		}
		expr := "NULL"
		if !compiled.IsEmpty() {
			expr = compiled.SQL
		}
		fields = append(fields, "("+expr+") AS "+dialect.QuoteIdent(c.Name))
	}
	return fields, nil
}

// GenerateSelectStatement returns "SELECT <fields> FROM <table>"
func (t *TableMetadata) GenerateSelectStatement(dialect query.Dialect) (string, error) {
	fields, err := t.SelectFields(dialect)
	if err != nil {
		return "", err
	}
	return "SELECT " + strings.Join(fields, ", ") + " FROM " + dialect.QuoteIdent(t.name), nil
}

// BuildWhere renders a criterion in the canonical (PostgreSQL) form. A nil or
// empty criterion yields an empty clause.
func (t *TableMetadata) BuildWhere(c query.Criterion) (query.WhereClause, error) {
	return t.BuildWhereFor(query.Postgres, c)
}

// BuildWhereFor renders a criterion for a specific dialect
func (t *TableMetadata) BuildWhereFor(dialect query.Dialect, c query.Criterion) (query.WhereClause, error) {
	return query.RenderWhere(dialect, t, c)
}
