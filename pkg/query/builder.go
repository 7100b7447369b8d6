package query

import (
	"fmt"
	"strings"
)

// StatementType represents the type of SQL statement
type StatementType string

const (
	StatementSelect StatementType = "SELECT"
	StatementInsert StatementType = "INSERT"
	StatementUpdate StatementType = "UPDATE"
	StatementDelete StatementType = "DELETE"
)

// Statement is a built SQL statement with named parameters
type Statement struct {
	Type   StatementType
	SQL    string
	Params map[string]interface{}
}

// Bind converts the statement to positional form for the dialect
func (s Statement) Bind(dialect Dialect) (string, []interface{}, error) {
	return Bind(dialect, s.SQL, s.Params)
}

type assignment struct {
	column string
	value  interface{}
}

// Builder is a fluent SQL statement builder. Identifiers passed to it are
// quoted for the dialect; select expressions are emitted as given.
type Builder struct {
	dialect       Dialect
	statementType StatementType
	table         string
	fields        []string
	assignments   []assignment
	where         WhereClause
	orderBy       []string
	limit         *int
	returning     string
}

func newBuilder(dialect Dialect, statementType StatementType, table string) *Builder {
	return &Builder{
		dialect:       dialect,
		statementType: statementType,
		table:         table,
	}
}

// From creates a new SELECT builder
func From(dialect Dialect, table string) *Builder {
	return newBuilder(dialect, StatementSelect, table)
}

// Insert creates a new INSERT builder
func Insert(dialect Dialect, table string) *Builder {
	return newBuilder(dialect, StatementInsert, table)
}

// Update creates a new UPDATE builder
func Update(dialect Dialect, table string) *Builder {
	return newBuilder(dialect, StatementUpdate, table)
}

// Delete creates a new DELETE builder
func Delete(dialect Dialect, table string) *Builder {
	return newBuilder(dialect, StatementDelete, table)
}

// Select adds select expressions
func (b *Builder) Select(fields ...string) *Builder {
	if b.statementType != StatementSelect {
		return b
	}
	b.fields = append(b.fields, fields...)
	return b
}

// Set assigns a column value for INSERT and UPDATE. Assignments keep their order.
func (b *Builder) Set(column string, value interface{}) *Builder {
	if b.statementType != StatementInsert && b.statementType != StatementUpdate {
		return b
	}
	b.assignments = append(b.assignments, assignment{column: column, value: value})
	return b
}

// Where attaches a rendered WHERE clause
func (b *Builder) Where(where WhereClause) *Builder {
	if b.statementType == StatementInsert {
		return b
	}
	b.where = where
	return b
}

// OrderBy adds an ORDER BY term
func (b *Builder) OrderBy(column string, direction string) *Builder {
	if b.statementType != StatementSelect {
		return b
	}
	dir := strings.ToUpper(strings.TrimSpace(direction))
	if dir != "DESC" {
		dir = "ASC"
	}
	b.orderBy = append(b.orderBy, b.dialect.QuoteIdent(column)+" "+dir)
	return b
}

// Limit adds a LIMIT clause
func (b *Builder) Limit(n int) *Builder {
	if b.statementType != StatementSelect {
		return b
	}
	b.limit = &n
	return b
}

// Returning asks an INSERT to return the given column. MySQL has no
// RETURNING clause, so it is ignored there and callers use LastInsertId.
func (b *Builder) Returning(column string) *Builder {
	if b.statementType == StatementInsert && b.dialect != MySQL {
		b.returning = column
	}
	return b
}

// HasReturning reports whether the built INSERT yields a row
func (b *Builder) HasReturning() bool {
	return b.returning != ""
}

// Build constructs the final statement
func (b *Builder) Build() (Statement, error) {
	params := make(map[string]interface{})
	for name, value := range b.where.Params {
		params[name] = value
	}

	var sql string
	switch b.statementType {
	case StatementSelect:
		sql = b.buildSelect()
	case StatementInsert:
		if len(b.assignments) == 0 {
			return Statement{}, fmt.Errorf("insert into %s has no columns", b.table)
		}
		sql = b.buildInsert(params)
	case StatementUpdate:
		if len(b.assignments) == 0 {
			return Statement{}, fmt.Errorf("update of %s has no columns", b.table)
		}
		sql = b.buildUpdate(params)
	case StatementDelete:
		sql = b.buildDelete()
	default:
		return Statement{}, fmt.Errorf("unknown statement type %q", b.statementType)
	}

	return Statement{Type: b.statementType, SQL: sql, Params: params}, nil
}

func (b *Builder) buildSelect() string {
	var parts []string

	fields := "*"
	if len(b.fields) > 0 {
		fields = strings.Join(b.fields, ", ")
	}
	parts = append(parts, fmt.Sprintf("SELECT %s FROM %s", fields, b.dialect.QuoteIdent(b.table)))

	if b.where.SQL != "" {
		parts = append(parts, b.where.SQL)
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *b.limit))
	}

	return strings.Join(parts, " ")
}

// valueParam names the parameter carrying a column's new value: v_<column>
// when that is a free plain identifier, otherwise the first free vN
func valueParam(column string, params map[string]interface{}) string {
	name := "v_" + column
	if _, taken := params[name]; !taken && isParamName(name) {
		return name
	}
	for i := 1; ; i++ {
		name = fmt.Sprintf("v%d", i)
		if _, taken := params[name]; !taken {
			return name
		}
	}
}

func isParamName(name string) bool {
	if name == "" || !isParamStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isParamPart(name[i]) {
			return false
		}
	}
	return true
}

func (b *Builder) buildInsert(params map[string]interface{}) string {
	cols := make([]string, 0, len(b.assignments))
	placeholders := make([]string, 0, len(b.assignments))
	for _, a := range b.assignments {
		name := valueParam(a.column, params)
		cols = append(cols, b.dialect.QuoteIdent(a.column))
		placeholders = append(placeholders, ":"+name)
		params[name] = a.value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.dialect.QuoteIdent(b.table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))
	if b.returning != "" {
		sql += " RETURNING " + b.dialect.QuoteIdent(b.returning)
	}
	return sql
}

func (b *Builder) buildUpdate(params map[string]interface{}) string {
	setClauses := make([]string, 0, len(b.assignments))
	for _, a := range b.assignments {
		name := valueParam(a.column, params)
		setClauses = append(setClauses, fmt.Sprintf("%s = :%s", b.dialect.QuoteIdent(a.column), name))
		params[name] = a.value
	}

	sql := fmt.Sprintf("UPDATE %s SET %s", b.dialect.QuoteIdent(b.table), strings.Join(setClauses, ", "))
	if b.where.SQL != "" {
		sql += " " + b.where.SQL
	}
	return sql
}

func (b *Builder) buildDelete() string {
	sql := "DELETE FROM " + b.dialect.QuoteIdent(b.table)
	if b.where.SQL != "" {
		sql += " " + b.where.SQL
	}
	return sql
}
