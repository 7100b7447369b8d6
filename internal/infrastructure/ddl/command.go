// Package ddl turns table metadata into CREATE TABLE statements and runs
// them on the caller's transaction.
package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kkkppp/p2proto/internal/domain/schema"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
)

// ColumnChange is one physical column of a CREATE TABLE
type ColumnChange struct {
	Name          string
	Domain        fieldtypes.Domain
	AutoIncrement bool
	PrimaryKey    bool
	// Default is set only for SERVER_SIDE defaults fired ON_CREATE
	Default *schema.DefaultHolder
}

// CreateTableCommand creates the physical table of a metadata description
type CreateTableCommand struct {
	Table   *schema.TableMetadata
	Columns []ColumnChange
}

// NewCreateTableCommand derives the physical columns of table. Formula
// columns have no storage and are left out.
func NewCreateTableCommand(table *schema.TableMetadata) (*CreateTableCommand, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: table is required", appErrors.ErrInvalidRequest)
	}
	cmd := &CreateTableCommand{Table: table}
	for _, col := range table.Columns() {
		if col.Domain.Virtual() {
			continue
		}
		change := ColumnChange{
			Name:          col.Name,
			Domain:        col.Domain,
			AutoIncrement: col.Domain.AutoIncrement(),
			PrimaryKey:    col.PrimaryKey,
		}
		if col.DefaultValue.IsServerSideOnCreate() {
			change.Default = col.DefaultValue
		}
		cmd.Columns = append(cmd.Columns, change)
	}
	return cmd, nil
}

// Statements renders the command for a dialect, in execution order
func (c *CreateTableCommand) Statements(dialect query.Dialect) ([]string, error) {
	defs := make([]string, 0, len(c.Columns))
	for _, col := range c.Columns {
		def, err := columnDefinition(dialect, col)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(dialect.QuoteIdent(c.Table.Name()))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(")")
	if dialect == query.MySQL {
		sb.WriteString(" ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	}
	return []string{sb.String()}, nil
}

func columnDefinition(dialect query.Dialect, col ColumnChange) (string, error) {
	parts := []string{dialect.QuoteIdent(col.Name), dialect.ColumnType(col.Domain)}

	switch {
	case col.AutoIncrement && col.PrimaryKey:
		switch dialect {
		case query.MySQL:
			parts = append(parts, "AUTO_INCREMENT PRIMARY KEY")
		case query.SQLite:
			parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
		default:
			parts = append(parts, "PRIMARY KEY")
		}
	case col.PrimaryKey:
		parts = append(parts, "NOT NULL PRIMARY KEY")
	case col.AutoIncrement && dialect == query.MySQL:
		// MySQL only allows AUTO_INCREMENT on a key
		parts = append(parts, "AUTO_INCREMENT UNIQUE")
	}

	if col.Default != nil {
		expr, err := defaultExpression(col.Domain, col.Default)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col.Name, err)
		}
		parts = append(parts, "DEFAULT "+expr)
	}
	return strings.Join(parts, " "), nil
}

// defaultExpression renders a server default. FORMULA defaults are limited
// to CURRENT_TIMESTAMP; constants are rendered as literals of the domain.
func defaultExpression(domain fieldtypes.Domain, def *schema.DefaultHolder) (string, error) {
	if def.ValueType == schema.ValueFormula {
		if strings.EqualFold(strings.TrimSpace(def.Value), schema.CurrentTimestamp) {
			return schema.CurrentTimestamp, nil
		}
		return "", fmt.Errorf("%w: %q", appErrors.ErrUnknownDefaultExpression, def.Value)
	}

	switch domain {
	case fieldtypes.Boolean, fieldtypes.Integer, fieldtypes.Float:
		v, err := domain.Convert(def.Value)
		if err != nil {
			return "", err
		}
		switch n := v.(type) {
		case bool:
			if n {
				return "TRUE", nil
			}
			return "FALSE", nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64), nil
		case nil:
			return "NULL", nil
		}
		return "", appErrors.NewMalformedValueError(domain.Name(), def.Value, nil)
	}
	return "'" + strings.ReplaceAll(def.Value, "'", "''") + "'", nil
}
