package services

import (
	"context"

	"github.com/kkkppp/p2proto/internal/domain/ports"
	"github.com/kkkppp/p2proto/pkg/formula"
	"github.com/kkkppp/p2proto/pkg/query"
)

// FormulaCheck is the result of validating a formula against a table
type FormulaCheck struct {
	References []string `json:"references"`
	SQL        string   `json:"sql"`
}

// FormulaService validates and previews formulas for a table before they
// are saved as a column
type FormulaService struct {
	catalog ports.TableCatalog
	engine  ports.FormulaEvaluator
	dialect query.Dialect
}

// NewFormulaService creates a new FormulaService emitting SQL for dialect
func NewFormulaService(catalog ports.TableCatalog, engine ports.FormulaEvaluator, dialect query.Dialect) *FormulaService {
	return &FormulaService{catalog: catalog, engine: engine, dialect: dialect}
}

// Validate checks text against the stored columns of a table and returns the
// referenced columns with the SQL the formula compiles to
func (s *FormulaService) Validate(ctx context.Context, tableName, text string) (*FormulaCheck, error) {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	columns := table.FormulaColumns()
	refs, err := s.engine.Validate(text, columns)
	if err != nil {
		return nil, err
	}
	compiled, err := formula.Compile(text, columns, s.dialect)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []string{}
	}
	return &FormulaCheck{References: refs, SQL: compiled.SQL}, nil
}

// Preview evaluates text against a sample record of a table
func (s *FormulaService) Preview(ctx context.Context, tableName, text string, record map[string]interface{}) (interface{}, error) {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(text, table.FormulaColumns(), record)
}

// Functions lists the functions a formula may call
func (s *FormulaService) Functions() []formula.FunctionDefinition {
	return formula.Functions()
}
