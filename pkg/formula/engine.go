package formula

import (
	"strconv"
	"strings"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/expression"
	"github.com/kkkppp/p2proto/pkg/query"
)

// Engine compiles formulas to SQL and previews them in-process through the
// expression engine
type Engine struct {
	exprEngine *expression.Engine
}

// NewEngine creates a new formula engine
func NewEngine() *Engine {
	return &Engine{
		exprEngine: expression.NewEngine(),
	}
}

// Compile compiles a formula for the given dialect
func (e *Engine) Compile(formula string, columns []string, dialect query.Dialect) (Compiled, error) {
	return Compile(formula, columns, dialect)
}

// Validate validates a formula against the available columns
func (e *Engine) Validate(formula string, columns []string) ([]string, error) {
	return Validate(formula, columns)
}

// Preview evaluates a formula against one record without touching the
// database. Missing record values behave like NULL.
func (e *Engine) Preview(formula string, columns []string, record map[string]interface{}) (interface{}, error) {
	compiled, err := Compile(formula, columns, query.Postgres)
	if err != nil {
		return nil, err
	}
	if compiled.IsEmpty() {
		return nil, nil
	}

	source := ToExpression(compiled.root)
	if record == nil {
		record = map[string]interface{}{}
	}
	result, err := e.exprEngine.Evaluate(source, map[string]interface{}{"record": record})
	if err != nil {
		return nil, appErrors.NewFormulaValidationError(formula, err.Error())
	}
	return result, nil
}

// GetFunctionDefinitions returns the formula function registry
func (e *Engine) GetFunctionDefinitions() []FunctionDefinition {
	return Functions()
}

// ToExpression renders a parse tree as an expr-lang expression over a
// "record" map, using the engine's upper-case function names
func ToExpression(n Node) string {
	switch node := n.(type) {
	case StringLit:
		return strconv.Quote(node.Value)
	case NumberLit:
		return strconv.FormatInt(node.Value, 10)
	case Variable:
		return "record[" + strconv.Quote(node.Name) + "]"
	case Call:
		name := strings.ToUpper(node.Name)
		if fn, ok := LookupFunction(node.Name); ok {
			name = fn.previewName
		}
		args := make([]string, len(node.Args))
		for i, a := range node.Args {
			args[i] = ToExpression(a)
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	}
	return ""
}
