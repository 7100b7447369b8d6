package formula

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/query"
)

// Compiled is the SQL form of a validated formula together with the columns
// it references, in order of first appearance
type Compiled struct {
	SQL        string
	References []string
	root       Node
}

// IsEmpty reports whether the formula was blank
func (c Compiled) IsEmpty() bool {
	return c.root == nil
}

// Compile parses formula, checks every $variable against columns and every
// call against the function registry, and emits SQL for the dialect. All
// failures are returned as *errors.FormulaValidationError. A blank formula
// compiles to an empty result.
func Compile(formula string, columns []string, dialect query.Dialect) (Compiled, error) {
	if strings.TrimSpace(formula) == "" {
		return Compiled{}, nil
	}

	root, err := Parse(formula)
	if err != nil {
		return Compiled{}, appErrors.NewFormulaValidationError(formula, err.Error())
	}

	c := &compiler{
		dialect: dialect,
		allowed: make(map[string]bool, len(columns)),
		seen:    make(map[string]bool),
	}
	for _, col := range columns {
		c.allowed[col] = true
	}

	out, err := c.visit(root)
	if err != nil {
		return Compiled{}, appErrors.NewFormulaValidationError(formula, err.Error())
	}
	return Compiled{SQL: out.sql, References: c.refs, root: root}, nil
}

// Validate checks a formula against the available columns and returns the
// referenced column names
func Validate(formula string, columns []string) ([]string, error) {
	compiled, err := Compile(formula, columns, query.Postgres)
	if err != nil {
		return nil, err
	}
	return compiled.References, nil
}

type compiler struct {
	dialect query.Dialect
	allowed map[string]bool
	seen    map[string]bool
	refs    []string
}

func (c *compiler) visit(n Node) (arg, error) {
	switch node := n.(type) {
	case StringLit:
		return arg{sql: c.quoteString(node.Value), literal: true}, nil

	case NumberLit:
		return arg{sql: strconv.FormatInt(node.Value, 10), literal: true}, nil

	case Variable:
		if !c.allowed[node.Name] {
			return arg{}, fmt.Errorf("Unknown variable: $%s", node.Name)
		}
		if !c.seen[node.Name] {
			c.seen[node.Name] = true
			c.refs = append(c.refs, node.Name)
		}
		return arg{sql: c.dialect.QuoteIdent(node.Name)}, nil

	case Call:
		fn, ok := LookupFunction(node.Name)
		if !ok {
			return arg{}, fmt.Errorf("Unsupported function: %s", node.Name)
		}
		if err := checkArity(fn, len(node.Args)); err != nil {
			return arg{}, err
		}
		args := make([]arg, 0, len(node.Args))
		for _, a := range node.Args {
			compiled, err := c.visit(a)
			if err != nil {
				return arg{}, err
			}
			args = append(args, compiled)
		}
		return arg{sql: fn.emit(args, c.dialect.UsesConcatFunction())}, nil
	}
	return arg{}, fmt.Errorf("unsupported formula node %T", n)
}

func checkArity(fn FunctionDefinition, got int) error {
	if got < fn.MinArity {
		return fmt.Errorf("Function %s expects at least %d argument(s), got %d", fn.Name, fn.MinArity, got)
	}
	if fn.MaxArity != Unbounded && got > fn.MaxArity {
		return fmt.Errorf("Function %s expects at most %d argument(s), got %d", fn.Name, fn.MaxArity, got)
	}
	return nil
}

// quoteString renders a SQL string literal. MySQL also treats backslash as
// an escape character inside literals.
func (c *compiler) quoteString(s string) string {
	if c.dialect == query.MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
