package expression

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/kkkppp/p2proto/pkg/query"
)

// isNilNode checks if a node represents a null/nil value
// In expr-lang, null can be either a NilNode or an IdentifierNode with value "null", "nil", or "NULL"
func isNilNode(node ast.Node) bool {
	if _, ok := node.(*ast.NilNode); ok {
		return true
	}
	if id, ok := node.(*ast.IdentifierNode); ok {
		val := strings.ToLower(id.Value)
		return val == "null" || val == "nil"
	}
	return false
}

// comparison operators and their mirror for "literal op column" forms
var comparisons = map[string]struct {
	op, mirrored query.Op
}{
	"==": {query.OpEQ, query.OpEQ},
	"!=": {query.OpNE, query.OpNE},
	">":  {query.OpGT, query.OpLT},
	">=": {query.OpGE, query.OpLE},
	"<":  {query.OpLT, query.OpGT},
	"<=": {query.OpLE, query.OpGE},
}

// ToCriterion converts a filter expression such as
//
//	age >= 18 && (name == 'Ann' || CONTAINS(email, 'example'))
//
// into a criterion tree. Column names are not checked here; the WHERE
// renderer resolves them against the table.
func ToCriterion(expression string) (query.Criterion, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}
	return walk(tree.Node)
}

func walk(node ast.Node) (query.Criterion, error) {
	switch v := node.(type) {
	case *ast.BinaryNode:
		return visitBinary(v)
	case *ast.UnaryNode:
		return visitUnary(v)
	case *ast.CallNode:
		return visitCall(v)
	case *ast.IdentifierNode:
		// a bare column is a truthiness test
		return query.Eq(v.Value, true), nil
	}
	return nil, fmt.Errorf("unsupported node type: %T", node)
}

func visitBinary(node *ast.BinaryNode) (query.Criterion, error) {
	switch node.Operator {
	case "&&", "and", "||", "or":
		left, err := walk(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := walk(node.Right)
		if err != nil {
			return nil, err
		}
		if node.Operator == "&&" || node.Operator == "and" {
			return query.AllOf(left, right), nil
		}
		return query.AnyOf(left, right), nil

	case "in":
		return visitIn(node, query.OpIn)
	}

	cmp, ok := comparisons[node.Operator]
	if !ok {
		return nil, fmt.Errorf("unsupported operator: %s", node.Operator)
	}

	// Check for null comparisons which need special SQL syntax
	if isNilNode(node.Right) || isNilNode(node.Left) {
		fieldNode := node.Left
		if isNilNode(node.Left) {
			fieldNode = node.Right
		}
		column, err := columnName(fieldNode)
		if err != nil {
			return nil, err
		}
		switch cmp.op {
		case query.OpEQ:
			return query.IsNull(column), nil
		case query.OpNE:
			return query.IsNotNull(column), nil
		}
		return nil, fmt.Errorf("unsupported operator for null comparison: %s", node.Operator)
	}

	if id, ok := node.Left.(*ast.IdentifierNode); ok {
		value, err := literal(node.Right)
		if err != nil {
			return nil, err
		}
		return query.Condition{Column: id.Value, Op: cmp.op, Value: value}, nil
	}
	if id, ok := node.Right.(*ast.IdentifierNode); ok {
		value, err := literal(node.Left)
		if err != nil {
			return nil, err
		}
		return query.Condition{Column: id.Value, Op: cmp.mirrored, Value: value}, nil
	}
	return nil, fmt.Errorf("comparison needs a column on one side: %s", node.Operator)
}

func visitUnary(node *ast.UnaryNode) (query.Criterion, error) {
	if node.Operator != "not" && node.Operator != "!" {
		return nil, fmt.Errorf("unsupported operator: %s", node.Operator)
	}
	// "x not in [...]" parses as not(x in [...])
	if in, ok := node.Node.(*ast.BinaryNode); ok && in.Operator == "in" {
		return visitIn(in, query.OpNotIn)
	}
	if id, ok := node.Node.(*ast.IdentifierNode); ok {
		return query.Eq(id.Value, false), nil
	}
	return nil, fmt.Errorf("negation is only supported for 'in' and columns")
}

func visitIn(node *ast.BinaryNode, op query.Op) (query.Criterion, error) {
	column, err := columnName(node.Left)
	if err != nil {
		return nil, err
	}
	array, ok := node.Right.(*ast.ArrayNode)
	if !ok {
		return nil, fmt.Errorf("'in' needs a list of values")
	}
	values := make([]interface{}, 0, len(array.Nodes))
	for _, n := range array.Nodes {
		value, err := literal(n)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return query.Condition{Column: column, Op: op, Value: values}, nil
}

func visitCall(node *ast.CallNode) (query.Criterion, error) {
	// Extract function name from Callee
	callee, ok := node.Callee.(*ast.IdentifierNode)
	if !ok {
		return nil, fmt.Errorf("unsupported callee type: %T", node.Callee)
	}
	if len(node.Arguments) != 2 {
		return nil, fmt.Errorf("%s requires 2 arguments", strings.ToUpper(callee.Value))
	}
	column, err := columnName(node.Arguments[0])
	if err != nil {
		return nil, err
	}
	strArg, ok := node.Arguments[1].(*ast.StringNode)
	if !ok {
		return nil, fmt.Errorf("%s second argument must be a string", strings.ToUpper(callee.Value))
	}

	switch strings.ToUpper(callee.Value) {
	case "CONTAINS":
		return query.ILike(column, "%"+strArg.Value+"%"), nil
	case "STARTS_WITH":
		return query.ILike(column, strArg.Value+"%"), nil
	case "ENDS_WITH":
		return query.ILike(column, "%"+strArg.Value), nil
	case "LIKE":
		return query.Like(column, strArg.Value), nil
	}
	return nil, fmt.Errorf("unsupported function: %s", callee.Value)
}

func columnName(node ast.Node) (string, error) {
	id, ok := node.(*ast.IdentifierNode)
	if !ok || isNilNode(node) {
		return "", fmt.Errorf("expected a column name, got %T", node)
	}
	return id.Value, nil
}

func literal(node ast.Node) (interface{}, error) {
	switch v := node.(type) {
	case *ast.IntegerNode:
		return v.Value, nil
	case *ast.FloatNode:
		return v.Value, nil
	case *ast.StringNode:
		return v.Value, nil
	case *ast.BoolNode:
		return v.Value, nil
	case *ast.UnaryNode:
		// negative numbers arrive as unary minus
		if v.Operator == "-" {
			inner, err := literal(v.Node)
			if err != nil {
				return nil, err
			}
			switch n := inner.(type) {
			case int:
				return -n, nil
			case float64:
				return -n, nil
			}
		}
	}
	return nil, fmt.Errorf("expected a literal value, got %T", node)
}
