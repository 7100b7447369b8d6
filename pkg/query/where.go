package query

import (
	"fmt"
	"reflect"
	"strings"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
)

// ColumnResolver looks up the domain of a column. Implementations return an
// *errors.UnknownColumnError for names they do not know.
type ColumnResolver interface {
	ResolveColumn(name string) (fieldtypes.Domain, error)
}

// ExpressionResolver is implemented by resolvers whose tables have computed
// columns. ColumnExpression returns the SQL that stands for the column inside
// a WHERE clause, where select aliases are not visible.
type ExpressionResolver interface {
	ColumnExpression(dialect Dialect, name string) (string, error)
}

// WhereClause is a rendered filter: SQL is either "" or "WHERE ..." and
// Params holds the named arguments referenced as :name inside it.
type WhereClause struct {
	SQL    string
	Params map[string]interface{}
}

// IsEmpty reports whether the clause filters nothing
func (w WhereClause) IsEmpty() bool {
	return w.SQL == ""
}

// RenderWhere compiles a criterion tree into a parameterized WHERE clause.
// A nil criterion or one that renders to nothing yields an empty clause.
func RenderWhere(dialect Dialect, columns ColumnResolver, criterion Criterion) (WhereClause, error) {
	r := &whereRenderer{
		dialect:  dialect,
		columns:  columns,
		params:   make(map[string]interface{}),
		reserved: make(map[string]bool),
	}
	if criterion == nil {
		return WhereClause{Params: r.params}, nil
	}
	reserveRawNames(criterion, r.reserved)

	body, err := r.render(criterion)
	if err != nil {
		return WhereClause{}, err
	}
	if body == "" {
		return WhereClause{Params: map[string]interface{}{}}, nil
	}
	return WhereClause{SQL: "WHERE " + body, Params: r.params}, nil
}

// whereRenderer holds the state of a single render call
type whereRenderer struct {
	dialect Dialect
	columns ColumnResolver
	counter int
	params  map[string]interface{}
	// names owned by Raw criteria anywhere in the tree
	reserved map[string]bool
}

func reserveRawNames(c Criterion, names map[string]bool) {
	switch node := c.(type) {
	case Raw:
		for name := range node.Args {
			names[name] = true
		}
	case *Raw:
		reserveRawNames(*node, names)
	case Group:
		for _, item := range node.Items {
			reserveRawNames(item, names)
		}
	case *Group:
		reserveRawNames(*node, names)
	}
}

func (r *whereRenderer) render(c Criterion) (string, error) {
	switch node := c.(type) {
	case Condition:
		return r.renderCondition(node)
	case *Condition:
		return r.renderCondition(*node)
	case Group:
		return r.renderGroup(node)
	case *Group:
		return r.renderGroup(*node)
	case Raw:
		return r.renderRaw(node)
	case *Raw:
		return r.renderRaw(*node)
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unsupported criterion type %T", c)
}

func (r *whereRenderer) renderGroup(g Group) (string, error) {
	parts := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		sql, err := r.render(item)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(sql) != "" {
			parts = append(parts, sql)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}

	connective := " AND "
	if g.Logic == Or {
		connective = " OR "
	}
	return "(" + strings.Join(parts, connective) + ")", nil
}

func (r *whereRenderer) renderRaw(raw Raw) (string, error) {
	if strings.TrimSpace(raw.SQL) == "" {
		return "", nil
	}
	for name, value := range raw.Args {
		if _, taken := r.params[name]; taken {
			return "", appErrors.NewInvalidCriterionError("RAW", fmt.Sprintf("argument %q is already bound", name))
		}
		r.params[name] = value
	}
	return "(" + raw.SQL + ")", nil
}

func (r *whereRenderer) renderCondition(c Condition) (string, error) {
	domain, err := r.columns.ResolveColumn(c.Column)
	if err != nil {
		return "", err
	}
	column, err := r.columnSQL(c, domain)
	if err != nil {
		return "", err
	}

	switch c.Op {
	case OpIsNull:
		return column + " IS NULL", nil
	case OpIsNotNull:
		return column + " IS NOT NULL", nil

	case OpEQ, OpNE, OpGT, OpGE, OpLT, OpLE:
		if c.Value == nil {
			switch c.Op {
			case OpEQ:
				return column + " IS NULL", nil
			case OpNE:
				return column + " IS NOT NULL", nil
			}
			return "", appErrors.NewInvalidCriterionError(string(c.Op), "cannot compare against null")
		}
		placeholder, err := r.bindCoerced(domain, c.Value)
		if err != nil {
			return "", err
		}
		return column + " " + comparisonOperators[c.Op] + " " + placeholder, nil

	case OpLike:
		return column + " LIKE " + r.bind(c.Value), nil
	case OpILike:
		return r.dialect.CaseInsensitiveLike(column, r.bind(c.Value)), nil

	case OpIn, OpNotIn:
		values, err := toSlice(c.Op, c.Value)
		if err != nil {
			return "", err
		}
		if len(values) == 0 {
			if c.Op == OpIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			placeholder, err := r.bindCoerced(domain, v)
			if err != nil {
				return "", err
			}
			placeholders = append(placeholders, placeholder)
		}
		keyword := " IN ("
		if c.Op == OpNotIn {
			keyword = " NOT IN ("
		}
		return column + keyword + strings.Join(placeholders, ", ") + ")", nil

	case OpBetween:
		values, err := toSlice(c.Op, c.Value)
		if err != nil {
			return "", err
		}
		if len(values) != 2 {
			return "", appErrors.NewInvalidCriterionError(string(c.Op),
				fmt.Sprintf("expects exactly 2 values, got %d", len(values)))
		}
		low, err := r.bindCoerced(domain, values[0])
		if err != nil {
			return "", err
		}
		high, err := r.bindCoerced(domain, values[1])
		if err != nil {
			return "", err
		}
		return column + " BETWEEN " + low + " AND " + high, nil
	}

	return "", appErrors.NewInvalidCriterionError(string(c.Op), "unknown operator")
}

var comparisonOperators = map[Op]string{
	OpEQ: "=",
	OpNE: "<>",
	OpGT: ">",
	OpGE: ">=",
	OpLT: "<",
	OpLE: "<=",
}

// columnSQL is the quoted column, or the computed expression of a virtual one
func (r *whereRenderer) columnSQL(c Condition, domain fieldtypes.Domain) (string, error) {
	if !domain.Virtual() {
		return r.dialect.QuoteIdent(c.Column), nil
	}
	resolver, ok := r.columns.(ExpressionResolver)
	if !ok {
		return "", appErrors.NewInvalidCriterionError(string(c.Op),
			fmt.Sprintf("computed column '%s' cannot be filtered", c.Column))
	}
	return resolver.ColumnExpression(r.dialect, c.Column)
}

// bind registers value under a fresh name and returns its placeholder.
// Names already bound or owned by a Raw criterion are skipped.
func (r *whereRenderer) bind(value interface{}) string {
	for {
		r.counter++
		name := fmt.Sprintf("p%d", r.counter)
		if _, taken := r.params[name]; taken || r.reserved[name] {
			continue
		}
		r.params[name] = value
		return ":" + name
	}
}

func (r *whereRenderer) bindCoerced(domain fieldtypes.Domain, value interface{}) (string, error) {
	converted, err := domain.ConvertForComparison(value)
	if err != nil {
		return "", err
	}
	return r.bind(converted) + r.dialect.CastSuffix(domain), nil
}

// toSlice accepts any slice or array value. A nil value is an empty list.
func toSlice(op Op, value interface{}) ([]interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if values, ok := value.([]interface{}); ok {
		return values, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, appErrors.NewInvalidCriterionError(string(op),
			fmt.Sprintf("expects a collection value, got %T", value))
	}
	// []byte is a scalar here, not a list of bytes
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, appErrors.NewInvalidCriterionError(string(op), "expects a collection value, got bytes")
	}
	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, nil
}
