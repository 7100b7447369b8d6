package query

// Criterion is a filter AST node: a Condition, a Group or a Raw fragment.
type Criterion interface {
	isCriterion()
}

// Op is a comparison operator of a Condition
type Op string

const (
	OpEQ        Op = "EQ"
	OpNE        Op = "NE"
	OpGT        Op = "GT"
	OpGE        Op = "GE"
	OpLT        Op = "LT"
	OpLE        Op = "LE"
	OpLike      Op = "LIKE"
	OpILike     Op = "ILIKE"
	OpIn        Op = "IN"
	OpNotIn     Op = "NOT_IN"
	OpBetween   Op = "BETWEEN"
	OpIsNull    Op = "IS_NULL"
	OpIsNotNull Op = "IS_NOT_NULL"
)

var validOps = map[Op]bool{
	OpEQ: true, OpNE: true, OpGT: true, OpGE: true, OpLT: true, OpLE: true,
	OpLike: true, OpILike: true, OpIn: true, OpNotIn: true, OpBetween: true,
	OpIsNull: true, OpIsNotNull: true,
}

// Valid reports whether op is a known operator
func (op Op) Valid() bool {
	return validOps[op]
}

// Logic joins the items of a Group
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Condition compares one column against a value
type Condition struct {
	Column string
	Op     Op
	Value  interface{}
}

// Group combines criteria with AND or OR
type Group struct {
	Logic Logic
	Items []Criterion
}

// Raw is a caller-supplied SQL fragment with its own named arguments.
// It is emitted verbatim; the caller is responsible for its safety.
type Raw struct {
	SQL  string
	Args map[string]interface{}
}

func (Condition) isCriterion() {}
func (Group) isCriterion()     {}
func (Raw) isCriterion()       {}

func Eq(column string, value interface{}) Condition { return Condition{column, OpEQ, value} }
func Ne(column string, value interface{}) Condition { return Condition{column, OpNE, value} }
func Gt(column string, value interface{}) Condition { return Condition{column, OpGT, value} }
func Ge(column string, value interface{}) Condition { return Condition{column, OpGE, value} }
func Lt(column string, value interface{}) Condition { return Condition{column, OpLT, value} }
func Le(column string, value interface{}) Condition { return Condition{column, OpLE, value} }
func Like(column string, pattern string) Condition  { return Condition{column, OpLike, pattern} }
func ILike(column string, pattern string) Condition { return Condition{column, OpILike, pattern} }
func In(column string, values ...interface{}) Condition {
	return Condition{column, OpIn, append([]interface{}{}, values...)}
}
func NotIn(column string, values ...interface{}) Condition {
	return Condition{column, OpNotIn, append([]interface{}{}, values...)}
}
func Between(column string, low, high interface{}) Condition {
	return Condition{column, OpBetween, []interface{}{low, high}}
}
func IsNull(column string) Condition    { return Condition{Column: column, Op: OpIsNull} }
func IsNotNull(column string) Condition { return Condition{Column: column, Op: OpIsNotNull} }

// AllOf groups items with AND
func AllOf(items ...Criterion) Group {
	return Group{Logic: And, Items: items}
}

// AnyOf groups items with OR
func AnyOf(items ...Criterion) Group {
	return Group{Logic: Or, Items: items}
}

// RawSQL wraps a verbatim SQL fragment
func RawSQL(sql string, args map[string]interface{}) Raw {
	return Raw{SQL: sql, Args: args}
}
