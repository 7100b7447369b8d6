package query

import (
	"strings"
)

// Operators accepted in filter terms, multi-char symbols first
var termOperators = []struct {
	symbol string
	op     Op
}{
	{"!=", OpNE}, {"<>", OpNE}, {">=", OpGE}, {"<=", OpLE},
	{"~", OpILike}, {"=", OpEQ}, {">", OpGT}, {"<", OpLT},
}

// ParseFilterTerm parses a simple filter like "field = value", "amount > 100"
// or "name ~ %ann%" into a Condition. The literal value null turns = and !=
// into null checks. Returns false when the term is not a valid filter.
func ParseFilterTerm(term string) (Condition, bool) {
	// the leftmost operator wins; at equal positions the longer symbol does
	idx, symbol, op := -1, "", Op("")
	for _, t := range termOperators {
		i := strings.Index(term, t.symbol)
		if i < 0 {
			continue
		}
		if idx < 0 || i < idx || (i == idx && len(t.symbol) > len(symbol)) {
			idx, symbol, op = i, t.symbol, t.op
		}
	}
	if idx <= 0 {
		return Condition{}, false
	}

	field := strings.TrimSpace(term[:idx])
	value := strings.TrimSpace(term[idx+len(symbol):])
	if field == "" || value == "" {
		return Condition{}, false
	}
	for _, c := range field {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return Condition{}, false
		}
	}

	if strings.EqualFold(value, "null") {
		switch op {
		case OpEQ:
			return IsNull(field), true
		case OpNE:
			return IsNotNull(field), true
		}
	}
	return Condition{Column: field, Op: op, Value: unquote(value)}, true
}

// ParseFilterTerms combines several terms with AND, skipping blanks.
// The first invalid term is returned with ok=false.
func ParseFilterTerms(terms []string) (Criterion, string, bool) {
	items := make([]Criterion, 0, len(terms))
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		cond, ok := ParseFilterTerm(term)
		if !ok {
			return nil, term, false
		}
		items = append(items, cond)
	}
	if len(items) == 0 {
		return nil, "", true
	}
	return AllOf(items...), "", true
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' || first == '"') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
