package formula

import (
	"sort"
	"strings"
)

// ScalarType is the expected type of a function parameter. It documents the
// contract; only arity is enforced today.
type ScalarType string

const (
	TypeText ScalarType = "TEXT"
	TypeInt  ScalarType = "INT"
)

// Param describes one declared parameter. A vararg parameter absorbs every
// remaining argument.
type Param struct {
	Type   ScalarType
	Vararg bool
}

// Unbounded marks a function without a maximum arity
const Unbounded = -1

// arg is a compiled argument handed to an emitter
type arg struct {
	sql     string
	literal bool
}

// FunctionDefinition is a registry entry: the arity contract plus how to
// emit SQL and preview expressions for a call
type FunctionDefinition struct {
	Name        string  `json:"name"`
	MinArity    int     `json:"minArity"`
	MaxArity    int     `json:"maxArity"`
	Params      []Param `json:"params"`
	Description string  `json:"description"`
	Usage       string  `json:"usage"`

	previewName string
	emit        func(args []arg, concatFunction bool) string
}

var functions = map[string]FunctionDefinition{
	"concat": {
		Name:        "concat",
		MinArity:    1,
		MaxArity:    Unbounded,
		Params:      []Param{{Type: TypeText, Vararg: true}},
		Description: "Joins its arguments; NULL values count as empty text",
		Usage:       "concat($first_name, ' ', $last_name)",
		previewName: "CONCAT",
		emit:        emitConcat,
	},
	"substring": {
		Name:        "substring",
		MinArity:    2,
		MaxArity:    3,
		Params:      []Param{{Type: TypeText}, {Type: TypeInt}, {Type: TypeInt, Vararg: true}},
		Description: "Part of a text starting at a 1-based position, optionally limited in length",
		Usage:       "substring($code, 1, 3)",
		previewName: "SUBSTRING",
		emit:        passThrough("substring"),
	},
	"upper": {
		Name:        "upper",
		MinArity:    1,
		MaxArity:    1,
		Params:      []Param{{Type: TypeText}},
		Description: "Converts to uppercase",
		Usage:       "upper($name)",
		previewName: "UPPER",
		emit:        passThrough("upper"),
	},
	"lower": {
		Name:        "lower",
		MinArity:    1,
		MaxArity:    1,
		Params:      []Param{{Type: TypeText}},
		Description: "Converts to lowercase",
		Usage:       "lower($email)",
		previewName: "LOWER",
		emit:        passThrough("lower"),
	},
}

// LookupFunction finds a registry entry by case-insensitive name
func LookupFunction(name string) (FunctionDefinition, bool) {
	fn, ok := functions[strings.ToLower(name)]
	return fn, ok
}

// Functions lists the registry sorted by name
func Functions() []FunctionDefinition {
	out := make([]FunctionDefinition, 0, len(functions))
	for _, fn := range functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func passThrough(name string) func([]arg, bool) string {
	return func(args []arg, _ bool) string {
		return name + "(" + joinArgs(args, ", ", false) + ")"
	}
}

// emitConcat renders concat(a, b) where the dialect has the function and
// a || b otherwise. The operator form propagates NULL, so every operand that
// is not a literal is wrapped in coalesce.
func emitConcat(args []arg, concatFunction bool) string {
	if concatFunction {
		return "concat(" + joinArgs(args, ", ", false) + ")"
	}
	return joinArgs(args, " || ", true)
}

func joinArgs(args []arg, sep string, coalesce bool) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if coalesce && !a.literal {
			parts[i] = "coalesce(" + a.sql + ", '')"
		} else {
			parts[i] = a.sql
		}
	}
	return strings.Join(parts, sep)
}
