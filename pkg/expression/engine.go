package expression

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Function is the signature of a callable registered with the engine
type Function func(params ...interface{}) (interface{}, error)

// Engine is a wrapper around expr-lang/expr that caches compiled programs.
// It carries the text functions formulas compile to: CONCAT, SUBSTRING,
// UPPER and LOWER. A nil argument behaves like SQL NULL.
type Engine struct {
	programCache map[string]*vm.Program
	functions    map[string]Function
	mu           sync.RWMutex
}

// NewEngine creates a new expression engine
func NewEngine() *Engine {
	return &Engine{
		programCache: make(map[string]*vm.Program),
		functions:    make(map[string]Function),
	}
}

// Evaluate compiles (if needed) and runs an expression against the given environment
func (e *Engine) Evaluate(expression string, env map[string]interface{}) (interface{}, error) {
	program, err := e.getProgram(expression, env)
	if err != nil {
		return nil, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return nil, err
	}
	return output, nil
}

// RegisterFunction registers a custom function
func (e *Engine) RegisterFunction(name string, fn Function) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.functions == nil {
		e.functions = make(map[string]Function)
	}
	e.functions[name] = fn
	// available functions changed
	e.programCache = make(map[string]*vm.Program)
}

// Validate compiles an expression without running it
func (e *Engine) Validate(expression string, env map[string]interface{}) error {
	_, err := e.getProgram(expression, env)
	return err
}

func (e *Engine) getProgram(expression string, env map[string]interface{}) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if prog, ok := e.programCache[expression]; ok {
		return prog, nil
	}

	options := []expr.Option{
		expr.Env(env),
		expr.Function("CONCAT", concat),
		expr.Function("SUBSTRING", substring),
		expr.Function("UPPER", mapText("UPPER", strings.ToUpper)),
		expr.Function("LOWER", mapText("LOWER", strings.ToLower)),
	}
	for name, fn := range e.functions {
		options = append(options, expr.Function(name, fn))
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, err
	}

	e.programCache[expression] = program
	return program, nil
}

func concat(params ...interface{}) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("CONCAT requires at least 1 argument")
	}
	var sb strings.Builder
	for _, p := range params {
		if p != nil {
			sb.WriteString(toText(p))
		}
	}
	return sb.String(), nil
}

// substring follows SQL semantics: 1-based start, positions before the first
// character still count towards the length
func substring(params ...interface{}) (interface{}, error) {
	if len(params) < 2 || len(params) > 3 {
		return nil, fmt.Errorf("SUBSTRING requires 2 or 3 arguments")
	}
	for _, p := range params {
		if p == nil {
			return nil, nil
		}
	}

	runes := []rune(toText(params[0]))
	from, err := toInt(params[1])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING start must be integer")
	}
	end := len(runes) + 1
	if len(params) == 3 {
		length, err := toInt(params[2])
		if err != nil {
			return nil, fmt.Errorf("SUBSTRING length must be integer")
		}
		if length < 0 {
			return nil, fmt.Errorf("SUBSTRING length must not be negative")
		}
		if from+length < end {
			end = from + length
		}
	}

	start := from
	if start < 1 {
		start = 1
	}
	if start >= end {
		return "", nil
	}
	return string(runes[start-1 : end-1]), nil
}

func mapText(name string, fn func(string) string) Function {
	return func(params ...interface{}) (interface{}, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s requires 1 argument", name)
		}
		if params[0] == nil {
			return nil, nil
		}
		return fn(toText(params[0])), nil
	}
}

func toText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		return int(val), nil
	case int64:
		return int(val), nil
	case float32:
		return int(val), nil
	case string:
		var i int
		_, err := fmt.Sscanf(val, "%d", &i)
		return i, err
	}
	return 0, fmt.Errorf("cannot convert %T to int", v)
}
