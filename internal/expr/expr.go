// Package expr evaluates a small, closed expression grammar used by form
// templates: literals, variable lookup against a supplied context,
// arithmetic, comparisons, and/or/not, and exactly two cast functions
// (int, float). Template expressions are untrusted configuration, so the
// grammar is explicitly enumerated and nothing else parses: there is no
// function table to extend, no attribute access, and no escape to the host
// environment regardless of what values are bound in context.
package expr

import "fmt"

// Options bound the work a single evaluation may perform.
type Options struct {
	MaxNodes     int // parse-tree node budget
	MaxStringLen int // longest allowed string literal
	MaxNumberLen int // longest allowed numeric literal
}

// DefaultOptions are safe for template-sized expressions.
func DefaultOptions() Options {
	return Options{
		MaxNodes:     200,
		MaxStringLen: 512,
		MaxNumberLen: 32,
	}
}

// EvalError is the typed validation error for rejected or failed
// expressions. Evaluation never panics and never executes host code.
type EvalError struct {
	Expr   string
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("expression %q rejected: %s", e.Expr, e.Reason)
}

func errf(expr, format string, args ...any) error {
	return &EvalError{Expr: expr, Reason: fmt.Sprintf(format, args...)}
}

// Eval parses and evaluates source against vars with default options.
func Eval(source string, vars map[string]any) (any, error) {
	return EvalWithOptions(source, vars, DefaultOptions())
}

// EvalWithOptions parses and evaluates source against vars.
func EvalWithOptions(source string, vars map[string]any, opts Options) (any, error) {
	p := newParser(source, opts)
	node, err := p.parse()
	if err != nil {
		return nil, err
	}
	ev := &evaluator{source: source, vars: vars}
	return ev.eval(node)
}

// EvalTruthy evaluates source and reduces the result to a boolean:
// false, 0, "" and nil are falsy, everything else is truthy.
func EvalTruthy(source string, vars map[string]any) (bool, error) {
	v, err := Eval(source, vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
