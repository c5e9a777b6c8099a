package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
		want any
	}{
		{name: "precedence", expr: "a + b * 2", vars: map[string]any{"a": 2.0, "b": 3.0}, want: 8.0},
		{name: "parentheses", expr: "(a + b) * 2", vars: map[string]any{"a": 2.0, "b": 3.0}, want: 10.0},
		{name: "subtraction", expr: "line7 - line12", vars: map[string]any{"line7": 300.0, "line12": 50.0}, want: 250.0},
		{name: "division", expr: "10 / 4", vars: nil, want: 2.5},
		{name: "modulo", expr: "7 % 3", vars: nil, want: 1.0},
		{name: "unary minus", expr: "-x", vars: map[string]any{"x": 5.0}, want: -5.0},
		{name: "int literals from ints", expr: "n * 2", vars: map[string]any{"n": 4}, want: 8.0},
		{name: "string concat", expr: "'a' + 'b'", vars: nil, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_BooleanAndComparison(t *testing.T) {
	vars := map[string]any{"income": 60000.0, "state": "CA", "veteran": true}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "income > 50000", want: true},
		{expr: "income <= 50000", want: false},
		{expr: "state == 'CA'", want: true},
		{expr: "state != 'NY'", want: true},
		{expr: "veteran and income > 50000", want: true},
		{expr: "not veteran or income < 100", want: false},
		{expr: "income > 50000 and state == 'CA'", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_Casts(t *testing.T) {
	got, err := Eval("int(3.9)", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = Eval("float('2.5') * 2", nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestEval_RejectsEscapeAttempts(t *testing.T) {
	rejected := []string{
		"__import__('os').system('ls')",
		"open('/etc/passwd')",
		"len(a)",
		"a.__class__",
		"exec('1')",
	}

	for _, src := range rejected {
		t.Run(src, func(t *testing.T) {
			_, err := Eval(src, map[string]any{"a": 1.0})
			require.Error(t, err)
			var evalErr *EvalError
			assert.True(t, errors.As(err, &evalErr), "expected typed EvalError, got %v", err)
		})
	}
}

func TestEval_UndeclaredName(t *testing.T) {
	_, err := Eval("missing + 1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared")
}

func TestEval_DoubleUnderscoreName(t *testing.T) {
	_, err := Eval("a__b", map[string]any{"a__b": 1.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double underscore")
}

func TestEval_NodeBudget(t *testing.T) {
	// A long chain of additions overruns the default node budget.
	src := "1" + strings.Repeat(" + 1", 300)
	_, err := Eval(src, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
}

func TestEval_LiteralBounds(t *testing.T) {
	_, err := Eval("'"+strings.Repeat("x", 600)+"'", nil)
	require.Error(t, err)

	_, err = Eval(strings.Repeat("1", 40)+" + 1", nil)
	require.Error(t, err)
}

func TestEval_DivisionByZero(t *testing.T) {
	_, err := Eval("1 / 0", nil)
	require.Error(t, err)
}

func TestEval_ShortCircuit(t *testing.T) {
	// The right operand references an undeclared name but is never reached.
	got, err := Eval("false and missing", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = Eval("true or missing", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestEvalTruthy(t *testing.T) {
	ok, err := EvalTruthy("entity_type == 'corporation'", map[string]any{"entity_type": "corporation"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalTruthy("0", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
