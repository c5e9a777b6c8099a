package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_UserWins(t *testing.T) {
	merged, steps := Merge(
		map[string]any{"business_name": "Acme Tools"},
		map[string]any{"business_name": "ACME TOOLS LLC"},
	)

	assert.Equal(t, "Acme Tools", merged["business_name"])
	assert.Equal(t, []string{`kept user value for "business_name"`}, steps)
}

func TestMerge_EmptyUserValuesAreFilled(t *testing.T) {
	empties := []any{nil, "", []any{}, map[string]any{}}

	for _, empty := range empties {
		merged, steps := Merge(
			map[string]any{"ein": empty},
			map[string]any{"ein": "12-3456789"},
		)
		assert.Equal(t, "12-3456789", merged["ein"], "empty value %#v should be overridden", empty)
		assert.Equal(t, []string{`filled "ein" from inference`}, steps)
	}
}

func TestMerge_ZeroAndFalseAreNotEmpty(t *testing.T) {
	merged, _ := Merge(
		map[string]any{"employee_count": 0, "veteran_owned": false},
		map[string]any{"employee_count": 12, "veteran_owned": true},
	)

	assert.Equal(t, 0, merged["employee_count"])
	assert.Equal(t, false, merged["veteran_owned"])
}

func TestMerge_UserOnlyKeysPassThrough(t *testing.T) {
	merged, steps := Merge(
		map[string]any{"notes": "family business"},
		map[string]any{"annual_revenue": 250000.0},
	)

	assert.Equal(t, "family business", merged["notes"])
	assert.Equal(t, 250000.0, merged["annual_revenue"])
	assert.Equal(t, []string{`filled "annual_revenue" from inference`}, steps)
}

func TestMerge_Idempotent(t *testing.T) {
	user := map[string]any{"a": "keep", "b": "", "c": 0}
	inferred := map[string]any{"a": "drop", "b": "fill", "d": "new"}

	once, _ := Merge(user, inferred)
	twice, _ := Merge(once, inferred)

	assert.Equal(t, once, twice)
}

func TestMerge_DeterministicStepOrder(t *testing.T) {
	inferred := map[string]any{"z": 1, "a": 2, "m": 3}

	_, first := Merge(map[string]any{}, inferred)
	_, second := Merge(map[string]any{}, inferred)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{`filled "a" from inference`, `filled "m" from inference`, `filled "z" from inference`}, first)
}
