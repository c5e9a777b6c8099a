package formfill

import (
	"fmt"
	"math"

	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// calcTolerance is how far a supplied value may sit from the recomputed
// one before it counts as a mismatch.
const calcTolerance = 0.005

// postValidate recomputes the derived lines of known government forms from
// their statutory formulas. The computed value always wins; a conflicting
// supplied value is flagged in CalcMismatches, never silently kept, so the
// response is arithmetically self-consistent.
func (e *Engine) postValidate(formKey string, filled *model.FilledForm) {
	switch formKey {
	case "form_8974":
		e.validate8974(filled)
	case "form_6765":
		e.validate6765(filled)
	}
}

// validate8974 recomputes the credit arithmetic of Form 8974:
// line10 = line8 + line9, line11 = 50% of line10,
// line12 = min(line7, line11, 250000), line13 = line7 - line12.
func (e *Engine) validate8974(filled *model.FilledForm) {
	line7 := fieldNumber(filled, "line7")
	line8 := fieldNumber(filled, "line8")
	line9 := fieldNumber(filled, "line9")

	line10 := line8 + line9
	line11 := line10 * 0.5
	line12 := math.Min(line7, math.Min(line11, 250000))
	line13 := line7 - line12

	setComputed(filled, "line10", line10)
	setComputed(filled, "line11", line11)
	setComputed(filled, "line12", line12)
	setComputed(filled, "line13", line13)
}

// validate6765 recomputes the current-year credit of Form 6765 from the
// qualified research expenses.
func (e *Engine) validate6765(filled *model.FilledForm) {
	qre := fieldNumber(filled, "total_qre")
	setComputed(filled, "credit_amount", qre*0.1)
}

// setComputed overwrites a field with its recomputed value, recording a
// mismatch when a different value was already present.
func setComputed(filled *model.FilledForm, key string, computed float64) {
	if existing, ok := filled.Fields[key]; ok && !normalize.IsEmptyValue(existing) && filled.Sources[key] == model.SourceUser {
		if n, numeric := normalize.Number(existing); numeric && math.Abs(n-computed) > calcTolerance {
			filled.CalcMismatches = append(filled.CalcMismatches,
				fmt.Sprintf("%s: supplied %v, computed %v", key, existing, computed))
		}
	}
	filled.Fields[key] = computed
	if _, ok := filled.Sources[key]; !ok {
		filled.Sources[key] = model.SourceGenerated
	}
}

func fieldNumber(filled *model.FilledForm, key string) float64 {
	v, ok := filled.Fields[key]
	if !ok {
		return 0
	}
	n, ok := normalize.Number(v)
	if !ok {
		return 0
	}
	return n
}
