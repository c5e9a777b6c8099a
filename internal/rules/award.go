package rules

import (
	"math"

	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// AwardEstimate is the computed award for one grant. Carryforward is only
// meaningful for credit formulas, where the requested credit can exceed
// what current liability allows.
type AwardEstimate struct {
	Amount       float64 `json:"amount"`
	Carryforward float64 `json:"carryforward,omitempty"`
}

// EstimateAward computes the award a profile would receive under a spec. It
// is total: missing or non-numeric inputs are treated as zero and the
// result is never negative.
func EstimateAward(profile model.Profile, spec model.AwardSpec) AwardEstimate {
	switch spec.Type {
	case "flat":
		return AwardEstimate{Amount: nonNegative(spec.Base)}

	case "percentage":
		base := profileNumber(profile, spec.Field)
		amount := base * spec.Percent / 100
		if spec.Cap > 0 {
			amount = math.Min(amount, spec.Cap)
		}
		return AwardEstimate{Amount: nonNegative(amount)}

	case "credit":
		return estimateCredit(profile, spec)

	default:
		// Unknown formula types estimate to zero rather than failing the
		// whole evaluation.
		return AwardEstimate{}
	}
}

// estimateCredit models a payroll-tax-credit award: the usable amount is
// the minimum of the requested credit, the allowed percentage of the
// liability field, and the statutory cap. The remainder of the request
// carries forward.
func estimateCredit(profile model.Profile, spec model.AwardSpec) AwardEstimate {
	requested := profileNumber(profile, spec.Field)
	liability := profileNumber(profile, spec.LiabilityField)

	usable := requested
	usable = math.Min(usable, liability*spec.Percent/100)
	if spec.Cap > 0 {
		usable = math.Min(usable, spec.Cap)
	}
	usable = nonNegative(usable)

	return AwardEstimate{
		Amount:       usable,
		Carryforward: nonNegative(requested - usable),
	}
}

func profileNumber(profile model.Profile, field string) float64 {
	if field == "" {
		return 0
	}
	v, ok := profile[field]
	if !ok {
		return 0
	}
	n, ok := normalize.Number(v)
	if !ok {
		return 0
	}
	return n
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
