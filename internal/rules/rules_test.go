package rules

import (
	"testing"

	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatRules(m map[string]any) model.RuleSet {
	return model.RuleSet{Flat: m}
}

func TestEvaluate_FlatAllPass(t *testing.T) {
	rs := flatRules(map[string]any{
		"annual_revenue_max": 1000000,
		"employee_count_min": 2,
		"veteran_owned":      true,
	})
	profile := model.Profile{
		"annual_revenue": 650000.0,
		"employee_count": 12,
		"veteran_owned":  true,
	}

	res := Evaluate(rs, profile)

	require.NotNil(t, res.Eligible)
	assert.True(t, *res.Eligible)
	assert.Equal(t, model.StatusEligible, res.Status)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, model.CertaintyHigh, res.Certainty)
	assert.Equal(t, 3, res.CheckedRules)
	assert.Empty(t, res.MissingFields)
	for _, line := range res.Reasoning {
		assert.Contains(t, line, "✅")
	}
}

func TestEvaluate_FlatThresholdFailure(t *testing.T) {
	rs := flatRules(map[string]any{
		"annual_revenue_max": 1000000,
		"employee_count_min": 2,
	})
	profile := model.Profile{
		"annual_revenue": 2500000.0,
		"employee_count": 12,
	}

	res := Evaluate(rs, profile)

	require.NotNil(t, res.Eligible)
	assert.False(t, *res.Eligible)
	assert.Equal(t, model.StatusIneligible, res.Status)
	assert.Equal(t, 50, res.Score)

	var sawFailure bool
	for _, line := range res.Reasoning {
		if line == "❌ annual_revenue <= 1000000 (have 2500000)" {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "reasoning: %v", res.Reasoning)
}

func TestEvaluate_FlatMissingIsConditional(t *testing.T) {
	rs := flatRules(map[string]any{
		"annual_revenue_max": 1000000,
		"employee_count_min": 2,
	})
	profile := model.Profile{"employee_count": 12}

	res := Evaluate(rs, profile)

	assert.Nil(t, res.Eligible)
	assert.Equal(t, model.StatusConditional, res.Status)
	assert.Equal(t, []string{"annual_revenue"}, res.MissingFields)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, model.CertaintyMedium, res.Certainty)
}

func TestEvaluate_ListMembership(t *testing.T) {
	rs := flatRules(map[string]any{
		"business_state": []any{"VT", "NH", "ME"},
	})

	res := Evaluate(rs, model.Profile{"business_state": "VT"})
	require.NotNil(t, res.Eligible)
	assert.True(t, *res.Eligible)

	res = Evaluate(rs, model.Profile{"business_state": "CA"})
	require.NotNil(t, res.Eligible)
	assert.False(t, *res.Eligible)
}

func TestEvaluate_LooseEquality(t *testing.T) {
	rs := flatRules(map[string]any{"veteran_owned": true})

	for _, v := range []any{true, "yes", "true", "Y"} {
		res := Evaluate(rs, model.Profile{"veteran_owned": v})
		require.NotNil(t, res.Eligible, "value %v", v)
		assert.True(t, *res.Eligible, "value %v", v)
	}

	res := Evaluate(rs, model.Profile{"veteran_owned": "no"})
	require.NotNil(t, res.Eligible)
	assert.False(t, *res.Eligible)
}

func TestEvaluate_NumericStringsCompareNumerically(t *testing.T) {
	rs := flatRules(map[string]any{"annual_revenue_max": 1000000})
	res := Evaluate(rs, model.Profile{"annual_revenue": "$650,000"})

	require.NotNil(t, res.Eligible)
	assert.True(t, *res.Eligible)
}

func TestEvaluate_GroupedFirstEligibleWins(t *testing.T) {
	rs := model.RuleSet{Groups: []model.RuleGroup{
		{Name: "tier_a", Rules: map[string]any{"employee_count_min": 100}},
		{Name: "tier_b", Rules: map[string]any{"employee_count_min": 5}},
		{Name: "tier_c", Rules: map[string]any{"employee_count_min": 1}},
	}}
	profile := model.Profile{"employee_count": 10}

	res := Evaluate(rs, profile)

	// tier_b is the first group that fully passes even though tier_c would too.
	assert.Equal(t, "tier_b", res.SelectedGroup)
	require.NotNil(t, res.Eligible)
	assert.True(t, *res.Eligible)
}

func TestEvaluate_GroupedBestPartialWhenNoneEligible(t *testing.T) {
	rs := model.RuleSet{Groups: []model.RuleGroup{
		{Name: "strict", Rules: map[string]any{
			"employee_count_min": 100,
			"annual_revenue_min": 5000000,
		}},
		{Name: "lenient", Rules: map[string]any{
			"employee_count_min": 100,
			"annual_revenue_min": 100000,
		}},
	}}
	profile := model.Profile{"employee_count": 10, "annual_revenue": 500000.0}

	res := Evaluate(rs, profile)

	assert.Equal(t, "lenient", res.SelectedGroup)
	assert.Equal(t, model.StatusIneligible, res.Status)
	assert.Equal(t, 50, res.Score)
}

func TestSelectedAward_GroupOverride(t *testing.T) {
	override := &model.AwardSpec{Type: "flat", Base: 7500}
	rs := model.RuleSet{Groups: []model.RuleGroup{
		{Name: "base", Rules: map[string]any{"employee_count_min": 1}, Award: override},
	}}

	res := Evaluate(rs, model.Profile{"employee_count": 3})
	assert.Equal(t, override, SelectedAward(rs, res))
	assert.Nil(t, SelectedAward(flatRules(nil), model.RuleEvaluationResult{}))
}

func TestEvaluate_ScoreMonotonicity(t *testing.T) {
	rs := flatRules(map[string]any{
		"annual_revenue_max": 1000000,
		"employee_count_min": 2,
		"business_state":     []any{"VT"},
		"veteran_owned":      true,
	})

	// Adding a passing field never lowers the score.
	profiles := []model.Profile{
		{},
		{"employee_count": 12},
		{"employee_count": 12, "annual_revenue": 650000.0},
		{"employee_count": 12, "annual_revenue": 650000.0, "business_state": "VT"},
		{"employee_count": 12, "annual_revenue": 650000.0, "business_state": "VT", "veteran_owned": true},
	}
	prev := -1
	for _, p := range profiles {
		res := Evaluate(rs, p)
		assert.GreaterOrEqual(t, res.Score, prev)
		prev = res.Score
	}
	assert.Equal(t, 100, prev)
}

func TestEstimateAward_Flat(t *testing.T) {
	got := EstimateAward(model.Profile{}, model.AwardSpec{Type: "flat", Base: 10000})
	assert.Equal(t, 10000.0, got.Amount)
	assert.Zero(t, got.Carryforward)
}

func TestEstimateAward_PercentageWithCap(t *testing.T) {
	profile := model.Profile{"annual_payroll": 400000.0}
	spec := model.AwardSpec{Type: "percentage", Field: "annual_payroll", Percent: 10, Cap: 25000}

	got := EstimateAward(profile, spec)
	assert.Equal(t, 25000.0, got.Amount)

	spec.Cap = 0
	got = EstimateAward(profile, spec)
	assert.Equal(t, 40000.0, got.Amount)
}

func TestEstimateAward_CreditCarryforward(t *testing.T) {
	profile := model.Profile{
		"rd_credit_requested":       300000.0,
		"social_security_liability": 180000.0,
	}
	spec := model.AwardSpec{
		Type:           "credit",
		Field:          "rd_credit_requested",
		LiabilityField: "social_security_liability",
		Percent:        50,
		Cap:            250000,
	}

	got := EstimateAward(profile, spec)

	// min(300000 requested, 50% of 180000 liability, 250000 cap) = 90000.
	assert.Equal(t, 90000.0, got.Amount)
	assert.Equal(t, 210000.0, got.Carryforward)
}

func TestEstimateAward_TotalOnBadInput(t *testing.T) {
	specs := []model.AwardSpec{
		{Type: "percentage", Field: "absent", Percent: 10},
		{Type: "percentage", Field: "annual_payroll", Percent: 10},
		{Type: "credit", Field: "rd_credit_requested", LiabilityField: "absent", Percent: 50},
		{Type: "mystery"},
		{},
	}
	profile := model.Profile{"annual_payroll": "not a number", "rd_credit_requested": -50.0}

	for _, spec := range specs {
		got := EstimateAward(profile, spec)
		assert.GreaterOrEqual(t, got.Amount, 0.0, "spec %+v", spec)
		assert.GreaterOrEqual(t, got.Carryforward, 0.0, "spec %+v", spec)
	}
}
