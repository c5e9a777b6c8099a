package eligibility

import (
	"testing"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(cat)
}

func findResult(t *testing.T, report model.EligibilityReport, name string) model.GrantResult {
	t.Helper()
	for _, r := range report.Results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %q in %+v", name, report.Results)
	return model.GrantResult{}
}

func TestAnalyze_EmptyProfileReturnsFallbackOnly(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{})

	require.Len(t, report.Results, 1)
	got := report.Results[0]
	assert.Equal(t, FallbackGrantName, got.Name)
	assert.Equal(t, model.StatusConditional, got.Status)
	assert.Nil(t, got.Eligible)
	assert.GreaterOrEqual(t, got.EstimatedAmount, 1000.0)
}

func TestAnalyze_EligibleSmallBusiness(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{
		"employee_count":     12,
		"annual_revenue":     650000.0,
		"annual_payroll":     400000.0,
		"business_age_years": 4,
	})

	got := findResult(t, report, "Small Business Relief Grant")
	require.NotNil(t, got.Eligible)
	assert.True(t, *got.Eligible)
	assert.Equal(t, model.StatusEligible, got.Status)
	assert.Equal(t, 100, got.Score)
	// 10% of payroll, capped at 50000.
	assert.Equal(t, 40000.0, got.EstimatedAmount)
	assert.Equal(t, "Meets all eligibility criteria", got.Rationale)
	assert.Contains(t, report.RequiredForms, "w9")
}

func TestAnalyze_SkipsGrantWhenAllRequiredFieldsAbsent(t *testing.T) {
	e := newEngine(t)

	// veteran_business_grant requires only veteran_owned; absent → skipped.
	report := e.Analyze(map[string]any{
		"employee_count": 12,
		"annual_revenue": 650000.0,
	})

	for _, r := range report.Results {
		assert.NotEqual(t, "Veteran-Owned Business Grant", r.Name)
	}
}

func TestAnalyze_PartialFieldsAreConditionalNotSkipped(t *testing.T) {
	e := newEngine(t)

	// One of small_business_relief's two required fields is present.
	report := e.Analyze(map[string]any{"employee_count": 12})

	got := findResult(t, report, "Small Business Relief Grant")
	assert.Equal(t, model.StatusConditional, got.Status)
	assert.Nil(t, got.Eligible)
	assert.Contains(t, got.MissingFields, "annual_revenue")
	assert.Contains(t, got.Rationale, "annual_revenue")
}

func TestAnalyze_IndustryGateHardFail(t *testing.T) {
	e := newEngine(t)

	// Meets restaurant fund rules but declares a non-restaurant NAICS code.
	report := e.Analyze(map[string]any{
		"annual_revenue":          900000.0,
		"revenue_drop_percent":    35,
		"business_state":          "TX",
		"business_industry_naics": "541511",
	})

	got := findResult(t, report, "Restaurant Revitalization Fund")
	require.NotNil(t, got.Eligible)
	assert.False(t, *got.Eligible)
	assert.Equal(t, model.StatusIneligible, got.Status)
	assert.Contains(t, got.Rationale, "❌")
	assert.Zero(t, got.EstimatedAmount)
}

func TestAnalyze_IndustryGateUncheckableIsConditional(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{
		"annual_revenue":       900000.0,
		"revenue_drop_percent": 35,
		"business_state":       "TX",
	})

	got := findResult(t, report, "Restaurant Revitalization Fund")
	assert.Nil(t, got.Eligible)
	assert.Equal(t, model.StatusConditional, got.Status)
	assert.Contains(t, got.MissingFields, "business_industry_naics")
	assert.Contains(t, report.MissingFields, "business_industry_naics")
}

func TestAnalyze_IndustryInferredFromFreeText(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{
		"annual_revenue":       900000.0,
		"revenue_drop_percent": 35,
		"business_state":       "TX",
		"business_description": "Family-owned Tex-Mex restaurant in Austin",
	})

	got := findResult(t, report, "Restaurant Revitalization Fund")
	require.NotNil(t, got.Eligible)
	assert.True(t, *got.Eligible)
	assert.NotContains(t, got.MissingFields, "business_industry_naics")
}

func TestAnalyze_GroupedGrantSelectsTier(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{
		"annual_revenue":            2000000.0,
		"business_age_years":        3,
		"rd_expenses":               400000.0,
		"rd_credit_requested":       300000.0,
		"social_security_liability": 180000.0,
		"business_industry_naics":   "541715",
	})

	got := findResult(t, report, "R&D Payroll Tax Credit")
	require.NotNil(t, got.Eligible)
	assert.True(t, *got.Eligible)
	require.NotNil(t, got.Debug)
	assert.Equal(t, "qualified_small_business", got.Debug["selected_group"])
	// Credit formula: min(300000, 50% of 180000, 250000) with carryforward.
	assert.Equal(t, 90000.0, got.EstimatedAmount)
	assert.Equal(t, 210000.0, got.Debug["carryforward"])
}

func TestAnalyze_ProfileAliasMapping(t *testing.T) {
	e := newEngine(t)

	// Document-envelope field names resolve to canonical profile keys.
	profile := e.NormalizeProfile(map[string]any{
		"revenue.total":          650000.0,
		"payroll.employee_count": 12,
		"address.state":          "Vermont",
		"veteran.status":         "veteran",
	})

	assert.Equal(t, 650000.0, profile["annual_revenue"])
	assert.Equal(t, 12, profile["employee_count"])
	assert.Equal(t, "VT", profile["business_state"])
	assert.Equal(t, true, profile["veteran_owned"])
}

func TestAnalyze_TagSortOrdersByScore(t *testing.T) {
	e := newEngine(t)

	report := e.Analyze(map[string]any{
		"tags":           []any{"veteran", "small_business"},
		"employee_count": 12,
		"annual_revenue": 650000.0,
		"veteran_owned":  "yes",
	})

	require.GreaterOrEqual(t, len(report.Results), 2)
	for i := 1; i < len(report.Results); i++ {
		assert.GreaterOrEqual(t, report.Results[i-1].Score, report.Results[i].Score)
	}
}

func TestAnalyze_FallbackUsesPayrollHeuristic(t *testing.T) {
	e := newEngine(t)

	// An ineligible-everywhere profile with payroll data: the fallback award
	// is 10% of payroll.
	report := e.Analyze(map[string]any{
		"employee_count": 20000,
		"annual_revenue": 900000000.0,
		"annual_payroll": 80000.0,
	})

	got := findResult(t, report, FallbackGrantName)
	assert.Equal(t, 8000.0, got.EstimatedAmount)
}

func TestInferNAICS(t *testing.T) {
	tests := []struct {
		text      string
		family    string
		confident bool
	}{
		{"We run a small bakery and catering business", "722", true},
		{"B2B SaaS software platform", "541", true},
		{"semiconductor test equipment", "334", true},
		{"just a small business", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		family, confident := InferNAICS(model.Profile{"business_description": tt.text})
		assert.Equal(t, tt.family, family, "text %q", tt.text)
		assert.Equal(t, tt.confident, confident, "text %q", tt.text)
	}
}

func TestRationaleTruncation(t *testing.T) {
	long := make([]rune, 0, 400)
	for i := 0; i < 400; i++ {
		long = append(long, 'x')
	}
	r := model.GrantResult{
		Status:    model.StatusIneligible,
		Reasoning: []string{"❌ " + string(long)},
	}
	assert.LessOrEqual(t, len([]rune(rationale(r))), 200)
}
