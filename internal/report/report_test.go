package report

import (
	"testing"

	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *model.EligibilityReport {
	return &model.EligibilityReport{
		Results: []model.GrantResult{
			{
				Name:            "Small Business Relief Grant",
				Eligible:        model.BoolPtr(true),
				Score:           100,
				EstimatedAmount: 40000,
				Status:          model.StatusEligible,
				Rationale:       "Meets all eligibility criteria",
				Reasoning:       []string{"✅ annual_revenue <= 2000000 (have 400000)"},
			},
			{
				Name:          "Restaurant Revitalization Fund",
				Score:         50,
				Status:        model.StatusConditional,
				Rationale:     "Missing information: revenue_drop_percent",
				MissingFields: []string{"revenue_drop_percent"},
			},
		},
		MissingFields: []string{"revenue_drop_percent"},
		RequiredForms: []string{"sba_microloan"},
	}
}

func TestEligibilityMarkdown(t *testing.T) {
	md := EligibilityMarkdown(sampleReport())

	assert.Contains(t, md, "# Grant Eligibility Report")
	assert.Contains(t, md, "| Small Business Relief Grant | Eligible | 100 | $40000.00 |")
	assert.Contains(t, md, "| Restaurant Revitalization Fund | Conditional | 50 | - |")
	assert.Contains(t, md, "## Information Needed")
	assert.Contains(t, md, "- revenue_drop_percent")
	assert.Contains(t, md, "## Required Forms")
	assert.Contains(t, md, "- sba_microloan")
}

func TestEligibilityMarkdown_Empty(t *testing.T) {
	md := EligibilityMarkdown(&model.EligibilityReport{})
	assert.Contains(t, md, "No grant programs were evaluated.")
}

func TestExtractionMarkdown(t *testing.T) {
	res := model.NewExtractionResult("form_941")
	res.Confidence = 0.85
	res.SetField("ein", "12-3456789", "12-3456789", 0.9, model.FieldSource{Location: "line 2"})
	res.Warn("gross_total_mismatch")

	md := ExtractionMarkdown(res)

	assert.Contains(t, md, "**Detected type:** form_941")
	assert.Contains(t, md, "| ein | 12-3456789 | 0.90 |")
	assert.Contains(t, md, "- gross_total_mismatch")
}

func TestHTML_RendersTables(t *testing.T) {
	html, err := HTML(EligibilityMarkdown(sampleReport()))
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Grant Eligibility Report</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "Small Business Relief Grant")
}
