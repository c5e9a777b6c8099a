package cli

import (
	"testing"

	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus(model.StatusEligible), "eligible")
	assert.Contains(t, FormatStatus(model.StatusConditional), "conditional")
	assert.Contains(t, FormatStatus(model.StatusIneligible), "ineligible")
	assert.Equal(t, "other", FormatStatus(model.EligibilityStatus("other")))
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(40000), "$40000.00")
	assert.Contains(t, FormatAmount(0), "-")
}

func TestRenderBox(t *testing.T) {
	out := RenderBox("Results", "line one")
	assert.Contains(t, out, "Results")
	assert.Contains(t, out, "line one")
}
