package catalog

import (
	"testing"

	"github.com/harvestfund/granary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Documents())
	assert.NotEmpty(t, c.Grants())
	assert.NotEmpty(t, c.FormKeys())
}

func TestDocumentLookup(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	def, ok := c.Document("form_941")
	require.True(t, ok)
	assert.Equal(t, "tax_form", def.Family)
	assert.True(t, def.HasSchemaField("payroll.wages_total"))

	// Alias lookup is case-insensitive.
	byAlias, ok := c.Document("941")
	require.True(t, ok)
	assert.Equal(t, def.Key, byAlias.Key)

	byAlias, ok = c.Document("DD-214")
	require.True(t, ok)
	assert.Equal(t, "veteran_cert_dd214", byAlias.Key)

	_, ok = c.Document("no_such_doc")
	assert.False(t, ok)
}

func TestGrantRuleShapes(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	flat, ok := c.Grant("small_business_relief")
	require.True(t, ok)
	assert.False(t, flat.Rules.Grouped())
	assert.Contains(t, flat.Rules.Flat, "employee_count_max")

	grouped, ok := c.Grant("rd_payroll_credit")
	require.True(t, ok)
	require.True(t, grouped.Rules.Grouped())
	assert.Equal(t, "qualified_small_business", grouped.Rules.Groups[0].Name)
	require.NotNil(t, grouped.Rules.Groups[0].Award)
	assert.Equal(t, "credit", grouped.Rules.Groups[0].Award.Type)
}

func TestFormTemplateShapes(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	// form wrapper + fields-as-map shape
	f8974, ok := c.Form("form_8974")
	require.True(t, ok)
	assert.Contains(t, f8974.Fields, "line7")
	// Computed order preserves declaration order: line10 before line11.
	assert.Equal(t, []string{"line10", "line11"}, f8974.ComputedOrder)

	// fields-as-list shape
	f6765, ok := c.Form("form_6765")
	require.True(t, ok)
	assert.Contains(t, f6765.Fields, "total_qre")
	assert.Equal(t, "business_name", f6765.FieldOrder[0])

	// nested sections
	micro, ok := c.Form("sba_microloan")
	require.True(t, ok)
	require.Len(t, micro.Sections, 3)
	assert.Contains(t, micro.Sections[0].Fields, "ein")
	assert.Contains(t, micro.ConditionalFields, "entity_corporate")
}

func TestParseGroups_MapShape(t *testing.T) {
	groups, err := parseGroups([]byte(`{
		"tier_b": {"rules": {"x_min": 1}},
		"tier_a": {"rules": {"y_min": 2}}
	}`))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	// Map shape sorts by name for determinism.
	assert.Equal(t, "tier_a", groups[0].Name)
	assert.Equal(t, "tier_b", groups[1].Name)
}

func TestProfileAliases(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	canonical, ok := c.ProfileAliases().Resolve("revenue.total")
	require.True(t, ok)
	assert.Equal(t, "annual_revenue", canonical)
}

func TestFieldAliases(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	r := c.FieldAliases("payroll_register")
	canonical, ok := r.MatchColumn("Gross Pay")
	require.True(t, ok)
	assert.Equal(t, "employees.gross_pay", canonical)
}

func TestGrantValidationRejectsBothShapes(t *testing.T) {
	def := model.GrantDefinition{
		Key:  "bad",
		Name: "Bad",
		Rules: model.RuleSet{
			Flat:   map[string]any{"a_min": 1},
			Groups: []model.RuleGroup{{Name: "g"}},
		},
	}
	assert.Error(t, def.Validate())
}
