// Package eligibility evaluates an applicant profile against every grant in
// the catalog and produces the ranked eligibility report.
package eligibility

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
	"github.com/harvestfund/granary/internal/rules"
)

// rationaleMaxLen bounds the one-line summary on every grant result.
const rationaleMaxLen = 200

// FallbackGrantName is the synthesized result returned when no catalog
// grant produces a positive estimated award.
const FallbackGrantName = "General Support Grant"

// Engine runs eligibility analysis over the grant catalog.
type Engine struct {
	catalog *catalog.Catalog
}

// New creates an eligibility engine.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{catalog: cat}
}

// Analyze evaluates the profile against every grant and aggregates the
// per-grant results, missing fields, and required forms. The raw profile
// may use document or free-form field names; keys are canonicalized first.
func (e *Engine) Analyze(raw map[string]any) model.EligibilityReport {
	profile := e.NormalizeProfile(raw)

	report := model.EligibilityReport{
		Results:       []model.GrantResult{},
		MissingFields: []string{},
		RequiredForms: []string{},
	}

	for _, grant := range e.catalog.Grants() {
		result, skipped := e.evaluateGrant(grant, profile)
		if skipped {
			slog.Debug("grant skipped, no required field present",
				"grant", grant.Key)
			continue
		}
		report.Results = append(report.Results, result)

		for _, f := range result.MissingFields {
			report.MissingFields = appendUnique(report.MissingFields, f)
		}
		if result.Status != model.StatusIneligible {
			for _, form := range grant.RequiredForms {
				report.RequiredForms = appendUnique(report.RequiredForms, form)
			}
		}
	}

	if !anyPositiveAward(report.Results) {
		fallback := e.fallbackResult(profile)
		report.Results = append(report.Results, fallback)
	}

	if len(profile.Tags()) > 0 {
		sort.SliceStable(report.Results, func(i, j int) bool {
			return report.Results[i].Score > report.Results[j].Score
		})
	}
	return report
}

// evaluateGrant runs one grant's full pipeline: required-field gate, rule
// tree, industry gate, award estimate, rationale. The second return is true
// when the grant is excluded from results entirely.
func (e *Engine) evaluateGrant(grant model.GrantDefinition, profile model.Profile) (model.GrantResult, bool) {
	if allFieldsAbsent(grant.RequiredFields, profile) {
		return model.GrantResult{}, true
	}

	eval := rules.Evaluate(grant.Rules, profile)
	e.applyIndustryGate(grant, profile, &eval)

	result := model.GrantResult{
		Name:          grant.Name,
		Eligible:      eval.Eligible,
		Score:         eval.Score,
		Reasoning:     eval.Reasoning,
		MissingFields: eval.MissingFields,
		Status:        eval.Status,
		TagScore:      tagOverlap(profile.Tags(), grant.Tags),
	}
	if eval.SelectedGroup != "" {
		result.Debug = map[string]any{"selected_group": eval.SelectedGroup}
	}

	// Only a fully eligible result carries an award estimate; a conditional
	// one cannot promise an amount when the inputs that size it may be the
	// very fields that are missing.
	if eval.Status == model.StatusEligible {
		award := grant.Award
		if override := rules.SelectedAward(grant.Rules, eval); override != nil {
			award = *override
		}
		estimate := rules.EstimateAward(profile, award)
		result.EstimatedAmount = estimate.Amount
		if estimate.Carryforward > 0 {
			if result.Debug == nil {
				result.Debug = map[string]any{}
			}
			result.Debug["carryforward"] = estimate.Carryforward
		}
	}

	result.Rationale = rationale(result)
	return result, false
}

// applyIndustryGate cross-checks the profile's NAICS family against the
// grant's allow-list after the rule tree has run. A checked mismatch is a
// hard failure; an uncheckable industry downgrades a pass to conditional.
func (e *Engine) applyIndustryGate(grant model.GrantDefinition, profile model.Profile, eval *model.RuleEvaluationResult) {
	if len(grant.EligibleIndustries) == 0 {
		return
	}

	family, checkable := industryFamily(profile)
	if checkable {
		for _, allowed := range grant.EligibleIndustries {
			if family == allowed {
				return
			}
		}
		eval.Eligible = model.BoolPtr(false)
		eval.Status = model.StatusIneligible
		eval.Reasoning = append(eval.Reasoning,
			fmt.Sprintf("❌ industry %s not in eligible industries %v", family, grant.EligibleIndustries))
		return
	}

	// Industry could not be determined at all. A grant that looked
	// eligible becomes conditional rather than failing outright.
	if eval.Status == model.StatusEligible {
		eval.Eligible = nil
		eval.Status = model.StatusConditional
	}
	eval.MissingFields = appendUnique(eval.MissingFields, "business_industry_naics")
	eval.Reasoning = append(eval.Reasoning,
		"missing \"business_industry_naics\" needed to check industry eligibility")
}

// industryFamily resolves the profile's 3-digit NAICS family, consulting
// the declared code first and free-text inference second.
func industryFamily(profile model.Profile) (string, bool) {
	if v, ok := profile["business_industry_naics"]; ok {
		if family, ok := normalize.NAICSFamily(fmt.Sprintf("%v", v)); ok {
			return family, true
		}
	}
	if family, confident := InferNAICS(profile); confident {
		return family, true
	}
	return "", false
}

// fallbackResult synthesizes the General Support Grant: a heuristic award
// of 10% of payroll, or revenue scaled by the reported revenue drop,
// floored at $1,000 and defaulting to $5,000 when neither input exists.
func (e *Engine) fallbackResult(profile model.Profile) model.GrantResult {
	amount := 5000.0
	switch {
	case profile.Has("annual_payroll"):
		if payroll, ok := normalize.Number(profile["annual_payroll"]); ok {
			amount = payroll * 0.10
		}
	case profile.Has("annual_revenue") && profile.Has("revenue_drop_percent"):
		revenue, rok := normalize.Number(profile["annual_revenue"])
		drop, dok := normalize.Number(profile["revenue_drop_percent"])
		if rok && dok {
			amount = revenue * drop / 100
		}
	}
	if amount < 1000 {
		amount = 1000
	}

	return model.GrantResult{
		Name:            FallbackGrantName,
		Eligible:        nil,
		Status:          model.StatusConditional,
		EstimatedAmount: amount,
		Reasoning:       []string{"No specific grant matched; general support may be available pending review"},
		MissingFields:   []string{},
		Rationale:       "Additional information needed to match specific grant programs",
	}
}

// NormalizeProfile canonicalizes raw profile keys through the profile
// alias table and normalizes well-known value shapes. Unrecognized keys
// pass through untouched so rule authors can target them directly.
func (e *Engine) NormalizeProfile(raw map[string]any) model.Profile {
	resolver := e.catalog.ProfileAliases()
	profile := make(model.Profile, len(raw))

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		canonical := key
		if resolved, ok := resolver.Resolve(key); ok {
			canonical = resolved
		}
		// A canonical key set directly always beats an aliased duplicate.
		if existing, ok := profile[canonical]; ok && !normalize.IsEmptyValue(existing) {
			continue
		}
		profile[canonical] = normalizeValue(canonical, value)
	}
	return profile
}

func normalizeValue(key string, value any) any {
	switch key {
	case "business_state":
		if s, ok := value.(string); ok {
			if code, ok := normalize.State(s); ok {
				return code
			}
		}
	case "veteran_owned", "minority_owned", "woman_owned":
		if s, ok := value.(string); ok {
			if b, ok := normalize.Bool(s); ok {
				return b
			}
			// Document extraction reports status words, not yes/no.
			if s == "veteran" {
				return true
			}
		}
	}
	return value
}

func allFieldsAbsent(fields []string, profile model.Profile) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if v, ok := profile[f]; ok && !normalize.IsEmptyValue(v) {
			return false
		}
	}
	return true
}

func anyPositiveAward(results []model.GrantResult) bool {
	for _, r := range results {
		if r.EstimatedAmount > 0 {
			return true
		}
	}
	return false
}

func tagOverlap(profileTags, grantTags []string) int {
	if len(profileTags) == 0 {
		return 0
	}
	set := make(map[string]bool, len(profileTags))
	for _, t := range profileTags {
		set[t] = true
	}
	overlap := 0
	for _, t := range grantTags {
		if set[t] {
			overlap++
		}
	}
	return overlap
}

// rationale derives the ≤200-character summary line from the result.
func rationale(r model.GrantResult) string {
	var line string
	switch r.Status {
	case model.StatusEligible:
		line = "Meets all eligibility criteria"
	case model.StatusConditional:
		if len(r.MissingFields) > 0 {
			line = fmt.Sprintf("Missing information: %s", r.MissingFields[0])
		} else {
			line = "Additional information needed"
		}
	default:
		line = firstFailureLine(r.Reasoning)
	}
	return truncate(line, rationaleMaxLen)
}

func firstFailureLine(reasoning []string) string {
	for _, line := range reasoning {
		if strings.HasPrefix(line, "❌") {
			return line
		}
	}
	return "Does not meet eligibility criteria"
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
