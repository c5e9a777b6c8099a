// Package rules evaluates grant eligibility rule sets against an applicant
// profile and computes award estimates. Evaluation is pure: no I/O, no
// mutation of the profile, deterministic output for a given input.
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// Evaluate runs a rule set against a profile. Flat rule sets evaluate every
// rule; grouped sets evaluate each tier independently and select the first
// fully eligible group, or the highest-scoring partial when none succeeds.
func Evaluate(rs model.RuleSet, profile model.Profile) model.RuleEvaluationResult {
	if rs.Grouped() {
		return evaluateGroups(rs.Groups, profile)
	}
	return evaluateFlat(rs.Flat, profile)
}

// SelectedAward returns the award override of the group a grouped
// evaluation selected, if any.
func SelectedAward(rs model.RuleSet, result model.RuleEvaluationResult) *model.AwardSpec {
	if result.SelectedGroup == "" {
		return nil
	}
	for i := range rs.Groups {
		if rs.Groups[i].Name == result.SelectedGroup {
			return rs.Groups[i].Award
		}
	}
	return nil
}

func evaluateFlat(ruleMap map[string]any, profile model.Profile) model.RuleEvaluationResult {
	res := model.RuleEvaluationResult{
		Reasoning:     []string{},
		MissingFields: []string{},
	}
	if len(ruleMap) == 0 {
		res.Eligible = model.BoolPtr(true)
		res.Status = model.StatusEligible
		res.Score = 100
		res.Certainty = model.CertaintyLow
		return res
	}

	keys := make([]string, 0, len(ruleMap))
	for k := range ruleMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	passed, failed, missing := 0, 0, 0
	for _, key := range keys {
		outcome := checkRule(key, ruleMap[key], profile)
		res.Reasoning = append(res.Reasoning, outcome.line)
		switch {
		case outcome.missing:
			missing++
			res.MissingFields = appendUnique(res.MissingFields, outcome.field)
		case outcome.passed:
			passed++
			res.CheckedRules++
		default:
			failed++
			res.CheckedRules++
		}
	}

	total := len(ruleMap)
	res.Score = 100 * passed / total

	switch {
	case failed > 0:
		res.Eligible = model.BoolPtr(false)
		res.Status = model.StatusIneligible
	case missing > 0:
		res.Eligible = nil
		res.Status = model.StatusConditional
	default:
		res.Eligible = model.BoolPtr(true)
		res.Status = model.StatusEligible
	}

	res.Certainty = certaintyFor(missing, total)
	return res
}

func evaluateGroups(groups []model.RuleGroup, profile model.Profile) model.RuleEvaluationResult {
	var best model.RuleEvaluationResult
	bestIdx := -1

	for i, group := range groups {
		res := evaluateFlat(group.Rules, profile)
		res.SelectedGroup = group.Name
		if res.Status == model.StatusEligible {
			return res
		}
		if bestIdx < 0 || res.Score > best.Score {
			best, bestIdx = res, i
		}
	}

	if bestIdx < 0 {
		// No groups declared at all; treat as trivially eligible like an
		// empty flat set.
		return evaluateFlat(nil, profile)
	}
	return best
}

func certaintyFor(missing, total int) model.Certainty {
	switch {
	case missing == 0:
		return model.CertaintyHigh
	case missing*2 < total:
		return model.CertaintyMedium
	default:
		return model.CertaintyLow
	}
}

// ruleOutcome is the result of checking a single rule.
type ruleOutcome struct {
	passed  bool
	missing bool
	field   string
	line    string
}

// checkRule applies one rule to the profile. Keys ending in _min/_max are
// numeric thresholds against the same-named base field; a list value means
// membership; anything else is loose equality.
func checkRule(key string, expected any, profile model.Profile) ruleOutcome {
	field, op := key, "eq"
	switch {
	case strings.HasSuffix(key, "_min"):
		field, op = strings.TrimSuffix(key, "_min"), "min"
	case strings.HasSuffix(key, "_max"):
		field, op = strings.TrimSuffix(key, "_max"), "max"
	}

	actual, ok := profile[field]
	if !ok || normalize.IsEmptyValue(actual) {
		return ruleOutcome{
			missing: true,
			field:   field,
			line:    fmt.Sprintf("missing %q needed to evaluate %s", field, key),
		}
	}

	switch op {
	case "min", "max":
		threshold, tok := normalize.Number(expected)
		value, vok := normalize.Number(actual)
		if !tok || !vok {
			return ruleOutcome{
				missing: true,
				field:   field,
				line:    fmt.Sprintf("missing %q needed to evaluate %s", field, key),
			}
		}
		pass := value >= threshold
		symbol := ">="
		if op == "max" {
			pass = value <= threshold
			symbol = "<="
		}
		return ruleOutcome{
			passed: pass,
			field:  field,
			line:   fmt.Sprintf("%s %s %s %s (have %s)", mark(pass), field, symbol, fmtValue(expected), fmtValue(actual)),
		}

	default:
		if list, isList := expected.([]any); isList {
			pass := false
			for _, member := range list {
				if looseEqual(actual, member) {
					pass = true
					break
				}
			}
			return ruleOutcome{
				passed: pass,
				field:  field,
				line:   fmt.Sprintf("%s %s in %v (have %s)", mark(pass), field, expected, fmtValue(actual)),
			}
		}

		pass := looseEqual(actual, expected)
		return ruleOutcome{
			passed: pass,
			field:  field,
			line:   fmt.Sprintf("%s %s == %s (have %s)", mark(pass), field, fmtValue(expected), fmtValue(actual)),
		}
	}
}

// fmtValue renders rule operands without scientific notation so reasoning
// lines stay readable.
func fmtValue(v any) string {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(f), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func mark(pass bool) string {
	if pass {
		return "✅"
	}
	return "❌"
}

// looseEqual compares a profile value against a rule value, tolerating the
// type drift JSON and form input introduce: numbers compare numerically,
// booleans accept yes/no strings, and everything else compares as folded
// strings.
func looseEqual(actual, expected any) bool {
	if an, aok := normalize.Number(actual); aok {
		if en, eok := normalize.Number(expected); eok {
			return an == en
		}
	}

	if eb, ok := expected.(bool); ok {
		switch av := actual.(type) {
		case bool:
			return av == eb
		case string:
			if ab, ok := normalize.Bool(av); ok {
				return ab == eb
			}
		}
		return false
	}

	return strings.EqualFold(
		strings.TrimSpace(fmt.Sprintf("%v", actual)),
		strings.TrimSpace(fmt.Sprintf("%v", expected)),
	)
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
