package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harvestfund/granary/internal/model"
)

// rawGrant mirrors the catalog JSON, which carries either a flat rule map
// (eligibility_rules) or tiered groups (eligibility_categories). The two are
// normalized into model.RuleSet at load so evaluation sees one shape.
type rawGrant struct {
	Key                string          `json:"key"`
	Name               string          `json:"name"`
	Tags               []string        `json:"tags"`
	RequiredFields     []string        `json:"required_fields"`
	EligibilityRules   map[string]any  `json:"eligibility_rules"`
	Categories         json.RawMessage `json:"eligibility_categories"`
	Award              model.AwardSpec `json:"estimated_award"`
	RequiredForms      []string        `json:"requiredForms"`
	EligibleIndustries []string        `json:"eligible_industries"`
}

type rawGroup struct {
	Name  string           `json:"name"`
	Rules map[string]any   `json:"rules"`
	Award *model.AwardSpec `json:"estimated_award"`
}

func (c *Catalog) loadGrants() error {
	raw, err := dataFS.ReadFile("data/grants.json")
	if err != nil {
		return err
	}

	var entries []rawGrant
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("invalid grants.json: %w", err)
	}

	for _, entry := range entries {
		def := model.GrantDefinition{
			Key:                entry.Key,
			Name:               entry.Name,
			Tags:               entry.Tags,
			RequiredFields:     entry.RequiredFields,
			Award:              entry.Award,
			RequiredForms:      entry.RequiredForms,
			EligibleIndustries: entry.EligibleIndustries,
		}

		groups, err := parseGroups(entry.Categories)
		if err != nil {
			return fmt.Errorf("grant %q: %w", entry.Key, err)
		}

		switch {
		case len(groups) > 0 && len(entry.EligibilityRules) > 0:
			return fmt.Errorf("grant %q: eligibility_rules and eligibility_categories are mutually exclusive", entry.Key)
		case len(groups) > 0:
			def.Rules = model.RuleSet{Groups: groups}
		default:
			def.Rules = model.RuleSet{Flat: entry.EligibilityRules}
		}

		if err := def.Validate(); err != nil {
			return err
		}

		c.grants = append(c.grants, def)
	}

	// Index after the slice has stopped growing so pointers stay valid.
	for i := range c.grants {
		key := strings.ToLower(c.grants[i].Key)
		if _, dup := c.grantsByKey[key]; dup {
			return fmt.Errorf("duplicate grant key %q", c.grants[i].Key)
		}
		c.grantsByKey[key] = &c.grants[i]
	}

	return nil
}

// parseGroups accepts both group shapes: an ordered list of named group
// objects, or a mapping of group name to group body. Map form loses source
// order, so its groups are sorted by name for determinism.
func parseGroups(raw json.RawMessage) ([]model.RuleGroup, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var asList []rawGroup
	if err := json.Unmarshal(raw, &asList); err == nil {
		groups := make([]model.RuleGroup, 0, len(asList))
		for _, g := range asList {
			if g.Name == "" {
				return nil, fmt.Errorf("eligibility category missing name")
			}
			groups = append(groups, model.RuleGroup{Name: g.Name, Rules: g.Rules, Award: g.Award})
		}
		return groups, nil
	}

	var asMap map[string]rawGroup
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("eligibility_categories must be a list or mapping: %w", err)
	}

	names := make([]string, 0, len(asMap))
	for name := range asMap {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]model.RuleGroup, 0, len(names))
	for _, name := range names {
		g := asMap[name]
		groups = append(groups, model.RuleGroup{Name: name, Rules: g.Rules, Award: g.Award})
	}
	return groups, nil
}
