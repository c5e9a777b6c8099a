package formfill

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harvestfund/granary/internal/model"
)

// flatTemplate is a form template with every nested section folded into a
// single ordered field list. Flattening returns a fresh accumulator rather
// than mutating shared state, so a field resolved while walking one section
// cannot be silently overwritten by a later one.
type flatTemplate struct {
	Fields           map[string]model.FieldSpec
	FieldOrder       []string
	Optional         map[string]any
	Computed         map[string]string
	ComputedOrder    []string
	Conditionals     map[string]model.ConditionalField
	ConditionalOrder []string
}

func flattenTemplate(t *model.FormTemplate) *flatTemplate {
	flat := &flatTemplate{
		Fields:       make(map[string]model.FieldSpec),
		Optional:     make(map[string]any),
		Computed:     make(map[string]string),
		Conditionals: make(map[string]model.ConditionalField),
	}
	accumulate(flat, t)

	flat.ConditionalOrder = make([]string, 0, len(flat.Conditionals))
	for key := range flat.Conditionals {
		flat.ConditionalOrder = append(flat.ConditionalOrder, key)
	}
	sort.Strings(flat.ConditionalOrder)
	return flat
}

func accumulate(flat *flatTemplate, t *model.FormTemplate) {
	for _, key := range t.FieldOrder {
		if _, seen := flat.Fields[key]; seen {
			// First declaration wins; a later section cannot redefine a field.
			continue
		}
		flat.Fields[key] = t.Fields[key]
		flat.FieldOrder = append(flat.FieldOrder, key)
	}
	for key, def := range t.OptionalFields {
		if _, seen := flat.Optional[key]; !seen {
			flat.Optional[key] = def
		}
	}
	for _, key := range t.ComputedOrder {
		if _, seen := flat.Computed[key]; seen {
			continue
		}
		flat.Computed[key] = t.ComputedFields[key]
		flat.ComputedOrder = append(flat.ComputedOrder, key)
	}
	for key, cond := range t.ConditionalFields {
		if _, seen := flat.Conditionals[key]; !seen {
			flat.Conditionals[key] = cond
		}
	}
	for i := range t.Sections {
		accumulate(flat, &t.Sections[i])
	}
}

// entityCorporate and entityIndividual classify the canonical entity_type
// values for checkbox derivation.
var (
	entityCorporate  = map[string]bool{"corporation": true, "s_corporation": true, "llc": true}
	entityIndividual = map[string]bool{"sole_proprietor": true, "individual": true}
)

// deriveCheckboxes sets boolean one-hot fields from canonical categorical
// answers: entity_type drives entity_* checkboxes, assistance_type drives
// assistance_<value> flags. Only template-declared checkbox fields that are
// still unset are touched.
func deriveCheckboxes(flat *flatTemplate, working map[string]any, sources map[string]string, filled *model.FilledForm) {
	set := func(key string, value bool) {
		spec, declared := flat.Fields[key]
		if !declared || spec.Type != model.FieldCheckbox {
			return
		}
		if _, exists := working[key]; exists {
			return
		}
		working[key] = value
		sources[key] = model.SourceGenerated
		filled.ReasoningLog = append(filled.ReasoningLog,
			fmt.Sprintf("derived checkbox %q = %t", key, value))
	}

	if entity, ok := working["entity_type"].(string); ok {
		entity = strings.ToLower(strings.TrimSpace(entity))
		set("entity_corporate", entityCorporate[entity])
		set("entity_individual", entityIndividual[entity])
	}

	if assistance, ok := working["assistance_type"].(string); ok {
		assistance = strings.ToLower(strings.TrimSpace(assistance))
		for _, key := range flat.FieldOrder {
			if strings.HasPrefix(key, "assistance_") && key != "assistance_type" {
				set(key, key == "assistance_"+assistance)
			}
		}
	}
}
