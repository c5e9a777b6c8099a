// Package extract parses semi-structured document text into typed,
// schema-validated fields with per-field confidence and provenance. One
// extractor exists per document type; all of them are total functions that
// return a well-shaped envelope for any input, including empty or binary
// garbage.
package extract

import (
	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/model"
)

// UntypedKey is the doc_type reported by the generic fallback extractor.
const UntypedKey = "untyped"

// Extractor parses one document type's raw text into the extraction
// envelope. Extract must never panic; absence of a field means the field is
// omitted from the result, not defaulted to an empty string.
type Extractor interface {
	Key() string
	Extract(text string) *model.ExtractionResult
}

// Registry is the static map from document type key to extractor. It is
// built once at startup by explicit registration; there is no dynamic
// dispatch by name.
type Registry struct {
	byKey    map[string]Extractor
	dayFirst bool
}

// Option configures the registry.
type Option func(*Registry)

// WithDayFirstDates makes every extractor read ambiguous numeric dates
// as day/month/year instead of the US month/day/year default.
func WithDayFirstDates(enabled bool) Option {
	return func(r *Registry) { r.dayFirst = enabled }
}

// NewRegistry wires every built-in extractor against the catalog's field
// alias tables.
func NewRegistry(cat *catalog.Catalog, opts ...Option) *Registry {
	r := &Registry{byKey: make(map[string]Extractor)}
	for _, opt := range opts {
		opt(r)
	}

	r.register(NewForm941(cat.FieldAliases("form_941")))
	r.register(NewBankStatement(cat.FieldAliases("bank_statement"), r.dayFirst))
	r.register(NewPayrollRegister(cat.FieldAliases("payroll_register"), r.dayFirst))
	r.register(NewForm1099Summary(cat.FieldAliases("form_1099_summary")))
	r.register(NewW9(cat.FieldAliases("w9")))
	r.register(NewProfitLoss(cat.FieldAliases("profit_loss"), r.dayFirst))
	r.register(NewGeneric(r.dayFirst))

	// One extractor serves the whole veteran-certification family; the
	// detector's sub-type override decides which key it runs under.
	for _, key := range []string{"veteran_cert", "veteran_cert_dd214", "veteran_cert_vba"} {
		r.byKey[key] = NewVeteranCert(key, r.dayFirst)
	}

	return r
}

func (r *Registry) register(e Extractor) {
	r.byKey[e.Key()] = e
}

// Lookup returns the extractor for a document type key.
func (r *Registry) Lookup(key string) (Extractor, bool) {
	e, ok := r.byKey[key]
	return e, ok
}

// confidence implements the additive scoring rule shared by all
// extractors: a base, a per-field bump for structurally important fields,
// a cap, and a penalty proportional to the warning count floored at 0.3.
func confidence(base, perField, ceiling float64, fieldsFound, warnings int) float64 {
	score := base + perField*float64(fieldsFound)
	if score > ceiling {
		score = ceiling
	}
	score -= 0.1 * float64(warnings)
	if score < 0.3 {
		score = 0.3
	}
	return score
}
