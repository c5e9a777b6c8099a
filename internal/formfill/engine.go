// Package formfill populates grant application form templates from user
// data, analyzer output, and attached documents, with template-authored
// computed and conditional fields evaluated in a sandboxed expression
// grammar.
package formfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/common"
	"github.com/harvestfund/granary/internal/detect"
	"github.com/harvestfund/granary/internal/expr"
	"github.com/harvestfund/granary/internal/extract"
	"github.com/harvestfund/granary/internal/merge"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// Completer generates free-text field values when nothing else can. A
// disabled implementation returns empty strings.
type Completer interface {
	Complete(ctx context.Context, prompt, contextText string) (string, error)
}

// Engine fills form templates.
type Engine struct {
	catalog    *catalog.Catalog
	detector   *detect.Detector
	registry   *extract.Registry
	completer  Completer
	fixtureDir string
	dayFirst   bool
	now        func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithCompleter supplies a text generator for unfilled free-text fields.
func WithCompleter(c Completer) Option {
	return func(e *Engine) { e.completer = c }
}

// WithFixtureDir points file-upload synthesis at a local directory of
// supporting documents.
func WithFixtureDir(dir string) Option {
	return func(e *Engine) { e.fixtureDir = dir }
}

// WithDayFirstDates makes attachment extraction read ambiguous numeric
// dates as day/month/year instead of the US month/day/year default.
func WithDayFirstDates(enabled bool) Option {
	return func(e *Engine) { e.dayFirst = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a form-fill engine over the catalog. The extractor registry
// is built after the options apply so date preferences reach the
// extractors.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		detector: detect.New(cat),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = extract.NewRegistry(cat, extract.WithDayFirstDates(e.dayFirst))
	return e
}

// Fill populates the named form. data is the user's explicit answers;
// analyzerFields (optional) backfills gaps from prior document analysis;
// fileBytes (optional) is a supporting document to extract and merge the
// same way. The returned form is always well-shaped; per-field failures
// degrade to empty values and reasoning-log entries, never to an error.
func (e *Engine) Fill(ctx context.Context, formKey string, data, analyzerFields map[string]any, fileBytes []byte) (*model.FilledForm, error) {
	template, ok := e.catalog.Form(formKey)
	if !ok {
		return nil, fmt.Errorf("form %q: %w", formKey, common.ErrUnknownForm)
	}

	filled := &model.FilledForm{
		Fields:         make(map[string]any),
		Files:          make(map[string]string),
		Sources:        make(map[string]string),
		ReasoningLog:   []string{},
		MissingKeys:    []string{},
		CalcMismatches: []string{},
	}

	// Step 1: backfill user data with analyzer output, gaps only.
	working, steps := merge.Merge(data, analyzerFields)
	sources := make(map[string]string, len(working))
	for key := range data {
		sources[key] = model.SourceUser
	}
	for key := range working {
		if _, fromUser := sources[key]; !fromUser {
			sources[key] = model.SourceInferred
		}
	}
	for _, s := range steps {
		filled.ReasoningLog = append(filled.ReasoningLog, "analyzer backfill: "+s)
	}

	// Step 2: extract an attached document and merge it the same way.
	if len(fileBytes) > 0 {
		e.mergeFileFields(working, sources, fileBytes, filled)
	}

	// Step 3: flatten nested sections into one ordered field list.
	flat := flattenTemplate(template)

	// Step 4: derive checkbox one-hots from categorical answers.
	deriveCheckboxes(flat, working, sources, filled)

	// Steps 5-6: computed then conditional template expressions.
	e.applyComputedFields(flat, working, sources, filled)
	e.applyConditionalFields(flat, working, sources, filled)

	// Step 7: resolve every declared field through the value chain.
	e.resolveFields(ctx, flat, working, sources, filled)

	// Step 9: arithmetic post-validation for known government forms.
	e.postValidate(formKey, filled)

	filled.RequiredOK = len(filled.MissingKeys) == 0
	return filled, nil
}

// mergeFileFields runs document extraction over an attachment and merges
// the extracted fields gaps-only. Extraction problems are logged and
// swallowed; the fill continues with what it has.
func (e *Engine) mergeFileFields(working map[string]any, sources map[string]string, fileBytes []byte, filled *model.FilledForm) {
	var result *model.ExtractionResult

	if extract.IsOFX(fileBytes) {
		parsed, err := extract.NewOFXExtractor().Parse(fileBytes)
		if err != nil {
			slog.Warn("attachment OFX parse failed, falling back to text extraction", "error", err)
		} else {
			result = parsed
		}
	}
	if result == nil {
		text := string(fileBytes)
		detection := e.detector.Identify(text, "")
		key := detection.TypeKey
		if !detection.Matched() || detection.Confidence < detect.ConfidenceThreshold {
			key = extract.UntypedKey
		}
		extractor, ok := e.registry.Lookup(key)
		if !ok {
			extractor, _ = e.registry.Lookup(extract.UntypedKey)
		}
		result = extractor.Extract(text)
	}

	// Extracted fields use dotted schema paths; expose each one under its
	// canonical profile name too so form fields like business_name fill
	// from a document's business.name.
	resolver := e.catalog.ProfileAliases()
	inferred := make(map[string]any, len(result.FieldsClean)*2)
	for key, value := range result.FieldsClean {
		inferred[key] = value
		if canonical, ok := resolver.Resolve(key); ok && canonical != key {
			if _, taken := inferred[canonical]; !taken {
				inferred[canonical] = value
			}
		}
	}

	merged, steps := merge.Merge(working, inferred)
	for key, value := range merged {
		if _, had := working[key]; !had {
			sources[key] = model.SourceFile
		}
		working[key] = value
	}
	for _, s := range steps {
		filled.ReasoningLog = append(filled.ReasoningLog, "attachment: "+s)
	}
}

// applyComputedFields evaluates computed_fields expressions in declaration
// order with current_year available. Evaluation errors degrade to an empty
// string for that field only.
func (e *Engine) applyComputedFields(flat *flatTemplate, working map[string]any, sources map[string]string, filled *model.FilledForm) {
	for _, key := range flat.ComputedOrder {
		source := flat.Computed[key]
		// An explicit user answer survives the computed pass; known forms
		// reconcile it against the formula in post-validation instead.
		if existing, ok := working[key]; ok && !normalize.IsEmptyValue(existing) && sources[key] == model.SourceUser {
			filled.ReasoningLog = append(filled.ReasoningLog,
				fmt.Sprintf("computed field %q: kept user value", key))
			continue
		}
		value, err := expr.Eval(source, e.exprContext(working))
		if err != nil {
			slog.Warn("computed field failed, degrading to empty",
				"field", key, "error", err)
			filled.ReasoningLog = append(filled.ReasoningLog,
				fmt.Sprintf("computed field %q: expression error, set empty", key))
			working[key] = ""
			sources[key] = model.SourceGenerated
			continue
		}
		working[key] = value
		sources[key] = model.SourceGenerated
		filled.ReasoningLog = append(filled.ReasoningLog,
			fmt.Sprintf("computed field %q from %q", key, source))
	}
}

// applyConditionalFields sets each conditional field's configured value
// when its expression is truthy. A string value naming an existing working
// field copies that field; anything else is literal.
func (e *Engine) applyConditionalFields(flat *flatTemplate, working map[string]any, sources map[string]string, filled *model.FilledForm) {
	for _, key := range flat.ConditionalOrder {
		cond := flat.Conditionals[key]
		on, err := expr.EvalTruthy(cond.If, e.exprContext(working))
		if err != nil {
			slog.Warn("conditional field expression failed, skipping",
				"field", key, "error", err)
			continue
		}
		if !on {
			continue
		}
		value := cond.Value
		if ref, ok := value.(string); ok {
			if referenced, exists := working[ref]; exists {
				value = referenced
			}
		}
		working[key] = value
		sources[key] = model.SourceGenerated
		filled.ReasoningLog = append(filled.ReasoningLog,
			fmt.Sprintf("conditional field %q set (%s)", key, cond.If))
	}
}

// exprContext exposes working values to template expressions with numeric
// strings coerced, plus the current year.
func (e *Engine) exprContext(working map[string]any) map[string]any {
	ctx := make(map[string]any, len(working)+1)
	for key, value := range working {
		ctx[key] = coerceForExpr(value)
	}
	ctx["current_year"] = float64(e.now().Year())
	return ctx
}

func coerceForExpr(v any) any {
	switch t := v.(type) {
	case string:
		if n, ok := normalize.Money(t); ok {
			return n
		}
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case bool, float64, int:
		return t
	default:
		return fmt.Sprintf("%v", v)
	}
}
