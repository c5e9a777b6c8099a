// Package analyzer orchestrates document analysis: detect the document
// type, run the matching extractor (or the generic fallback), filter the
// typed result to its declared schema, and persist a session debug trace.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/common"
	"github.com/harvestfund/granary/internal/detect"
	"github.com/harvestfund/granary/internal/extract"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/session"
)

// Request is one document analysis call.
type Request struct {
	Content   []byte
	Filename  string
	SessionID string
}

// Response is the analysis envelope. Result always has the same shape
// whether a typed extractor or the generic fallback ran.
type Response struct {
	SessionID     string                  `json:"session_id"`
	Result        *model.ExtractionResult `json:"result"`
	SkippedFields []string                `json:"skipped_fields,omitempty"`
	Trace         model.AnalyzeTrace      `json:"trace"`
}

// Analyzer runs the detect-then-extract pipeline.
type Analyzer struct {
	catalog  *catalog.Catalog
	detector *detect.Detector
	registry *extract.Registry
	store    session.Store
	dayFirst bool
	now      func() time.Time
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithStore enables session trace persistence. Without it traces are
// still built and returned, just not written anywhere.
func WithStore(store session.Store) Option {
	return func(a *Analyzer) { a.store = store }
}

// WithDayFirstDates makes extraction read ambiguous numeric dates as
// day/month/year instead of the US month/day/year default.
func WithDayFirstDates(enabled bool) Option {
	return func(a *Analyzer) { a.dayFirst = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an analyzer over the catalog. The extractor registry is
// built after the options apply so date preferences reach the extractors.
func New(cat *catalog.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog:  cat,
		detector: detect.New(cat),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.registry = extract.NewRegistry(cat, extract.WithDayFirstDates(a.dayFirst))
	return a
}

// Analyze runs detection and extraction over one document. The only error
// condition is an empty document; every other input degrades to the
// generic fallback extractor rather than failing.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Response, error) {
	if len(strings.TrimSpace(string(req.Content))) == 0 {
		return nil, common.ErrEmptyDocument
	}

	start := a.now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, detection := a.extract(req.Content, req.Filename)

	trace := model.AnalyzeTrace{
		SessionID:    sessionID,
		Filename:     req.Filename,
		DetectedType: detection.TypeKey,
		Confidence:   detection.Confidence,
		Extractor:    result.DocType,
	}

	var skipped []string
	if result.DocType != extract.UntypedKey {
		if def, ok := a.catalog.Document(result.DocType); ok {
			trace.SchemaFields = def.SchemaFields
			skipped = filterToSchema(result, def)
		}
	}
	trace.SkippedFields = skipped
	trace.ElapsedMS = time.Since(start).Milliseconds()

	a.writeTrace(ctx, trace)

	return &Response{
		SessionID:     sessionID,
		Result:        result,
		SkippedFields: skipped,
		Trace:         trace,
	}, nil
}

// extract picks an extraction path: OFX data parses directly as a bank
// statement; otherwise the detector chooses a typed extractor, falling
// back to the generic one below the confidence threshold.
func (a *Analyzer) extract(content []byte, filename string) (*model.ExtractionResult, model.Detection) {
	if extract.IsOFX(content) || hasOFXExtension(filename) {
		result, err := extract.NewOFXExtractor().Parse(content)
		if err == nil {
			return result, model.Detection{TypeKey: result.DocType, Confidence: result.Confidence}
		}
		slog.Warn("OFX parse failed, falling back to text extraction",
			"filename", filename, "error", err)
	}

	text := string(content)
	detection := a.detector.Identify(text, filename)

	key := detection.TypeKey
	if !detection.Matched() || detection.Confidence < detect.ConfidenceThreshold {
		key = extract.UntypedKey
	}
	extractor, ok := a.registry.Lookup(key)
	if !ok {
		extractor, _ = a.registry.Lookup(extract.UntypedKey)
	}
	return extractor.Extract(text), detection
}

// filterToSchema removes fields the document type does not declare and
// returns their paths, so schema drift surfaces in the trace instead of
// leaking into the typed response.
func filterToSchema(result *model.ExtractionResult, def *model.DocumentDefinition) []string {
	var skipped []string
	for _, path := range sortedKeys(result.Fields) {
		if def.HasSchemaField(path) {
			continue
		}
		skipped = append(skipped, path)
		delete(result.Fields, path)
		delete(result.FieldsClean, path)
		delete(result.FieldConfidence, path)
		delete(result.FieldSources, path)
	}
	return skipped
}

// writeTrace persists the debug trace best-effort. A failed write is
// logged and swallowed so observability problems never fail a request.
func (a *Analyzer) writeTrace(ctx context.Context, trace model.AnalyzeTrace) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendTrace(ctx, trace); err != nil {
		slog.Warn("session trace write failed",
			"session_id", trace.SessionID,
			"error", fmt.Errorf("%w: %v", common.ErrTraceWrite, err))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hasOFXExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return true
	}
	return false
}
