package model

// FieldSource records where in the raw document a field value was found.
type FieldSource struct {
	Location string `json:"location"`
	Raw      string `json:"raw"`
}

// ExtractionResult is the envelope every extractor returns.
// Fields holds raw string values keyed by dotted path; FieldsClean holds
// their typed, normalized counterparts. A field absent from Fields was not
// found in the document; an empty string means the document contained an
// explicitly empty value.
type ExtractionResult struct {
	DocType         string                 `json:"doc_type"`
	Confidence      float64                `json:"confidence"`
	Fields          map[string]any         `json:"fields"`
	FieldsClean     map[string]any         `json:"fields_clean"`
	FieldConfidence map[string]float64     `json:"field_confidence"`
	FieldSources    map[string]FieldSource `json:"field_sources"`
	Warnings        []string               `json:"warnings"`
}

// NewExtractionResult returns an empty envelope for the given type with all
// maps allocated, so callers never need nil checks.
func NewExtractionResult(docType string) *ExtractionResult {
	return &ExtractionResult{
		DocType:         docType,
		Fields:          make(map[string]any),
		FieldsClean:     make(map[string]any),
		FieldConfidence: make(map[string]float64),
		FieldSources:    make(map[string]FieldSource),
		Warnings:        []string{},
	}
}

// SetField records a raw value, its normalized form, a per-field confidence
// and the source snippet in one step.
func (r *ExtractionResult) SetField(path string, raw, clean any, confidence float64, src FieldSource) {
	r.Fields[path] = raw
	r.FieldsClean[path] = clean
	r.FieldConfidence[path] = confidence
	r.FieldSources[path] = src
}

// Warn appends a warning code to the envelope.
func (r *ExtractionResult) Warn(code string) {
	r.Warnings = append(r.Warnings, code)
}

// AnalyzeTrace is the per-request debug record the orchestrator persists.
type AnalyzeTrace struct {
	SessionID     string   `json:"session_id"`
	Filename      string   `json:"filename,omitempty"`
	DetectedType  string   `json:"detected_type"`
	Confidence    float64  `json:"confidence"`
	Extractor     string   `json:"extractor"`
	SchemaFields  []string `json:"schema_fields,omitempty"`
	SkippedFields []string `json:"skipped_fields,omitempty"`
	ElapsedMS     int64    `json:"elapsed_ms"`
}
