package model

// FieldType enumerates the input kinds a form field can declare.
type FieldType string

// Form field types.
const (
	FieldText       FieldType = "text"
	FieldTextarea   FieldType = "textarea"
	FieldDropdown   FieldType = "dropdown"
	FieldCheckbox   FieldType = "checkbox"
	FieldDate       FieldType = "date"
	FieldFileUpload FieldType = "file_upload"
)

// FieldSpec describes one field of a form template.
type FieldSpec struct {
	Default      any       `json:"default,omitempty"`
	Required     bool      `json:"required,omitempty"`
	Type         FieldType `json:"type,omitempty"`
	DependsOn    string    `json:"depends_on,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	ShowIf       string    `json:"show_if,omitempty"`
	RequiredIf   string    `json:"required_if,omitempty"`
	Example      string    `json:"example,omitempty"`
	ExpectedFile string    `json:"expected_file,omitempty"`
}

// ConditionalField sets a field to Value when its If expression is truthy.
type ConditionalField struct {
	If    string `json:"if"`
	Value any    `json:"value"`
}

// FormTemplate is the canonical internal shape of a form definition.
// Catalog JSON may wrap it under a top-level "form" key or express fields as
// a list of objects; the loader normalizes both to this mapping form.
// FieldOrder preserves declaration order so fills are deterministic.
type FormTemplate struct {
	Key               string                      `json:"key"`
	Fields            map[string]FieldSpec        `json:"fields"`
	FieldOrder        []string                    `json:"-"`
	OptionalFields    map[string]any              `json:"optional_fields,omitempty"`
	ComputedFields    map[string]string           `json:"computed_fields,omitempty"`
	ComputedOrder     []string                    `json:"-"`
	ConditionalFields map[string]ConditionalField `json:"conditional_fields,omitempty"`
	Sections          []FormTemplate              `json:"sections,omitempty"`
}

// FilledForm is the form-fill engine's response unit.
type FilledForm struct {
	Fields         map[string]any    `json:"fields"`
	Files          map[string]string `json:"files,omitempty"`
	Sources        map[string]string `json:"sources,omitempty"`
	ReasoningLog   []string          `json:"reasoning_log,omitempty"`
	RequiredOK     bool              `json:"required_ok"`
	MissingKeys    []string          `json:"missing_keys,omitempty"`
	CalcMismatches []string          `json:"calc_mismatches,omitempty"`
}

// Field origin classifications recorded in FilledForm.Sources.
const (
	SourceUser      = "user"
	SourceGenerated = "generated"
	SourceInferred  = "inferred"
	SourceFile      = "file"
)
