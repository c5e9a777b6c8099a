// Package model defines the core domain types shared across the application.
package model

import "fmt"

// DocumentDefinition describes one document type in the catalog.
type DocumentDefinition struct {
	Key              string              `json:"key"`
	DisplayName      string              `json:"display_name"`
	Family           string              `json:"family"`
	SchemaFields     []string            `json:"schema_fields"`
	Detector         DetectorSpec        `json:"detector"`
	Aliases          []string            `json:"aliases"`
	FieldAliases     map[string][]string `json:"field_aliases"`
	SupportedFormats []string            `json:"supported_formats"`
}

// DetectorSpec holds the detection hints for a document type.
type DetectorSpec struct {
	KeywordsAny      []string `json:"keywords_any"`
	RegexAny         []string `json:"regex_any"`
	FilenameContains []string `json:"filename_contains"`
	ScoreBonus       float64  `json:"score_bonus"`
}

// HasSchemaField reports whether path is one of the declared schema fields.
func (d *DocumentDefinition) HasSchemaField(path string) bool {
	for _, f := range d.SchemaFields {
		if f == path {
			return true
		}
	}
	return false
}

// Validate ensures the definition is usable.
func (d *DocumentDefinition) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("document definition key is required")
	}
	if d.DisplayName == "" {
		return fmt.Errorf("document definition %q: display name is required", d.Key)
	}
	return nil
}

// Detection is the detector's best-match answer for a piece of text.
type Detection struct {
	TypeKey    string  `json:"type_key"`
	Confidence float64 `json:"confidence"`
}

// Matched reports whether the detector found any candidate at all.
func (d Detection) Matched() bool {
	return d.TypeKey != ""
}
