package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harvestfund/granary/internal/model"
)

// rawTemplate accepts every template shape the catalog allows: an optional
// top-level "form" wrapper, fields as a mapping or as a list of objects,
// and nested sections of the same shape.
type rawTemplate struct {
	Form              json.RawMessage                   `json:"form"`
	Key               string                            `json:"key"`
	Fields            json.RawMessage                   `json:"fields"`
	OptionalFields    map[string]any                    `json:"optional_fields"`
	ComputedFields    json.RawMessage                   `json:"computed_fields"`
	ConditionalFields map[string]model.ConditionalField `json:"conditional_fields"`
	Sections          []json.RawMessage                 `json:"sections"`
}

func (c *Catalog) loadForms() error {
	entries, err := dataFS.ReadDir("data/forms")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := dataFS.ReadFile("data/forms/" + entry.Name())
		if err != nil {
			return err
		}

		tmpl, err := parseTemplate(raw)
		if err != nil {
			return fmt.Errorf("form template %s: %w", entry.Name(), err)
		}
		if tmpl.Key == "" {
			tmpl.Key = strings.TrimSuffix(entry.Name(), ".json")
		}

		key := strings.ToLower(tmpl.Key)
		if _, dup := c.forms[key]; dup {
			return fmt.Errorf("duplicate form key %q", tmpl.Key)
		}
		c.forms[key] = tmpl
	}

	return nil
}

func parseTemplate(raw []byte) (*model.FormTemplate, error) {
	var rt rawTemplate
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("invalid template JSON: %w", err)
	}

	// Unwrap the optional top-level "form" envelope.
	if len(rt.Form) > 0 && string(rt.Form) != "null" {
		return parseTemplate(rt.Form)
	}

	tmpl := &model.FormTemplate{
		Key:               rt.Key,
		Fields:            make(map[string]model.FieldSpec),
		OptionalFields:    rt.OptionalFields,
		ComputedFields:    make(map[string]string),
		ConditionalFields: rt.ConditionalFields,
	}

	if err := parseFields(rt.Fields, tmpl); err != nil {
		return nil, err
	}

	if len(rt.ComputedFields) > 0 && string(rt.ComputedFields) != "null" {
		if err := json.Unmarshal(rt.ComputedFields, &tmpl.ComputedFields); err != nil {
			return nil, fmt.Errorf("invalid computed_fields: %w", err)
		}
		order, err := objectKeyOrder(rt.ComputedFields)
		if err != nil {
			return nil, err
		}
		tmpl.ComputedOrder = order
	}

	for _, rawSection := range rt.Sections {
		section, err := parseTemplate(rawSection)
		if err != nil {
			return nil, err
		}
		tmpl.Sections = append(tmpl.Sections, *section)
	}

	return tmpl, nil
}

// listField is the fields-as-list element shape; "name" and "key" are both
// accepted as the field identifier.
type listField struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	model.FieldSpec
}

func parseFields(raw json.RawMessage, tmpl *model.FormTemplate) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var fields []listField
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("invalid field list: %w", err)
		}
		for _, f := range fields {
			name := f.Name
			if name == "" {
				name = f.Key
			}
			if name == "" {
				return fmt.Errorf("field entry missing name")
			}
			tmpl.Fields[name] = f.FieldSpec
			tmpl.FieldOrder = append(tmpl.FieldOrder, name)
		}
		return nil
	}

	if err := json.Unmarshal(raw, &tmpl.Fields); err != nil {
		return fmt.Errorf("invalid field mapping: %w", err)
	}
	order, err := objectKeyOrder(raw)
	if err != nil {
		return err
	}
	tmpl.FieldOrder = order
	return nil
}

// objectKeyOrder recovers the declaration order of a JSON object's top-level
// keys, which encoding/json's map decoding discards. Order matters: computed
// fields may reference earlier computed fields.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid object: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)

		// Consume the value whole so nested keys are not collected.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("invalid object value: %w", err)
		}
	}

	return keys, nil
}
