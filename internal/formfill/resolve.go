package formfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harvestfund/granary/internal/expr"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// resolveFields walks the declared fields in template order, applies
// depends_on/show_if/required_if gating, and resolves each value through
// the chain: working data, optional-field default, template default, then
// type-specific synthesis.
func (e *Engine) resolveFields(ctx context.Context, flat *flatTemplate, working map[string]any, sources map[string]string, filled *model.FilledForm) {
	exprCtx := e.exprContext(working)

	for _, key := range flat.FieldOrder {
		spec := flat.Fields[key]

		if spec.DependsOn != "" && !truthyValue(working[spec.DependsOn]) {
			filled.ReasoningLog = append(filled.ReasoningLog,
				fmt.Sprintf("field %q skipped: depends on %q", key, spec.DependsOn))
			continue
		}
		if spec.ShowIf != "" {
			shown, err := expr.EvalTruthy(spec.ShowIf, exprCtx)
			if err != nil {
				slog.Warn("show_if expression failed, hiding field", "field", key, "error", err)
				shown = false
			}
			if !shown {
				continue
			}
		}

		required := spec.Required
		if spec.RequiredIf != "" {
			conditionallyRequired, err := expr.EvalTruthy(spec.RequiredIf, exprCtx)
			if err == nil && conditionallyRequired {
				required = true
			}
		}

		value, source, resolved := e.resolveValue(ctx, key, spec, flat, working)
		if !resolved {
			filled.Fields[key] = ""
			filled.Sources[key] = model.SourceGenerated
			if required {
				filled.MissingKeys = append(filled.MissingKeys, key)
			}
			continue
		}

		filled.Fields[key] = value
		if s, ok := sources[key]; ok {
			filled.Sources[key] = s
		} else {
			filled.Sources[key] = source
		}
		if spec.Type == model.FieldFileUpload {
			if path, ok := value.(string); ok && path != "" {
				filled.Files[key] = path
			}
		}
		if required && normalize.IsEmptyValue(value) {
			filled.MissingKeys = append(filled.MissingKeys, key)
		}
	}
}

// resolveValue applies the value chain for one field. The returned source
// is only used when the working map did not already attribute the value.
func (e *Engine) resolveValue(ctx context.Context, key string, spec model.FieldSpec, flat *flatTemplate, working map[string]any) (any, string, bool) {
	if value, ok := working[key]; ok && !normalize.IsEmptyValue(value) {
		return value, model.SourceUser, true
	}
	if def, ok := flat.Optional[key]; ok && !normalize.IsEmptyValue(def) {
		return def, model.SourceGenerated, true
	}
	if spec.Default != nil {
		return spec.Default, model.SourceGenerated, true
	}
	return e.synthesize(ctx, key, spec)
}

// synthesize produces a type-appropriate value for a field nothing else
// filled: today's date for date fields, a fixture path for uploads, a
// generated sentence for free text, false for checkboxes.
func (e *Engine) synthesize(ctx context.Context, key string, spec model.FieldSpec) (any, string, bool) {
	switch spec.Type {
	case model.FieldDate:
		return e.now().Format("2006-01-02"), model.SourceGenerated, true

	case model.FieldCheckbox:
		return false, model.SourceGenerated, true

	case model.FieldFileUpload:
		if path, ok := e.matchFixture(key, spec); ok {
			return path, model.SourceFile, true
		}
		return nil, "", false

	case model.FieldText, model.FieldTextarea:
		if e.completer == nil {
			return nil, "", false
		}
		prompt := spec.Prompt
		if prompt == "" {
			prompt = strings.ReplaceAll(key, "_", " ")
		}
		text, err := e.completer.Complete(ctx, prompt, "")
		if err != nil || text == "" {
			if err != nil {
				slog.Warn("text generation failed, leaving field empty", "field", key, "error", err)
			}
			return nil, "", false
		}
		return text, model.SourceGenerated, true

	default:
		return nil, "", false
	}
}

// matchFixture looks for a supporting document in the fixture directory
// whose name matches the field's expected file kind or the field name.
func (e *Engine) matchFixture(key string, spec model.FieldSpec) (string, bool) {
	if e.fixtureDir == "" {
		return "", false
	}
	entries, err := os.ReadDir(e.fixtureDir)
	if err != nil {
		slog.Warn("fixture directory unreadable", "dir", e.fixtureDir, "error", err)
		return "", false
	}

	needles := fixtureNeedles(key, spec)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		for _, needle := range needles {
			if needle != "" && strings.Contains(name, needle) {
				return filepath.Join(e.fixtureDir, entry.Name()), true
			}
		}
	}
	return "", false
}

func fixtureNeedles(key string, spec model.FieldSpec) []string {
	needles := []string{}
	if spec.ExpectedFile != "" {
		needles = append(needles, strings.ToLower(spec.ExpectedFile))
	}
	trimmed := strings.TrimSuffix(key, "_upload")
	trimmed = strings.TrimSuffix(trimmed, "_file")
	needles = append(needles, strings.ToLower(trimmed))
	return needles
}

func truthyValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, ok := normalize.Bool(t); ok {
			return b
		}
		return t != ""
	case nil:
		return false
	default:
		if n, ok := normalize.Number(v); ok {
			return n != 0
		}
		return true
	}
}
