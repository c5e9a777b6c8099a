// Package report renders engine results as markdown and HTML documents.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harvestfund/granary/internal/model"
)

var statusLabels = map[model.EligibilityStatus]string{
	model.StatusEligible:    "Eligible",
	model.StatusConditional: "Conditional",
	model.StatusIneligible:  "Not eligible",
}

// EligibilityMarkdown renders an eligibility report as a markdown document.
func EligibilityMarkdown(report *model.EligibilityReport) string {
	var b strings.Builder

	b.WriteString("# Grant Eligibility Report\n\n")
	if len(report.Results) == 0 {
		b.WriteString("No grant programs were evaluated.\n")
		return b.String()
	}

	b.WriteString("| Grant | Status | Score | Estimated Award |\n")
	b.WriteString("|---|---|---:|---:|\n")
	for _, result := range report.Results {
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
			result.Name, statusLabel(result.Status), result.Score, money(result.EstimatedAmount)))
	}
	b.WriteString("\n")

	for _, result := range report.Results {
		b.WriteString(fmt.Sprintf("## %s\n\n", result.Name))
		b.WriteString(fmt.Sprintf("**Status:** %s  \n", statusLabel(result.Status)))
		b.WriteString(fmt.Sprintf("**Score:** %d/100  \n", result.Score))
		if result.EstimatedAmount > 0 {
			b.WriteString(fmt.Sprintf("**Estimated award:** %s  \n", money(result.EstimatedAmount)))
		}
		b.WriteString(fmt.Sprintf("**Rationale:** %s\n\n", result.Rationale))

		if len(result.Reasoning) > 0 {
			for _, line := range result.Reasoning {
				b.WriteString("- " + line + "\n")
			}
			b.WriteString("\n")
		}
		if len(result.MissingFields) > 0 {
			b.WriteString("Missing information: " + strings.Join(result.MissingFields, ", ") + "\n\n")
		}
	}

	if len(report.MissingFields) > 0 {
		b.WriteString("## Information Needed\n\n")
		for _, field := range report.MissingFields {
			b.WriteString("- " + field + "\n")
		}
		b.WriteString("\n")
	}
	if len(report.RequiredForms) > 0 {
		b.WriteString("## Required Forms\n\n")
		for _, form := range report.RequiredForms {
			b.WriteString("- " + form + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ExtractionMarkdown renders an extraction envelope as a markdown document.
func ExtractionMarkdown(result *model.ExtractionResult) string {
	var b strings.Builder

	b.WriteString("# Document Analysis\n\n")
	b.WriteString(fmt.Sprintf("**Detected type:** %s  \n", result.DocType))
	b.WriteString(fmt.Sprintf("**Confidence:** %.2f\n\n", result.Confidence))

	if len(result.FieldsClean) > 0 {
		b.WriteString("| Field | Value | Confidence |\n")
		b.WriteString("|---|---|---:|\n")
		for _, path := range sortedFieldPaths(result.FieldsClean) {
			b.WriteString(fmt.Sprintf("| %s | %v | %.2f |\n",
				path, result.FieldsClean[path], result.FieldConfidence[path]))
		}
		b.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warning := range result.Warnings {
			b.WriteString("- " + warning + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML converts rendered markdown into a standalone HTML fragment.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

func statusLabel(status model.EligibilityStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

func money(amount float64) string {
	if amount == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.2f", amount)
}

func sortedFieldPaths(fields map[string]any) []string {
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
