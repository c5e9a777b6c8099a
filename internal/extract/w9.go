package extract

import (
	"regexp"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// W9 extracts a Form W-9. The taxpayer identification number is always
// masked; only its last four digits enter the envelope.
type W9 struct {
	aliases *alias.Resolver
}

// NewW9 creates the W-9 extractor.
func NewW9(aliases *alias.Resolver) *W9 {
	return &W9{aliases: aliases}
}

// Key implements Extractor.
func (e *W9) Key() string { return "w9" }

var (
	checkedBoxRe = regexp.MustCompile(`(?i)[\[(]\s*[xX✓]\s*[\])]\s*([a-z/ \-]+)`)
	cityStateZip = regexp.MustCompile(`(?i)^([A-Za-z .'-]+?),?\s+([A-Za-z]{2}|[A-Za-z ]+?)\s+(\d{5}(?:-\d{4})?)$`)
)

var entityTypes = map[string]string{
	"individual":          "sole_proprietor",
	"sole proprietor":     "sole_proprietor",
	"c corporation":       "corporation",
	"s corporation":       "s_corporation",
	"partnership":         "partnership",
	"trust/estate":        "trust",
	"limited liability":   "llc",
	"llc":                 "llc",
}

// Extract implements Extractor.
func (e *W9) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	if name, i, ok := labeledValue(docLines, "name (as shown on your income tax return)", "legal name", "business name", "name"); ok {
		res.SetField("business.name", name, name, 0.8, model.FieldSource{Location: lineLoc(i), Raw: name})
		important++
	}

	if entity, loc, ok := e.findEntityType(docLines); ok {
		res.SetField("business.entity_type", entity, entity, 0.75, model.FieldSource{Location: loc, Raw: entity})
		important++
	}

	e.extractTIN(text, res, &important)
	e.extractAddress(docLines, res, &important)

	res.Confidence = confidence(0.6, 0.08, 0.95, important, len(res.Warnings))
	return res
}

func (e *W9) findEntityType(docLines []string) (string, string, bool) {
	for i, line := range docLines {
		if m := checkedBoxRe.FindStringSubmatch(line); m != nil {
			label := strings.ToLower(strings.TrimSpace(m[1]))
			for needle, canonical := range entityTypes {
				if strings.Contains(label, needle) {
					return canonical, lineLoc(i), true
				}
			}
		}
	}

	// No checkbox markers survived text extraction; fall back to a labeled
	// classification line.
	if raw, i, ok := labeledValue(docLines, "federal tax classification", "entity type"); ok {
		lower := strings.ToLower(raw)
		for needle, canonical := range entityTypes {
			if strings.Contains(lower, needle) {
				return canonical, lineLoc(i), true
			}
		}
	}
	return "", "", false
}

func (e *W9) extractTIN(text string, res *model.ExtractionResult, important *int) {
	// SSN format takes priority; an EIN-shaped token is the fallback.
	token := ssnRe.FindString(text)
	if token == "" {
		token = einRe.FindString(text)
	}
	if token == "" {
		return
	}

	masked, last4 := MaskTIN(token)
	if last4 == "" {
		return
	}
	// The unmasked token never enters the envelope or the source snippet.
	res.SetField("business.tin_last4", masked, last4, 0.85,
		model.FieldSource{Location: "document", Raw: masked})
	*important++
}

func (e *W9) extractAddress(docLines []string, res *model.ExtractionResult, important *int) {
	street, streetLine, ok := labeledValue(docLines, "address (number, street", "street address", "address")
	if !ok {
		return
	}
	// The label match can leave trailing label text ("…, and apt. or suite
	// no.):") in front of the value; cut through it.
	street = afterLabelTail(street)
	if street == "" {
		return
	}
	res.SetField("address.street", street, street, 0.75,
		model.FieldSource{Location: lineLoc(streetLine), Raw: street})
	*important++

	// The city/state/zip line customarily follows the street line.
	for i := streetLine + 1; i < len(docLines) && i <= streetLine+3; i++ {
		candidate := afterLabelTail(docLines[i])
		m := cityStateZip.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}

		city := strings.TrimSpace(m[1])
		res.SetField("address.city", city, city, 0.7, model.FieldSource{Location: lineLoc(i), Raw: candidate})

		if code, ok := normalize.State(m[2]); ok {
			res.SetField("address.state", m[2], code, 0.75, model.FieldSource{Location: lineLoc(i), Raw: candidate})
		} else {
			res.Warn("unrecognized_state")
		}

		res.SetField("address.zip", m[3], m[3], 0.8, model.FieldSource{Location: lineLoc(i), Raw: candidate})
		*important++
		return
	}
}

// afterLabelTail strips everything through the last ")" and ":" so a value
// that follows a wordy form label survives on its own.
func afterLabelTail(s string) string {
	for _, sep := range []string{")", ":"} {
		if j := strings.LastIndex(s, sep); j >= 0 {
			s = s[j+1:]
		}
	}
	return strings.TrimSpace(s)
}
