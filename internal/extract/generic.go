package extract

import (
	"regexp"
	"strings"

	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// Generic is the fallback extractor for documents that match no known type.
// It sweeps for identifiers, dates, amounts, and contact details so the
// analysis still has something to show, at deliberately modest confidence.
type Generic struct {
	dates dateParser
}

// NewGeneric creates the fallback extractor.
func NewGeneric(dayFirst bool) *Generic {
	return &Generic{dates: dateParser{dayFirst: dayFirst}}
}

// Key implements Extractor.
func (e *Generic) Key() string { return UntypedKey }

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\(?\b\d{3}\)?[ .\-]\d{3}[.\-]\d{4}\b`)
)

const genericScanCap = 20

// Extract implements Extractor.
func (e *Generic) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(UntypedKey)

	if ein, conf, _, warnings := ExtractEIN(text); ein != "" {
		res.SetField("ein", ein, ein, conf, model.FieldSource{Location: "document", Raw: ein})
		for _, w := range warnings {
			res.Warn(w)
		}
	}

	if dates := e.collectDates(text); len(dates) > 0 {
		res.SetField("dates", "", dates, 0.4, model.FieldSource{Location: "document", Raw: ""})
	}
	if amounts := e.collectAmounts(text); len(amounts) > 0 {
		res.SetField("amounts", "", amounts, 0.4, model.FieldSource{Location: "document", Raw: ""})
	}

	if m := emailRe.FindString(text); m != "" {
		res.SetField("email", m, m, 0.6, model.FieldSource{Location: "document", Raw: m})
	}
	if m := phoneRe.FindString(text); m != "" {
		res.SetField("phone", m, m, 0.5, model.FieldSource{Location: "document", Raw: m})
	}

	res.Confidence = 0.4
	return res
}

func (e *Generic) collectDates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range dateRe.FindAllString(text, genericScanCap) {
		iso, ok := e.dates.parse(token)
		if !ok || seen[iso] {
			continue
		}
		seen[iso] = true
		out = append(out, iso)
	}
	return out
}

func (e *Generic) collectAmounts(text string) []float64 {
	var out []float64
	for _, token := range moneyRe.FindAllString(text, -1) {
		// Bare digit runs are dates, line numbers, and identifiers more
		// often than dollar amounts; demand a currency marker or cents.
		if !strings.Contains(token, "$") && !strings.Contains(token, ".") {
			continue
		}
		v, ok := normalize.Money(token)
		if !ok {
			continue
		}
		out = append(out, v)
		if len(out) >= genericScanCap {
			break
		}
	}
	return out
}
