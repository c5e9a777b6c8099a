package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

var (
	einRe   = regexp.MustCompile(`\b(\d{2})-?(\d{7})\b`)
	ssnRe   = regexp.MustCompile(`\b(\d{3})-(\d{2})-(\d{4})\b`)
	moneyRe = regexp.MustCompile(`\(?-?\$?\s?\d[\d,]*(?:\.\d{1,2})?\)?`)
	dateRe  = regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+\d{1,2},?\s+\d{4})\b`)
)

// ExtractEIN finds employer identification numbers in free text. It returns
// the first candidate normalized to NN-NNNNNNN, a confidence score, every
// candidate found, and any warnings. Confidence is higher when the token
// sits near an EIN label.
func ExtractEIN(text string) (string, float64, []string, []string) {
	matches := einRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", 0, []string{}, []string{}
	}

	candidates := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		formatted := m[1] + "-" + m[2]
		if !seen[formatted] {
			seen[formatted] = true
			candidates = append(candidates, formatted)
		}
	}

	conf := 0.7
	lower := strings.ToLower(text)
	if strings.Contains(lower, "ein") || strings.Contains(lower, "employer identification") {
		conf = 0.9
	}

	warnings := []string{}
	if len(candidates) > 1 {
		warnings = append(warnings, "multiple_ein_candidates")
		conf -= 0.15
	}

	return candidates[0], conf, candidates, warnings
}

// MaskTIN returns the masked display form and last four digits of a
// 9-digit taxpayer identifier. The unmasked token must never be logged.
func MaskTIN(tin string) (masked, last4 string) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tin)
	if len(digits) < 4 {
		return "", ""
	}
	last4 = digits[len(digits)-4:]
	return "***-**-" + last4, last4
}

// lines splits text into trimmed-right lines. Input is never rejected;
// non-UTF8 bytes simply fail to match any pattern downstream.
func lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimRight(l, " \t")
	}
	return out
}

// labeledValue finds "<label> <separator> <value>" on a single line, where
// the separator is a colon or run of whitespace. The comparison is
// case-insensitive on the label prefix. Returns the raw remainder of the
// line after the label and its line number.
func labeledValue(docLines []string, labels ...string) (string, int, bool) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			idx := strings.Index(lower, strings.ToLower(label))
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(line[idx+len(label):])
			rest = strings.TrimLeft(rest, ":.\t -")
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return rest, i, true
			}
		}
	}
	return "", 0, false
}

// labeledMoney finds the first money token on a line carrying one of the
// labels. Returns the raw token, its parsed dollar value and location.
func labeledMoney(docLines []string, labels ...string) (raw string, value float64, loc string, ok bool) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			if !strings.Contains(lower, strings.ToLower(label)) {
				continue
			}
			token := moneyRe.FindString(line[strings.Index(lower, strings.ToLower(label)):])
			if token == "" {
				token = moneyRe.FindString(line)
			}
			if token == "" {
				continue
			}
			v, parsed := normalize.Money(token)
			if !parsed {
				continue
			}
			return token, v, lineLoc(i), true
		}
	}
	return "", 0, "", false
}

// dateParser normalizes date tokens, carrying the configured reading of
// ambiguous numeric dates. US documents read 01/02/2024 as January 2;
// day-first mode reads it as February 1.
type dateParser struct {
	dayFirst bool
}

func (p dateParser) parse(s string) (string, bool) {
	return normalize.ParseDate(s, p.dayFirst)
}

// labeledDate finds the first date token on a line carrying one of the
// labels, normalized to ISO form.
func (p dateParser) labeledDate(docLines []string, labels ...string) (raw, iso, loc string, ok bool) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			if !strings.Contains(lower, strings.ToLower(label)) {
				continue
			}
			token := dateRe.FindString(line)
			if token == "" {
				continue
			}
			if normalized, parsed := p.parse(token); parsed {
				return token, normalized, lineLoc(i), true
			}
		}
	}
	return "", "", "", false
}

func lineLoc(i int) string {
	return fmt.Sprintf("line %d", i+1)
}

// splitColumns breaks a table row into cells on tabs or runs of two or
// more spaces.
var columnSplitRe = regexp.MustCompile(`\t+| {2,}`)

func splitColumns(line string) []string {
	parts := columnSplitRe.Split(strings.TrimSpace(line), -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// isTotalsRow reports whether a table row is the totals line terminating
// the data rows.
func isTotalsRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.ToLower(cells[0])
	return strings.HasPrefix(first, "total") || strings.HasPrefix(first, "grand total")
}

// setMoneyField records a labeled money value on the envelope.
func setMoneyField(res *model.ExtractionResult, path, raw string, value float64, loc string, conf float64) {
	res.SetField(path, raw, value, conf, model.FieldSource{Location: loc, Raw: raw})
}
