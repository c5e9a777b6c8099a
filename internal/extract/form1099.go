package extract

import (
	"math"
	"regexp"
	"strconv"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// Form1099Summary extracts a payer's 1099-NEC summary. Recipient TINs are
// reduced to their last four digits before they touch the envelope; the
// full identifier is never stored or logged.
type Form1099Summary struct {
	aliases *alias.Resolver
}

// NewForm1099Summary creates the 1099 summary extractor.
func NewForm1099Summary(aliases *alias.Resolver) *Form1099Summary {
	return &Form1099Summary{aliases: aliases}
}

// Key implements Extractor.
func (e *Form1099Summary) Key() string { return "form_1099_summary" }

var taxYearRe = regexp.MustCompile(`(?i)(?:tax year|for)\s+(20\d{2})`)

// Extract implements Extractor.
func (e *Form1099Summary) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	if m := taxYearRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		res.SetField("year", m[1], y, 0.85, model.FieldSource{Location: "document", Raw: m[0]})
	}

	if name, i, ok := labeledValue(docLines, "payer name", "payer's name", "payer"); ok {
		res.SetField("payer.name", name, name, 0.8, model.FieldSource{Location: lineLoc(i), Raw: name})
		important++
	}

	if ein, conf, _, warnings := ExtractEIN(text); ein != "" {
		res.SetField("payer.ein", ein, ein, conf, model.FieldSource{Location: "document", Raw: ein})
		for _, w := range warnings {
			res.Warn(w)
		}
		important++
	}

	recipients, compSum := e.parseRecipients(docLines)
	if len(recipients) > 0 {
		res.SetField("recipients", "", recipients, 0.8, model.FieldSource{Location: "recipient table", Raw: ""})
		important++
	}

	if raw, v, loc, ok := labeledMoney(docLines, "total nonemployee compensation", "total compensation"); ok {
		setMoneyField(res, "totals.nonemployee_compensation", raw, v, loc, 0.85)
		if len(recipients) > 0 && math.Abs(v-compSum) > reconcileTolerance {
			res.Warn("compensation_total_mismatch")
		}
		important++
	} else if compSum > 0 {
		res.SetField("totals.nonemployee_compensation", "", compSum, 0.7,
			model.FieldSource{Location: "computed from rows", Raw: ""})
	}

	res.Confidence = confidence(0.5, 0.1, 0.95, important, len(res.Warnings))
	return res
}

func (e *Form1099Summary) parseRecipients(docLines []string) ([]map[string]any, float64) {
	headerIdx := -1
	var columns map[int]string
	for i, line := range docLines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			continue
		}
		matched := make(map[int]string)
		for pos, cell := range cells {
			if canonical, ok := e.aliases.MatchColumn(cell); ok {
				matched[pos] = canonical
			}
		}
		if len(matched) >= 2 {
			headerIdx, columns = i, matched
			break
		}
	}
	if headerIdx < 0 {
		return nil, 0
	}

	var (
		recipients []map[string]any
		compSum    float64
	)
	for i := headerIdx + 1; i < len(docLines); i++ {
		cells := splitColumns(docLines[i])
		if len(cells) == 0 {
			break
		}
		if isTotalsRow(cells) {
			break
		}

		row := make(map[string]any)
		for pos, canonical := range columns {
			if pos >= len(cells) {
				continue
			}
			cell := cells[pos]
			switch canonical {
			case "recipients.name":
				row["name"] = cell
			case "recipients.tin_last4":
				if _, last4 := MaskTIN(cell); last4 != "" {
					row["tin_last4"] = last4
				}
			case "recipients.compensation":
				if v, ok := normalize.Money(cell); ok {
					row["compensation"] = v
					compSum += v
				}
			}
		}
		if len(row) == 0 {
			continue
		}
		recipients = append(recipients, row)
	}
	return recipients, compSum
}
