package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// Form941 extracts the employer's quarterly federal tax return. Money lines
// are matched by stripping the trailing amount token and resolving the
// remaining label through the catalog's field alias table, so the extractor
// tolerates the many print layouts the form appears in.
type Form941 struct {
	aliases *alias.Resolver
}

// NewForm941 creates the Form 941 extractor.
func NewForm941(aliases *alias.Resolver) *Form941 {
	return &Form941{aliases: aliases}
}

// Key implements Extractor.
func (e *Form941) Key() string { return "form_941" }

var (
	quarterRe = regexp.MustCompile(`(?i)quarter\s*(?:\(|:)?\s*([1-4])`)
	yearRe    = regexp.MustCompile(`(?i)(?:941 for|calendar year|tax year)\D{0,5}(20\d{2})`)
)

// moneyFields lists the schema paths the label-resolution pass may fill.
var form941MoneyFields = map[string]bool{
	"payroll.wages_total":           true,
	"payroll.federal_tax_withheld":  true,
	"payroll.social_security_wages": true,
	"payroll.medicare_wages":        true,
	"payroll.total_taxes":           true,
	"payroll.deposits":              true,
}

// Extract implements Extractor.
func (e *Form941) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	if ein, conf, _, warnings := ExtractEIN(text); ein != "" {
		res.SetField("business.ein", ein, ein, conf, model.FieldSource{Location: "document", Raw: ein})
		for _, w := range warnings {
			res.Warn(w)
		}
		important++
	}

	if name, i, ok := labeledValue(docLines, "name (not your trade name)", "employer name", "business name"); ok {
		res.SetField("business.name", name, strings.TrimSpace(name), 0.8,
			model.FieldSource{Location: lineLoc(i), Raw: name})
	}

	if m := quarterRe.FindStringSubmatch(text); m != nil {
		q, _ := strconv.Atoi(m[1])
		res.SetField("quarter", m[1], q, 0.85, model.FieldSource{Location: "document", Raw: m[0]})
	}
	if m := yearRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		res.SetField("year", m[1], y, 0.85, model.FieldSource{Location: "document", Raw: m[0]})
	}

	if raw, i, ok := labeledValue(docLines, "employees who received wages", "number of employees"); ok {
		token := strings.Fields(raw)
		if len(token) > 0 {
			if count, err := strconv.Atoi(strings.ReplaceAll(token[0], ",", "")); err == nil {
				res.SetField("payroll.employee_count", token[0], count, 0.85,
					model.FieldSource{Location: lineLoc(i), Raw: raw})
				important++
			}
		}
	}

	important += e.scanMoneyLines(docLines, res)

	res.Confidence = confidence(0.55, 0.08, 0.98, important, len(res.Warnings))
	return res
}

// scanMoneyLines resolves each line's label (the text before its trailing
// amount) against the alias table and records any schema money field it
// names. Returns how many structurally important fields were found.
func (e *Form941) scanMoneyLines(docLines []string, res *model.ExtractionResult) int {
	found := 0
	for i, line := range docLines {
		tokens := moneyRe.FindAllStringIndex(line, -1)
		if len(tokens) == 0 {
			continue
		}
		last := tokens[len(tokens)-1]
		token := line[last[0]:last[1]]
		label := strings.TrimRight(strings.TrimSpace(line[:last[0]]), " .·")
		if label == "" {
			continue
		}

		canonical, ok := e.aliases.MatchColumn(label)
		if !ok || !form941MoneyFields[canonical] {
			continue
		}
		if _, exists := res.Fields[canonical]; exists {
			continue
		}

		value, parsed := normalize.Money(token)
		if !parsed {
			continue
		}
		setMoneyField(res, canonical, token, value, lineLoc(i), 0.85)
		found++
	}
	return found
}
