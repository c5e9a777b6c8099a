package extract

import (
	"regexp"
	"strconv"

	"github.com/harvestfund/granary/internal/model"
)

// VeteranCert serves the whole veteran-certification family. The key it is
// constructed with decides which sub-type's fields it looks for: a DD-214
// carries service details, a VBA letter carries a disability rating, and
// the generic certification carries neither.
type VeteranCert struct {
	key   string
	dates dateParser
}

// NewVeteranCert creates a certification extractor for one family key.
func NewVeteranCert(key string, dayFirst bool) *VeteranCert {
	return &VeteranCert{key: key, dates: dateParser{dayFirst: dayFirst}}
}

// Key implements Extractor.
func (e *VeteranCert) Key() string { return e.key }

var ratingRe = regexp.MustCompile(`(?i)(?:combined\s+(?:service-connected\s+)?(?:evaluation|rating))\D{0,20}(\d{1,3})\s*%`)

// Extract implements Extractor.
func (e *VeteranCert) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.key)
	docLines := lines(text)
	important := 0

	if name, i, ok := labeledValue(docLines,
		"name (last, first, middle)", "member name", "veteran name", "member:", "name"); ok {
		res.SetField("veteran.name", name, name, 0.8, model.FieldSource{Location: lineLoc(i), Raw: name})
		important++
	}

	res.SetField("veteran.status", "", "veteran", 0.7, model.FieldSource{Location: "document", Raw: ""})

	switch e.key {
	case "veteran_cert_dd214":
		res.SetField("certification.type", "", "dd214", 0.9, model.FieldSource{Location: "document", Raw: ""})
		if branch, i, ok := labeledValue(docLines, "department, component and branch", "branch of service"); ok {
			res.SetField("service.branch", branch, branch, 0.8, model.FieldSource{Location: lineLoc(i), Raw: branch})
			important++
		}
		if raw, iso, loc, ok := e.dates.labeledDate(docLines, "separation date", "date of separation"); ok {
			res.SetField("service.separation_date", raw, iso, 0.8, model.FieldSource{Location: loc, Raw: raw})
			important++
		}
		if character, i, ok := labeledValue(docLines, "character of service"); ok {
			res.SetField("service.character_of_service", character, character, 0.8,
				model.FieldSource{Location: lineLoc(i), Raw: character})
			important++
		}

	case "veteran_cert_vba":
		res.SetField("certification.type", "", "vba_letter", 0.9, model.FieldSource{Location: "document", Raw: ""})
		if m := ratingRe.FindStringSubmatch(text); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil && pct <= 100 {
				res.SetField("disability.rating_percent", m[1], pct, 0.85,
					model.FieldSource{Location: "document", Raw: m[0]})
				important++
			}
		}
		if raw, iso, loc, ok := e.dates.labeledDate(docLines, "date issued", "date of certification", "date"); ok {
			res.SetField("certification.date", raw, iso, 0.75, model.FieldSource{Location: loc, Raw: raw})
		}

	default:
		res.SetField("certification.type", "", "generic", 0.7, model.FieldSource{Location: "document", Raw: ""})
		if raw, iso, loc, ok := e.dates.labeledDate(docLines, "date issued", "date of certification", "date"); ok {
			res.SetField("certification.date", raw, iso, 0.75, model.FieldSource{Location: loc, Raw: raw})
		}
	}

	res.Confidence = confidence(0.55, 0.1, 0.95, important, len(res.Warnings))
	return res
}
