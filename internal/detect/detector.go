// Package detect identifies a document's type by scoring raw text and an
// optional filename against every catalog entry's detection spec.
package detect

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/model"
)

// keywordScanLimit bounds how much text the keyword pass examines.
const keywordScanLimit = 20000

// ConfidenceThreshold is the score at or above which callers should trust
// type-specific extraction instead of the generic fallback.
const ConfidenceThreshold = 0.6

// Scorer is a type-specific heuristic. It returns a score and, optionally,
// a different type key to report instead of the definition it is registered
// under, for document families that split into sub-types by content.
// Scores above 1.0 are allowed and signal very high certainty.
type Scorer func(text, filename string) (score float64, overrideKey string)

// Detector scores documents against the catalog's detection specs.
type Detector struct {
	catalog  *catalog.Catalog
	compiled map[string][]*regexp.Regexp
	scorers  map[string]Scorer
}

// New builds a detector over the catalog, precompiling every regex and
// registering the built-in type-specific scorers. Invalid patterns are
// skipped with a warning rather than failing detection.
func New(cat *catalog.Catalog) *Detector {
	d := &Detector{
		catalog:  cat,
		compiled: make(map[string][]*regexp.Regexp),
		scorers:  builtinScorers(),
	}

	for _, def := range cat.Documents() {
		for _, pattern := range def.Detector.RegexAny {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("Skipping invalid detector regex",
					"document", def.Key,
					"pattern", pattern,
					"error", err)
				continue
			}
			d.compiled[def.Key] = append(d.compiled[def.Key], re)
		}
	}

	return d
}

// Identify returns the best-scoring type for the text, or an unmatched
// Detection when nothing scores above zero. Ties keep the first-registered
// definition; confidence is deliberately not capped at 1.0.
func (d *Detector) Identify(text, filename string) model.Detection {
	scanText := text
	if len(scanText) > keywordScanLimit {
		scanText = scanText[:keywordScanLimit]
	}
	lower := strings.ToLower(scanText)
	lowerName := strings.ToLower(filename)

	var best model.Detection
	for _, def := range d.catalog.Documents() {
		key, score := d.scoreDefinition(&def, text, lower, lowerName)
		if score > best.Confidence {
			best = model.Detection{TypeKey: key, Confidence: score}
		}
	}

	return best
}

func (d *Detector) scoreDefinition(def *model.DocumentDefinition, raw, lower, lowerName string) (string, float64) {
	var score float64

	hits := 0
	for _, kw := range def.Detector.KeywordsAny {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits > 0 {
		bonus := 0.1 * float64(hits-1)
		if bonus > 0.3 {
			bonus = 0.3
		}
		score += 0.5 + bonus
	}

	for _, re := range d.compiled[def.Key] {
		if re.MatchString(raw) {
			score += 0.5
			break
		}
	}

	if lowerName != "" {
		for _, part := range def.Detector.FilenameContains {
			if part != "" && strings.Contains(lowerName, strings.ToLower(part)) {
				score += 0.2
				break
			}
		}
	}

	key := def.Key
	if scorer, ok := d.scorers[def.Key]; ok {
		custom, override := scorer(raw, lowerName)
		if custom > score {
			score = custom
		}
		if override != "" {
			key = override
		}
	}

	if score > 0 {
		score += def.Detector.ScoreBonus
	}

	return key, score
}
