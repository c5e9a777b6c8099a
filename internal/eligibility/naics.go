package eligibility

import (
	"strings"

	"github.com/harvestfund/granary/internal/model"
)

// naicsKeywords maps free-text industry words to 3-digit NAICS families.
// Deliberately small: a miss means "uncheckable", which the industry gate
// treats as conditional rather than a failure.
var naicsKeywords = []struct {
	family string
	words  []string
}{
	{"722", []string{"restaurant", "cafe", "diner", "bakery", "catering", "food service", "bar and grill", "bistro", "pizzeria"}},
	{"541", []string{"software", "saas", "consulting", "engineering firm", "research", "laboratory", "design studio", "accounting firm", "law firm"}},
	{"334", []string{"electronics", "semiconductor", "circuit board", "instrument manufacturing"}},
	{"325", []string{"chemical", "pharmaceutical", "biotech"}},
	{"111", []string{"farm", "orchard", "agriculture", "crop"}},
	{"236", []string{"construction", "general contractor", "home builder"}},
	{"445", []string{"grocery", "food market", "convenience store"}},
	{"448", []string{"clothing store", "apparel", "boutique"}},
}

// freeTextFields are the profile keys scanned for industry evidence, in
// priority order.
var freeTextFields = []string{"business_description", "business_type", "industry", "notes"}

// InferNAICS guesses the profile's NAICS family from free-text fields.
// The second return is true only when a keyword matched; callers must treat
// false as "industry unknown", never as a failed check.
func InferNAICS(profile model.Profile) (string, bool) {
	var text strings.Builder
	for _, field := range freeTextFields {
		if s, ok := profile[field].(string); ok && s != "" {
			text.WriteString(strings.ToLower(s))
			text.WriteString(" ")
		}
	}
	haystack := text.String()
	if haystack == "" {
		return "", false
	}

	for _, entry := range naicsKeywords {
		for _, word := range entry.words {
			if strings.Contains(haystack, word) {
				return entry.family, true
			}
		}
	}
	return "", false
}
