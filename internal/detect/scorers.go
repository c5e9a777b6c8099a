package detect

import "strings"

// builtinScorers returns the static registry of type-specific heuristics,
// keyed by the catalog definition they run for.
func builtinScorers() map[string]Scorer {
	return map[string]Scorer{
		"form_941":     scoreForm941,
		"veteran_cert": scoreVeteranCert,
	}
}

// scoreForm941 recognizes the unmistakable header combination on a 941 and
// reports certainty above 1.0 so it beats any generic keyword overlap.
func scoreForm941(text, _ string) (float64, string) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "form 941") &&
		strings.Contains(lower, "employer's quarterly federal tax return") {
		return 1.2, ""
	}
	return 0, ""
}

// scoreVeteranCert splits the veteran-certification family into sub-types
// by content: a DD-214 discharge certificate and a VA benefit summary
// letter carry different schema fields, so the matched key is overridden.
func scoreVeteranCert(text, filename string) (float64, string) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "dd form 214") || strings.Contains(lower, "dd-214") ||
		strings.Contains(lower, "certificate of release or discharge") ||
		strings.Contains(filename, "dd214") {
		return 1.1, "veteran_cert_dd214"
	}

	if strings.Contains(lower, "department of veterans affairs") &&
		(strings.Contains(lower, "service-connected") || strings.Contains(lower, "benefit summary")) {
		return 1.0, "veteran_cert_vba"
	}

	if strings.Contains(lower, "veteran") && strings.Contains(lower, "certif") {
		return 0.7, ""
	}

	return 0, ""
}
