package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Money parses a currency token into dollars. Currency symbols and
// thousands separators are stripped, parenthesized amounts are negative.
// Tokens that reduce to only "-", "." or nothing are rejected.
func Money(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(s)
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = cleaned[1:]
	}

	switch cleaned {
	case "", "-", ".":
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// Percent parses a percentage token into a 0-100 float. "45%", "45", and
// "0.45" (fractions below 1) are all accepted.
func Percent(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v > 0 && v < 1 {
		v *= 100
	}
	if v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

var yesValues = map[string]bool{
	"yes": true, "y": true, "true": true, "t": true, "1": true,
	"x": true, "checked": true, "si": true,
}

var noValues = map[string]bool{
	"no": true, "n": true, "false": true, "f": true, "0": true,
	"unchecked": true, "": false,
}

// Bool parses yes/no variants. The second return reports whether the token
// was recognized at all.
func Bool(s string) (bool, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if yesValues[s] {
		return true, true
	}
	if _, ok := noValues[s]; ok && s != "" {
		return false, true
	}
	return false, false
}

// Number coerces an arbitrary profile value to float64. Strings go through
// Money so "$1,200" and "(50)" behave. Booleans and nil are not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return Money(n)
	default:
		return 0, false
	}
}

var naicsRe = regexp.MustCompile(`\d{3,6}`)

// NAICSFamily reduces a NAICS code of any precision to its 3-digit family.
func NAICSFamily(s string) (string, bool) {
	m := naicsRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return "", false
	}
	return m[:3], true
}

// IsEmptyValue reports whether v counts as "empty" for merge precedence:
// nil, empty string, or a zero-length slice or map. The number 0 and the
// boolean false are NOT empty.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
