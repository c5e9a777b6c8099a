// Package normalize provides pure canonicalizers for raw document values:
// dates to ISO 8601, money strings to dollars, percentages, state codes,
// yes/no variants and NAICS codes.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Explicit formats tried in order before any loose matching. Formats with
// unambiguous month names or ISO ordering come first.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2 2006",
	"20060102",
}

var looseDateRe = regexp.MustCompile(`^\s*(\d{1,4})[/\-.](\d{1,2})[/\-.](\d{1,4})\s*$`)

// Date normalizes a raw date string to YYYY-MM-DD using the US month-first
// preference for ambiguous numeric dates.
func Date(s string) (string, bool) {
	return ParseDate(s, false)
}

// ParseDate normalizes a raw date string to YYYY-MM-DD. Ambiguous numeric
// dates like 03/04/2024 follow dayFirst; a part greater than 12 always
// disambiguates regardless of preference.
func ParseDate(s string, dayFirst bool) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	// Loose numeric fallback only after every explicit format has failed.
	m := looseDateRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	// YYYY-a-b ordering when the first part is a four digit year.
	if len(m[1]) == 4 {
		return buildDate(a, b, c)
	}

	year := c
	if year < 100 {
		year += 2000
	}

	month, day := a, b
	if dayFirst {
		month, day = b, a
	}
	// A part over 12 can only be the day.
	if month > 12 && day <= 12 {
		month, day = day, month
	}

	return buildDate(year, month, day)
}

func buildDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	// Round-trip through time.Date to reject impossible dates like Feb 30.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
