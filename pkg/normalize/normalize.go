// Package normalize canonicalizes media titles for comparison.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// trailing year in any of the forms "(1999)", "[1999]", "{1999}", "- 1999"
var trailingYearRegex = regexp.MustCompile(`\s*[-(\[{]\s*(\d{4})[)\]}]?$`)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Title canonicalizes a string for comparison: trims surrounding space,
// decomposes unicode, strips combining marks, and case folds.
// It never fails; empty input yields the empty string.
func Title(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	return cases.Fold().String(s)
}

// ExtractYear removes a trailing parenthesized, bracketed, or dash-prefixed
// four digit year from a title. It returns the stripped title and the year,
// or the trimmed input and zero when no trailing year is present.
func ExtractYear(s string) (string, int) {
	s = strings.TrimSpace(s)

	m := trailingYearRegex.FindStringSubmatch(s)
	if m == nil {
		return s, 0
	}

	year, err := strconv.Atoi(m[1])
	if err != nil {
		return s, 0
	}

	return strings.TrimSpace(strings.TrimSuffix(s, m[0])), year
}
