// Package match implements full-string pattern matching over scanned
// barcodes: a cheap eligibility gate for actions and an extractor for
// sub-codes embedded in structured barcodes.
package match

import (
	"fmt"
	"regexp"
)

// Matcher wraps one compiled pattern. A Matcher always matches against the
// whole candidate string, never a substring.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile builds a Matcher from a pattern. A malformed pattern is a
// configuration defect and is the only way Compile fails; a non-matching
// candidate later on is not an error.
func Compile(pattern string) (*Matcher, error) {
	// Wrapping in a non-capturing group keeps 1-based group indexes stable
	// while forcing a whole-string match.
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return &Matcher{pattern: pattern, re: re}, nil
}

// MustCompile is Compile for patterns known good at build time; it panics
// on a malformed pattern.
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether the candidate matches the whole pattern.
func (m *Matcher) Matches(candidate string) bool {
	return m.re.MatchString(candidate)
}

// Groups matches the candidate and returns the requested capture groups in
// order. Group indexes are 1-based; index 0 selects the whole match. The
// second return is false when the candidate does not match or a requested
// group index does not exist in the pattern.
func (m *Matcher) Groups(candidate string, indexes ...int) ([]string, bool) {
	submatches := m.re.FindStringSubmatch(candidate)
	if submatches == nil {
		return nil, false
	}

	groups := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(submatches) {
			return nil, false
		}
		groups = append(groups, submatches[idx])
	}
	return groups, true
}

// GroupCount returns the number of capturing groups in the pattern.
func (m *Matcher) GroupCount() int {
	return m.re.NumSubexp()
}

// String returns the pattern text as configured.
func (m *Matcher) String() string {
	return m.pattern
}
