package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// countySuffixRe matches the trailing jurisdiction tokens the policy feed
// appends to county names, e.g. "orange county" -> "orange". The time-series
// feed already omits them.
var countySuffixRe = regexp.MustCompile(` (county|municipality|city|borough)$`)

// dateLayouts covers the date encodings seen across both feeds: bare calendar
// dates in the CSV export and Socrata floating timestamps in the policy API.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// NormalizeCountyName lowercases a policy-feed county name and strips its
// trailing jurisdiction suffix so it matches the time-series vocabulary.
func NormalizeCountyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return countySuffixRe.ReplaceAllString(name, "")
}

// FullLocationName derives the authoritative location key for a cleaned
// case row: "<county>, <State>".
func FullLocationName(county, state string) string {
	return county + ", " + state
}

// RepairDateString rewrites the known "0020" year mis-encoding in raw policy
// dates to "2020" before parsing, e.g. "0020-04-01" -> "2020-04-01".
func RepairDateString(s string) string {
	if len(s) >= 4 && strings.Contains(s, "0020") {
		return "2020" + s[4:]
	}
	return s
}

// ParseDate parses a raw date string from either feed, truncating any time
// component to the calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// CanonicalPolicyType collapses a verbose source policy label to its
// canonical short form, then lowercases it. Labels without a synonym entry
// are passed through lowercased.
func CanonicalPolicyType(label string) string {
	label = strings.TrimSpace(label)
	if short, ok := PolicySynonyms[label]; ok {
		label = short
	}
	return strings.ToLower(label)
}

// IsPhasePlaceholder reports whether a canonical policy type is one of the
// generic reopening-phase markers that carry no enforceable action semantics.
func IsPhasePlaceholder(policyType string) bool {
	return phasePlaceholders[policyType]
}
