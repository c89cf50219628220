package domain

import "time"

// StateInfo is one entry of the static 50-state reference table.
type StateInfo struct {
	Name string
	Abbr string
	FIPS int64
}

// States lists the 50 US states with their postal abbreviations and 2-digit
// FIPS codes. Territories and the District of Columbia are deliberately
// absent; policy rows outside this table are dropped.
var States = []StateInfo{
	{"Alabama", "AL", 1},
	{"Alaska", "AK", 2},
	{"Arizona", "AZ", 4},
	{"Arkansas", "AR", 5},
	{"California", "CA", 6},
	{"Colorado", "CO", 8},
	{"Connecticut", "CT", 9},
	{"Delaware", "DE", 10},
	{"Florida", "FL", 12},
	{"Georgia", "GA", 13},
	{"Hawaii", "HI", 15},
	{"Idaho", "ID", 16},
	{"Illinois", "IL", 17},
	{"Indiana", "IN", 18},
	{"Iowa", "IA", 19},
	{"Kansas", "KS", 20},
	{"Kentucky", "KY", 21},
	{"Louisiana", "LA", 22},
	{"Maine", "ME", 23},
	{"Maryland", "MD", 24},
	{"Massachusetts", "MA", 25},
	{"Michigan", "MI", 26},
	{"Minnesota", "MN", 27},
	{"Mississippi", "MS", 28},
	{"Missouri", "MO", 29},
	{"Montana", "MT", 30},
	{"Nebraska", "NE", 31},
	{"Nevada", "NV", 32},
	{"New Hampshire", "NH", 33},
	{"New Jersey", "NJ", 34},
	{"New Mexico", "NM", 35},
	{"New York", "NY", 36},
	{"North Carolina", "NC", 37},
	{"North Dakota", "ND", 38},
	{"Ohio", "OH", 39},
	{"Oklahoma", "OK", 40},
	{"Oregon", "OR", 41},
	{"Pennsylvania", "PA", 42},
	{"Rhode Island", "RI", 44},
	{"South Carolina", "SC", 45},
	{"South Dakota", "SD", 46},
	{"Tennessee", "TN", 47},
	{"Texas", "TX", 48},
	{"Utah", "UT", 49},
	{"Vermont", "VT", 50},
	{"Virginia", "VA", 51},
	{"Washington", "WA", 53},
	{"West Virginia", "WV", 54},
	{"Wisconsin", "WI", 55},
	{"Wyoming", "WY", 56},
}

var (
	statesByAbbr = func() map[string]StateInfo {
		m := make(map[string]StateInfo, len(States))
		for _, s := range States {
			m[s.Abbr] = s
		}
		return m
	}()
	statesByName = func() map[string]StateInfo {
		m := make(map[string]StateInfo, len(States))
		for _, s := range States {
			m[s.Name] = s
		}
		return m
	}()
)

// StateByAbbr looks up a state by postal abbreviation.
func StateByAbbr(abbr string) (StateInfo, bool) {
	s, ok := statesByAbbr[abbr]
	return s, ok
}

// StateByName looks up a state by full name.
func StateByName(name string) (StateInfo, bool) {
	s, ok := statesByName[name]
	return s, ok
}

// PolicySynonyms collapses the verbose policy labels the source feed emits to
// shorter canonical forms. The table is maintained by hand against the feed;
// matching is exact and happens before lowercasing.
var PolicySynonyms = map[string]string{
	"Stop Initiation Of Evictions Overall Or Due To Covid Related Issues":  "Stop Initiation Of Evictions",
	"Modify Medicaid Requirements With 1135 Waivers Date Of CMS Approval":  "Modify Medicaid Requirements",
	"Stop Enforcement Of Evictions Overall Or Due To Covid Related Issues": "Stop Enforcement Of Evictions",
	"Mandate Face Mask Use By All Individuals In Public Facing Businesses": "Mandate Face Masks In Businesses",
	"Mandate Face Mask Use By All Individuals In Public Spaces":            "Mandate Face Masks In Public Spaces",
	"Reopened ACA Enrollment Using a Special Enrollment Period":            "ACA Special Enrollment Period",
	"Suspended Elective Medical Dental Procedures":                         "Suspend Elective Dental Procedures",
	"Allow Expand Medicaid Telehealth Coverage":                            "Expand Medicaid Telehealth Coverage",
	"Renter Grace Period Or Use Of Security Deposit To Pay Rent":           "Grace Period / Security Deposit for Rent",
}

// phasePlaceholders are generic reopening-phase markers dropped from the
// cleaned policy table.
var phasePlaceholders = map[string]bool{
	"phase 1":   true,
	"phase 2":   true,
	"phase 3":   true,
	"phase 4":   true,
	"phase 5":   true,
	"new phase": true,
}

// PopulationOverride pins a location's population to an external census
// figure missing from the raw feed.
type PopulationOverride struct {
	County     string // lowercase, time-series naming
	State      string
	Population int64
}

// CleaningRules bundles the fixed cleaning policy constants so pipelines and
// tests receive them explicitly rather than reading package globals.
type CleaningRules struct {
	// MaxDate is the exclusive upper bound on case dates.
	MaxDate time.Time

	// RollingSeedCutoff splits null 7-day averages into two repairs: nulls
	// strictly before it are zero-filled (insufficient history), nulls on or
	// after it are recomputed from the raw counts.
	RollingSeedCutoff time.Time

	// RollingWindow is the trailing window width for recomputed averages.
	RollingWindow time.Duration

	// ExcludedStates are dropped from the case table entirely.
	ExcludedStates []string

	// PopulationOverrides are applied after county normalization.
	PopulationOverrides []PopulationOverride
}

// DefaultCleaningRules returns the production cleaning constants.
//
// The two Alaska overrides come from the 2020 census: the Valdez-Cordova
// census area split into Chugach and Copper River in 2019 and the raw feed
// carries no population for either successor.
func DefaultCleaningRules() CleaningRules {
	return CleaningRules{
		MaxDate:           time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC),
		RollingSeedCutoff: time.Date(2020, time.January, 30, 0, 0, 0, 0, time.UTC),
		RollingWindow:     7 * 24 * time.Hour,
		ExcludedStates:    []string{"Puerto Rico", "District of Columbia"},
		PopulationOverrides: []PopulationOverride{
			{County: "chugach", State: "Alaska", Population: 7102},
			{County: "copper river", State: "Alaska", Population: 2617},
		},
	}
}
