package domain

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date format used throughout both datasets.
const DateLayout = "2006-01-02"

// Policy levels.
const (
	PolicyLevelState  = "state"
	PolicyLevelCounty = "county"
)

// Start/stop markers for policy events.
const (
	PolicyStart = "start"
	PolicyStop  = "stop"
)

// StatewideCounty is the sentinel county value for state-level policies.
const StatewideCounty = "statewide"

// CaseRecord is one cleaned row of the case/death time series, keyed by
// (FIPSCode, Date). County is lowercase; State keeps source title casing.
type CaseRecord struct {
	FIPSCode         int64
	County           string
	State            string
	FullLocationName string
	Date             time.Time
	TotalPopulation  int64
	NewCases         int64
	NewDeaths        int64

	// Per-100k normalizations from the source feed, clipped at zero.
	NewCasesPer100k  float64
	NewDeathsPer100k float64

	// Trailing 7-day means of the raw counts, keyed per location.
	NewCases7DayAvg  float64
	NewDeaths7DayAvg float64

	// 7-day means normalized by population/100,000.
	NewCases7DayPer100k  float64
	NewDeaths7DayPer100k float64
}

// Key returns the (fips_code, date) uniqueness key for the record.
func (r CaseRecord) Key() string {
	return r.Date.Format(DateLayout) + "/" + strconv.FormatInt(r.FIPSCode, 10)
}

// PolicyRecord is one cleaned policy enactment or rescission event.
// County is StatewideCounty for state-level policies, in which case FIPSCode
// holds the state's 2-digit code rather than a county's 5-digit code.
type PolicyRecord struct {
	State       string
	County      string
	PolicyLevel string
	FIPSCode    int64
	PolicyType  string
	Date        time.Time
	StartStop   string
}
