// Package domain models the cleaned COVID-19 county datasets.
//
// # Data Sources
//
// Two independently maintained feeds are reconciled into a join-able schema:
//
// Case/death time series (data.world CSV export):
//
//	One row per location per day with new case/death counts, per-100k
//	normalizations, and 7-day rolling averages. Location rows span counties,
//	states, and territories; only county rows are kept. The feed's
//	rolling-average columns are null during each location's first days of
//	coverage and sporadically afterwards; the pipeline recomputes them.
//
// Policy actions (healthdata.gov Socrata resource gyqz-9u7n):
//
//	One row per policy enactment or rescission: state postal code, optional
//	county, policy level, FIPS code, date, verbose policy label, and a
//	start/stop marker. County naming conventions differ from the time series
//	("Orange County" vs "orange"), some dates are mis-encoded with a "0020"
//	year fragment, and the verbose policy labels need collapsing before the
//	two datasets can be joined.
//
// # Geography Conventions
//
//	FIPS codes: 5 digits for a county, the state's own 2 digits for a
//	statewide policy. County names are lowercased; trailing " county",
//	" municipality", " city", and " borough" suffixes are stripped on the
//	policy side to align with the time-series naming. A location's full name
//	is "<county>, <State>", e.g. "san saba, Texas". State names keep their
//	source title casing.
//
//	Puerto Rico and the District of Columbia are excluded: neither has the
//	case and policy coverage needed for the downstream join.
//
// The cleaned time series defines the authoritative geography vocabulary.
// Any policy county absent from that vocabulary is a data-integrity failure,
// never a warning: a silent mismatch would drop rows from downstream joins.
package domain
