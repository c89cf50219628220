// Command genmock generates synthetic raw-feed CSV fixtures for local runs
// of the cleaning pipelines. The output exercises the interesting repair
// paths: seed-period nulls, mid-series rolling-average gaps, the Alaska
// population overrides, county-suffix mismatches, a "0020" date typo, a
// verbose policy label, and rows the pipelines must drop.
//
// Usage:
//
//	go run ./cmd/genmock -cases-out data/covid_timeseries.csv -policies-out data/covid_policies.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
)

var rawCaseColumns = []string{
	"date", "location_type", "fips_code", "location_name", "state",
	"total_population", "new_cases", "new_deaths",
	"new_cases_per_100_000", "new_deaths_per_100_000",
	"new_cases_7_day_rolling_avg", "new_deaths_7_day_rolling_avg",
}

var rawPolicyColumns = []string{
	"state_id", "county", "fips_code", "policy_level", "date",
	"policy_type", "start_stop", "comments", "source", "total_phases",
}

// mockLocation is one synthetic county. Population 0 means "null in the
// feed", exercising the census overrides.
type mockLocation struct {
	name       string // raw feed casing
	state      string
	abbr       string
	fips       int64
	population int64
}

var locations = []mockLocation{
	{"Orange", "California", "CA", 6059, 3175692},
	{"Travis", "Texas", "TX", 48453, 1290188},
	{"San Saba", "Texas", "TX", 48411, 5900},
	{"Juneau", "Alaska", "AK", 2110, 32255},
	{"Chugach", "Alaska", "AK", 2063, 0},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	casesOut := flag.String("cases-out", "", "output path for the raw case/death CSV")
	policiesOut := flag.String("policies-out", "", "output path for the raw policy CSV")
	days := flag.Int("days", 60, "days of coverage per location")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	if *casesOut == "" || *policiesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -cases-out, -policies-out")
	}

	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(2020, time.January, 25, 0, 0, 0, 0, time.UTC)

	caseRows := genCaseRows(rng, start, *days)
	if err := csvfile.WriteTable(*casesOut, rawCaseColumns, caseRows); err != nil {
		return fmt.Errorf("writing case fixture: %w", err)
	}
	log.Printf("wrote %d raw case rows: %s", len(caseRows), *casesOut)

	policyRows := genPolicyRows(start, *days)
	if err := csvfile.WriteTable(*policiesOut, rawPolicyColumns, policyRows); err != nil {
		return fmt.Errorf("writing policy fixture: %w", err)
	}
	log.Printf("wrote %d raw policy rows: %s", len(policyRows), *policiesOut)

	return nil
}

func genCaseRows(rng *rand.Rand, start time.Time, days int) [][]string {
	var rows [][]string
	for _, loc := range locations {
		for d := 0; d < days; d++ {
			date := start.AddDate(0, 0, d)
			newCases := int64(rng.Intn(120))
			newDeaths := int64(rng.Intn(5))

			population := ""
			if loc.population > 0 {
				population = strconv.FormatInt(loc.population, 10)
			}

			// The source feed leaves the rolling averages null for the
			// first six days of coverage and sporadically afterwards.
			cases7, deaths7 := "", ""
			if d >= 6 && d%11 != 0 {
				cases7 = fmt.Sprintf("%.2f", float64(newCases)*0.9)
				deaths7 = fmt.Sprintf("%.2f", float64(newDeaths)*0.9)
			}

			per100k := ""
			deathsPer100k := ""
			if loc.population > 0 {
				per100k = fmt.Sprintf("%.3f", float64(newCases)/(float64(loc.population)/100_000))
				deathsPer100k = fmt.Sprintf("%.3f", float64(newDeaths)/(float64(loc.population)/100_000))
			}

			rows = append(rows, []string{
				date.Format(domain.DateLayout),
				"county",
				strconv.FormatInt(loc.fips, 10),
				loc.name,
				loc.state,
				population,
				strconv.FormatInt(newCases, 10),
				strconv.FormatInt(newDeaths, 10),
				per100k,
				deathsPer100k,
				cases7,
				deaths7,
			})
		}
	}

	// State-level and excluded-geography rows the cleaner must drop.
	rows = append(rows,
		[]string{"2020-03-01", "state", "48", "Texas", "Texas", "28995881", "500", "10", "1.7", "0.03", "", ""},
		[]string{"2020-03-01", "county", "72001", "Adjuntas", "Puerto Rico", "17363", "3", "0", "17.3", "0", "", ""},
		[]string{"2022-06-01", "county", "6059", "Orange", "California", "3175692", "50", "1", "1.6", "0.03", "", ""},
	)
	return rows
}

func genPolicyRows(start time.Time, days int) [][]string {
	mid := start.AddDate(0, 0, days/2).Format(domain.DateLayout)
	late := start.AddDate(0, 0, days-5).Format(domain.DateLayout)

	return [][]string{
		// Statewide start with a verbose label to collapse.
		{"CA", "", "", "state", mid, "Mandate Face Mask Use By All Individuals In Public Spaces", "start", "", "executive order", "0"},
		// County policy with the " County" suffix mismatch.
		{"CA", "Orange County", "6059", "county", mid, "Shelter In Place", "start", "", "county order", "0"},
		// Alaska borough suffix.
		{"AK", "Juneau Borough", "2110", "county", mid, "Shelter In Place", "start", "", "", "0"},
		// The known "0020" year mis-encoding.
		{"TX", "", "", "state", "0020" + mid[4:], "Shelter In Place", "start", "", "", "0"},
		// Stop event.
		{"CA", "", "", "state", late, "Shelter In Place", "stop", "", "", "0"},
		// Generic phase marker the cleaner drops.
		{"TX", "", "", "state", mid, "Phase 1", "start", "", "", "1"},
		// Territory row outside the 50-state table.
		{"GU", "", "", "state", mid, "Shelter In Place", "start", "", "", "0"},
		// Outside the case date range.
		{"CA", "", "", "state", "2023-01-01", "Shelter In Place", "start", "", "", "0"},
	}
}
