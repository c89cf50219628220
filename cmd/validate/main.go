// Command validate audits a pair of cleaned output files: per-column null
// counts, numeric sanity, the (fips_code, date) uniqueness invariant, and
// cross-dataset consistency between the policy table and the case geography.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -cases data/covid_timeseries_cleaned.csv \
//	  -policies data/covid_policies_cleaned.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	casesPath := flag.String("cases", "", "path to the cleaned case/death CSV")
	policiesPath := flag.String("policies", "", "path to the cleaned policy CSV")
	flag.Parse()

	if *casesPath == "" || *policiesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*casesPath, *policiesPath); code != 0 {
		os.Exit(code)
	}
}

func run(casesPath, policiesPath string) int {
	fmt.Println("=== Cleaned Output Validation ===")
	fmt.Println()

	caseTable, err := csvfile.ReadTable(casesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load case table: %v\n", err)
		return 1
	}
	cases, err := csvfile.ReadCases(casesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse case records: %v\n", err)
		return 1
	}

	policyTable, err := csvfile.ReadTable(policiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load policy table: %v\n", err)
		return 1
	}
	policies, err := csvfile.ReadPolicies(policiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse policy records: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateNulls("Phase 1: Null Audit (cases)", caseTable),
		validateNulls("Phase 2: Null Audit (policies)", policyTable),
		validateCaseRecords(cases),
		validatePolicyRecords(policies, cases),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d cases, %d policies\n", len(cases), len(policies))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateNulls counts empty cells per column. Cleaned output documents
// zero-fill for every nullable numeric field, so any empty cell is a defect.
func validateNulls(name string, t csvfile.Table) *phase {
	p := &phase{name: name}

	counts := make(map[string]int, len(t.Header))
	for _, row := range t.Rows {
		for _, col := range t.Header {
			if col == "" {
				continue // index column
			}
			if row.Get(col) == "" {
				counts[col]++
			}
		}
	}
	for _, col := range t.Header {
		if n := counts[col]; n > 0 {
			p.errorf("column %q: %d null values", col, n)
		}
	}
	return p
}

// validateCaseRecords checks the uniqueness invariant and numeric sanity of
// the cleaned case table.
func validateCaseRecords(cases []domain.CaseRecord) *phase {
	p := &phase{name: "Phase 3: Case Invariants"}

	seen := map[string]bool{}
	for i, r := range cases {
		key := r.Key()
		if seen[key] {
			p.errorf("record %d: duplicate (fips_code, date) key %s", i, key)
		}
		seen[key] = true

		if r.TotalPopulation <= 0 {
			p.errorf("record %d (%s): total_population %d is not positive", i, r.FullLocationName, r.TotalPopulation)
		}
		if r.NewCases < 0 || r.NewDeaths < 0 {
			p.errorf("record %d (%s): negative counts", i, r.FullLocationName)
		}
		for col, v := range map[string]float64{
			"new_cases_per_100k":       r.NewCasesPer100k,
			"new_deaths_per_100k":      r.NewDeathsPer100k,
			"new_cases_7day_avg":       r.NewCases7DayAvg,
			"new_deaths_7day_avg":      r.NewDeaths7DayAvg,
			"new_cases_7day_per_100k":  r.NewCases7DayPer100k,
			"new_deaths_7day_per_100k": r.NewDeaths7DayPer100k,
		} {
			if v < 0 {
				p.errorf("record %d (%s): %s is negative", i, r.FullLocationName, col)
			}
		}
		if r.FullLocationName != domain.FullLocationName(r.County, r.State) {
			p.errorf("record %d: full_location_name %q does not match county/state", i, r.FullLocationName)
		}
	}
	return p
}

// validatePolicyRecords checks enums, FIPS plausibility, and cross-dataset
// consistency against the cleaned case table.
func validatePolicyRecords(policies []domain.PolicyRecord, cases []domain.CaseRecord) *phase {
	p := &phase{name: "Phase 4: Policy Consistency"}
	if len(cases) == 0 {
		p.errorf("no case records to reconcile against")
		return p
	}

	vocab := map[string]bool{}
	minDate, maxDate := cases[0].Date, cases[0].Date
	for _, r := range cases {
		vocab[r.County] = true
		if r.Date.Before(minDate) {
			minDate = r.Date
		}
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}

	for i, r := range policies {
		if r.PolicyLevel != domain.PolicyLevelState && r.PolicyLevel != domain.PolicyLevelCounty {
			p.errorf("record %d: policy_level %q not in {state, county}", i, r.PolicyLevel)
		}
		if r.StartStop != domain.PolicyStart && r.StartStop != domain.PolicyStop {
			p.errorf("record %d: start_stop %q not in {start, stop}", i, r.StartStop)
		}
		if _, ok := domain.StateByName(r.State); !ok {
			p.errorf("record %d: state %q not in the 50-state table", i, r.State)
		}
		if r.FIPSCode <= 0 {
			p.errorf("record %d: fips_code %d is not positive", i, r.FIPSCode)
		}
		if r.County != domain.StatewideCounty && !vocab[r.County] {
			p.errorf("record %d: county %q missing from case geography", i, r.County)
		}
		if r.Date.Before(minDate) || r.Date.After(maxDate) {
			p.errorf("record %d: date %s outside case range [%s, %s]", i,
				r.Date.Format(domain.DateLayout), minDate.Format(domain.DateLayout), maxDate.Format(domain.DateLayout))
		}
	}
	return p
}
