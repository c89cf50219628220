package csvfile

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/covid-policy-etl/internal/domain"
)

// Cleaned-output column orders. Both files carry a leading unnamed index
// column so downstream tabular tooling round-trips them unchanged.
var (
	caseColumns = []string{
		"", "fips_code", "county", "state", "full_location_name", "date",
		"total_population", "new_cases", "new_deaths",
		"new_cases_per_100k", "new_deaths_per_100k",
		"new_cases_7day_avg", "new_deaths_7day_avg",
		"new_cases_7day_per_100k", "new_deaths_7day_per_100k",
	}
	policyColumns = []string{
		"", "state", "county", "policy_level", "fips_code",
		"policy_type", "date", "start_stop",
	}
)

// WriteCases persists the cleaned case table to path.
func WriteCases(path string, records []domain.CaseRecord) error {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatInt(r.FIPSCode, 10),
			r.County,
			r.State,
			r.FullLocationName,
			r.Date.Format(domain.DateLayout),
			strconv.FormatInt(r.TotalPopulation, 10),
			strconv.FormatInt(r.NewCases, 10),
			strconv.FormatInt(r.NewDeaths, 10),
			formatFloat(r.NewCasesPer100k),
			formatFloat(r.NewDeathsPer100k),
			formatFloat(r.NewCases7DayAvg),
			formatFloat(r.NewDeaths7DayAvg),
			formatFloat(r.NewCases7DayPer100k),
			formatFloat(r.NewDeaths7DayPer100k),
		})
	}
	return WriteTable(path, caseColumns, rows)
}

// ReadCases loads a previously cleaned case table.
func ReadCases(path string) ([]domain.CaseRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require("cleaned cases", caseColumns[1:]...); err != nil {
		return nil, err
	}

	records := make([]domain.CaseRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec, err := readCaseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, row.Line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readCaseRow(row Row) (domain.CaseRecord, error) {
	date, err := domain.ParseDate(row.Get("date"))
	if err != nil {
		return domain.CaseRecord{}, err
	}

	rec := domain.CaseRecord{
		County:           row.Get("county"),
		State:            row.Get("state"),
		FullLocationName: row.Get("full_location_name"),
		Date:             date,
	}

	for _, f := range []struct {
		col string
		dst *int64
	}{
		{"fips_code", &rec.FIPSCode},
		{"total_population", &rec.TotalPopulation},
		{"new_cases", &rec.NewCases},
		{"new_deaths", &rec.NewDeaths},
	} {
		v, err := strconv.ParseInt(row.Get(f.col), 10, 64)
		if err != nil {
			return domain.CaseRecord{}, fmt.Errorf("parse %s: %w", f.col, err)
		}
		*f.dst = v
	}

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"new_cases_per_100k", &rec.NewCasesPer100k},
		{"new_deaths_per_100k", &rec.NewDeathsPer100k},
		{"new_cases_7day_avg", &rec.NewCases7DayAvg},
		{"new_deaths_7day_avg", &rec.NewDeaths7DayAvg},
		{"new_cases_7day_per_100k", &rec.NewCases7DayPer100k},
		{"new_deaths_7day_per_100k", &rec.NewDeaths7DayPer100k},
	} {
		v, err := strconv.ParseFloat(row.Get(f.col), 64)
		if err != nil {
			return domain.CaseRecord{}, fmt.Errorf("parse %s: %w", f.col, err)
		}
		*f.dst = v
	}

	return rec, nil
}

// WritePolicies persists the cleaned policy table to path.
func WritePolicies(path string, records []domain.PolicyRecord) error {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(i),
			r.State,
			r.County,
			r.PolicyLevel,
			strconv.FormatInt(r.FIPSCode, 10),
			r.PolicyType,
			r.Date.Format(domain.DateLayout),
			r.StartStop,
		})
	}
	return WriteTable(path, policyColumns, rows)
}

// ReadPolicies loads a previously cleaned policy table.
func ReadPolicies(path string) ([]domain.PolicyRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require("cleaned policies", policyColumns[1:]...); err != nil {
		return nil, err
	}

	records := make([]domain.PolicyRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, err := domain.ParseDate(row.Get("date"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, row.Line, err)
		}
		fips, err := strconv.ParseInt(row.Get("fips_code"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: parse fips_code: %w", path, row.Line, err)
		}
		records = append(records, domain.PolicyRecord{
			State:       row.Get("state"),
			County:      row.Get("county"),
			PolicyLevel: row.Get("policy_level"),
			FIPSCode:    fips,
			PolicyType:  row.Get("policy_type"),
			Date:        date,
			StartStop:   row.Get("start_stop"),
		})
	}
	return records, nil
}

// formatFloat renders a float with the shortest representation that
// round-trips, so rewriting an unchanged table is byte-identical.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
