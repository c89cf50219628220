// Package pipeline implements the two cleaning pipelines and their shared
// run orchestration. Each cleaning step takes its input and returns new
// values; nothing mutates a table behind the caller's back, so steps are
// independently testable.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-policy-etl/internal/config"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
	"github.com/couchcryptid/covid-policy-etl/internal/observability"
)

// requiredCaseColumns is the raw time-series schema the cleaner depends on.
// A missing column means the upstream feed changed shape.
var requiredCaseColumns = []string{
	"date", "location_type", "fips_code", "location_name", "state",
	"total_population", "new_cases", "new_deaths",
	"new_cases_per_100_000", "new_deaths_per_100_000",
	"new_cases_7_day_rolling_avg", "new_deaths_7_day_rolling_avg",
}

// CaseSource provides the raw case/death table.
type CaseSource interface {
	LoadCases(ctx context.Context, path string, forceReload bool) (csvfile.Table, error)
}

// CaseCleaner turns the raw case/death time series into the canonical
// per-(county, date) table.
type CaseCleaner struct {
	source  CaseSource
	rules   domain.CleaningRules
	logger  *slog.Logger
	metrics *observability.Metrics

	rawPath      string
	cleanPath    string
	forceReload  bool
	forceReclean bool
	workers      int
}

// NewCaseCleaner creates a CaseCleaner wired to the given source and config.
func NewCaseCleaner(src CaseSource, cfg *config.Config, rules domain.CleaningRules, logger *slog.Logger, metrics *observability.Metrics) *CaseCleaner {
	return &CaseCleaner{
		source:       src,
		rules:        rules,
		logger:       logger,
		metrics:      metrics,
		rawPath:      cfg.CaseRawPath,
		cleanPath:    cfg.CaseCleanPath,
		forceReload:  cfg.ForceReload,
		forceReclean: cfg.ForceReclean,
		workers:      cfg.RollingWorkers,
	}
}

// Clean produces the cleaned case table, loading it from the cleaned-output
// cache when present unless force-reclean is set.
func (c *CaseCleaner) Clean(ctx context.Context) ([]domain.CaseRecord, error) {
	if csvfile.Exists(c.cleanPath) && !c.forceReclean {
		c.logger.Info("loading cleaned case data from cache", "path", c.cleanPath)
		c.metrics.CleanCacheHits.WithLabelValues("cases").Inc()
		return csvfile.ReadCases(c.cleanPath)
	}

	start := clock.Now()

	table, err := c.source.LoadCases(ctx, c.rawPath, c.forceReload)
	if err != nil {
		return nil, err
	}

	records, err := c.cleanTable(table)
	if err != nil {
		return nil, err
	}

	if err := csvfile.WriteCases(c.cleanPath, records); err != nil {
		return nil, fmt.Errorf("persist cleaned case data: %w", err)
	}

	c.metrics.CleanDuration.WithLabelValues("cases").Observe(clock.Since(start).Seconds())
	c.logger.Info("case cleaning complete",
		"rows_in", len(table.Rows),
		"rows_out", len(records),
		"path", c.cleanPath,
	)
	return records, nil
}

// cleanTable runs the full cleaning sequence over a raw table.
func (c *CaseCleaner) cleanTable(t csvfile.Table) ([]domain.CaseRecord, error) {
	if err := t.Require("cases", requiredCaseColumns...); err != nil {
		return nil, err
	}

	rows, err := c.extractRows(t)
	if err != nil {
		return nil, err
	}
	if err := checkCaseUniqueness(rows); err != nil {
		return nil, err
	}

	c.fillRollingAverages(rows)

	return finalizeCaseRecords(rows), nil
}

// caseRow carries a record through the pipeline together with the source's
// rolling-average values, where nil marks a null to repair.
type caseRow struct {
	rec     domain.CaseRecord
	cases7  *float64
	deaths7 *float64
}

// extractRows applies the row-level filters and normalizations: the date
// horizon, the county-only geography filter, excluded states, name
// normalization, population overrides, and null/negative count repair.
func (c *CaseCleaner) extractRows(t csvfile.Table) ([]caseRow, error) {
	c.metrics.RowsIngested.WithLabelValues("cases").Add(float64(len(t.Rows)))

	excluded := make(map[string]bool, len(c.rules.ExcludedStates))
	for _, s := range c.rules.ExcludedStates {
		excluded[s] = true
	}

	rows := make([]caseRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, err := domain.ParseDate(row.Get("date"))
		if err != nil {
			return nil, fmt.Errorf("cases line %d: %w", row.Line, err)
		}
		if !date.Before(c.rules.MaxDate) {
			c.dropRow("date_horizon")
			continue
		}
		if row.Get("location_type") != "county" {
			c.dropRow("location_type")
			continue
		}

		state := row.Get("state")
		if excluded[state] {
			c.dropRow("excluded_state")
			continue
		}

		fips, err := parseInt64(row.Get("fips_code"))
		if err != nil {
			return nil, fmt.Errorf("cases line %d: parse fips_code: %w", row.Line, err)
		}

		county := strings.ToLower(row.Get("location_name"))

		population, err := c.resolvePopulation(row, county, state)
		if err != nil {
			return nil, fmt.Errorf("cases line %d: %w", row.Line, err)
		}

		rec := domain.CaseRecord{
			FIPSCode:         fips,
			County:           county,
			State:            state,
			FullLocationName: domain.FullLocationName(county, state),
			Date:             date,
			TotalPopulation:  population,
			NewCases:         parseCountOrZero(row.Get("new_cases")),
			NewDeaths:        parseCountOrZero(row.Get("new_deaths")),
			NewCasesPer100k:  clipNonNegative(parseFloatOrZero(row.Get("new_cases_per_100_000"))),
			NewDeathsPer100k: clipNonNegative(parseFloatOrZero(row.Get("new_deaths_per_100_000"))),
		}

		cr := caseRow{
			rec:     rec,
			cases7:  parseOptionalFloat(row.Get("new_cases_7_day_rolling_avg")),
			deaths7: parseOptionalFloat(row.Get("new_deaths_7_day_rolling_avg")),
		}
		if cr.cases7 != nil {
			cr.rec.NewCases7DayAvg = *cr.cases7
		}
		if cr.deaths7 != nil {
			cr.rec.NewDeaths7DayAvg = *cr.deaths7
		}
		rows = append(rows, cr)
	}

	c.metrics.RowsKept.WithLabelValues("cases").Add(float64(len(rows)))
	return rows, nil
}

// resolvePopulation applies the census overrides before falling back to the
// raw feed value. Overridden locations may have no population at all in the
// feed.
func (c *CaseCleaner) resolvePopulation(row csvfile.Row, county, state string) (int64, error) {
	for _, o := range c.rules.PopulationOverrides {
		if o.County == county && o.State == state {
			return o.Population, nil
		}
	}
	raw := row.Get("total_population")
	if raw == "" {
		return 0, fmt.Errorf("missing total_population for %q", domain.FullLocationName(county, state))
	}
	v, err := parseInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("parse total_population: %w", err)
	}
	return v, nil
}

func (c *CaseCleaner) dropRow(reason string) {
	c.metrics.RowsDropped.WithLabelValues("cases", reason).Inc()
}

// checkCaseUniqueness enforces the one-record-per-(fips_code, date)
// postcondition, reporting every duplicated key.
func checkCaseUniqueness(rows []caseRow) error {
	seen := make(map[string]int, len(rows))
	var dupes []string
	for _, r := range rows {
		k := r.rec.Key()
		seen[k]++
		if seen[k] == 2 {
			dupes = append(dupes, k)
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return &domain.DataIntegrityError{
			Dataset:   "cases",
			Problem:   "duplicate (fips_code, date) pairs",
			Offenders: dupes,
		}
	}
	return nil
}

// finalizeCaseRecords derives the per-capita 7-day normalizations and strips
// the pipeline-internal fields.
func finalizeCaseRecords(rows []caseRow) []domain.CaseRecord {
	records := make([]domain.CaseRecord, 0, len(rows))
	for _, r := range rows {
		per100k := float64(r.rec.TotalPopulation) / 100_000
		r.rec.NewCases7DayPer100k = r.rec.NewCases7DayAvg / per100k
		r.rec.NewDeaths7DayPer100k = r.rec.NewDeaths7DayAvg / per100k
		records = append(records, r.rec)
	}
	return records
}

// parseInt64 parses an integer field that the feed may encode as a float
// ("2063.0").
func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// parseCountOrZero parses a count field, treating null as zero.
func parseCountOrZero(s string) int64 {
	v, err := parseInt64(s)
	if err != nil {
		return 0
	}
	return v
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseOptionalFloat parses a float field, returning nil for nulls.
func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func clipNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
