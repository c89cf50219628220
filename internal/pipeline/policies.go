package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-policy-etl/internal/config"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
	"github.com/couchcryptid/covid-policy-etl/internal/observability"
)

// requiredPolicyColumns is the raw policy schema the cleaner depends on.
// The feed's free-text metadata columns (comments, source, total_phases,
// geocoded_state) are pruned by never being read.
var requiredPolicyColumns = []string{
	"state_id", "county", "fips_code", "policy_level",
	"date", "policy_type", "start_stop",
}

// PolicySource provides the raw policy-event table.
type PolicySource interface {
	LoadPolicies(ctx context.Context, path string, forceReload bool) (csvfile.Table, error)
}

// PolicyCleaner turns raw policy events into the canonical
// per-(location, date, policy) table, reconciled against the cleaned case
// table's geography.
type PolicyCleaner struct {
	source  PolicySource
	rules   domain.CleaningRules
	logger  *slog.Logger
	metrics *observability.Metrics

	rawPath      string
	cleanPath    string
	forceReload  bool
	forceReclean bool
}

// NewPolicyCleaner creates a PolicyCleaner wired to the given source and
// config.
func NewPolicyCleaner(src PolicySource, cfg *config.Config, rules domain.CleaningRules, logger *slog.Logger, metrics *observability.Metrics) *PolicyCleaner {
	return &PolicyCleaner{
		source:       src,
		rules:        rules,
		logger:       logger,
		metrics:      metrics,
		rawPath:      cfg.PolicyRawPath,
		cleanPath:    cfg.PolicyCleanPath,
		forceReload:  cfg.ForceReload,
		forceReclean: cfg.ForceReclean,
	}
}

// Clean produces the cleaned policy table. The already-cleaned case records
// supply the geography vocabulary and the admissible date range.
func (c *PolicyCleaner) Clean(ctx context.Context, cases []domain.CaseRecord) ([]domain.PolicyRecord, error) {
	if csvfile.Exists(c.cleanPath) && !c.forceReclean {
		c.logger.Info("loading cleaned policy data from cache", "path", c.cleanPath)
		c.metrics.CleanCacheHits.WithLabelValues("policies").Inc()
		return csvfile.ReadPolicies(c.cleanPath)
	}

	start := clock.Now()

	table, err := c.source.LoadPolicies(ctx, c.rawPath, c.forceReload)
	if err != nil {
		return nil, err
	}

	records, err := c.cleanTable(table, cases)
	if err != nil {
		return nil, err
	}

	if err := csvfile.WritePolicies(c.cleanPath, records); err != nil {
		return nil, fmt.Errorf("persist cleaned policy data: %w", err)
	}

	c.metrics.CleanDuration.WithLabelValues("policies").Observe(clock.Since(start).Seconds())
	c.logger.Info("policy cleaning complete",
		"rows_in", len(table.Rows),
		"rows_out", len(records),
		"path", c.cleanPath,
	)
	return records, nil
}

// policyRow is the intermediate shape after state filtering and county
// normalization, before geography reconciliation clears the remaining steps.
type policyRow struct {
	line       int
	state      domain.StateInfo
	county     string
	level      string
	rawFIPS    string
	rawDate    string
	policyType string
	startStop  string
}

func (c *PolicyCleaner) cleanTable(t csvfile.Table, cases []domain.CaseRecord) ([]domain.PolicyRecord, error) {
	if len(cases) == 0 {
		return nil, errors.New("policy cleaning requires a non-empty cleaned case table")
	}
	if err := t.Require("policies", requiredPolicyColumns...); err != nil {
		return nil, err
	}

	rows := c.extractRows(t)

	if err := reconcileGeography(rows, cases); err != nil {
		return nil, err
	}

	minDate, maxDate := caseDateBounds(cases)
	return c.finalizeRows(rows, minDate, maxDate)
}

// extractRows filters to the 50 states and normalizes county names, mapping
// null counties to the statewide sentinel.
func (c *PolicyCleaner) extractRows(t csvfile.Table) []policyRow {
	c.metrics.RowsIngested.WithLabelValues("policies").Add(float64(len(t.Rows)))

	rows := make([]policyRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		st, ok := domain.StateByAbbr(row.Get("state_id"))
		if !ok {
			c.dropPolicyRow("state_filter")
			continue
		}

		county := domain.StatewideCounty
		if v := row.Get("county"); v != "" {
			county = domain.NormalizeCountyName(v)
		}

		rows = append(rows, policyRow{
			line:       row.Line,
			state:      st,
			county:     county,
			level:      row.Get("policy_level"),
			rawFIPS:    row.Get("fips_code"),
			rawDate:    row.Get("date"),
			policyType: row.Get("policy_type"),
			startStop:  row.Get("start_stop"),
		})
	}
	return rows
}

// reconcileGeography is the hard precondition between the two datasets:
// every non-statewide county must exist in the case table's vocabulary.
// All unmatched names are reported together; partial success would let
// downstream joins silently drop rows.
func reconcileGeography(rows []policyRow, cases []domain.CaseRecord) error {
	vocab := make(map[string]bool, len(cases))
	for _, rec := range cases {
		vocab[rec.County] = true
	}

	seen := make(map[string]bool)
	var unmatched []string
	for _, r := range rows {
		if r.county == domain.StatewideCounty || vocab[r.county] || seen[r.county] {
			continue
		}
		seen[r.county] = true
		unmatched = append(unmatched, r.county)
	}

	if len(unmatched) > 0 {
		sort.Strings(unmatched)
		return &domain.DataIntegrityError{
			Dataset:   "policies",
			Problem:   "counties missing from case geography",
			Offenders: unmatched,
		}
	}
	return nil
}

// finalizeRows assigns FIPS codes, repairs and bounds dates, and collapses
// policy labels, dropping rows outside the case date range and the generic
// phase placeholders.
func (c *PolicyCleaner) finalizeRows(rows []policyRow, minDate, maxDate time.Time) ([]domain.PolicyRecord, error) {
	var badEnums []string
	records := make([]domain.PolicyRecord, 0, len(rows))

	for _, r := range rows {
		if r.level != domain.PolicyLevelState && r.level != domain.PolicyLevelCounty {
			badEnums = append(badEnums, fmt.Sprintf("line %d: policy_level %q", r.line, r.level))
			continue
		}
		if r.startStop != domain.PolicyStart && r.startStop != domain.PolicyStop {
			badEnums = append(badEnums, fmt.Sprintf("line %d: start_stop %q", r.line, r.startStop))
			continue
		}

		fips := r.state.FIPS
		if r.level == domain.PolicyLevelCounty {
			v, err := parseInt64(r.rawFIPS)
			if err != nil {
				return nil, fmt.Errorf("policies line %d: parse fips_code: %w", r.line, err)
			}
			fips = v
		}

		date, err := domain.ParseDate(domain.RepairDateString(r.rawDate))
		if err != nil {
			return nil, fmt.Errorf("policies line %d: %w", r.line, err)
		}
		if date.Before(minDate) || date.After(maxDate) {
			c.dropPolicyRow("date_range")
			continue
		}

		policyType := domain.CanonicalPolicyType(r.policyType)
		if domain.IsPhasePlaceholder(policyType) {
			c.dropPolicyRow("phase_placeholder")
			continue
		}

		records = append(records, domain.PolicyRecord{
			State:       r.state.Name,
			County:      r.county,
			PolicyLevel: r.level,
			FIPSCode:    fips,
			PolicyType:  policyType,
			Date:        date,
			StartStop:   r.startStop,
		})
	}

	if len(badEnums) > 0 {
		return nil, &domain.DataIntegrityError{
			Dataset:   "policies",
			Problem:   "invalid enum values",
			Offenders: badEnums,
		}
	}

	c.metrics.RowsKept.WithLabelValues("policies").Add(float64(len(records)))
	return records, nil
}

func (c *PolicyCleaner) dropPolicyRow(reason string) {
	c.metrics.RowsDropped.WithLabelValues("policies", reason).Inc()
}

// caseDateBounds returns the inclusive [min, max] date range of the cleaned
// case table.
func caseDateBounds(cases []domain.CaseRecord) (time.Time, time.Time) {
	minDate, maxDate := cases[0].Date, cases[0].Date
	for _, rec := range cases[1:] {
		if rec.Date.Before(minDate) {
			minDate = rec.Date
		}
		if rec.Date.After(maxDate) {
			maxDate = rec.Date
		}
	}
	return minDate, maxDate
}
