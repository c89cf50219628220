package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-policy-etl/internal/config"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
	"github.com/couchcryptid/covid-policy-etl/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCaseCleaner() *CaseCleaner {
	return &CaseCleaner{
		rules:   domain.DefaultCleaningRules(),
		logger:  testLogger(),
		metrics: observability.NewMetricsForTesting(),
		workers: 2,
	}
}

// rawCase is one raw feed row in column order.
type rawCase struct {
	date, locType, fips, name, state, pop string
	cases, deaths                         string
	cases1e5, deaths1e5                   string
	cases7, deaths7                       string
}

func (r rawCase) fields() []string {
	return []string{
		r.date, r.locType, r.fips, r.name, r.state, r.pop,
		r.cases, r.deaths, r.cases1e5, r.deaths1e5, r.cases7, r.deaths7,
	}
}

// travisRow is a well-formed county row with every nullable field populated.
func travisRow(date string, cases int64) rawCase {
	return rawCase{
		date:    date,
		locType: "county",
		fips:    "48453",
		name:    "Travis",
		state:   "Texas",
		pop:     "100000",
		cases:   strconv.FormatInt(cases, 10),
		deaths:  "0",
		cases7:  "1",
		deaths7: "0",
	}
}

func caseTable(rows ...rawCase) csvfile.Table {
	recs := make([][]string, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.fields())
	}
	return csvfile.NewTable(requiredCaseColumns, recs)
}

func recordByDate(t *testing.T, records []domain.CaseRecord, date string) domain.CaseRecord {
	t.Helper()
	for _, r := range records {
		if r.Date.Format(domain.DateLayout) == date {
			return r
		}
	}
	t.Fatalf("no record for date %s", date)
	return domain.CaseRecord{}
}

func TestCleanTable_RollingGapRecomputed(t *testing.T) {
	// Ten consecutive days with new_cases 1..10. Day 8's rolling average is
	// null, so it must come back as the mean of days 2 through 8.
	dates := []string{
		"2020-03-01", "2020-03-02", "2020-03-03", "2020-03-04", "2020-03-05",
		"2020-03-06", "2020-03-07", "2020-03-08", "2020-03-09", "2020-03-10",
	}
	rows := make([]rawCase, 0, len(dates))
	for i, d := range dates {
		r := travisRow(d, int64(i+1))
		r.cases7 = "99"
		if d == "2020-03-08" {
			r.cases7 = ""
			r.deaths7 = ""
		}
		rows = append(rows, r)
	}

	records, err := newTestCaseCleaner().cleanTable(caseTable(rows...))
	require.NoError(t, err)
	require.Len(t, records, len(dates))

	repaired := recordByDate(t, records, "2020-03-08")
	assert.InDelta(t, 5.0, repaired.NewCases7DayAvg, 1e-9, "(2+3+4+5+6+7+8)/7")
	assert.InDelta(t, 0.0, repaired.NewDeaths7DayAvg, 1e-9)

	// Populated source values are never recomputed.
	untouched := recordByDate(t, records, "2020-03-09")
	assert.Equal(t, 99.0, untouched.NewCases7DayAvg)
}

func TestCleanTable_RollingSeedPeriodZeroFilled(t *testing.T) {
	early := travisRow("2020-01-27", 7)
	early.cases7 = ""
	early.deaths7 = ""
	atCutoff := travisRow("2020-01-30", 14)
	atCutoff.cases7 = ""

	records, err := newTestCaseCleaner().cleanTable(caseTable(
		travisRow("2020-01-25", 7),
		early,
		atCutoff,
	))
	require.NoError(t, err)

	// Before the cutoff: zero-filled, never recomputed.
	assert.Zero(t, recordByDate(t, records, "2020-01-27").NewCases7DayAvg)

	// On the cutoff: recomputed over the trailing window, (7+7+14)/7.
	assert.InDelta(t, 4.0, recordByDate(t, records, "2020-01-30").NewCases7DayAvg, 1e-9)
}

func TestCleanTable_RollingWindowStaysWithinLocation(t *testing.T) {
	orange := rawCase{
		date: "2020-03-05", locType: "county", fips: "6059", name: "Orange",
		state: "California", pop: "100000", cases: "100000", deaths: "0",
		cases7: "5", deaths7: "0",
	}
	gap := travisRow("2020-03-05", 7)
	gap.cases7 = ""

	records, err := newTestCaseCleaner().cleanTable(caseTable(orange, gap))
	require.NoError(t, err)

	// Travis's recompute sees only Travis's counts: 7/7, not Orange's flood.
	assert.InDelta(t, 1.0, recordByDate(t, records, "2020-03-05").NewCases7DayAvg, 1e-9)
}

func TestCleanTable_RollingShortHistoryDividesByWindow(t *testing.T) {
	// Three days of history still divide by the full 7-day window.
	third := travisRow("2020-03-03", 7)
	third.cases7 = ""

	records, err := newTestCaseCleaner().cleanTable(caseTable(
		travisRow("2020-03-01", 7),
		travisRow("2020-03-02", 7),
		third,
	))
	require.NoError(t, err)

	assert.InDelta(t, 3.0, recordByDate(t, records, "2020-03-03").NewCases7DayAvg, 1e-9)
}

func TestCleanTable_PopulationOverrides(t *testing.T) {
	chugach := rawCase{
		date: "2020-06-01", locType: "county", fips: "2063", name: "Chugach",
		state: "Alaska", pop: "", cases: "1", deaths: "0", cases7: "1", deaths7: "0",
	}
	copperRiver := rawCase{
		date: "2020-06-01", locType: "county", fips: "2066", name: "Copper River",
		state: "Alaska", pop: "999999", cases: "1", deaths: "0", cases7: "1", deaths7: "0",
	}

	records, err := newTestCaseCleaner().cleanTable(caseTable(chugach, copperRiver))
	require.NoError(t, err)
	require.Len(t, records, 2)

	byCounty := map[string]domain.CaseRecord{}
	for _, r := range records {
		byCounty[r.County] = r
	}
	assert.Equal(t, int64(7102), byCounty["chugach"].TotalPopulation)
	assert.Equal(t, int64(2617), byCounty["copper river"].TotalPopulation, "override wins over the raw value")
}

func TestCleanTable_MissingPopulationFails(t *testing.T) {
	row := travisRow("2020-06-01", 1)
	row.pop = ""

	_, err := newTestCaseCleaner().cleanTable(caseTable(row))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_population")
}

func TestCleanTable_PerCapitaNormalization(t *testing.T) {
	row := travisRow("2020-06-01", 1)
	row.pop = "200000"
	row.cases7 = "5"
	row.deaths7 = "1.4"

	records, err := newTestCaseCleaner().cleanTable(caseTable(row))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.InDelta(t, 2.5, records[0].NewCases7DayPer100k, 1e-9, "5 per 7-day avg over 2x 100k")
	assert.InDelta(t, 0.7, records[0].NewDeaths7DayPer100k, 1e-9)
}

func TestCleanTable_RowFilters(t *testing.T) {
	kept := travisRow("2021-12-30", 1)

	horizon := travisRow("2021-12-31", 1)
	horizon.fips = "6059"

	stateLevel := travisRow("2020-06-01", 1)
	stateLevel.locType = "state"
	stateLevel.fips = "48"

	puertoRico := travisRow("2020-06-01", 1)
	puertoRico.state = "Puerto Rico"
	puertoRico.fips = "72001"

	dc := travisRow("2020-06-01", 1)
	dc.state = "District of Columbia"
	dc.fips = "11001"

	records, err := newTestCaseCleaner().cleanTable(caseTable(kept, horizon, stateLevel, puertoRico, dc))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "2021-12-30", records[0].Date.Format(domain.DateLayout))
}

func TestCleanTable_NameNormalization(t *testing.T) {
	row := rawCase{
		date: "2020-06-01", locType: "county", fips: "48411", name: "San Saba",
		state: "Texas", pop: "5900", cases: "1", deaths: "0", cases7: "1", deaths7: "0",
	}

	records, err := newTestCaseCleaner().cleanTable(caseTable(row))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "san saba", records[0].County)
	assert.Equal(t, "Texas", records[0].State, "state keeps source casing")
	assert.Equal(t, "san saba, Texas", records[0].FullLocationName)
}

func TestCleanTable_NullAndNegativeRepair(t *testing.T) {
	row := travisRow("2020-06-01", 0)
	row.cases = ""
	row.deaths = ""
	row.cases1e5 = "-1.5"
	row.deaths1e5 = ""

	records, err := newTestCaseCleaner().cleanTable(caseTable(row))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Zero(t, records[0].NewCases)
	assert.Zero(t, records[0].NewDeaths)
	assert.Zero(t, records[0].NewCasesPer100k, "negative clips to zero")
	assert.Zero(t, records[0].NewDeathsPer100k)
}

func TestCleanTable_FloatEncodedIntegers(t *testing.T) {
	row := travisRow("2020-06-01", 1)
	row.fips = "48453.0"
	row.pop = "100000.0"

	records, err := newTestCaseCleaner().cleanTable(caseTable(row))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, int64(48453), records[0].FIPSCode)
	assert.Equal(t, int64(100000), records[0].TotalPopulation)
}

func TestCleanTable_DuplicateKeyFails(t *testing.T) {
	_, err := newTestCaseCleaner().cleanTable(caseTable(
		travisRow("2020-06-01", 1),
		travisRow("2020-06-01", 2),
	))

	var integrityErr *domain.DataIntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "cases", integrityErr.Dataset)
	assert.Equal(t, []string{"2020-06-01/48453"}, integrityErr.Offenders)
}

func TestCleanTable_MissingColumnFails(t *testing.T) {
	header := make([]string, 0, len(requiredCaseColumns)-1)
	for _, c := range requiredCaseColumns {
		if c != "new_deaths" {
			header = append(header, c)
		}
	}

	_, err := newTestCaseCleaner().cleanTable(csvfile.NewTable(header, nil))

	var missingErr *domain.MissingFieldError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "new_deaths", missingErr.Field)
}

// stubCaseSource serves a fixed table, counting loads.
type stubCaseSource struct {
	table csvfile.Table
	err   error
	calls int
}

func (s *stubCaseSource) LoadCases(_ context.Context, _ string, _ bool) (csvfile.Table, error) {
	s.calls++
	return s.table, s.err
}

func TestCaseCleanerClean_WritesAndServesCache(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		CaseRawPath:   filepath.Join(dir, "raw.csv"),
		CaseCleanPath: filepath.Join(dir, "clean.csv"),
	}
	src := &stubCaseSource{table: caseTable(
		travisRow("2020-06-01", 3),
		travisRow("2020-06-02", 5),
	)}

	first := NewCaseCleaner(src, cfg, domain.DefaultCleaningRules(), testLogger(), observability.NewMetricsForTesting())
	records, err := first.Clean(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.FileExists(t, cfg.CaseCleanPath)

	// A second run must serve the cleaned cache without touching the source.
	broken := &stubCaseSource{err: errors.New("network down")}
	second := NewCaseCleaner(broken, cfg, domain.DefaultCleaningRules(), testLogger(), observability.NewMetricsForTesting())
	cached, err := second.Clean(context.Background())
	require.NoError(t, err)
	assert.Zero(t, broken.calls)
	assert.Empty(t, cmp.Diff(records, cached))
}

func TestCaseCleanerClean_RecleanIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		CaseRawPath:   filepath.Join(dir, "raw.csv"),
		CaseCleanPath: filepath.Join(dir, "clean.csv"),
	}
	src := &stubCaseSource{table: caseTable(
		travisRow("2020-06-01", 3),
		travisRow("2020-06-02", 5),
	)}

	first := NewCaseCleaner(src, cfg, domain.DefaultCleaningRules(), testLogger(), observability.NewMetricsForTesting())
	_, err := first.Clean(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(cfg.CaseCleanPath)
	require.NoError(t, err)

	recfg := *cfg
	recfg.ForceReclean = true
	again := NewCaseCleaner(src, &recfg, domain.DefaultCleaningRules(), testLogger(), observability.NewMetricsForTesting())
	_, err = again.Clean(context.Background())
	require.NoError(t, err)
	after, err := os.ReadFile(cfg.CaseCleanPath)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestCaseCleanerClean_SourceErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		CaseRawPath:   filepath.Join(dir, "raw.csv"),
		CaseCleanPath: filepath.Join(dir, "clean.csv"),
	}
	src := &stubCaseSource{err: errors.New("boom")}

	c := NewCaseCleaner(src, cfg, domain.DefaultCleaningRules(), testLogger(), observability.NewMetricsForTesting())
	_, err := c.Clean(context.Background())
	require.ErrorContains(t, err, "boom")
	assert.NoFileExists(t, cfg.CaseCleanPath)
}
