// Package source acquires the two raw datasets: the case/death time series
// (data.world CSV export) and the policy-action log (healthdata.gov Socrata
// API). Each download is cached to a local CSV; a present cache file is
// served without touching the network unless force-reload is set.
//
// The contract with the pipelines is total: a full raw table or an error.
// Truncated downloads are not specially detected here; they surface as
// integrity errors during cleaning.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
)

// rawPolicyColumns is the cache-file schema for the Socrata policy feed.
// The trailing metadata columns are cached but pruned during cleaning.
var rawPolicyColumns = []string{
	"state_id", "county", "fips_code", "policy_level", "date",
	"policy_type", "start_stop", "comments", "source", "total_phases",
}

// Client downloads raw datasets over HTTP.
type Client struct {
	caseURL    string
	policyURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an acquisition client.
func NewClient(caseURL, policyURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		caseURL:   caseURL,
		policyURL: policyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// LoadCases returns the raw case/death table, downloading and caching it at
// path when absent or when forceReload is set.
func (c *Client) LoadCases(ctx context.Context, path string, forceReload bool) (csvfile.Table, error) {
	if csvfile.Exists(path) && !forceReload {
		c.logger.Info("reading cached raw case data", "path", path)
		return csvfile.ReadTable(path)
	}

	c.logger.Info("downloading raw case data", "url", c.caseURL)
	body, err := c.get(ctx, c.caseURL)
	if err != nil {
		return csvfile.Table{}, fmt.Errorf("acquire case data: %w", err)
	}
	if err := writeFile(path, body); err != nil {
		return csvfile.Table{}, fmt.Errorf("cache raw case data: %w", err)
	}
	return csvfile.ReadTable(path)
}

// LoadPolicies returns the raw policy table, downloading the Socrata JSON
// resource and caching it at path as CSV when absent or when forceReload is
// set.
func (c *Client) LoadPolicies(ctx context.Context, path string, forceReload bool) (csvfile.Table, error) {
	if csvfile.Exists(path) && !forceReload {
		c.logger.Info("reading cached raw policy data", "path", path)
		return csvfile.ReadTable(path)
	}

	c.logger.Info("downloading raw policy data", "url", c.policyURL)
	body, err := c.get(ctx, c.policyURL)
	if err != nil {
		return csvfile.Table{}, fmt.Errorf("acquire policy data: %w", err)
	}

	records, err := policyJSONToRecords(body)
	if err != nil {
		return csvfile.Table{}, fmt.Errorf("acquire policy data: %w", err)
	}
	if err := csvfile.WriteTable(path, rawPolicyColumns, records); err != nil {
		return csvfile.Table{}, fmt.Errorf("cache raw policy data: %w", err)
	}
	return csvfile.NewTable(rawPolicyColumns, records), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
	}
	return io.ReadAll(resp.Body)
}

// policyJSONToRecords flattens the Socrata JSON array into CSV records.
// Nested values (the geocoded_state point object) are not part of the cache
// schema and are dropped here.
func policyJSONToRecords(body []byte) ([][]string, error) {
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := make([]string, len(rawPolicyColumns))
		for i, col := range rawPolicyColumns {
			rec[i] = stringField(row[col])
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringField(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
