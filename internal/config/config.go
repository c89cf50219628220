package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default source endpoints. The case URL is data.world's stable CSV export
// of the county time series; the policy URL is the healthdata.gov Socrata
// resource for state and county policy actions.
const (
	DefaultCaseSourceURL   = "https://query.data.world/s/cxcvunxyn7ibkeozhdsuxub27abl7p"
	DefaultPolicySourceURL = "https://healthdata.gov/resource/gyqz-9u7n.json?$limit=10000"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CaseRawPath     string
	CaseCleanPath   string
	PolicyRawPath   string
	PolicyCleanPath string

	CaseSourceURL   string
	PolicySourceURL string

	// ForceReload bypasses the raw-data caches; ForceReclean bypasses the
	// cleaned-output caches.
	ForceReload  bool
	ForceReclean bool

	// HTTPAddr serves /healthz, /readyz, and /metrics during the run.
	// Empty disables the ops server.
	HTTPAddr string

	// HTTPTimeout bounds each raw-dataset download.
	HTTPTimeout time.Duration

	// RollingWorkers caps the goroutines recomputing per-location rolling
	// averages. Zero means one per CPU.
	RollingWorkers int

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	httpTimeout, err := parseDurationEnv("HTTP_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	workers, err := parseRollingWorkers()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CaseRawPath:     envOrDefault("CASE_RAW_PATH", "data/covid_timeseries.csv"),
		CaseCleanPath:   envOrDefault("CASE_CLEAN_PATH", "data/covid_timeseries_cleaned.csv"),
		PolicyRawPath:   envOrDefault("POLICY_RAW_PATH", "data/covid_policies.csv"),
		PolicyCleanPath: envOrDefault("POLICY_CLEAN_PATH", "data/covid_policies_cleaned.csv"),
		CaseSourceURL:   envOrDefault("CASE_SOURCE_URL", DefaultCaseSourceURL),
		PolicySourceURL: envOrDefault("POLICY_SOURCE_URL", DefaultPolicySourceURL),
		ForceReload:     os.Getenv("FORCE_RELOAD") == "true",
		ForceReclean:    os.Getenv("FORCE_RECLEAN") == "true",
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		HTTPTimeout:     httpTimeout,
		RollingWorkers:  workers,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.CaseSourceURL == "" {
		return nil, errors.New("CASE_SOURCE_URL is required")
	}
	if cfg.PolicySourceURL == "" {
		return nil, errors.New("POLICY_SOURCE_URL is required")
	}
	for name, path := range map[string]string{
		"CASE_RAW_PATH":     cfg.CaseRawPath,
		"CASE_CLEAN_PATH":   cfg.CaseCleanPath,
		"POLICY_RAW_PATH":   cfg.PolicyRawPath,
		"POLICY_CLEAN_PATH": cfg.PolicyCleanPath,
	} {
		if path == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRollingWorkers() (int, error) {
	s := os.Getenv("ROLLING_WORKERS")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid ROLLING_WORKERS")
	}
	return n, nil
}
