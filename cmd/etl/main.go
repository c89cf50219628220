// Command etl runs one full cleaning pass over the raw COVID case/death and
// policy datasets, writing the cleaned tables to their configured paths.
// With HTTP_ADDR set, health and Prometheus metrics endpoints are served for
// the duration of the run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/covid-policy-etl/internal/adapter/http"
	"github.com/couchcryptid/covid-policy-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-policy-etl/internal/config"
	"github.com/couchcryptid/covid-policy-etl/internal/domain"
	"github.com/couchcryptid/covid-policy-etl/internal/observability"
	"github.com/couchcryptid/covid-policy-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if code := run(cfg); code != 0 {
		os.Exit(code)
	}
}

func run(cfg *config.Config) int {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	src := source.NewClient(cfg.CaseSourceURL, cfg.PolicySourceURL, cfg.HTTPTimeout, logger)
	rules := domain.DefaultCleaningRules()

	caseCleaner := pipeline.NewCaseCleaner(src, cfg, rules, logger, metrics)
	policyCleaner := pipeline.NewPolicyCleaner(src, cfg, rules, logger, metrics)
	runner := pipeline.NewRunner(caseCleaner, policyCleaner, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	exitCode := 0
	if err := runner.Run(ctx); err != nil {
		logger.Error("cleaning run failed", "error", err)
		exitCode = 1
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	return exitCode
}
