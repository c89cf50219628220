package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/covid-policy-etl/internal/domain"
	"github.com/couchcryptid/covid-policy-etl/internal/observability"
)

// CasePipeline produces the cleaned case table.
type CasePipeline interface {
	Clean(ctx context.Context) ([]domain.CaseRecord, error)
}

// PolicyPipeline produces the cleaned policy table from the cleaned cases.
type PolicyPipeline interface {
	Clean(ctx context.Context, cases []domain.CaseRecord) ([]domain.PolicyRecord, error)
}

// Runner executes one full cleaning run: cases first, then policies against
// the case geography.
type Runner struct {
	cases    CasePipeline
	policies PolicyPipeline
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewRunner creates a Runner with the given pipelines and observability.
func NewRunner(cases CasePipeline, policies PolicyPipeline, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		cases:    cases,
		policies: policies,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a cleaning run has completed, or an error
// describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("cleaning run has not completed yet")
	}
	return nil
}

// Run executes the cleaning run. Integrity and schema violations abort the
// run; nothing is downgraded to a warning.
func (r *Runner) Run(ctx context.Context) error {
	start := clock.Now()
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	caseRecords, err := r.cases.Clean(ctx)
	if err != nil {
		return fmt.Errorf("case pipeline: %w", err)
	}

	policyRecords, err := r.policies.Clean(ctx, caseRecords)
	if err != nil {
		return fmt.Errorf("policy pipeline: %w", err)
	}

	r.metrics.LastSuccessTimestamp.Set(float64(clock.Now().Unix()))
	r.ready.Store(true)
	r.logger.Info("cleaning run complete",
		"case_records", len(caseRecords),
		"policy_records", len(policyRecords),
		"duration", clock.Since(start),
	)
	return nil
}
