package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// cleaning pipelines. Dataset labels are "cases" or "policies".
type Metrics struct {
	RowsIngested *prometheus.CounterVec // labels: dataset
	RowsKept     *prometheus.CounterVec // labels: dataset
	RowsDropped  *prometheus.CounterVec // labels: dataset, reason

	// Rolling-average gap repairs, by metric={cases,deaths} and
	// action={zero_filled,recomputed}.
	RollingGapsFilled *prometheus.CounterVec

	CleanCacheHits *prometheus.CounterVec   // labels: dataset
	CleanDuration  *prometheus.HistogramVec // labels: dataset

	PipelineRunning      prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsKept,
		m.RowsDropped,
		m.RollingGapsFilled,
		m.CleanCacheHits,
		m.CleanDuration,
		m.PipelineRunning,
		m.LastSuccessTimestamp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "rows_ingested_total",
			Help:      "Raw rows read from a source dataset.",
		}, []string{"dataset"}),
		RowsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "rows_kept_total",
			Help:      "Rows surviving all cleaning filters.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during cleaning, by reason.",
		}, []string{"dataset", "reason"}),
		RollingGapsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "rolling_gaps_filled_total",
			Help:      "Null 7-day rolling averages repaired, by metric and action.",
		}, []string{"metric", "action"}),
		CleanCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "clean_cache_hits_total",
			Help:      "Runs short-circuited by a present cleaned-output file.",
		}, []string{"dataset"}),
		CleanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_etl",
			Name:      "clean_duration_seconds",
			Help:      "Duration of one dataset's full cleaning pass.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"dataset"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_etl",
			Name:      "pipeline_running",
			Help:      "1 while a cleaning run is active, 0 otherwise.",
		}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful cleaning run.",
		}),
	}
}
