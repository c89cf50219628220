package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting(t *testing.T) {
	// Unregistered instances can coexist, one per test.
	m1 := NewMetricsForTesting()
	m2 := NewMetricsForTesting()

	m1.RowsDropped.WithLabelValues("cases", "date_horizon").Inc()
	m1.RollingGapsFilled.WithLabelValues("deaths", "zero_filled").Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m1.RowsDropped.WithLabelValues("cases", "date_horizon")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m1.RollingGapsFilled.WithLabelValues("deaths", "zero_filled")))
	assert.Zero(t, testutil.ToFloat64(m2.RowsDropped.WithLabelValues("cases", "date_horizon")))
}
