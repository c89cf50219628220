package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCountyName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"county suffix", "Orange County", "orange"},
		{"borough suffix", "Juneau Borough", "juneau"},
		{"city suffix", "Honolulu city", "honolulu"},
		{"municipality suffix", "Anchorage Municipality", "anchorage"},
		{"no suffix", "Travis", "travis"},
		{"suffix mid-name kept", "County Line", "county line"},
		{"already lowercase", "orange county", "orange"},
		{"whitespace", "  Orange County ", "orange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCountyName(tt.in))
		})
	}
}

func TestFullLocationName(t *testing.T) {
	assert.Equal(t, "san saba, Texas", FullLocationName("san saba", "Texas"))
}

func TestRepairDateString(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"year typo", "0020-04-01", "2020-04-01"},
		{"typo with time component", "0020-04-01T00:00:00.000", "2020-04-01T00:00:00.000"},
		{"clean date untouched", "2020-04-01", "2020-04-01"},
		{"short string untouched", "002", "002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RepairDateString(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	expected := time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC)

	t.Run("calendar date", func(t *testing.T) {
		d, err := ParseDate("2020-04-01")
		require.NoError(t, err)
		assert.Equal(t, expected, d)
	})

	t.Run("socrata floating timestamp", func(t *testing.T) {
		d, err := ParseDate("2020-04-01T00:00:00.000")
		require.NoError(t, err)
		assert.Equal(t, expected, d)
	})

	t.Run("time component truncated", func(t *testing.T) {
		d, err := ParseDate("2020-04-01T15:30:00")
		require.NoError(t, err)
		assert.Equal(t, expected, d)
	})

	t.Run("repaired typo parses", func(t *testing.T) {
		d, err := ParseDate(RepairDateString("0020-04-01"))
		require.NoError(t, err)
		assert.Equal(t, expected, d)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDate("not a date")
		require.Error(t, err)
	})
}

func TestCanonicalPolicyType(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			"verbose mask label collapses",
			"Mandate Face Mask Use By All Individuals In Public Spaces",
			"mandate face masks in public spaces",
		},
		{
			"verbose eviction label collapses",
			"Stop Initiation Of Evictions Overall Or Due To Covid Related Issues",
			"stop initiation of evictions",
		},
		{"unmapped label lowercased", "Shelter In Place", "shelter in place"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalPolicyType(tt.in))
		})
	}
}

func TestIsPhasePlaceholder(t *testing.T) {
	for _, placeholder := range []string{"phase 1", "phase 2", "phase 3", "phase 4", "phase 5", "new phase"} {
		assert.True(t, IsPhasePlaceholder(placeholder), placeholder)
	}
	assert.False(t, IsPhasePlaceholder("shelter in place"))
	assert.False(t, IsPhasePlaceholder("phase 6"))
}
