package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-policy-etl/internal/adapter/csvfile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadCases(t *testing.T) {
	const body = "date,location_type,state\n2020-06-01,county,Texas\n"

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		io.WriteString(w, body) //nolint:errcheck
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "raw", "cases.csv")
	c := NewClient(srv.URL, "", 5*time.Second, testLogger())

	t.Run("downloads and caches", func(t *testing.T) {
		table, err := c.LoadCases(context.Background(), path, false)
		require.NoError(t, err)

		assert.Equal(t, int64(1), hits.Load())
		assert.True(t, csvfile.Exists(path))
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "Texas", table.Rows[0].Get("state"))
	})

	t.Run("serves cache without network", func(t *testing.T) {
		table, err := c.LoadCases(context.Background(), path, false)
		require.NoError(t, err)

		assert.Equal(t, int64(1), hits.Load(), "no second request")
		assert.Len(t, table.Rows, 1)
	})

	t.Run("force reload bypasses cache", func(t *testing.T) {
		_, err := c.LoadCases(context.Background(), path, true)
		require.NoError(t, err)

		assert.Equal(t, int64(2), hits.Load())
	})
}

func TestLoadCases_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second, testLogger())
	path := filepath.Join(t.TempDir(), "cases.csv")

	_, err := c.LoadCases(context.Background(), path, false)
	require.ErrorContains(t, err, "status 500")
	assert.False(t, csvfile.Exists(path), "failed downloads leave no cache")
}

func TestLoadPolicies(t *testing.T) {
	const body = `[
		{
			"state_id": "CA",
			"county": "Orange County",
			"fips_code": "6059",
			"policy_level": "county",
			"date": "2020-04-01T00:00:00.000",
			"policy_type": "Shelter in Place",
			"start_stop": "start",
			"total_phases": 2,
			"geocoded_state": {"type": "Point", "coordinates": [-120.99, 47.5]}
		},
		{
			"state_id": "TX",
			"policy_level": "state",
			"date": "2020-04-02T00:00:00.000",
			"policy_type": "Phase 1",
			"start_stop": "start"
		}
	]`

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		io.WriteString(w, body) //nolint:errcheck
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "raw", "policies.csv")
	c := NewClient("", srv.URL, 5*time.Second, testLogger())

	table, err := c.LoadPolicies(context.Background(), path, false)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, "CA", first.Get("state_id"))
	assert.Equal(t, "Orange County", first.Get("county"))
	assert.Equal(t, "2", first.Get("total_phases"), "numeric fields flatten to strings")
	assert.Equal(t, "", first.Get("geocoded_state"), "nested values are dropped")

	second := table.Rows[1]
	assert.Equal(t, "", second.Get("county"), "absent fields read as empty")

	// The JSON response is cached as CSV and reread identically.
	cached, err := c.LoadPolicies(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, table.Header, cached.Header)
	require.Len(t, cached.Rows, 2)
	assert.Equal(t, "Orange County", cached.Rows[0].Get("county"))
}

func TestLoadPolicies_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html>maintenance</html>") //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, 5*time.Second, testLogger())
	path := filepath.Join(t.TempDir(), "policies.csv")

	_, err := c.LoadPolicies(context.Background(), path, false)
	require.ErrorContains(t, err, "decode response")
}
