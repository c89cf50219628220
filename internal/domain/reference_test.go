package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTable(t *testing.T) {
	assert.Len(t, States, 50)

	t.Run("lookup by abbreviation", func(t *testing.T) {
		st, ok := StateByAbbr("TX")
		require.True(t, ok)
		assert.Equal(t, "Texas", st.Name)
		assert.Equal(t, int64(48), st.FIPS)
	})

	t.Run("lookup by name", func(t *testing.T) {
		st, ok := StateByName("Alaska")
		require.True(t, ok)
		assert.Equal(t, "AK", st.Abbr)
		assert.Equal(t, int64(2), st.FIPS)
	})

	t.Run("territories absent", func(t *testing.T) {
		for _, abbr := range []string{"PR", "DC", "GU", "VI", "AS", "MP"} {
			_, ok := StateByAbbr(abbr)
			assert.False(t, ok, abbr)
		}
	})

	t.Run("abbreviations unique", func(t *testing.T) {
		seen := map[string]bool{}
		for _, s := range States {
			assert.False(t, seen[s.Abbr], s.Abbr)
			seen[s.Abbr] = true
		}
	})
}

func TestDefaultCleaningRules(t *testing.T) {
	rules := DefaultCleaningRules()

	assert.Equal(t, time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC), rules.MaxDate)
	assert.Equal(t, time.Date(2020, time.January, 30, 0, 0, 0, 0, time.UTC), rules.RollingSeedCutoff)
	assert.Equal(t, 7*24*time.Hour, rules.RollingWindow)
	assert.ElementsMatch(t, []string{"Puerto Rico", "District of Columbia"}, rules.ExcludedStates)

	overrides := map[string]int64{}
	for _, o := range rules.PopulationOverrides {
		assert.Equal(t, "Alaska", o.State)
		overrides[o.County] = o.Population
	}
	assert.Equal(t, int64(7102), overrides["chugach"])
	assert.Equal(t, int64(2617), overrides["copper river"])
}
