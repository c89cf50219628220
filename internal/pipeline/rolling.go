package pipeline

import (
	"runtime"
	"sort"
	"sync"
)

// fillRollingAverages repairs the null 7-day averages in place. Rows are
// grouped by full location name and each group is processed independently:
// a window never crosses a location boundary, and every goroutine writes
// only to its own group's row indices.
//
// Nulls dated before the seed cutoff are zero-filled (the location has no
// usable history yet); nulls on or after it are recomputed as the sum of raw
// counts over the trailing (date-7d, date] window divided by 7. The window
// is date-bounded, not count-bounded, so locations with short history get a
// naturally smaller window instead of an error.
func (c *CaseCleaner) fillRollingAverages(rows []caseRow) {
	groups := make(map[string][]int)
	for i := range rows {
		loc := rows[i].rec.FullLocationName
		groups[loc] = append(groups[loc], i)
	}
	if len(groups) == 0 {
		return
	}

	workers := c.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	work := make(chan []int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idxs := range work {
				c.fillLocation(rows, idxs)
			}
		}()
	}
	for _, idxs := range groups {
		work <- idxs
	}
	close(work)
	wg.Wait()
}

// fillLocation slides a two-pointer window over one location's rows in date
// order, maintaining running sums of the raw counts.
func (c *CaseCleaner) fillLocation(rows []caseRow, idxs []int) {
	sort.Slice(idxs, func(i, j int) bool {
		return rows[idxs[i]].rec.Date.Before(rows[idxs[j]].rec.Date)
	})

	windowDays := float64(c.rules.RollingWindow.Hours() / 24)
	var caseSum, deathSum int64
	start := 0

	for _, idx := range idxs {
		r := &rows[idx]
		caseSum += r.rec.NewCases
		deathSum += r.rec.NewDeaths

		// Evict rows at or before date-7d: the window is (date-7d, date].
		cutoff := r.rec.Date.Add(-c.rules.RollingWindow)
		for !rows[idxs[start]].rec.Date.After(cutoff) {
			caseSum -= rows[idxs[start]].rec.NewCases
			deathSum -= rows[idxs[start]].rec.NewDeaths
			start++
		}

		if r.cases7 == nil {
			if r.rec.Date.Before(c.rules.RollingSeedCutoff) {
				r.rec.NewCases7DayAvg = 0
				c.metrics.RollingGapsFilled.WithLabelValues("cases", "zero_filled").Inc()
			} else {
				r.rec.NewCases7DayAvg = float64(caseSum) / windowDays
				c.metrics.RollingGapsFilled.WithLabelValues("cases", "recomputed").Inc()
			}
		}
		if r.deaths7 == nil {
			if r.rec.Date.Before(c.rules.RollingSeedCutoff) {
				r.rec.NewDeaths7DayAvg = 0
				c.metrics.RollingGapsFilled.WithLabelValues("deaths", "zero_filled").Inc()
			} else {
				r.rec.NewDeaths7DayAvg = float64(deathSum) / windowDays
				c.metrics.RollingGapsFilled.WithLabelValues("deaths", "recomputed").Inc()
			}
		}
	}
}
