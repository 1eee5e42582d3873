package report

import (
	"sort"
	"sync"
)

// cache holds one snapshot per year. Invalidations are sequenced so a
// refresh that read its data before a later write never clears that write's
// mark, and a snapshot read before the one already stored never replaces it.
type cache struct {
	mu     sync.Mutex
	seq    uint64
	epoch  uint64
	years  map[int]*YearReport
	stale  map[int]map[string]uint64
	stored map[int]uint64
}

func newCache() *cache {
	return &cache{
		years:  make(map[int]*YearReport),
		stale:  make(map[int]map[string]uint64),
		stored: make(map[int]uint64),
	}
}

type view struct {
	report *YearReport
	stale  []string
	mark   uint64
	epoch  uint64
}

func (v view) fresh() bool {
	return v.report != nil && len(v.stale) == 0
}

func (c *cache) view(year int) view {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := view{report: c.years[year], mark: c.seq, epoch: c.epoch}
	for id := range c.stale[year] {
		v.stale = append(v.stale, id)
	}
	sort.Strings(v.stale)
	return v
}

// store swaps in report when no reset happened since v was taken and no
// snapshot taken after v is already stored. Stale marks newer than v are
// kept. A rejected store returns the snapshot that stays in place, which is
// nil after a reset.
func (c *cache) store(report *YearReport, v view) (*YearReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.epoch != c.epoch {
		return nil, false
	}
	if at, ok := c.stored[report.Year]; ok && v.mark < at {
		return c.years[report.Year], false
	}
	c.years[report.Year] = report
	c.stored[report.Year] = v.mark
	for id, seq := range c.stale[report.Year] {
		if seq <= v.mark {
			delete(c.stale[report.Year], id)
		}
	}
	if len(c.stale[report.Year]) == 0 {
		delete(c.stale, report.Year)
	}
	return report, true
}

func (c *cache) invalidate(employeeID string, year int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	marks, ok := c.stale[year]
	if !ok {
		marks = make(map[string]uint64)
		c.stale[year] = marks
	}
	marks[employeeID] = c.seq
}

func (c *cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.years = make(map[int]*YearReport)
	c.stale = make(map[int]map[string]uint64)
	c.stored = make(map[int]uint64)
}
