package gridsearch

import (
	"math"
	"sync"
)

type cacheKey struct {
	folds  int
	qx, qy int64
}

// ResultCache memoizes evaluation outcomes keyed by fold count and grid
// point. Points are matched with the same Tolerance as GridPoint.Equal, so a
// coordinate recomputed through a different chain of float operations finds
// the entry stored for it.
//
// The cache never evicts and lives for one search run.
//
// Thread safety:
//   - Get, Put and Len may be called concurrently.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Performance
}

// NewResultCache returns an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[cacheKey]*Performance)}
}

func quantize(v float64) int64 {
	return int64(math.Floor(v / Tolerance))
}

// Get returns the performance stored for (folds, p), if any.
func (c *ResultCache) Get(folds int, p GridPoint) (*Performance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lookup(folds, p)
}

func (c *ResultCache) lookup(folds int, p GridPoint) (*Performance, bool) {
	qx, qy := quantize(p.X), quantize(p.Y)

	// Two points within Tolerance fall in the same or an adjacent bucket.
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			perf, ok := c.entries[cacheKey{folds: folds, qx: qx + dx, qy: qy + dy}]
			if ok && perf.Point.Equal(p) {
				return perf, true
			}
		}
	}

	return nil, false
}

// Put stores perf under (folds, perf.Point). An entry already present for an
// equal point is kept.
func (c *ResultCache) Put(folds int, perf *Performance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(folds, perf.Point); ok {
		return
	}

	key := cacheKey{folds: folds, qx: quantize(perf.Point.X), qy: quantize(perf.Point.Y)}
	if _, ok := c.entries[key]; ok {
		return
	}

	c.entries[key] = perf
}

// Len returns the number of stored entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
