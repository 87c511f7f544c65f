package manager

import "sync/atomic"

type cacheEntry struct {
	groups []MaterialGroup
	count  int
}

// BatchingCache memoizes material grouping across frames. A recompute happens
// when the system count differs from the cached one or after Invalidate.
// The cached result is swapped as a whole, never edited.
type BatchingCache struct {
	entry      atomic.Pointer[cacheEntry]
	dirty      bool
	hits       uint64
	misses     uint64
	generation uint64
}

func NewBatchingCache() *BatchingCache {
	return &BatchingCache{dirty: true}
}

// GetOrUpdate returns the cached groups, or recomputes them via compute when
// currentCount changed or the cache was invalidated.
func (c *BatchingCache) GetOrUpdate(compute func() []MaterialGroup, currentCount int) []MaterialGroup {
	if e := c.entry.Load(); e != nil && !c.dirty && e.count == currentCount {
		c.hits++
		return e.groups
	}
	groups := compute()
	c.entry.Store(&cacheEntry{groups: groups, count: currentCount})
	c.dirty = false
	c.misses++
	c.generation++
	return groups
}

func (c *BatchingCache) Invalidate() { c.dirty = true }

func (c *BatchingCache) Dirty() bool { return c.dirty }

// Groups returns the last computed groups without recomputing.
func (c *BatchingCache) Groups() []MaterialGroup {
	if e := c.entry.Load(); e != nil {
		return e.groups
	}
	return nil
}

func (c *BatchingCache) Hits() uint64   { return c.hits }
func (c *BatchingCache) Misses() uint64 { return c.misses }

// Generation increments on every recompute.
func (c *BatchingCache) Generation() uint64 { return c.generation }
