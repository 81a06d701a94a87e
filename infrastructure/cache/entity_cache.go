// Package cache provides the entity detail cache for the map session.
// Repeatedly selecting the same node must not refetch its detail payload.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EntityCache is a bounded LRU cache of fetched entity detail payloads,
// keyed by "type:id". Recency is tracked with access counters; when the
// cache fills up, one eviction pass frees roughly 20% of capacity so a
// burst of inserts does not evict one entry at a time.
//
// The cache is an explicit, constructible object with injected capacity
// and expiry so independent graph views (and tests) get isolated
// instances. Stale entries are only corrected by expiry or an explicit
// Clear; there is no cross-entity invalidation.
type EntityCache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	capacity  int
	ttl       time.Duration
	accessSeq uint64
	disposed  bool

	// Statistics
	hits      int64
	misses    int64
	evictions int64

	now     func() time.Time
	onEvict func(count int)
	logger  *zap.Logger
}

// entry represents a single cached payload
type entry struct {
	key        string
	value      interface{}
	expiresAt  time.Time
	lastAccess uint64
}

// evictShare is the fraction of capacity freed by one eviction pass
const evictShare = 0.2

// Key builds the canonical cache key for an entity
func Key(entityType, id string) string {
	return fmt.Sprintf("%s:%s", entityType, id)
}

// New creates an entity cache with the given capacity and default expiry
func New(capacity int, ttl time.Duration, logger *zap.Logger) *EntityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity < 1 {
		capacity = 1
	}

	return &EntityCache{
		entries:  make(map[string]*entry, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// OnEvict registers a callback invoked with the size of each eviction
// batch. The callback runs with the cache lock held and must not call
// back into the cache.
func (c *EntityCache) OnEvict(fn func(count int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a payload. Expired entries are evicted on access. A hit
// bumps the entry's recency.
func (c *EntityCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, false
	}

	e, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.accessSeq++
	e.lastAccess = c.accessSeq
	c.hits++
	return e.value, true
}

// Put stores a payload with the default expiry
func (c *EntityCache) Put(key string, value interface{}) {
	c.PutTTL(key, value, c.ttl)
}

// PutTTL stores a payload with an explicit expiry. Inserting into a full
// cache evicts the least-recently-used batch first; overwriting an
// existing key resets its recency to most recent.
func (c *EntityCache) PutTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	c.accessSeq++

	if e, exists := c.entries[key]; exists {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		e.lastAccess = c.accessSeq
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictBatch()
	}

	c.entries[key] = &entry{
		key:        key,
		value:      value,
		expiresAt:  c.now().Add(ttl),
		lastAccess: c.accessSeq,
	}
}

// evictBatch removes the least-recently-accessed ~20% of capacity in one
// pass. Must be called with the lock held.
func (c *EntityCache) evictBatch() {
	target := int(float64(c.capacity) * evictShare)
	if target < 1 {
		target = 1
	}

	ordered := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].lastAccess < ordered[j].lastAccess
	})

	if target > len(ordered) {
		target = len(ordered)
	}
	for _, e := range ordered[:target] {
		delete(c.entries, e.key)
	}
	c.evictions += int64(target)
	if c.onEvict != nil {
		c.onEvict(target)
	}

	c.logger.Debug("Evicted cache batch",
		zap.Int("count", target),
		zap.Int("remaining", len(c.entries)),
	)
}

// Delete removes a single entry
func (c *EntityCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries
func (c *EntityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry, c.capacity)
}

// Dispose clears the cache and rejects further use
func (c *EntityCache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.disposed = true
}

// Len returns the number of live entries
func (c *EntityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats holds cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
}

// GetStats returns cache statistics
func (c *EntityCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Items:     len(c.entries),
	}
}
