// Package dedupe remembers recently scored comment IDs so redelivered
// Kafka messages are not indexed twice.
package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache keeps a bounded, time-limited set of comment IDs. Oldest entries
// are evicted first once capacity is reached.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seen reports whether id was marked inside the ttl window.
func (c *Cache) Seen(id string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fresh(id, now)
}

// Mark records ids as scored.
func (c *Cache) Mark(ids ...string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		c.items[id] = now
		c.order = append(c.order, entry{key: id, ts: now})
	}
	c.compact(now)
}

// Filter returns the ids not seen yet, preserving order and dropping
// repeats within ids. It does not mark them; call Mark once they are stored.
func (c *Cache) Filter(ids []string) []string {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(ids))
	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := batch[id]; dup || c.fresh(id, now) {
			continue
		}
		batch[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Len returns the number of remembered ids, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) fresh(id string, now time.Time) bool {
	ts, ok := c.items[id]
	return ok && now.Sub(ts) <= c.ttl
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
