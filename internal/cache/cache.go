package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a computed result stays fresh.
const DefaultTTL = 60 * time.Second

// Options configures a Cache.
type Options struct {
	TTL time.Duration
	Now func() time.Time // clock, time.Now when nil
}

// Cache memoizes a single computed value for a fixed TTL.
// The value is fresh while now - computedAt < TTL; anything else recomputes.
// Compute runs under the lock, so concurrent misses compute once.
type Cache[T any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	value      T
	computedAt time.Time
	valid      bool
}

// New creates an empty cache.
func New[T any](opts Options) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[T]{ttl: opts.TTL, now: opts.Now}
}

// GetOrCompute returns the cached value if fresh, otherwise calls compute,
// stores its result stamped with the current time and returns it.
func (c *Cache[T]) GetOrCompute(compute func() T) (T, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.valid && now.Sub(c.computedAt) < c.ttl {
		return c.value, c.computedAt
	}

	c.value = compute()
	c.computedAt = now
	c.valid = true
	return c.value, c.computedAt
}

// Age returns time since the last computation, and false if nothing is cached.
func (c *Cache[T]) Age() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return 0, false
	}
	return c.now().Sub(c.computedAt), true
}
