package cache

import (
	"sync"
	"time"
)

// TimedCache is a bounded set whose members expire after a fixed TTL.
// Used for one-time values like login nonces: Insert registers a
// value, GetAndRemove consumes it exactly once.
type TimedCache[T comparable] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[T]time.Time
}

func NewTimedCache[T comparable](ttl time.Duration, maxSize int) *TimedCache[T] {
	return &TimedCache[T]{
		ttl:     ttl,
		maxSize: maxSize,
		entries: map[T]time.Time{},
	}
}

func (c *TimedCache[T]) Insert(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[value] = time.Now().Add(c.ttl)
}

// GetAndRemove consumes value from the cache, reporting whether it
// was present and unexpired.
func (c *TimedCache[T]) GetAndRemove(value T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[value]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.entries, value)
	if time.Now().After(expiry) {
		var zero T
		return zero, false
	}
	return value, true
}

// Callers must hold mu.

func (c *TimedCache[T]) purgeExpired() {
	now := time.Now()
	for value, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, value)
		}
	}
}

func (c *TimedCache[T]) evictOldest() {
	var oldest T
	var oldestExpiry time.Time
	first := true
	for value, expiry := range c.entries {
		if first || expiry.Before(oldestExpiry) {
			oldest, oldestExpiry = value, expiry
			first = false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
