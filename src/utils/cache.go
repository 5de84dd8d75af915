package utils

import (
	"sync"
	"time"
)

// Cache holds a single value with an expiration time. It is safe for
// concurrent use.
type Cache[T any] struct {
	value      T
	cachedAt   time.Time
	expiration time.Time
	mutex      sync.RWMutex
	now        func() time.Time
}

// NewCache initializes a new cache with an empty value.
func NewCache[T any]() *Cache[T] {
	return NewCacheWithClock[T](time.Now)
}

// NewCacheWithClock initializes a cache that reads the current time from now.
func NewCacheWithClock[T any](now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{now: now}
}

// Set sets a new value in the cache with an expiration time.
func (c *Cache[T]) Set(value T, duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.value = value
	c.cachedAt = now
	c.expiration = now.Add(duration)
}

// Get retrieves the cached value if it has not expired.
func (c *Cache[T]) Get() (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.expiration.IsZero() || !c.now().Before(c.expiration) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// CachedAt returns when the current value was stored. Zero when empty.
func (c *Cache[T]) CachedAt() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cachedAt
}

// Clear removes the cached value.
func (c *Cache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero T
	c.value = zero
	c.cachedAt = time.Time{}
	c.expiration = time.Time{}
}
