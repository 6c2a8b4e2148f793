package data

import (
	"fmt"
	"sync"
	"time"

	"energy-ml/internal/model"
)

// CacheEntry is one cached weather reading.
type CacheEntry struct {
	Conditions model.Conditions
	ExpiresAt  time.Time
}

// ConditionsCache keeps current conditions per location for a short TTL so
// bursts of estimates for the same place hit the provider once.
// A nil cache is valid and never hits.
type ConditionsCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewConditionsCache returns nil when ttl is not positive, disabling caching.
func NewConditionsCache(ttl time.Duration) *ConditionsCache {
	if ttl <= 0 {
		return nil
	}
	c := &ConditionsCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(ttl)
	return c
}

// Get retrieves a cached reading if present and not expired.
func (c *ConditionsCache) Get(key string) (model.Conditions, bool) {
	if c == nil {
		return model.Conditions{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return model.Conditions{}, false
	}
	return entry.Conditions, true
}

// Set stores a reading.
func (c *ConditionsCache) Set(key string, cond model.Conditions) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Conditions: cond,
		ExpiresAt:  c.now().Add(c.ttl),
	}
}

// Clear removes all entries.
func (c *ConditionsCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

// Close stops the cleanup goroutine.
func (c *ConditionsCache) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *ConditionsCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *ConditionsCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}

// CacheKey rounds coordinates to about 10 m so nearby lookups share a key.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
