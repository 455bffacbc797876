// Package store provides result caching and compression history.
//
// DESIGN: Two pieces with different lifetimes:
//   - Cache: in-memory TTL cache keyed by content hash. A hit on an
//     identical (input, params) pair skips the embedding work entirely.
//   - History: sqlite-backed record of every compression, feeding the
//     stats endpoint. Optional - disabled when no path is configured.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a cached reduction stays valid.
const DefaultCacheTTL = 1 * time.Hour

// Key derives a cache key from the given parts (SHA-256 over a
// length-prefixed concatenation, hex encoded).
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		l := len(p)
		for i := 0; i < 8; i++ {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a TTL-bounded in-memory key/value store.
type Cache struct {
	data     map[string]entry
	mu       sync.RWMutex
	ttl      time.Duration
	stopChan chan struct{}
	stopped  bool
}

type entry struct {
	value     string
	expiresAt time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		data:     make(map[string]entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Set stores value under key.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.data[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Get retrieves value if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Close stops the janitor and drops all entries.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
		c.data = nil
	}
}

// janitor periodically evicts expired entries.
func (c *Cache) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.stopped {
				now := time.Now()
				for key, e := range c.data {
					if now.After(e.expiresAt) {
						delete(c.data, key)
					}
				}
			}
			c.mu.Unlock()
		}
	}
}
