package vendors

import (
	"sync"
	"time"
)

// Cache stores resolved profiles keyed by normalized software name.
type Cache interface {
	// Get returns the cached profile for a normalized name, or false when
	// absent or expired.
	Get(name string) (*Profile, bool)

	// Put stores a profile under a normalized name.
	Put(name string, profile *Profile)
}

// TTLCache is a mutex-guarded in-process cache whose entries expire after a
// fixed age. Stale entries are treated as absent and evicted on read.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	profile  Profile
	storedAt time.Time
}

// DefaultTTL bounds how long an AI-discovered vendor profile is reused
// before being re-resolved.
const DefaultTTL = 24 * time.Hour

// NewTTLCache builds a cache with the given entry lifetime. now is
// injectable so tests can advance time; pass nil for the wall clock.
func NewTTLCache(ttl time.Duration, now func() time.Time) *TTLCache {
	if now == nil {
		now = time.Now
	}
	return &TTLCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *TTLCache) Get(name string) (*Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, name)
		return nil, false
	}
	p := entry.profile
	return &p, true
}

func (c *TTLCache) Put(name string, profile *Profile) {
	if profile == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = cacheEntry{profile: *profile, storedAt: c.now()}
}
