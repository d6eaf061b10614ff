package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// MemoryCache is the daemon-resident response cache. Reads share a read lock;
// mutations are serialized and never span a provider call.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]domain.CacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option customizes a cache.
type Option func(*options)

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of entries; the oldest are evicted first.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ttl:        domain.DefaultCacheTTL,
		maxEntries: domain.DefaultMaxCacheEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemoryCache builds an empty in-memory cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	return &MemoryCache{
		entries:    make(map[string]domain.CacheEntry),
		ttl:        o.ttl,
		maxEntries: o.maxEntries,
		now:        o.now,
	}
}

// Get returns the cached command for (prompt, provider) unless absent or expired.
func (c *MemoryCache) Get(prompt, provider string) (string, bool) {
	key := Fingerprint(prompt, provider)
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.Expired(now) {
		return "", false
	}

	c.mu.Lock()
	if current, ok := c.entries[key]; ok && current.CreatedAt.Equal(entry.CreatedAt) {
		current.HitCount++
		c.entries[key] = current
	}
	c.mu.Unlock()
	return entry.Command, true
}

// Put stores command under (prompt, provider).
func (c *MemoryCache) Put(prompt, provider, command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(prompt, provider, command)
	return nil
}

func (c *MemoryCache) putLocked(prompt, provider, command string) {
	now := c.now()
	key := Fingerprint(prompt, provider)
	c.entries[key] = domain.CacheEntry{
		Key:       key,
		Command:   command,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.evictLocked(now, key)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.CacheEntry)
	return nil
}

// Prewarm inserts curated pairs, skipping keys that already hold a live entry.
// It returns how many entries were inserted.
func (c *MemoryCache) Prewarm(entries []domain.PrewarmEntry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prewarmLocked(entries), nil
}

func (c *MemoryCache) prewarmLocked(entries []domain.PrewarmEntry) int {
	now := c.now()
	inserted := 0
	for _, e := range entries {
		if existing, ok := c.entries[Fingerprint(e.Prompt, e.Provider)]; ok && !existing.Expired(now) {
			continue
		}
		c.putLocked(e.Prompt, e.Provider, e.Command)
		inserted++
	}
	return inserted
}

// Sweep physically removes expired entries and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats summarizes the cache.
func (c *MemoryCache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	stats := domain.CacheStats{
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
		TTL:        c.ttl,
	}
	for _, entry := range c.entries {
		stats.TotalHits += entry.HitCount
		if entry.Expired(now) {
			stats.Expired++
		}
	}
	return stats
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then the oldest until within capacity.
// keep is never evicted.
func (c *MemoryCache) evictLocked(now time.Time, keep string) {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}
	c.sweepLocked(now)
	if len(c.entries) <= c.maxEntries {
		return
	}
	ordered := make([]domain.CacheEntry, 0, len(c.entries))
	for key, entry := range c.entries {
		if key != keep {
			ordered = append(ordered, entry)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })
	for _, old := range ordered[:len(c.entries)-c.maxEntries] {
		delete(c.entries, old.Key)
	}
}

// snapshot copies the entries for persistence.
func (c *MemoryCache) snapshotLocked() map[string]domain.CacheEntry {
	out := make(map[string]domain.CacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

var _ ports.ResponseCache = (*MemoryCache)(nil)
