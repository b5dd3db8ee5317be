package traveltime

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/metrics"

	"github.com/rs/zerolog"
)

// Cache stores provider estimates for a short time. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Estimate, bool, error)
	Set(ctx context.Context, key string, est Estimate) error
}

// CacheKey quantizes both endpoints to 4 decimals (about 11 m) so nearby
// requests share an entry.
func CacheKey(source Source, origin, destination geo.GeoPoint) string {
	signature := fmt.Sprintf(
		"%s|%.4f,%.4f_%.4f,%.4f",
		source,
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude,
	)
	hash := md5.Sum([]byte(signature))
	return fmt.Sprintf("%x", hash[:8])
}

type cachedStrategy struct {
	next  Strategy
	cache Cache
	log   zerolog.Logger
}

// WithCache wraps a provider with a read-through cache. Cache failures
// count as misses. A nil cache returns next unchanged.
func WithCache(next Strategy, cache Cache, log zerolog.Logger) Strategy {
	if next == nil || cache == nil {
		return next
	}
	return &cachedStrategy{next: next, cache: cache, log: log}
}

func (c *cachedStrategy) Name() Source { return c.next.Name() }

func (c *cachedStrategy) Estimate(ctx context.Context, origin, destination geo.GeoPoint) (Estimate, error) {
	key := CacheKey(c.next.Name(), origin, destination)

	est, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.TravelCache.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Msg("travel cache read failed")
	case found:
		metrics.TravelCache.WithLabelValues("hit").Inc()
		return est, nil
	default:
		metrics.TravelCache.WithLabelValues("miss").Inc()
	}

	est, err = c.next.Estimate(ctx, origin, destination)
	if err != nil {
		return Estimate{}, err
	}
	if err := c.cache.Set(ctx, key, est); err != nil {
		c.log.Warn().Err(err).Msg("travel cache write failed")
	}
	return est, nil
}

type cacheEntry struct {
	estimate     Estimate
	createdAt    time.Time
	lastAccessed time.Time
}

// CacheStats tracks in-memory cache activity.
type CacheStats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// MemoryCache is an in-process TTL cache that evicts the least recently
// used entry when full.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	stats      CacheStats
}

// NewMemoryCache creates a cache and starts its expiry janitor, which
// stops when ctx is cancelled.
func NewMemoryCache(ctx context.Context, maxEntries int, ttl time.Duration) *MemoryCache {
	c := newMemoryCache(maxEntries, ttl, time.Now)
	go c.janitor(ctx)
	return c
}

func newMemoryCache(maxEntries int, ttl time.Duration, now func() time.Time) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Estimate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		c.stats.Misses++
		return Estimate{}, false, nil
	}

	now := c.now()
	if now.Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.Evictions++
		return Estimate{}, false, nil
	}

	entry.lastAccessed = now
	c.stats.Hits++
	return entry.estimate, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, est Estimate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.entries[key] = &cacheEntry{estimate: est, createdAt: now, lastAccessed: now}
	return nil
}

// Stats returns a copy of the counters.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.entries)
	return stats
}

// evictOldest removes the least recently used entry. Caller holds mu.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

func (c *MemoryCache) janitor(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) > c.ttl {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}
