package traveltime

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldops-dispatch/internal/geo"

	"github.com/rs/zerolog"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryCache_Expires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	c := newMemoryCache(10, time.Minute, clock.now)
	ctx := context.Background()
	est := Estimate{DurationSeconds: 120, Source: SourceDistanceMatrix}

	c.Set(ctx, "k", est)
	if got, ok, _ := c.Get(ctx, "k"); !ok || got != est {
		t.Fatalf("expected hit, got %+v %v", got, ok)
	}

	clock.advance(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Evictions != 1 || stats.Size != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	c := newMemoryCache(2, time.Hour, clock.now)
	ctx := context.Background()

	c.Set(ctx, "a", Estimate{DurationSeconds: 1})
	clock.advance(time.Second)
	c.Set(ctx, "b", Estimate{DurationSeconds: 2})
	clock.advance(time.Second)
	c.Get(ctx, "a")
	clock.advance(time.Second)
	c.Set(ctx, "c", Estimate{DurationSeconds: 3})

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected a to survive")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	c := newMemoryCache(10, time.Minute, clock.now)
	c.Set(context.Background(), "a", Estimate{})
	clock.advance(time.Hour)

	c.removeExpired()

	if c.Stats().Size != 0 {
		t.Fatal("expected janitor sweep to drop expired entries")
	}
}

func TestCacheKey_QuantizesCoordinates(t *testing.T) {
	a := geo.GeoPoint{Latitude: 41.87891, Longitude: -87.63591}
	b := geo.GeoPoint{Latitude: 41.87894, Longitude: -87.63589}

	if CacheKey(SourceDistanceMatrix, a, lakeview) != CacheKey(SourceDistanceMatrix, b, lakeview) {
		t.Fatal("points within the same 4-decimal cell should share a key")
	}
	if CacheKey(SourceDistanceMatrix, a, lakeview) == CacheKey(SourceDistanceMatrix, lakeview, a) {
		t.Fatal("direction must be part of the key")
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (Estimate, bool, error) {
	return Estimate{}, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, Estimate) error {
	return errors.New("connection refused")
}

func TestWithCache_ServesRepeatsFromCache(t *testing.T) {
	provider := &stubStrategy{est: Estimate{DurationSeconds: 600, DistanceMeters: 4000, Source: SourceDistanceMatrix}}
	cache := newMemoryCache(10, time.Minute, time.Now)
	s := WithCache(provider, cache, zerolog.Nop())

	for i := 0; i < 3; i++ {
		est, err := s.Estimate(context.Background(), loop, lakeview)
		if err != nil || est != provider.est {
			t.Fatalf("call %d: %+v %v", i, est, err)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestWithCache_DoesNotCacheFailures(t *testing.T) {
	provider := &stubStrategy{err: errors.New("quota")}
	cache := newMemoryCache(10, time.Minute, time.Now)
	s := WithCache(provider, cache, zerolog.Nop())

	s.Estimate(context.Background(), loop, lakeview)
	s.Estimate(context.Background(), loop, lakeview)

	if provider.calls != 2 || cache.Stats().Size != 0 {
		t.Fatalf("calls=%d size=%d", provider.calls, cache.Stats().Size)
	}
}

func TestWithCache_BrokenCacheIsAMiss(t *testing.T) {
	provider := &stubStrategy{est: Estimate{DurationSeconds: 60, Source: SourceDistanceMatrix}}
	s := WithCache(provider, brokenCache{}, zerolog.Nop())

	est, err := s.Estimate(context.Background(), loop, lakeview)
	if err != nil || est != provider.est {
		t.Fatalf("expected provider result, got %+v %v", est, err)
	}
}

func TestWithCache_NilCachePassesThrough(t *testing.T) {
	provider := &stubStrategy{}
	if WithCache(provider, nil, zerolog.Nop()) != Strategy(provider) {
		t.Fatal("expected the provider itself")
	}
}
