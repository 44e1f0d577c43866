package testsupport

import (
	"context"
	"testing"
	"time"

	"shelfscan/internal/config"
	"shelfscan/internal/tieredcache"
)

// MustOpenCache opens the configured tiered cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *tieredcache.Cache {
	t.Helper()

	cache, err := tieredcache.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("tieredcache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

// SeedCache writes value into the cache ahead of a test.
func SeedCache(t testing.TB, cache *tieredcache.Cache, namespace, key string, value any) {
	t.Helper()

	if err := cache.Set(context.Background(), namespace, key, value, time.Hour); err != nil {
		t.Fatalf("cache.Set(%s, %s): %v", namespace, key, err)
	}
}
