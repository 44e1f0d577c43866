package tieredcache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shelfscan/internal/testsupport"
	"shelfscan/internal/tieredcache"
)

func TestOpenBackends(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{backend: "sqlite", want: "cache.db"},
		{backend: "files", want: "entries"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithCacheBackend(tt.backend))
			cache := testsupport.MustOpenCache(t, cfg)
			testsupport.SeedCache(t, cache, "upc", "012345678905", "The Matrix")

			var got string
			if !cache.Get(context.Background(), "upc", "012345678905", &got) || got != "The Matrix" {
				t.Fatalf("expected seeded value, got %q", got)
			}
			if _, err := os.Stat(filepath.Join(cfg.Paths.CacheDir, tt.want)); err != nil {
				t.Fatalf("expected %s in cache dir: %v", tt.want, err)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheBackend("redis"))
	if _, err := tieredcache.Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenRejectsSecondHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenCache(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := tieredcache.Open(ctx, cfg, nil)
	if !errors.Is(err, tieredcache.ErrCacheBusy) {
		t.Fatalf("expected ErrCacheBusy, got %v", err)
	}
}

func TestCloseReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := tieredcache.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := tieredcache.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = second.Close()
}
