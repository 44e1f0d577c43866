package testsupport

import (
	"path/filepath"
	"testing"

	"shelfscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.TMDB.BaseURL = "http://127.0.0.1:0"
	cfgVal.UPC.BaseURL = "http://127.0.0.1:0"
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithEndpoints points the TMDB and UPC clients at test servers.
func WithEndpoints(tmdbURL, upcURL string) ConfigOption {
	return func(b *configBuilder) {
		if tmdbURL != "" {
			b.cfg.TMDB.BaseURL = tmdbURL
		}
		if upcURL != "" {
			b.cfg.UPC.BaseURL = upcURL
		}
	}
}

// WithCacheBackend selects the persistent cache tier.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithCacheLimits overrides the cache byte ceiling and store quota.
func WithCacheLimits(maxBytes, quotaBytes int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.MaxBytes = maxBytes
		b.cfg.Cache.StoreQuotaBytes = quotaBytes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
