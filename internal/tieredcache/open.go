package tieredcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gofrs/flock"

	"shelfscan/internal/config"
	"shelfscan/internal/logging"
	"shelfscan/internal/services"
)

const (
	lockFileName   = "cache.lock"
	sqliteFileName = "cache.db"
	filesDirName   = "entries"
	lockTimeout    = 3 * time.Second
	lockRetry      = 100 * time.Millisecond
)

// ErrCacheBusy is returned by Open when another process holds the cache lock.
var ErrCacheBusy = errors.New("cache directory is in use by another shelfscan process")

// Open builds the cache described by cfg: it creates the cache directory,
// takes the directory lock and opens the configured persistent store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Cache, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "tieredcache", "open", "config is required", nil)
	}
	dir := cfg.Paths.CacheDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetry)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return nil, ErrCacheBusy
	}

	store, err := openStore(cfg, dir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	cache := New(store,
		WithMaxBytes(cfg.Cache.MaxBytes),
		WithKeyPrefix(cfg.Cache.KeyPrefix),
		WithDefaultTTL(time.Duration(cfg.Cache.DefaultTTLHours)*time.Hour),
		WithLogger(logger),
	)
	cache.closeFn = lock.Unlock

	cache.logger.Debug("cache opened",
		logging.String("backend", cfg.Cache.Backend),
		logging.String("dir", dir),
		logging.Int64("max_bytes", cfg.Cache.MaxBytes))
	return cache, nil
}

func openStore(cfg *config.Config, dir string) (Store, error) {
	switch cfg.Cache.Backend {
	case "files":
		entriesDir := filepath.Join(dir, filesDirName)
		if err := os.MkdirAll(entriesDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache entries directory: %w", err)
		}
		return NewFileStore(osfs.New(entriesDir), cfg.Cache.StoreQuotaBytes), nil
	case "sqlite", "":
		return OpenSQLiteStore(filepath.Join(dir, sqliteFileName), cfg.Cache.StoreQuotaBytes)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "tieredcache", "open", fmt.Sprintf("unknown cache backend %q", cfg.Cache.Backend), nil)
	}
}
