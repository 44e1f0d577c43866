package tieredcache

import "context"

// Store is the persistent tier. Implementations must return an error wrapping
// services.ErrCapacityExceeded when a Set would exceed their quota.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
