package coalesce

import (
	"context"
	"fmt"
	"time"
)

// Cache is the subset of the tiered cache used by Through.
type Cache interface {
	Get(ctx context.Context, namespace, key string, dest any) bool
	Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error
}

// Peeker is implemented by caches that can re-check an entry without
// counting it as a separate lookup.
type Peeker interface {
	Peek(ctx context.Context, namespace, key string, dest any) bool
}

// Through returns the cached value for namespace/key, or joins or starts the
// single in-flight fetch for it and caches a successful result. Failures are
// never cached. cache may be nil.
func Through[T any](ctx context.Context, cache Cache, group *Group, namespace, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if cache != nil && cache.Get(ctx, namespace, key, &cached) {
		return cached, nil
	}

	value, _, err := group.Do(ctx, namespace+":"+key, func(opCtx context.Context) (any, error) {
		// A call that settled between our cache check and joining may
		// already have written the value.
		var recheck T
		if cache != nil && recheckCache(opCtx, cache, namespace, key, &recheck) {
			return recheck, nil
		}
		fetched, err := fetch(opCtx)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			if err := cache.Set(opCtx, namespace, key, fetched, ttl); err != nil {
				return nil, fmt.Errorf("cache %s result: %w", namespace, err)
			}
		}
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("coalesce: unexpected result type %T for %s:%s", value, namespace, key)
	}
	return typed, nil
}

func recheckCache(ctx context.Context, cache Cache, namespace, key string, dest any) bool {
	if peeker, ok := cache.(Peeker); ok {
		return peeker.Peek(ctx, namespace, key, dest)
	}
	return cache.Get(ctx, namespace, key, dest)
}
