package coalesce

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Operation produces the value for a key. It receives a context detached from
// the caller's cancellation because its result is shared by every waiter.
type Operation func(ctx context.Context) (any, error)

// Stats counts callers and the operations actually started for them.
type Stats struct {
	Calls      int64
	Executions int64
}

// Group coalesces concurrent calls per key. The zero value is ready to use.
type Group struct {
	sf singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}
	waiters map[string]int
	stats   Stats
}

// Do runs op for key unless a call for key is already in flight, in which
// case it waits for that call's result. shared reports whether the result was
// delivered to more than one caller. A caller whose ctx ends stops waiting
// with ctx.Err(); the operation itself keeps its slot until it settles.
func (g *Group) Do(ctx context.Context, key string, op Operation) (value any, shared bool, err error) {
	if op == nil {
		return nil, false, fmt.Errorf("coalesce: nil operation for %q", key)
	}
	detached := context.WithoutCancel(ctx)

	g.mu.Lock()
	if g.waiters == nil {
		g.waiters = make(map[string]int)
		g.pending = make(map[string]struct{})
	}
	g.stats.Calls++
	g.waiters[key]++
	g.mu.Unlock()
	defer g.leave(key)

	ch := g.sf.DoChan(key, func() (any, error) {
		g.mu.Lock()
		g.pending[key] = struct{}{}
		g.stats.Executions++
		g.mu.Unlock()
		defer func() {
			g.mu.Lock()
			delete(g.pending, key)
			g.mu.Unlock()
		}()
		return op(detached)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

// Pending reports whether an operation for key is currently running.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[key]
	return ok
}

// Waiters reports how many callers are currently waiting on key.
func (g *Group) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters[key]
}

// Stats returns a snapshot of the group's counters.
func (g *Group) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// Forget drops bookkeeping for key so the next call starts a new operation
// even if one is still running.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}

func (g *Group) leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waiters[key]--
	if g.waiters[key] <= 0 {
		delete(g.waiters, key)
	}
}
