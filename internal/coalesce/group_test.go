package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentCallsShareOneExecution(t *testing.T) {
	var group Group
	var calls atomic.Int32
	release := make(chan struct{})

	op := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "The Matrix", nil
	}

	const n = 8
	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = group.Do(context.Background(), "upc:012345678905", op)
		}()
	}

	waitFor(t, func() bool { return group.Waiters("upc:012345678905") == n })
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 execution, got %d", got)
	}
	for i := range n {
		if errs[i] != nil || results[i] != "The Matrix" {
			t.Fatalf("caller %d got %v, %v", i, results[i], errs[i])
		}
	}
	stats := group.Stats()
	if stats.Calls != n || stats.Executions != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if group.Pending("upc:012345678905") || group.Waiters("upc:012345678905") != 0 {
		t.Fatal("expected bookkeeping cleared after settlement")
	}
}

func TestFailureIsSharedAndClearsBookkeeping(t *testing.T) {
	var group Group
	var calls atomic.Int32
	release := make(chan struct{})
	errUpstream := errors.New("upstream down")

	failing := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return nil, errUpstream
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = group.Do(context.Background(), "k", failing)
		}()
	}
	waitFor(t, func() bool { return group.Waiters("k") == len(errs) })
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, errUpstream) {
			t.Fatalf("caller %d: expected shared failure, got %v", i, err)
		}
	}
	if group.Pending("k") {
		t.Fatal("expected pending cleared after failure")
	}

	value, _, err := group.Do(context.Background(), "k", func(context.Context) (any, error) {
		calls.Add(1)
		return 42, nil
	})
	if err != nil || value != 42 {
		t.Fatalf("expected fresh call to succeed, got %v, %v", value, err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected a fresh execution after failure, got %d executions", got)
	}
}

func TestDifferentKeysRunIndependently(t *testing.T) {
	var group Group
	var calls atomic.Int32
	op := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	for _, key := range []string{"a", "b", "c"} {
		if _, _, err := group.Do(context.Background(), key, op); err != nil {
			t.Fatalf("Do(%s): %v", key, err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 executions, got %d", got)
	}
}

// A hung operation occupies its slot until it settles; callers can only bound
// their own wait.
func TestHungOperationHoldsSlotUntilSettled(t *testing.T) {
	var group Group
	var calls atomic.Int32
	release := make(chan struct{})
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	hung := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "late", ctx.Err()
	}

	for i := range 2 {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, _, err := group.Do(ctx, "slow", hung)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("attempt %d: expected deadline exceeded, got %v", i, err)
		}
	}
	if !group.Pending("slow") {
		t.Fatal("expected hung operation to remain pending")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected hung slot to be reused, got %d executions", got)
	}

	close(release)
	waitFor(t, func() bool { return !group.Pending("slow") })
}

func TestNilOperation(t *testing.T) {
	var group Group
	if _, _, err := group.Do(context.Background(), "k", nil); err == nil {
		t.Fatal("expected error for nil operation")
	}
}
