package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shelfscan/internal/config"
	"shelfscan/internal/services"
	"shelfscan/internal/testsupport"
)

const matrixBarcode = "883929736171"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingHaptics struct {
	pulses atomic.Int32
}

func (h *countingHaptics) Pulse() { h.pulses.Add(1) }

// gatedHandler blocks every call until release is closed.
type gatedHandler struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newGatedHandler() *gatedHandler {
	return &gatedHandler{release: make(chan struct{})}
}

func (h *gatedHandler) Handle(ctx context.Context, barcode string) (any, error) {
	h.calls.Add(1)
	select {
	case <-h.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if h.err != nil {
		return nil, h.err
	}
	return "resolved " + barcode, nil
}

type sessionFixture struct {
	session *Session
	clock   *fakeClock
	haptics *countingHaptics
}

func newTestSession(t *testing.T, handler Handler, mutate func(*config.Scanner)) sessionFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Scanner.ReadyPauseMillis = 0
	cfg.Scanner.SweepIntervalSeconds = 3600
	if mutate != nil {
		mutate(&cfg.Scanner)
	}
	clock := newFakeClock()
	haptics := &countingHaptics{}
	session := NewSession(cfg, handler, nil,
		WithClock(clock.Now),
		WithHaptics(haptics),
		WithEnumerator(StaticEnumerator{{Path: "/dev/video0", Subsystem: "video4linux"}}),
	)
	if err := session.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		session.Stop()
		session.Wait()
	})
	return sessionFixture{session: session, clock: clock, haptics: haptics}
}

func waitForEvent(t *testing.T, s *Session, status Status, barcode string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-s.Events():
			if evt.Status == status && (barcode == "" || evt.Barcode == barcode) {
				return evt
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event for %q", status, barcode)
			return Event{}
		}
	}
}

func TestSubmitRejectsSameBarcodeWhileInFlight(t *testing.T) {
	handler := newGatedHandler()
	fx := newTestSession(t, handler.Handle, nil)

	if got := fx.session.Submit(matrixBarcode); got.Status != StatusAccepted {
		t.Fatalf("first scan: expected accepted, got %s", got.Status)
	}
	fx.clock.Advance(2500 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusProcessing {
		t.Fatalf("second scan: expected processing, got %s", got.Status)
	}
	waitForEvent(t, fx.session, StatusProcessing, matrixBarcode)

	close(handler.release)
	evt := waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	if evt.Result != "resolved "+matrixBarcode {
		t.Fatalf("unexpected result %v", evt.Result)
	}
	if calls := handler.calls.Load(); calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	fx.clock.Advance(2500 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusDuplicate {
		t.Fatalf("rescan after completion: expected duplicate, got %s", got.Status)
	}
	if pulses := fx.haptics.pulses.Load(); pulses != 1 {
		t.Fatalf("expected one haptic pulse, got %d", pulses)
	}
}

func TestNearSimultaneousRescanReportsProcessing(t *testing.T) {
	handler := newGatedHandler()
	fx := newTestSession(t, handler.Handle, nil)

	if got := fx.session.Submit(matrixBarcode); got.Status != StatusAccepted {
		t.Fatalf("first scan: expected accepted, got %s", got.Status)
	}
	fx.clock.Advance(50 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusProcessing {
		t.Fatalf("rescan at +50ms: expected processing, got %s", got.Status)
	}
	waitForEvent(t, fx.session, StatusProcessing, matrixBarcode)
	if got := fx.session.Submit("5012345678900"); got.Status != StatusRateLimited {
		t.Fatalf("other barcode inside interval: expected rate_limited, got %s", got.Status)
	}

	close(handler.release)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	fx.session.Wait()
	if calls := handler.calls.Load(); calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestSubmitRateLimit(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	if got := fx.session.Submit("5012345678900"); !got.Accepted() {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
	fx.clock.Advance(500 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusRateLimited {
		t.Fatalf("expected rate_limited, got %s", got.Status)
	}
	fx.clock.Advance(1600 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected accepted after interval, got %s", got.Status)
	}
}

func TestSubmitInvalidDoesNotConsumeInterval(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	for _, raw := range []string{"", "abc", "1234567", "1234567890123456789"} {
		got := fx.session.Submit(raw)
		if got.Status != StatusInvalid {
			t.Fatalf("%q: expected invalid, got %s", raw, got.Status)
		}
		if !errors.Is(got.Err, services.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", raw, got.Err)
		}
	}
	if got := fx.session.Submit(" " + matrixBarcode + " "); !got.Accepted() || got.Barcode != matrixBarcode {
		t.Fatalf("expected trimmed barcode accepted, got %+v", got)
	}
	if pulses := fx.haptics.pulses.Load(); pulses != 1 {
		t.Fatalf("expected one haptic pulse, got %d", pulses)
	}
}

func TestHandlerFailureAllowsRescan(t *testing.T) {
	handler := newGatedHandler()
	handler.err = services.ErrNotFound
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	fx.session.Submit(matrixBarcode)
	evt := waitForEvent(t, fx.session, StatusFailed, matrixBarcode)
	if !errors.Is(evt.Err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", evt.Err)
	}
	waitForEvent(t, fx.session, StatusReady, "")

	fx.clock.Advance(2100 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected failed barcode to be accepted again, got %s", got.Status)
	}
}

func TestAllowDuplicates(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, func(s *config.Scanner) {
		s.AllowDuplicates = true
	})

	fx.session.Submit(matrixBarcode)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	fx.clock.Advance(2100 * time.Millisecond)
	if got := fx.session.Submit(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected duplicate accepted, got %s", got.Status)
	}
}

func TestSingleShotStopsAfterSuccess(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, func(s *config.Scanner) {
		s.Continuous = false
	})

	if err := fx.session.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected single-shot pause to fail, got %v", err)
	}
	fx.session.Submit(matrixBarcode)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	waitForEvent(t, fx.session, StatusStopped, "")
	if state := fx.session.State(); state != StateIdle {
		t.Fatalf("expected idle after single-shot success, got %s", state)
	}
	if got := fx.session.Submit("5012345678900"); got.Status != StatusNotScanning {
		t.Fatalf("expected not_scanning after stop, got %s", got.Status)
	}
}

func TestPauseAndManualEntry(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	if err := fx.session.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := fx.session.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second pause to fail, got %v", err)
	}
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusNotScanning {
		t.Fatalf("expected camera scan ignored while paused, got %s", got.Status)
	}
	if got := fx.session.SubmitManual(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected manual entry accepted while paused, got %s", got.Status)
	}
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	if got := fx.session.SubmitManual(matrixBarcode); got.Status != StatusDuplicate {
		t.Fatalf("expected manual duplicate, got %s", got.Status)
	}
	if got := fx.session.SubmitManual("12ab5678"); got.Status != StatusInvalid {
		t.Fatalf("expected manual invalid, got %s", got.Status)
	}

	if err := fx.session.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := fx.session.Submit("5012345678900"); !got.Accepted() {
		t.Fatalf("expected camera scan after resume, got %s", got.Status)
	}
	if got := fx.session.SubmitManual("0883929736171"); !got.Accepted() {
		t.Fatalf("expected manual entry to skip rate limit, got %s", got.Status)
	}
}

func TestSweepPurgesStaleInFlight(t *testing.T) {
	handler := newGatedHandler()
	fx := newTestSession(t, handler.Handle, nil)

	fx.session.Submit(matrixBarcode)
	if n := fx.session.Sweep(fx.clock.Now().Add(29 * time.Second)); n != 0 {
		t.Fatalf("expected nothing purged before the window, got %d", n)
	}
	if n := fx.session.Sweep(fx.clock.Now().Add(31 * time.Second)); n != 1 {
		t.Fatalf("expected one purged barcode, got %d", n)
	}
	waitForEvent(t, fx.session, StatusStale, matrixBarcode)

	fx.clock.Advance(31 * time.Second)
	if got := fx.session.Submit(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected purged barcode to be accepted again, got %s", got.Status)
	}

	close(handler.release)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	if calls := handler.calls.Load(); calls != 2 {
		t.Fatalf("expected two handler runs, got %d", calls)
	}

	fx.clock.Advance(3 * time.Second)
	if got := fx.session.Submit(matrixBarcode); got.Status != StatusDuplicate {
		t.Fatalf("expected duplicate after both runs, got %s", got.Status)
	}
}

func TestInitializeDeviceSelection(t *testing.T) {
	devices := StaticEnumerator{
		{Path: "/dev/video0", Subsystem: "video4linux"},
		{Path: "/dev/video1", Subsystem: "video4linux"},
	}
	tests := []struct {
		name      string
		preferred string
		devices   StaticEnumerator
		want      string
		wantErr   error
	}{
		{name: "no devices", devices: StaticEnumerator{}, wantErr: ErrNoCaptureDevices},
		{name: "first device", devices: devices, want: "/dev/video0"},
		{name: "preferred device", preferred: "/dev/video1", devices: devices, want: "/dev/video1"},
		{name: "missing preferred falls back", preferred: "/dev/video9", devices: devices, want: "/dev/video0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Scanner.Device = tt.preferred
			session := NewSession(cfg, nil, nil, WithEnumerator(tt.devices))
			err := session.Initialize(context.Background(), nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if got := session.Device().Path; got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSessionReadsLineSource(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	cfg := testsupport.NewConfig(t)
	cfg.Scanner.ReadyPauseMillis = 0
	session := NewSession(cfg, handler.Handle, nil,
		WithEnumerator(StaticEnumerator{{Path: "/dev/input/event3", Subsystem: "input"}}),
	)
	source := NewLineSource(strings.NewReader("\n" + matrixBarcode + "\n"))
	if err := session.Initialize(context.Background(), source); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	seen := map[Status]bool{}
	timeout := time.After(2 * time.Second)
	for !seen[StatusStopped] || !seen[StatusCompleted] {
		select {
		case evt := <-session.Events():
			seen[evt.Status] = true
		case <-timeout:
			t.Fatalf("timed out; saw %v", seen)
		}
	}
	session.Wait()
	if calls := handler.calls.Load(); calls != 1 {
		t.Fatalf("expected one handler run, got %d", calls)
	}
}

func TestDeviceRemovedStopsSession(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	fx.session.DeviceRemoved(context.Background(), "/dev/video7")
	if state := fx.session.State(); state != StateScanning {
		t.Fatalf("unrelated removal changed state to %s", state)
	}
	fx.session.DeviceRemoved(context.Background(), "/dev/video0")
	waitForEvent(t, fx.session, StatusDeviceLost, "")
	if state := fx.session.State(); state != StateIdle {
		t.Fatalf("expected idle after device loss, got %s", state)
	}
}

func TestStateTransitions(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	if err := fx.session.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected start while scanning to fail, got %v", err)
	}
	if err := fx.session.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected resume while scanning to fail, got %v", err)
	}
	fx.session.Stop()
	fx.session.Stop()
	if err := fx.session.Start(context.Background()); err != nil {
		t.Fatalf("expected restart from idle, got %v", err)
	}
	if state := fx.session.State(); state != StateScanning {
		t.Fatalf("expected scanning, got %s", state)
	}
}

func TestResetForgetsCompleted(t *testing.T) {
	handler := newGatedHandler()
	close(handler.release)
	fx := newTestSession(t, handler.Handle, nil)

	fx.session.Submit(matrixBarcode)
	waitForEvent(t, fx.session, StatusCompleted, matrixBarcode)
	fx.session.Wait()
	fx.session.Reset()
	if err := fx.session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := fx.session.Submit(matrixBarcode); !got.Accepted() {
		t.Fatalf("expected barcode accepted after reset, got %s", got.Status)
	}
}
