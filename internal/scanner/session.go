package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfscan/internal/config"
	"shelfscan/internal/logging"
	"shelfscan/internal/services"
	"shelfscan/internal/upc"
)

// ErrInvalidTransition is returned when a state change is not allowed from
// the current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// Handler resolves an admitted barcode. The returned value is published on
// the completion event.
type Handler func(ctx context.Context, barcode string) (any, error)

// Option customizes a Session.
type Option func(*Session)

// WithEnumerator replaces the udev device enumerator.
func WithEnumerator(e Enumerator) Option {
	return func(s *Session) {
		if e != nil {
			s.enumerator = e
		}
	}
}

// WithHaptics sets the feedback used on admission.
func WithHaptics(h Haptics) Option {
	return func(s *Session) {
		if h != nil {
			s.haptics = h
		}
	}
}

// WithClock overrides the time source used for rate limiting and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventBuffer sets the capacity of the events channel.
func WithEventBuffer(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.events = make(chan Event, size)
		}
	}
}

type admission struct {
	at  time.Time
	seq uint64
}

// Session is a barcode scanning session.
type Session struct {
	id         string
	handler    Handler
	enumerator Enumerator
	haptics    Haptics
	now        func() time.Time
	logger     *slog.Logger
	events     chan Event

	continuous      bool
	allowDuplicates bool
	minInterval     time.Duration
	readyPause      time.Duration
	staleAfter      time.Duration
	sweepInterval   time.Duration
	preferredDevice string

	mu           sync.Mutex
	state        State
	device       CaptureDevice
	source       Source
	inFlight     map[string]admission
	completed    map[string]struct{}
	lastAccepted time.Time
	seq          uint64
	handlerCtx   context.Context
	cancel       context.CancelFunc
	readyTimer   *time.Timer
	handlers     sync.WaitGroup
}

// NewSession creates an idle session that hands admitted barcodes to handler.
func NewSession(cfg *config.Config, handler Handler, logger *slog.Logger, opts ...Option) *Session {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	id := uuid.NewString()
	s := &Session{
		id:              id,
		handler:         handler,
		haptics:         NopHaptics{},
		now:             time.Now,
		logger:          logging.NewComponentLogger(logger, "scanner").With(logging.String(logging.FieldSessionID, id)),
		events:          make(chan Event, 64),
		continuous:      cfg.Scanner.Continuous,
		allowDuplicates: cfg.Scanner.AllowDuplicates,
		minInterval:     cfg.ScanInterval(),
		readyPause:      time.Duration(cfg.Scanner.ReadyPauseMillis) * time.Millisecond,
		staleAfter:      time.Duration(cfg.Scanner.StaleAfterSeconds) * time.Second,
		sweepInterval:   time.Duration(cfg.Scanner.SweepIntervalSeconds) * time.Second,
		preferredDevice: cfg.Scanner.Device,
		state:           StateIdle,
		inFlight:        make(map[string]admission),
		completed:       make(map[string]struct{}),
	}
	s.enumerator = NewUdevEnumerator(cfg.Scanner.DeviceSubsystems, logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events delivers session events. The channel is never closed.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the bound capture device.
func (s *Session) Device() CaptureDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Initialize picks a capture device and binds the decode source. It fails
// with ErrNoCaptureDevices when nothing is attached.
func (s *Session) Initialize(ctx context.Context, source Source) error {
	devices, err := s.enumerator.Devices(ctx)
	if err != nil {
		return fmt.Errorf("list capture devices: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoCaptureDevices
	}

	device := devices[0]
	if s.preferredDevice != "" {
		found := false
		for _, candidate := range devices {
			if candidate.Path == s.preferredDevice {
				device = candidate
				found = true
				break
			}
		}
		if !found {
			logging.WarnWithContext(s.logger, "configured capture device not found; using first available",
				"capture_device_fallback",
				logging.String("configured_device", s.preferredDevice),
				logging.String("device", device.Path),
				logging.String(logging.FieldImpact, "scans are read from a different device"),
			)
		}
	}

	s.mu.Lock()
	s.device = device
	s.source = source
	s.mu.Unlock()

	s.logger.Info("capture device bound",
		logging.String(logging.FieldEventType, "capture_device_bound"),
		logging.String("device", device.Path),
		logging.String("subsystem", device.Subsystem),
		logging.Int("available_devices", len(devices)),
	)
	return nil
}

// Start moves an idle session to scanning and begins reading the source.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, state)
	}
	base := services.WithSessionID(ctx, s.id)
	runCtx, cancel := context.WithCancel(base)
	s.handlerCtx = context.WithoutCancel(base)
	s.cancel = cancel
	s.state = StateScanning
	source := s.source
	s.mu.Unlock()

	if source != nil {
		go s.readLoop(runCtx, source)
	}
	if s.sweepInterval > 0 {
		go s.sweepLoop(runCtx)
	}

	s.logger.Info("scanning started",
		logging.String(logging.FieldEventType, "scan_session_started"),
		logging.Bool("continuous", s.continuous),
	)
	s.emit(Event{Status: StatusReady})
	return nil
}

// Pause stops admitting camera scans. Only continuous sessions pause.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScanning || !s.continuous {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}
	s.state = StatePaused
	s.logger.Debug("scanning paused")
	return nil
}

// Resume returns a paused session to scanning.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, state)
	}
	s.state = StateScanning
	s.mu.Unlock()
	s.logger.Debug("scanning resumed")
	s.emit(Event{Status: StatusReady})
	return nil
}

// Stop returns the session to idle and releases the decode source. Handlers
// already running finish on their own; use Wait to block for them.
func (s *Session) Stop() {
	s.stop(StatusStopped)
}

func (s *Session) stop(status Status) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	cancel := s.cancel
	s.cancel = nil
	source := s.source
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if source != nil {
		if err := source.Close(); err != nil {
			s.logger.Debug("decode source close failed", logging.Error(err))
		}
	}
	s.logger.Info("scanning stopped",
		logging.String(logging.FieldEventType, "scan_session_stopped"),
		logging.String("reason", string(status)),
	)
	s.emit(Event{Status: status})
}

// DeviceRemoved stops the session when path is the bound device.
func (s *Session) DeviceRemoved(_ context.Context, path string) {
	s.mu.Lock()
	bound := s.device.Path
	s.mu.Unlock()
	if bound == "" || bound != path {
		return
	}
	s.stop(StatusDeviceLost)
}

// Reset stops the session and forgets in-flight and completed barcodes.
func (s *Session) Reset() {
	s.Stop()
	s.mu.Lock()
	s.inFlight = make(map[string]admission)
	s.completed = make(map[string]struct{})
	s.lastAccepted = time.Time{}
	s.mu.Unlock()
}

// Wait blocks until every admitted handler has returned.
func (s *Session) Wait() {
	s.handlers.Wait()
}

// Submit evaluates a barcode read by the decode source.
func (s *Session) Submit(barcode string) Outcome {
	return s.submit(barcode, false)
}

// SubmitManual evaluates a barcode typed by the user. It skips the scan rate
// limit and is accepted while paused.
func (s *Session) SubmitManual(barcode string) Outcome {
	return s.submit(barcode, true)
}

func (s *Session) submit(raw string, manual bool) Outcome {
	code, err := upc.ValidateBarcode(raw)
	if err != nil {
		return s.reject(Outcome{Barcode: raw, Status: StatusInvalid, Err: err})
	}

	now := s.now()
	s.mu.Lock()
	if s.state == StateIdle || (s.state == StatePaused && !manual) {
		s.mu.Unlock()
		return Outcome{Barcode: code, Status: StatusNotScanning}
	}
	// An in-flight barcode reports processing even inside the rate-limit window.
	if _, busy := s.inFlight[code]; busy {
		s.mu.Unlock()
		return s.reject(Outcome{Barcode: code, Status: StatusProcessing})
	}
	if !manual && !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < s.minInterval {
		s.mu.Unlock()
		return s.reject(Outcome{Barcode: code, Status: StatusRateLimited})
	}
	if _, done := s.completed[code]; done && !s.allowDuplicates {
		s.mu.Unlock()
		return s.reject(Outcome{Barcode: code, Status: StatusDuplicate})
	}

	s.seq++
	ticket := admission{at: now, seq: s.seq}
	s.inFlight[code] = ticket
	delete(s.completed, code)
	if !manual {
		s.lastAccepted = now
	}
	ctx := s.handlerCtx
	s.handlers.Add(1)
	s.mu.Unlock()

	s.haptics.Pulse()
	s.logger.Info("barcode accepted",
		logging.String(logging.FieldEventType, "barcode_accepted"),
		logging.String(logging.FieldBarcode, code),
		logging.Bool("manual", manual),
	)
	s.emit(Event{Barcode: code, Status: StatusAccepted})
	go s.run(ctx, code, ticket)
	return Outcome{Barcode: code, Status: StatusAccepted}
}

func (s *Session) reject(outcome Outcome) Outcome {
	attrs := []logging.Attr{
		logging.String(logging.FieldBarcode, outcome.Barcode),
		logging.String("status", string(outcome.Status)),
	}
	if outcome.Err != nil {
		attrs = append(attrs, logging.Error(outcome.Err))
	}
	s.logger.Debug("barcode rejected", logging.Args(attrs...)...)
	switch outcome.Status {
	case StatusInvalid, StatusProcessing, StatusDuplicate:
		s.emit(Event{Barcode: outcome.Barcode, Status: outcome.Status, Err: outcome.Err})
	}
	return outcome
}

func (s *Session) run(ctx context.Context, code string, ticket admission) {
	defer s.handlers.Done()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithBarcode(ctx, code)
	var (
		result any
		err    error
	)
	if s.handler == nil {
		err = errors.New("scanner handler not configured")
	} else {
		result, err = s.handler(ctx, code)
	}

	s.mu.Lock()
	current, tracked := s.inFlight[code]
	owner := tracked && current.seq == ticket.seq
	if owner {
		delete(s.inFlight, code)
		if err == nil {
			s.completed[code] = struct{}{}
		}
	}
	continuous := s.continuous
	s.mu.Unlock()

	if err != nil {
		logging.WarnWithContext(s.logger, "barcode handling failed", "barcode_failed",
			logging.String(logging.FieldBarcode, code),
			logging.Error(err),
			logging.String(logging.FieldImpact, "barcode can be scanned again"),
		)
		s.emit(Event{Barcode: code, Status: StatusFailed, Err: err})
		if continuous {
			s.scheduleReady()
		}
		return
	}

	s.emit(Event{Barcode: code, Status: StatusCompleted, Result: result})
	if !continuous {
		s.Stop()
		return
	}
	s.scheduleReady()
}

func (s *Session) scheduleReady() {
	if s.readyPause <= 0 {
		s.emitReady()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	if s.readyTimer != nil {
		s.readyTimer.Stop()
	}
	s.readyTimer = time.AfterFunc(s.readyPause, s.emitReady)
}

func (s *Session) emitReady() {
	if s.State() != StateScanning {
		return
	}
	s.emit(Event{Status: StatusReady})
}

// Sweep purges in-flight barcodes admitted longer ago than the stale window
// and returns how many were removed.
func (s *Session) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []string
	for code, ticket := range s.inFlight {
		if now.Sub(ticket.at) > s.staleAfter {
			stale = append(stale, code)
			delete(s.inFlight, code)
		}
	}
	s.mu.Unlock()

	for _, code := range stale {
		logging.WarnWithContext(s.logger, "purged stale in-flight barcode", "barcode_stale",
			logging.String(logging.FieldBarcode, code),
			logging.Duration("stale_after", s.staleAfter),
			logging.String(logging.FieldImpact, "barcode can be scanned again"),
		)
		s.emit(Event{Barcode: code, Status: StatusStale})
	}
	return len(stale)
}

func (s *Session) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

func (s *Session) readLoop(ctx context.Context, source Source) {
	for {
		decode, err := source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.logger.Debug("decode source exhausted")
			s.Stop()
			return
		case ctx.Err() != nil, errors.Is(err, ErrSourceClosed):
			return
		default:
			s.logger.Debug("decode source error", logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if decode.NotFound {
			continue
		}
		s.Submit(decode.Text)
	}
}

func (s *Session) emit(evt Event) {
	if evt.At.IsZero() {
		evt.At = s.now()
	}
	select {
	case s.events <- evt:
	default:
		s.logger.Warn("scanner event dropped; consumer is not draining events",
			logging.String(logging.FieldEventType, "scan_event_dropped"),
			logging.String("status", string(evt.Status)),
			logging.String(logging.FieldBarcode, evt.Barcode),
			logging.String(logging.FieldImpact, "event not delivered"),
		)
	}
}
