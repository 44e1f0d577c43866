package scanner

import "time"

// State is the session mode.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StatePaused   State = "paused"
)

// Status classifies a submission outcome or a session event.
type Status string

const (
	// StatusAccepted means the barcode was admitted and handed to the handler.
	StatusAccepted Status = "accepted"
	// StatusInvalid means the barcode is not 8 to 18 digits.
	StatusInvalid Status = "invalid"
	// StatusRateLimited means the scan arrived inside the minimum interval.
	StatusRateLimited Status = "rate_limited"
	// StatusProcessing means the same barcode is still being resolved.
	StatusProcessing Status = "processing"
	// StatusDuplicate means the barcode was already completed this session.
	StatusDuplicate Status = "duplicate"
	// StatusNotScanning means the session is not accepting scans.
	StatusNotScanning Status = "not_scanning"
	// StatusCompleted reports a handler success.
	StatusCompleted Status = "completed"
	// StatusFailed reports a handler failure.
	StatusFailed Status = "failed"
	// StatusStale reports an in-flight barcode purged by the sweep.
	StatusStale Status = "stale"
	// StatusReady announces the session is ready for the next scan.
	StatusReady Status = "ready"
	// StatusStopped announces the session returned to idle.
	StatusStopped Status = "stopped"
	// StatusDeviceLost announces the bound capture device disappeared.
	StatusDeviceLost Status = "device_lost"
)

// Outcome is the synchronous answer to a submission.
type Outcome struct {
	Barcode string
	Status  Status
	Err     error
}

// Accepted reports whether the barcode was handed to the handler.
func (o Outcome) Accepted() bool {
	return o.Status == StatusAccepted
}

// Event is published on Session.Events for every state change the caller may
// want to route to a UI, a log or a test assertion.
type Event struct {
	Barcode string
	Status  Status
	Result  any
	Err     error
	At      time.Time
}
