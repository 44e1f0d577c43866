package scanner

import (
	"io"
	"sync"
)

// Haptics gives physical feedback when a scan is accepted.
type Haptics interface {
	Pulse()
}

// NopHaptics does nothing.
type NopHaptics struct{}

// Pulse implements Haptics.
func (NopHaptics) Pulse() {}

// BellHaptics rings the terminal bell.
type BellHaptics struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellHaptics writes bells to w.
func NewBellHaptics(w io.Writer) *BellHaptics {
	return &BellHaptics{w: w}
}

// Pulse implements Haptics.
func (b *BellHaptics) Pulse() {
	if b == nil || b.w == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.w.Write([]byte{'\a'})
}
