package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("decode source closed")

// Decode is one frame from a decode source. NotFound marks a frame with no
// readable barcode.
type Decode struct {
	Text     string
	NotFound bool
}

// Source produces decode frames. Next returns io.EOF when the stream ends.
type Source interface {
	Next(ctx context.Context) (Decode, error)
	Close() error
}

type lineResult struct {
	line string
	err  error
}

// LineSource reads keyboard-wedge input: one barcode per line, blank lines
// are frames without a barcode.
type LineSource struct {
	lines     chan lineResult
	closeOnce sync.Once
	done      chan struct{}
}

// NewLineSource starts reading r in the background.
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
	go s.read(r)
	return s
}

func (s *LineSource) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case s.lines <- lineResult{line: scanner.Text()}:
		case <-s.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case s.lines <- lineResult{err: err}:
	case <-s.done:
	}
}

// Next blocks for the next line.
func (s *LineSource) Next(ctx context.Context) (Decode, error) {
	select {
	case <-ctx.Done():
		return Decode{}, ctx.Err()
	case <-s.done:
		return Decode{}, ErrSourceClosed
	case res := <-s.lines:
		if res.err != nil {
			return Decode{}, res.err
		}
		text := strings.TrimSpace(res.line)
		if text == "" {
			return Decode{NotFound: true}, nil
		}
		return Decode{Text: text}, nil
	}
}

// Close stops delivering lines. The underlying reader is left open.
func (s *LineSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
