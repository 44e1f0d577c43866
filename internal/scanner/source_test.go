package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLineSourceFrames(t *testing.T) {
	source := NewLineSource(strings.NewReader("883929736171\n\n  5012345678900 \r\n"))
	ctx := context.Background()

	want := []Decode{
		{Text: "883929736171"},
		{NotFound: true},
		{Text: "5012345678900"},
	}
	for i, expected := range want {
		got, err := source.Next(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got != expected {
			t.Fatalf("frame %d: expected %+v, got %+v", i, expected, got)
		}
	}
	if _, err := source.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestLineSourceClose(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	source := NewLineSource(reader)

	if err := source.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := source.Next(context.Background()); !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
}

func TestLineSourceHonorsContext(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	source := NewLineSource(reader)
	defer source.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := source.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestBellHaptics(t *testing.T) {
	var buf bytes.Buffer
	haptics := NewBellHaptics(&buf)
	haptics.Pulse()
	haptics.Pulse()
	if buf.String() != "\a\a" {
		t.Fatalf("expected two bells, got %q", buf.String())
	}

	var nilBell *BellHaptics
	nilBell.Pulse()
	NopHaptics{}.Pulse()
}
