package services_test

import (
	"context"
	"testing"

	"shelfscan/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithBarcode(ctx, "012345678905")
	ctx = services.WithSessionID(ctx, "sess-1")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if code, ok := services.BarcodeFromContext(ctx); !ok || code != "012345678905" {
		t.Fatalf("unexpected barcode: %v %v", code, ok)
	}
	if sid, ok := services.SessionIDFromContext(ctx); !ok || sid != "sess-1" {
		t.Fatalf("unexpected session id: %v %v", sid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBarcode(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.BarcodeFromContext(ctx); ok {
		t.Fatal("expected no barcode value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
}
