package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	barcodeKey   contextKey = "barcode"
	sessionIDKey contextKey = "session_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBarcode annotates context with the barcode being resolved.
func WithBarcode(ctx context.Context, barcode string) context.Context {
	if barcode == "" {
		return ctx
	}
	return context.WithValue(ctx, barcodeKey, barcode)
}

// BarcodeFromContext returns the barcode if present.
func BarcodeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(barcodeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSessionID annotates context with the scanner session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the scanner session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
