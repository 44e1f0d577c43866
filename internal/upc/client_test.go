package upc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfscan/internal/services"
)

func TestValidateBarcode(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "012345678905", want: "012345678905", ok: true},
		{input: "  12345678 \n", want: "12345678", ok: true},
		{input: "123456789012345678", want: "123456789012345678", ok: true},
		{input: "1234567", ok: false},
		{input: "1234567890123456789", ok: false},
		{input: "01234567890A", ok: false},
		{input: "", ok: false},
	}
	for _, tt := range tests {
		got, err := ValidateBarcode(tt.input)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("ValidateBarcode(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("ValidateBarcode(%q) expected validation error, got %v", tt.input, err)
		}
	}
}

func TestLookupSuccess(t *testing.T) {
	var gotUPC, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUPC = r.URL.Query().Get("upc")
		gotKey = r.Header.Get("user_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"OK","total":1,"items":[{"title":" The Matrix (1999) Widescreen Special Edition DVD ","brand":"Warner Home Video","category":"Media > DVDs & Videos","description":"Starring Keanu Reeves","images":["https://example.com/m.jpg"]}]}`))
	}))
	defer server.Close()

	client, err := New(server.URL, "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	record, err := client.Lookup(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotUPC != "012345678905" || gotKey != "secret" {
		t.Fatalf("unexpected request upc=%q key=%q", gotUPC, gotKey)
	}
	if record.RawTitle != "The Matrix (1999) Widescreen Special Edition DVD" {
		t.Fatalf("unexpected title %q", record.RawTitle)
	}
	if record.Brand != "Warner Home Video" || len(record.Images) != 1 || record.Barcode != "012345678905" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "empty items", status: http.StatusOK, body: `{"code":"OK","total":0,"items":[]}`, want: services.ErrNotFound},
		{name: "non ok code", status: http.StatusOK, body: `{"code":"INVALID_UPC","message":"Not a valid UPC code."}`, want: services.ErrNotFound},
		{name: "not found status", status: http.StatusNotFound, body: `{"code":"NOT_FOUND"}`, want: services.ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"code":"TOO_FAST"}`, want: services.ErrNetwork},
		{name: "server error", status: http.StatusBadGateway, body: ``, want: services.ErrNetwork},
		{name: "garbage", status: http.StatusOK, body: `<html>`, want: services.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := New(server.URL, "")
			_, err := client.Lookup(context.Background(), "012345678905")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLookupRejectsInvalidBarcodeBeforeIO(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	client, _ := New(server.URL, "")
	if _, err := client.Lookup(context.Background(), "abc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatal("invalid barcode must not reach the network")
	}
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, _ := New(server.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Lookup(ctx, "012345678905")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
