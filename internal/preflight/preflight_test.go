package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shelfscan/internal/config"
	"shelfscan/internal/scanner"
	"shelfscan/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func tmdbServer(t *testing.T, key string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("api_key") != key {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"images":{}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTMDB_OK(t *testing.T) {
	srv := tmdbServer(t, "good-key")
	result := CheckTMDB(context.Background(), config.TMDB{APIKey: "good-key", BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckTMDB_BadKey(t *testing.T) {
	srv := tmdbServer(t, "good-key")
	result := CheckTMDB(context.Background(), config.TMDB{APIKey: "bad-key", BaseURL: srv.URL})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckTMDB_MissingKey(t *testing.T) {
	result := CheckTMDB(context.Background(), config.TMDB{BaseURL: "http://localhost"})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckUPC(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"bad request is reachable", http.StatusBadRequest, true},
		{"rate limited is reachable", http.StatusTooManyRequests, true},
		{"server error fails", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			result := CheckUPC(context.Background(), config.UPC{BaseURL: srv.URL})
			if result.Passed != tt.want {
				t.Fatalf("expected passed=%v, got %+v", tt.want, result)
			}
		})
	}

	if result := CheckUPC(context.Background(), config.UPC{}); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckCaptureDevices(t *testing.T) {
	if result := CheckCaptureDevices(context.Background(), scanner.StaticEnumerator{}); result.Passed {
		t.Fatal("expected failure without devices")
	}
	result := CheckCaptureDevices(context.Background(), scanner.StaticEnumerator{
		{Path: "/dev/video0"},
		{Path: "/dev/input/event3"},
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result.Detail != "/dev/video0, /dev/input/event3" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
	if result := CheckCaptureDevices(context.Background(), nil); result.Passed {
		t.Fatal("expected failure for nil enumerator")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll(t *testing.T) {
	srv := tmdbServer(t, "test")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL, srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, scanner.StaticEnumerator{{Path: "/dev/video0"}})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	results = RunAll(context.Background(), cfg, nil)
	if len(results) != 4 {
		t.Fatalf("expected capture check to be skipped, got %d results", len(results))
	}
}
