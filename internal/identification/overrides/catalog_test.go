package overrides

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesAcceptsWrapperAndNormalizes(t *testing.T) {
	data := []byte("\xEF\xBB\xBF{ \"overrides\": [{\"barcodes\":[\" 012345678905 \", \"\"],\"title\":\" The Matrix \",\"tmdb_id\":603}]}")
	entries, err := parseOverrides(data)
	if err != nil {
		t.Fatalf("parseOverrides failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.MediaType != "movie" {
		t.Fatalf("expected media_type defaulted to movie, got %q", entry.MediaType)
	}
	if len(entry.Barcodes) != 1 || entry.Barcodes[0] != "012345678905" {
		t.Fatalf("expected barcodes normalized, got %+v", entry.Barcodes)
	}
	if entry.Title != "The Matrix" {
		t.Fatalf("expected title trimmed, got %q", entry.Title)
	}
}

func TestParseOverridesSkipsIncompleteEntries(t *testing.T) {
	entries, err := parseOverrides([]byte(`[{"barcodes":["1"]},{"tmdb_id":5},{"barcodes":["2"],"tmdb_id":7,"media_type":"TV"}]`))
	if err != nil {
		t.Fatalf("parseOverrides failed: %v", err)
	}
	if len(entries) != 1 || entries[0].TMDBID != 7 || entries[0].MediaType != "tv" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestCatalogLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	data := []byte(`[{"barcodes":["883929736171"],"title":"Show","media_type":"tv","tmdb_id":42}]`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	catalog := NewCatalog(path, nil)
	match, ok, err := catalog.Lookup(" 883929736171 ")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !ok || match.TMDBID != 42 {
		t.Fatalf("expected barcode match, got %+v", match)
	}
	if _, ok, _ := catalog.Lookup("012345678905"); ok {
		t.Fatal("expected no match for other barcode")
	}

	// Rewrites are picked up once the modification time changes.
	if err := os.WriteFile(path, []byte(`[{"barcodes":["012345678905"],"tmdb_id":603}]`), 0o644); err != nil {
		t.Fatalf("rewrite overrides: %v", err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if match, ok, _ := catalog.Lookup("012345678905"); !ok || match.TMDBID != 603 {
		t.Fatalf("expected reloaded override, got %+v ok=%v", match, ok)
	}
}

func TestCatalogMissingFileAndNil(t *testing.T) {
	catalog := NewCatalog(filepath.Join(t.TempDir(), "missing.json"), nil)
	if _, ok, err := catalog.Lookup("012345678905"); ok || err != nil {
		t.Fatalf("expected no match and no error, got ok=%v err=%v", ok, err)
	}
	var nilCatalog *Catalog
	if _, ok, err := nilCatalog.Lookup("012345678905"); ok || err != nil {
		t.Fatalf("nil catalog should never match, got ok=%v err=%v", ok, err)
	}
	if NewCatalog("  ", nil) != nil {
		t.Fatal("expected nil catalog for empty path")
	}
}

func TestCatalogMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(`{"overrides": [`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewCatalog(path, nil).Lookup("012345678905"); err == nil {
		t.Fatal("expected parse error")
	}
}
