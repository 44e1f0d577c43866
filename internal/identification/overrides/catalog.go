package overrides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"shelfscan/internal/logging"
)

// Catalog loads user-authored barcode overrides. The file is re-read when its
// modification time changes.
type Catalog struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	loaded  time.Time
	entries []Override
}

// Override pins one or more barcodes to a specific TMDB record.
type Override struct {
	Barcodes  []string `json:"barcodes"`
	Title     string   `json:"title"`
	TMDBID    int64    `json:"tmdb_id"`
	MediaType string   `json:"media_type"`
}

// NewCatalog constructs a catalog backed by the provided JSON file. An empty
// path yields a nil catalog whose lookups never match.
func NewCatalog(path string, logger *slog.Logger) *Catalog {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	return &Catalog{path: trimmed, logger: logging.NewComponentLogger(logger, "overrides")}
}

// Lookup returns the override pinning barcode, if any. A missing file is not
// an error.
func (c *Catalog) Lookup(barcode string) (Override, bool, error) {
	if c == nil {
		return Override{}, false, nil
	}
	if err := c.ensureLoaded(); err != nil {
		return Override{}, false, err
	}
	code := strings.TrimSpace(barcode)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.entries {
		if entry.matches(code) {
			return entry, true, nil
		}
	}
	return Override{}, false, nil
}

func (c *Catalog) ensureLoaded() error {
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	c.mu.RLock()
	alreadyLoaded := !c.loaded.IsZero() && c.loaded.Equal(info.ModTime())
	c.mu.RUnlock()
	if alreadyLoaded {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	entries, err := parseOverrides(data)
	if err != nil {
		return fmt.Errorf("parse overrides %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = info.ModTime()
	c.mu.Unlock()
	c.logger.Info("loaded barcode overrides", logging.String("path", c.path), logging.Int("count", len(entries)))
	return nil
}

func parseOverrides(data []byte) ([]Override, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Override
	// Accept either array or object with overrides field.
	if data[0] == '{' {
		var wrapper struct {
			Overrides []Override `json:"overrides"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		entries = wrapper.Overrides
	} else if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	normalized := make([]Override, 0, len(entries))
	for _, entry := range entries {
		entry.normalize()
		if len(entry.Barcodes) == 0 || entry.TMDBID <= 0 {
			continue
		}
		normalized = append(normalized, entry)
	}
	return normalized, nil
}

func (o *Override) matches(barcode string) bool {
	for _, code := range o.Barcodes {
		if code == barcode {
			return true
		}
	}
	return false
}

func (o *Override) normalize() {
	o.Title = strings.TrimSpace(o.Title)
	o.MediaType = strings.ToLower(strings.TrimSpace(o.MediaType))
	if o.MediaType == "" {
		o.MediaType = "movie"
	}
	cleaned := make([]string, 0, len(o.Barcodes))
	for _, value := range o.Barcodes {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	o.Barcodes = cleaned
}
