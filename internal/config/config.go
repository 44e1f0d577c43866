package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey                string `toml:"api_key"`
	BaseURL               string `toml:"base_url"`
	Language              string `toml:"language"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// UPC contains configuration for the barcode product lookup service.
type UPC struct {
	BaseURL               string `toml:"base_url"`
	APIKey                string `toml:"api_key"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Cache contains configuration for the tiered lookup cache.
type Cache struct {
	// Backend selects the persistent tier: "sqlite" or "files".
	Backend         string `toml:"backend"`
	KeyPrefix       string `toml:"key_prefix"`
	MaxBytes        int64  `toml:"max_bytes"`
	StoreQuotaBytes int64  `toml:"store_quota_bytes"`
	DefaultTTLHours int    `toml:"default_ttl_hours"`
	UPCTTLHours     int    `toml:"upc_ttl_hours"`
	SearchTTLHours  int    `toml:"search_ttl_hours"`
	DetailsTTLHours int    `toml:"details_ttl_hours"`
}

// Identification contains thresholds for match scoring and review routing.
type Identification struct {
	ReviewThreshold         float64 `toml:"review_threshold"`
	ShortCircuitScore       float64 `toml:"short_circuit_score"`
	YearTolerance           int     `toml:"year_tolerance"`
	MinPopularity           float64 `toml:"min_popularity"`
	IncludePersonStrategies bool    `toml:"include_person_strategies"`
	OverridesPath           string  `toml:"overrides_path"`
}

// Scanner contains configuration for barcode scanning sessions.
type Scanner struct {
	Continuous           bool     `toml:"continuous"`
	AllowDuplicates      bool     `toml:"allow_duplicates"`
	MinIntervalMillis    int      `toml:"min_interval_ms"`
	ReadyPauseMillis     int      `toml:"ready_pause_ms"`
	StaleAfterSeconds    int      `toml:"stale_after_seconds"`
	SweepIntervalSeconds int      `toml:"sweep_interval_seconds"`
	Haptics              bool     `toml:"haptics"`
	Device               string   `toml:"device"`
	DeviceSubsystems     []string `toml:"device_subsystems"`
}

// Notifications contains configuration for ntfy push alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-shelf. Empty disables alerts.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfscan.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - TMDB: metadata search and detail lookups
//   - UPC: barcode product lookups
//   - Cache: tiered cache backend, byte ceiling and TTLs
//   - Identification: match scoring and manual review thresholds
//   - Scanner: rate limiting, duplicate handling and capture devices
//   - Notifications: ntfy alerts for manual review
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	TMDB           TMDB           `toml:"tmdb"`
	UPC            UPC            `toml:"upc"`
	Cache          Cache          `toml:"cache"`
	Identification Identification `toml:"identification"`
	Scanner        Scanner        `toml:"scanner"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// NamespaceTTL returns the expiry applied to a cache namespace.
func (c *Config) NamespaceTTL(namespace string) time.Duration {
	hours := c.Cache.DefaultTTLHours
	switch namespace {
	case "upc":
		if c.Cache.UPCTTLHours > 0 {
			hours = c.Cache.UPCTTLHours
		}
	case "search":
		if c.Cache.SearchTTLHours > 0 {
			hours = c.Cache.SearchTTLHours
		}
	case "details":
		if c.Cache.DetailsTTLHours > 0 {
			hours = c.Cache.DetailsTTLHours
		}
	}
	return time.Duration(hours) * time.Hour
}

// ScanInterval returns the minimum time between accepted scans.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.MinIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "shelfscan")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/shelfscan"
	}
	return filepath.Join(home, ".cache", "shelfscan")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
