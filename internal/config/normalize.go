package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeUPC()
	c.normalizeCache()
	c.normalizeScanner()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Identification.OverridesPath) != "" {
		if c.Identification.OverridesPath, err = expandPath(c.Identification.OverridesPath); err != nil {
			return fmt.Errorf("identification.overrides_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if value, ok := os.LookupEnv("TMDB_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.TMDB.APIKey = value
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.RequestTimeoutSeconds <= 0 {
		c.TMDB.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeUPC() {
	if value, ok := os.LookupEnv("UPC_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.UPC.APIKey = value
	}
	c.UPC.APIKey = strings.TrimSpace(c.UPC.APIKey)
	c.UPC.BaseURL = strings.TrimSpace(c.UPC.BaseURL)
	if c.UPC.BaseURL == "" {
		c.UPC.BaseURL = defaultUPCBaseURL
	}
	if c.UPC.RequestTimeoutSeconds <= 0 {
		c.UPC.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.KeyPrefix = strings.TrimSpace(c.Cache.KeyPrefix)
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = defaultCacheKeyPrefix
	}
	if c.Cache.DefaultTTLHours <= 0 {
		c.Cache.DefaultTTLHours = defaultCacheTTLHours
	}
	if c.Cache.StoreQuotaBytes < 0 {
		c.Cache.StoreQuotaBytes = 0
	}
}

func (c *Config) normalizeScanner() {
	if c.Scanner.MinIntervalMillis < 0 {
		c.Scanner.MinIntervalMillis = 0
	}
	if c.Scanner.ReadyPauseMillis < 0 {
		c.Scanner.ReadyPauseMillis = 0
	}
	if c.Scanner.StaleAfterSeconds <= 0 {
		c.Scanner.StaleAfterSeconds = defaultScanStaleAfterSeconds
	}
	if c.Scanner.SweepIntervalSeconds <= 0 {
		c.Scanner.SweepIntervalSeconds = defaultScanSweepIntervalSecond
	}
	c.Scanner.Device = strings.TrimSpace(c.Scanner.Device)
	subsystems := make([]string, 0, len(c.Scanner.DeviceSubsystems))
	seen := make(map[string]struct{}, len(c.Scanner.DeviceSubsystems))
	for _, subsystem := range c.Scanner.DeviceSubsystems {
		normalized := strings.ToLower(strings.TrimSpace(subsystem))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		subsystems = append(subsystems, normalized)
	}
	if len(subsystems) == 0 {
		subsystems = append(subsystems, defaultDeviceSubsystems...)
	}
	c.Scanner.DeviceSubsystems = subsystems
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
