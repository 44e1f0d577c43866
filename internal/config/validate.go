package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

// RequireTMDB reports a configuration error when no TMDB API key is available.
// Commands that only inspect the cache do not need one.
func (c *Config) RequireTMDB() error {
	if c.TMDB.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/shelfscan/config.toml"
	}
	return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'shelfscan config init')", defaultPath)
}

func (c *Config) validateEndpoints() error {
	for name, raw := range map[string]string{"tmdb.base_url": c.TMDB.BaseURL, "upc.base_url": c.UPC.BaseURL} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "sqlite", "files":
	default:
		return fmt.Errorf("cache.backend must be sqlite or files, got %q", c.Cache.Backend)
	}
	if c.Cache.MaxBytes <= 0 {
		return errors.New("cache.max_bytes must be positive")
	}
	if c.Cache.StoreQuotaBytes > 0 && c.Cache.StoreQuotaBytes < c.Cache.MaxBytes {
		return errors.New("cache.store_quota_bytes must be zero or at least cache.max_bytes")
	}
	return nil
}

func (c *Config) validateIdentification() error {
	if c.Identification.ReviewThreshold < 0 || c.Identification.ReviewThreshold > 100 {
		return errors.New("identification.review_threshold must be between 0 and 100")
	}
	if c.Identification.ShortCircuitScore <= c.Identification.ReviewThreshold {
		return errors.New("identification.short_circuit_score must exceed identification.review_threshold")
	}
	if c.Identification.YearTolerance < 0 {
		return errors.New("identification.year_tolerance must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}
