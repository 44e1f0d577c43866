package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shelfscan/internal/config"
	"shelfscan/internal/identification"
	"shelfscan/internal/logging"
	"shelfscan/internal/tieredcache"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

// openCache opens the persistent cache and returns a release func.
func (c *commandContext) openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tieredcache.Cache, func(), error) {
	cache, err := tieredcache.Open(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, tieredcache.ErrCacheBusy) {
			return nil, nil, fmt.Errorf("open cache: %w (is another shelfscan scan running?)", err)
		}
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	release := func() {
		if err := cache.Close(); err != nil {
			logger.Debug("cache close failed", logging.Error(err))
		}
	}
	return cache, release, nil
}

// resolverStack builds the logger, cache and resolver shared by resolve and scan.
func (c *commandContext) resolverStack(ctx context.Context) (*identification.Resolver, *slog.Logger, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.RequireTMDB(); err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cache, release, err := c.openCache(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	resolver, err := identification.NewResolver(cfg, cache, logger)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("create resolver: %w", err)
	}
	return resolver, logger, release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
