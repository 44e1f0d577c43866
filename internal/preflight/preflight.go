package preflight

import (
	"context"

	"shelfscan/internal/config"
	"shelfscan/internal/scanner"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. The capture
// device check is skipped when enumerator is nil.
func RunAll(ctx context.Context, cfg *config.Config, enumerator scanner.Enumerator) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckTMDB(ctx, cfg.TMDB),
		CheckUPC(ctx, cfg.UPC),
	}
	if enumerator != nil {
		results = append(results, CheckCaptureDevices(ctx, enumerator))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
