package preflight

import (
	"context"

	"vaultcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// HealthChecker is the provider surface the checks need.
type HealthChecker interface {
	Configured() bool
	HealthCheck(ctx context.Context) error
}

// RunAll executes all applicable preflight checks for the given config.
// The provider check is skipped when checker is nil.
func RunAll(ctx context.Context, cfg *config.Config, checker HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	// Log directory (when configured)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// Free space for the job store and exported episodes
	if cfg.Generation.MinFreeDiskMegabytes > 0 {
		results = append(results, CheckFreeSpace("Free disk space", cfg.Paths.DataDir, cfg.Generation.MinFreeDiskMegabytes))
	}

	if checker != nil {
		results = append(results, CheckProviderFromConfig(ctx, cfg, checker))
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
