package preflight

import (
	"context"

	"vaultcast/internal/config"
)

// CheckProviderFromConfig evaluates provider status from config and
// connectivity. An unconfigured provider passes: episodes are generated
// locally.
func CheckProviderFromConfig(ctx context.Context, cfg *config.Config, checker HealthChecker) Result {
	const name = "Provider"

	if cfg == nil || checker == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.ProviderConfigured() || !checker.Configured() {
		return Result{Name: name, Passed: true, Detail: "Not configured (local generation only)"}
	}
	check := CheckProvider(ctx, name, checker)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// DiskStatus reports the free space under the data directory for status UIs.
func DiskStatus(cfg *config.Config) Result {
	const name = "Free disk space"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	return CheckFreeSpace(name, cfg.Paths.DataDir, cfg.Generation.MinFreeDiskMegabytes)
}
