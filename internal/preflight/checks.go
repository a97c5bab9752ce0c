package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"vaultcast/internal/services"
)

const providerCheckTimeout = 30 * time.Second

// CheckProvider verifies that the provider API is reachable and the key is
// valid. It uses a 30-second timeout and a single attempt.
func CheckProvider(ctx context.Context, name string, checker HealthChecker) Result {
	if !checker.Configured() {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMB megabytes available to unprivileged users.
func CheckFreeSpace(name, path string, minMB int) Result {
	free, err := FreeMegabytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < uint64(max(minMB, 0)) {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, %d MB required", free, minMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", free)}
}

// FreeMegabytes reports the space available on the filesystem holding path.
func FreeMegabytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize) / (1 << 20), nil
}

// summarizeProviderError produces a human-readable summary for provider
// health check failures.
func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (provider API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (provider API unreachable)"
	}
	var status *services.StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case 401, 403:
			return "auth failed (invalid api key)"
		case 429:
			return "quota exhausted (rate limited)"
		}
		return fmt.Sprintf("health check failed (%d)", status.Code)
	}
	if services.IsQuota(err) {
		return "quota exhausted"
	}
	return err.Error()
}
