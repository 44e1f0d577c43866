package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shelfscan/internal/config"
	"shelfscan/internal/identification/tmdb"
	"shelfscan/internal/scanner"
	"shelfscan/internal/services"
)

// CheckTMDB verifies that the TMDB API is reachable and the key is accepted.
func CheckTMDB(ctx context.Context, cfg config.TMDB) Result {
	const name = "TMDB"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	client, err := tmdb.New(cfg.APIKey, cfg.BaseURL, cfg.Language, tmdb.WithTimeout(10*time.Second))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Configuration(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckUPC verifies that the product lookup endpoint answers HTTP. Any status
// counts as reachable because the endpoint rejects requests without a code.
func CheckUPC(ctx context.Context, cfg config.UPC) Result {
	const name = "UPC lookup"

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{Name: name, Passed: true, Detail: "Reachable (rate limited)"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
}

// CheckCaptureDevices verifies at least one capture device is attached.
func CheckCaptureDevices(ctx context.Context, enumerator scanner.Enumerator) Result {
	const name = "Capture devices"

	if enumerator == nil {
		return Result{Name: name, Detail: "no enumerator configured"}
	}
	devices, err := enumerator.Devices(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("enumeration failed (%v)", err)}
	}
	if len(devices) == 0 {
		return Result{Name: name, Detail: scanner.ErrNoCaptureDevices.Error()}
	}
	paths := make([]string, 0, len(devices))
	for _, device := range devices {
		paths = append(paths, device.Path)
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(paths, ", ")}
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

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
