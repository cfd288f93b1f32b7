// Package health runs preflight checks before a run: op identity, inventory
// access, input files and a writable output directory.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hengadev/opvault/internal/inputs"
	"github.com/hengadev/opvault/internal/vaultops"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates the component is healthy
	StatusHealthy HealthStatus = "healthy"
	// StatusUnhealthy indicates the component is unhealthy
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded indicates the component works with reduced guarantees
	StatusDegraded HealthStatus = "degraded"
	// StatusUnknown indicates the component status is unknown
	StatusUnknown HealthStatus = "unknown"
)

// HealthCheck represents a health check for a component
type HealthCheck struct {
	Name        string
	Description string
	CheckFunc   func(context.Context) (HealthStatus, string, error)
	Timeout     time.Duration
	Critical    bool
}

// HealthResult represents the result of a health check
type HealthResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// HealthReport is the outcome of every registered check, in registration order.
type HealthReport struct {
	Status   HealthStatus    `json:"status"`
	Duration time.Duration   `json:"duration"`
	Results  []*HealthResult `json:"results"`
}

// HealthChecker runs checks one after another. Checks that call op must not
// overlap, so nothing runs concurrently.
type HealthChecker struct {
	checks  []*HealthCheck
	timeout time.Duration
}

// NewHealthChecker creates a checker with a default per-check timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HealthChecker{timeout: timeout}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(check *HealthCheck) error {
	if check == nil {
		return fmt.Errorf("health check cannot be nil")
	}
	if check.Name == "" {
		return fmt.Errorf("health check name cannot be empty")
	}
	if check.CheckFunc == nil {
		return fmt.Errorf("health check function cannot be nil")
	}
	if check.Timeout == 0 {
		check.Timeout = hc.timeout
	}
	hc.checks = append(hc.checks, check)
	return nil
}

// CheckHealth executes all registered health checks
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthReport {
	start := time.Now()
	report := &HealthReport{Results: make([]*HealthResult, 0, len(hc.checks))}
	for _, check := range hc.checks {
		report.Results = append(report.Results, executeCheck(ctx, check))
	}
	report.Status = overallStatus(report.Results)
	report.Duration = time.Since(start)
	return report
}

func executeCheck(ctx context.Context, check *HealthCheck) *HealthResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	status, msg, err := check.CheckFunc(checkCtx)
	result := &HealthResult{
		Name:     check.Name,
		Status:   status,
		Message:  msg,
		Duration: time.Since(start),
		Critical: check.Critical,
	}
	if err != nil {
		result.Error = err.Error()
		if result.Status == StatusHealthy {
			result.Status = StatusUnhealthy
		}
	}
	return result
}

// overallStatus is unhealthy when a critical check is not healthy, degraded
// when any other check is not healthy.
func overallStatus(results []*HealthResult) HealthStatus {
	if len(results) == 0 {
		return StatusUnknown
	}
	status := StatusHealthy
	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if r.Critical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

// IdentityCheck fails when op is not signed in.
func IdentityCheck(identity vaultops.IdentityProvider) *HealthCheck {
	return &HealthCheck{
		Name:        "op-identity",
		Description: "op is signed in",
		Critical:    true,
		CheckFunc: func(ctx context.Context) (HealthStatus, string, error) {
			who, err := identity.WhoAmI(ctx)
			if err != nil {
				return StatusUnhealthy, "", err
			}
			return StatusHealthy, fmt.Sprintf("signed in to %s as %s", who.URL, who.UserUUID), nil
		},
	}
}

// InventoryCheck reports degraded when vaults cannot be listed, since a run
// would then proceed without duplicate detection.
func InventoryCheck(lister vaultops.InventoryLister) *HealthCheck {
	return &HealthCheck{
		Name:        "op-inventory",
		Description: "existing vaults can be listed",
		CheckFunc: func(ctx context.Context) (HealthStatus, string, error) {
			vaults, err := lister.ListVaults(ctx)
			if err != nil {
				return StatusDegraded, "duplicate check would be disabled", err
			}
			return StatusHealthy, fmt.Sprintf("%d existing vault(s)", len(vaults)), nil
		},
	}
}

// InputCheck fails when the input directory has no usable files.
func InputCheck(dir string) *HealthCheck {
	return &HealthCheck{
		Name:        "input-files",
		Description: "input directory has prefix and suffix files",
		Critical:    true,
		CheckFunc: func(ctx context.Context) (HealthStatus, string, error) {
			scan := inputs.Scan(dir)
			if len(scan.FatalErrors) > 0 {
				return StatusUnhealthy, "", errors.New(scan.FatalErrors[0])
			}
			return StatusHealthy, fmt.Sprintf("%d prefix file(s), %d suffix file(s)", len(scan.PrefixFiles), len(scan.SuffixFiles)), nil
		},
	}
}

// InputLinesCheck reports degraded when input files have rejected lines.
// A run still goes ahead without them.
func InputLinesCheck(dir string) *HealthCheck {
	return &HealthCheck{
		Name:        "input-lines",
		Description: "every input line is accepted",
		CheckFunc: func(ctx context.Context) (HealthStatus, string, error) {
			scan := inputs.Scan(dir)
			var rejected int
			var first error
			for _, f := range scan.Files() {
				rejected += len(f.Errors)
				if first == nil && len(f.Errors) > 0 {
					first = fmt.Errorf("%s: %s", filepath.Base(f.Path), f.Errors[0])
				}
			}
			if rejected > 0 {
				return StatusDegraded, fmt.Sprintf("%d rejected line(s)", rejected), first
			}
			return StatusHealthy, "no rejected lines", nil
		},
	}
}

// OutputDirCheck fails when run directories could not be created under dir.
func OutputDirCheck(dir string) *HealthCheck {
	return &HealthCheck{
		Name:        "output-dir",
		Description: "output directory is writable",
		Critical:    true,
		CheckFunc: func(ctx context.Context) (HealthStatus, string, error) {
			if err := checkWritePermissions(dir); err != nil {
				return StatusUnhealthy, "", err
			}
			return StatusHealthy, dir, nil
		},
	}
}

// checkWritePermissions creates dir if needed and writes a probe file in it.
func checkWritePermissions(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".opvault-write-test-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("cannot remove test file: %w", err)
	}
	return nil
}
