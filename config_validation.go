package opvault

import (
	"fmt"
	"strings"
	"time"

	"github.com/hengadev/errsx"

	"github.com/hengadev/opvault/internal/monitoring"
)

// Validate reports every invalid field at once. The returned error wraps
// ErrInvalidConfiguration and an errsx.Map keyed by field.
func (c *Config) Validate() error {
	errs := errsx.Map{}

	if c.MaxRetries < 1 {
		errs.Set("max_retries", fmt.Errorf("must be at least 1, got %d", c.MaxRetries))
	}
	if c.BackoffMinutes < 0 {
		errs.Set("backoff_minutes", fmt.Errorf("must not be negative, got %d", c.BackoffMinutes))
	}
	if c.BufferSeconds < 0 {
		errs.Set("buffer_seconds", fmt.Errorf("must not be negative, got %d", c.BufferSeconds))
	}
	if c.CommandTimeout <= 0 {
		errs.Set("command_timeout", fmt.Errorf("must be positive, got %s", c.CommandTimeout))
	}

	required := map[string]string{
		"name_joiner":       c.NameJoiner,
		"input_dir":         c.InputDir,
		"output_dir":        c.OutputDir,
		"op_binary":         c.OpBinary,
		"rate_limit_marker": c.RateLimitMarker,
	}
	for key, value := range required {
		if value == "" {
			errs.Set(key, "is required")
		}
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil || strings.TrimSpace(c.TimeZone) == "" {
		errs.Set("time_zone", fmt.Errorf("unknown time zone %q", c.TimeZone))
	}
	if _, err := monitoring.ParseLevel(c.LogLevel); err != nil {
		errs.Set("log_level", err)
	}
	if c.LogFormat != monitoring.FormatJSON && c.LogFormat != monitoring.FormatConsole {
		errs.Set("log_format", fmt.Errorf("must be %q or %q, got %q", monitoring.FormatJSON, monitoring.FormatConsole, c.LogFormat))
	}

	if err := errs.AsError(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}
