package opvault

import (
	"fmt"
	"io"
	"time"

	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/reliability"
)

// Option customizes how New wires an instance. Options exist for tests and
// embedding; the CLI uses none of them except WithProgress.
type Option func(o *options) error

type options struct {
	runner   optool.Runner
	sleep    reliability.Sleeper
	progress io.Writer
	metrics  monitoring.MetricsCollector
	now      func() time.Time
}

// WithRunner replaces the op process runner.
func WithRunner(runner optool.Runner) Option {
	return func(o *options) error {
		if runner == nil {
			return fmt.Errorf("%w: runner cannot be nil", ErrInvalidConfiguration)
		}
		o.runner = runner
		return nil
	}
}

// WithSleeper replaces the function used for backoff and buffer waits.
func WithSleeper(sleep reliability.Sleeper) Option {
	return func(o *options) error {
		if sleep == nil {
			return fmt.Errorf("%w: sleeper cannot be nil", ErrInvalidConfiguration)
		}
		o.sleep = sleep
		return nil
	}
}

// WithProgress sets where per-vault progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(o *options) error {
		o.progress = w
		return nil
	}
}

// WithMetricsCollector overrides the collector chosen from Config.MetricsEnabled.
func WithMetricsCollector(collector monitoring.MetricsCollector) Option {
	return func(o *options) error {
		if collector == nil {
			return fmt.Errorf("%w: metrics collector cannot be nil", ErrInvalidConfiguration)
		}
		o.metrics = collector
		return nil
	}
}

// WithClock sets the time source for run ids and receipts.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfiguration)
		}
		o.now = now
		return nil
	}
}
