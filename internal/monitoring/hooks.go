package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Outcome is the recorded result for one vault in a run or replay.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeConflict  Outcome = "conflict"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeleted   Outcome = "deleted"
	OutcomePlanned   Outcome = "planned"
)

// ObservabilityHook receives events from the retry engine and the run loops.
type ObservabilityHook interface {
	// Called after every op invocation
	OnAttempt(ctx context.Context, operation string, attempt int, status string, duration time.Duration)

	// Called before sleeping for a retry
	OnRetryWait(ctx context.Context, operation string, attempt int, delay time.Duration, err error)

	// Called once per vault with its final outcome
	OnOutcome(ctx context.Context, operation string, vault string, outcome Outcome, err error)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (NoOpObservabilityHook) OnAttempt(ctx context.Context, operation string, attempt int, status string, duration time.Duration) {
}
func (NoOpObservabilityHook) OnRetryWait(ctx context.Context, operation string, attempt int, delay time.Duration, err error) {
}
func (NoOpObservabilityHook) OnOutcome(ctx context.Context, operation string, vault string, outcome Outcome, err error) {
}

// LoggingObservabilityHook logs every event through zap.
type LoggingObservabilityHook struct {
	logger *zap.Logger
}

// NewLoggingObservabilityHook creates a new logging observability hook
func NewLoggingObservabilityHook(logger *zap.Logger) *LoggingObservabilityHook {
	return &LoggingObservabilityHook{logger: OrNop(logger)}
}

func (l *LoggingObservabilityHook) OnAttempt(ctx context.Context, operation string, attempt int, status string, duration time.Duration) {
	l.logger.Debug("op attempt",
		zap.String("operation", operation),
		zap.Int("attempt", attempt),
		zap.String("status", status),
		zap.Duration("duration", duration))
}

func (l *LoggingObservabilityHook) OnRetryWait(ctx context.Context, operation string, attempt int, delay time.Duration, err error) {
	l.logger.Warn("rate-limited, sleeping before retry",
		zap.String("operation", operation),
		zap.Int("next_attempt", attempt),
		zap.Duration("sleep", delay),
		zap.Error(err))
}

func (l *LoggingObservabilityHook) OnOutcome(ctx context.Context, operation string, vault string, outcome Outcome, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("vault", vault),
		zap.String("outcome", string(outcome)),
	}
	switch outcome {
	case OutcomeFailed:
		l.logger.Error("vault failed", append(fields, zap.Error(err))...)
	case OutcomeDuplicate, OutcomeConflict:
		l.logger.Warn("vault skipped or flagged", append(fields, zap.Error(err))...)
	default:
		l.logger.Info("vault done", fields...)
	}
}

// MetricsObservabilityHook turns events into metrics.
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = &NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{collector: collector}
}

func (m *MetricsObservabilityHook) OnAttempt(ctx context.Context, operation string, attempt int, status string, duration time.Duration) {
	m.collector.IncrementCounter(MetricOpAttempts, map[string]string{"operation": operation, "status": status})
	m.collector.RecordTiming(MetricOpDuration, duration, map[string]string{"operation": operation})
}

func (m *MetricsObservabilityHook) OnRetryWait(ctx context.Context, operation string, attempt int, delay time.Duration, err error) {
	m.collector.IncrementCounter(MetricOpRateLimited, map[string]string{"operation": operation})
}

func (m *MetricsObservabilityHook) OnOutcome(ctx context.Context, operation string, vault string, outcome Outcome, err error) {
	m.collector.IncrementCounter(MetricVaultOutcomes, map[string]string{"operation": operation, "outcome": string(outcome)})
}

// CompositeObservabilityHook fans events out to several hooks.
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a hook calling each non-nil hook in order.
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	c := &CompositeObservabilityHook{}
	for _, h := range hooks {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
	return c
}

func (c *CompositeObservabilityHook) OnAttempt(ctx context.Context, operation string, attempt int, status string, duration time.Duration) {
	for _, h := range c.hooks {
		h.OnAttempt(ctx, operation, attempt, status, duration)
	}
}

func (c *CompositeObservabilityHook) OnRetryWait(ctx context.Context, operation string, attempt int, delay time.Duration, err error) {
	for _, h := range c.hooks {
		h.OnRetryWait(ctx, operation, attempt, delay, err)
	}
}

func (c *CompositeObservabilityHook) OnOutcome(ctx context.Context, operation string, vault string, outcome Outcome, err error) {
	for _, h := range c.hooks {
		h.OnOutcome(ctx, operation, vault, outcome, err)
	}
}
