package reliability

import (
	"context"
	"errors"
	"time"

	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/optool"
)

// ErrRetriesExhausted is returned when the attempt budget ran out before any
// attempt produced a terminal result. It only happens with a zero budget.
var ErrRetriesExhausted = errors.New("retries exhausted without a terminal result")

// RetryPolicy defines the interface for retry policies
type RetryPolicy interface {
	// NextDelay returns the delay before the next attempt, given the attempt number (0-indexed)
	NextDelay(attempt int) time.Duration
	// ShouldRetry determines if a retry should be attempted based on the error and attempt number
	ShouldRetry(err error, attempt int) bool
	// MaxAttempts returns the maximum number of attempts (including the initial attempt)
	MaxAttempts() int
}

// FixedDelayPolicy waits the same delay before every retry. The upstream
// limiter resets on a fixed window, so the delay does not grow.
type FixedDelayPolicy struct {
	maxAttempts int
	delay       time.Duration
	shouldRetry func(error, int) bool
}

// NewFixedDelayPolicy creates a new fixed delay policy. A nil shouldRetry
// retries rate-limited errors only.
func NewFixedDelayPolicy(maxAttempts int, delay time.Duration, shouldRetry func(error, int) bool) *FixedDelayPolicy {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if delay < 0 {
		delay = 0
	}
	if shouldRetry == nil {
		shouldRetry = func(err error, attempt int) bool {
			return optool.IsRetryable(err)
		}
	}

	return &FixedDelayPolicy{
		maxAttempts: maxAttempts,
		delay:       delay,
		shouldRetry: shouldRetry,
	}
}

// NewOpPolicy builds the policy for op calls from the run settings:
// maxRetries attempts when retrying is enabled, one otherwise.
func NewOpPolicy(shouldRetry bool, maxRetries int, backoff time.Duration) *FixedDelayPolicy {
	maxAttempts := 1
	if shouldRetry {
		maxAttempts = maxRetries
	}
	return NewFixedDelayPolicy(maxAttempts, backoff, nil)
}

// NextDelay returns the fixed delay
func (p *FixedDelayPolicy) NextDelay(attempt int) time.Duration {
	return p.delay
}

// ShouldRetry determines if a retry should be attempted
func (p *FixedDelayPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxAttempts-1 {
		return false
	}
	return p.shouldRetry(err, attempt)
}

// MaxAttempts returns the maximum number of attempts
func (p *FixedDelayPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Operation performs one op invocation.
type Operation func(ctx context.Context) optool.OperationResult

// ExecutorOptions configures a RetryExecutor.
type ExecutorOptions struct {
	// Buffer is slept after every success to stay under the rate limit. Zero disables it.
	Buffer time.Duration
	Sleep  Sleeper
	Hook   monitoring.ObservabilityHook
}

// RetryExecutor drives one logical operation through the
// Attempting -> {Success, RateLimited, Failure, Unknown} state machine.
type RetryExecutor struct {
	policy  RetryPolicy
	buffer  time.Duration
	sleep   Sleeper
	hook    monitoring.ObservabilityHook
	onRetry func(attempt int, delay time.Duration, err error)
}

// NewRetryExecutor creates a new retry executor with the given policy
func NewRetryExecutor(policy RetryPolicy, opts ExecutorOptions) *RetryExecutor {
	if opts.Sleep == nil {
		opts.Sleep = ContextSleep
	}
	if opts.Hook == nil {
		opts.Hook = monitoring.NoOpObservabilityHook{}
	}
	return &RetryExecutor{
		policy: policy,
		buffer: opts.Buffer,
		sleep:  opts.Sleep,
		hook:   opts.Hook,
		onRetry: func(attempt int, delay time.Duration, err error) {
			// Default no-op
		},
	}
}

// SetOnRetryCallback sets a callback function to be called before each retry
func (r *RetryExecutor) SetOnRetryCallback(callback func(attempt int, delay time.Duration, err error)) {
	r.onRetry = callback
}

// Run executes an operation that has no payload to decode.
func (r *RetryExecutor) Run(ctx context.Context, op Operation) error {
	_, err := Execute[struct{}](ctx, r, op, nil)
	return err
}

// Execute runs op until it reaches a terminal state. On success decode, when
// non-nil, turns the payload into T; a decode error is terminal.
// Rate-limited attempts are retried after the policy delay while the policy
// allows it; the last rate-limit error is returned once it does not.
// Failure and Unknown are terminal on the first occurrence.
func Execute[T any](ctx context.Context, r *RetryExecutor, op Operation, decode func(optool.OperationResult) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res := op(ctx)
		r.hook.OnAttempt(ctx, res.Command, attempt+1, res.Status.String(), res.Duration)

		switch res.Status {
		case optool.StatusRateLimited:
			delay := r.policy.NextDelay(attempt)
			lastErr = optool.ResultError(res, delay)
			if !r.policy.ShouldRetry(lastErr, attempt) {
				return zero, lastErr
			}
			r.onRetry(attempt+1, delay, lastErr)
			r.hook.OnRetryWait(ctx, res.Command, attempt+2, delay, lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return zero, err
			}

		case optool.StatusSuccess:
			var out T
			if decode != nil {
				decoded, err := decode(res)
				if err != nil {
					return zero, err
				}
				out = decoded
			} else if err := optool.ResultError(res, 0); err != nil {
				return zero, err
			}
			if r.buffer > 0 {
				// The operation already happened; an interrupted throttle must not hide it.
				_ = r.sleep(ctx, r.buffer)
			}
			return out, nil

		case optool.StatusFailure:
			return zero, optool.ResultError(res, 0)

		default:
			return zero, &optool.UnknownStatusError{Command: res.Command, Status: res.Status, ExitCode: res.ExitCode}
		}
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, ErrRetriesExhausted
}
