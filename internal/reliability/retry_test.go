package reliability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/optool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scripted returns an Operation replaying results and counting calls.
func scripted(results ...optool.OperationResult) (Operation, *int) {
	calls := 0
	return func(ctx context.Context) optool.OperationResult {
		res := results[len(results)-1]
		if calls < len(results) {
			res = results[calls]
		}
		calls++
		return res
	}, &calls
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

var (
	rateLimited = optool.OperationResult{Command: optool.CommandVaultCreate, Status: optool.StatusRateLimited, ExitCode: 1, Error: "rate-limited"}
	failure     = optool.OperationResult{Command: optool.CommandVaultCreate, Status: optool.StatusFailure, ExitCode: 1, Error: "bad name"}
	unknown     = optool.OperationResult{Command: optool.CommandVaultCreate, Status: optool.StatusUnknown, ExitCode: 7}
	created     = optool.OperationResult{
		Command: optool.CommandVaultCreate,
		Status:  optool.StatusSuccess,
		Payload: json.RawMessage(`{"id":"v1","name":"alpha - admin","created_at":"2024-05-01T10:00:00Z"}`),
	}
)

func newExecutor(maxAttempts int, sleeper *recordingSleeper, buffer time.Duration) *RetryExecutor {
	return NewRetryExecutor(
		NewFixedDelayPolicy(maxAttempts, 10*time.Minute, nil),
		ExecutorOptions{Buffer: buffer, Sleep: sleeper.Sleep},
	)
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	op, calls := scripted(created)

	out, err := Execute(context.Background(), newExecutor(3, sleeper, 0), op, optool.DecodeCreateVault)

	require.NoError(t, err)
	assert.Equal(t, "v1", out.ID)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, sleeper.sleeps)
}

func TestExecute_RateLimitedThenSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	op, calls := scripted(rateLimited, rateLimited, created)

	var retries []int
	executor := newExecutor(3, sleeper, 0)
	executor.SetOnRetryCallback(func(attempt int, delay time.Duration, err error) {
		retries = append(retries, attempt)
		assert.True(t, optool.IsRateLimited(err))
	})

	out, err := Execute(context.Background(), executor, op, optool.DecodeCreateVault)

	require.NoError(t, err)
	assert.Equal(t, "alpha - admin", out.Name)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{10 * time.Minute, 10 * time.Minute}, sleeper.sleeps)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestExecute_RateLimitedNeverExceedsMaxAttempts(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 3, 5} {
		sleeper := &recordingSleeper{}
		op, calls := scripted(rateLimited)

		_, err := Execute(context.Background(), newExecutor(maxAttempts, sleeper, 0), op, optool.DecodeCreateVault)

		assert.True(t, optool.IsRateLimited(err), "max=%d", maxAttempts)
		assert.Equal(t, maxAttempts, *calls, "max=%d", maxAttempts)
		// no sleep after the final attempt
		assert.Len(t, sleeper.sleeps, maxAttempts-1, "max=%d", maxAttempts)
	}
}

func TestExecute_TerminalOnFirstAttempt(t *testing.T) {
	tests := []struct {
		name  string
		res   optool.OperationResult
		check func(error) bool
	}{
		{"failure", failure, optool.IsCommandFailure},
		{"unknown", unknown, optool.IsUnknownStatus},
		{"malformed payload", optool.OperationResult{Command: optool.CommandVaultCreate, Status: optool.StatusSuccess, Payload: json.RawMessage(`{"name":"x"}`)}, optool.IsOutputParse},
		{"invalid json", optool.OperationResult{Command: optool.CommandVaultCreate, Status: optool.StatusSuccess, DecodeErr: errors.New("not json")}, optool.IsOutputParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			op, calls := scripted(tt.res, created)

			_, err := Execute(context.Background(), newExecutor(3, sleeper, time.Second), op, optool.DecodeCreateVault)

			assert.True(t, tt.check(err), "got %v", err)
			assert.Equal(t, 1, *calls)
			assert.Empty(t, sleeper.sleeps)
		})
	}
}

func TestExecute_BufferAfterSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	op, _ := scripted(created)

	_, err := Execute(context.Background(), newExecutor(3, sleeper, 10*time.Second), op, optool.DecodeCreateVault)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeper.sleeps)
}

func TestExecute_ZeroBudget(t *testing.T) {
	op, calls := scripted(created)

	_, err := Execute(context.Background(), newExecutor(0, &recordingSleeper{}, 0), op, optool.DecodeCreateVault)

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 0, *calls)
}

func TestRun_DeleteNeedsNoPayload(t *testing.T) {
	deleted := optool.OperationResult{Command: optool.CommandVaultDelete, Status: optool.StatusSuccess}
	op, calls := scripted(rateLimited, deleted)

	err := newExecutor(3, &recordingSleeper{}, 0).Run(context.Background(), op)

	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op, calls := scripted(rateLimited)
	executor := NewRetryExecutor(NewFixedDelayPolicy(3, time.Hour, nil), ExecutorOptions{})
	executor.SetOnRetryCallback(func(int, time.Duration, error) { cancel() })

	_, err := Execute(ctx, executor, op, optool.DecodeCreateVault)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

func TestExecute_ReportsToHook(t *testing.T) {
	collector := monitoring.NewInMemoryMetricsCollector()
	op, _ := scripted(rateLimited, created)
	executor := NewRetryExecutor(NewFixedDelayPolicy(3, time.Minute, nil), ExecutorOptions{
		Sleep: (&recordingSleeper{}).Sleep,
		Hook:  monitoring.NewMetricsObservabilityHook(collector),
	})

	_, err := Execute(context.Background(), executor, op, optool.DecodeCreateVault)
	require.NoError(t, err)

	tags := func(status string) map[string]string {
		return map[string]string{"operation": optool.CommandVaultCreate, "status": status}
	}
	assert.Equal(t, int64(1), collector.GetCounter(monitoring.MetricOpAttempts, tags("rate-limited")))
	assert.Equal(t, int64(1), collector.GetCounter(monitoring.MetricOpAttempts, tags("success")))
	assert.Equal(t, int64(1), collector.GetCounter(monitoring.MetricOpRateLimited, map[string]string{"operation": optool.CommandVaultCreate}))
}

func TestNewOpPolicy(t *testing.T) {
	assert.Equal(t, 3, NewOpPolicy(true, 3, time.Minute).MaxAttempts())
	assert.Equal(t, 1, NewOpPolicy(false, 3, time.Minute).MaxAttempts())
	assert.Equal(t, time.Minute, NewOpPolicy(true, 3, time.Minute).NextDelay(2))
}

func TestContextSleep(t *testing.T) {
	require.NoError(t, ContextSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextSleep(ctx, time.Hour), context.Canceled)
}
