package optool

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOperation is the root of every op operation error.
var ErrOperation = errors.New("op operation failed")

// RateLimitedError means the service throttled the call. It is the only retryable kind.
type RateLimitedError struct {
	Command    string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("`op %s` was rate-limited (backoff %s)", e.Command, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrOperation }

// CommandFailureError carries the exit code and stderr of a failed command.
type CommandFailureError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailureError) Error() string {
	return fmt.Sprintf("`op %s` failed (return_code=%d, err=%s)", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *CommandFailureError) Is(target error) bool { return target == ErrOperation }

// OutputParseError means the command reported success but its output did not
// match the expected response shape.
type OutputParseError struct {
	Command string
	Err     error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("could not interpret output of `op %s`: %v", e.Command, e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

func (e *OutputParseError) Is(target error) bool { return target == ErrOperation }

// UnknownStatusError is returned when a result could not be classified.
type UnknownStatusError struct {
	Command  string
	Status   Status
	ExitCode int
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status %q for `op %s` (return_code=%d)", e.Status, e.Command, e.ExitCode)
}

func (e *UnknownStatusError) Is(target error) bool { return target == ErrOperation }

// ResultError converts a non-success result into the matching error. It
// returns nil for a clean success. retryAfter is only used for rate limiting.
func ResultError(res OperationResult, retryAfter time.Duration) error {
	switch res.Status {
	case StatusSuccess:
		if res.DecodeErr != nil {
			return &OutputParseError{Command: res.Command, Err: res.DecodeErr}
		}
		return nil
	case StatusRateLimited:
		return &RateLimitedError{Command: res.Command, RetryAfter: retryAfter}
	case StatusFailure:
		return &CommandFailureError{Command: res.Command, ExitCode: res.ExitCode, Stderr: res.Error}
	default:
		return &UnknownStatusError{Command: res.Command, Status: res.Status, ExitCode: res.ExitCode}
	}
}

// IsRateLimited checks if the error is a rate limit error
func IsRateLimited(err error) bool {
	var target *RateLimitedError
	return errors.As(err, &target)
}

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	return IsRateLimited(err)
}

// IsCommandFailure checks if the error is a command failure
func IsCommandFailure(err error) bool {
	var target *CommandFailureError
	return errors.As(err, &target)
}

// IsOutputParse checks if the error is an output parse error
func IsOutputParse(err error) bool {
	var target *OutputParseError
	return errors.As(err, &target)
}

// IsUnknownStatus checks if the error is an unknown status error
func IsUnknownStatus(err error) bool {
	var target *UnknownStatusError
	return errors.As(err, &target)
}
