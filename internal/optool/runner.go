package optool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBinary is the 1Password CLI executable name.
	DefaultBinary = "op"
	// DefaultCommandTimeout bounds a single op invocation.
	DefaultCommandTimeout = 90 * time.Second

	exitCodeTimeout = 124
)

// Runner runs the op binary once and reports what happened. Implementations
// never return an error: start failures and timeouts are folded into the
// exit code and stderr of the returned Invocation.
type Runner interface {
	Run(ctx context.Context, command string, args []string) Invocation
}

// ExecRunner runs op as a child process.
type ExecRunner struct {
	Binary  string
	Timeout time.Duration
	NowFn   func() time.Time
}

// NewExecRunner creates a runner for the given binary path.
func NewExecRunner(binary string, timeout time.Duration) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &ExecRunner{Binary: binary, Timeout: timeout, NowFn: time.Now}
}

// Run executes the binary with args and captures stdout, stderr and the exit code.
func (r *ExecRunner) Run(ctx context.Context, command string, args []string) Invocation {
	nowFn := r.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	start := nowFn()
	inv := Invocation{
		Command:  command,
		Args:     append([]string{r.Binary}, args...),
		EventID:  uuid.NewString(),
		ExitCode: -1,
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, r.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	inv.Duration = nowFn().Sub(start)
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()

	if runErr == nil {
		inv.ExitCode = 0
		return inv
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		inv.ExitCode = exitCodeTimeout
		inv.Stderr = appendLine(inv.Stderr, fmt.Sprintf("command timed out after %s", r.Timeout))
		return inv
	}

	inv.ExitCode = exitCodeFromErr(runErr)
	if inv.ExitCode == -1 {
		inv.Stderr = appendLine(inv.Stderr, fmt.Sprintf("command failed: %v", runErr))
	}
	return inv
}

func exitCodeFromErr(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return exitCodeTimeout
	}
	return -1
}

func appendLine(s, line string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return line
	}
	return s + "\n" + line
}
