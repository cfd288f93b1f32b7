// Package optooltest provides a scripted op Runner for tests.
package optooltest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hengadev/opvault/internal/optool"
)

// Response is what the fake binary "prints" for one invocation.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Call records one invocation seen by the runner.
type Call struct {
	Command string
	Args    []string
}

// ScriptedRunner replays queued responses per logical command, then falls
// back to a handler, then to a failure.
type ScriptedRunner struct {
	mu       sync.Mutex
	queued   map[string][]Response
	handlers map[string]func(args []string) Response
	calls    []Call
	seq      int
}

// NewScriptedRunner creates an empty runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		queued:   make(map[string][]Response),
		handlers: make(map[string]func(args []string) Response),
	}
}

// Queue appends responses for command; they are consumed in order.
func (r *ScriptedRunner) Queue(command string, responses ...Response) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued[command] = append(r.queued[command], responses...)
	return r
}

// Handle sets the response function used once the queue for command is empty.
func (r *ScriptedRunner) Handle(command string, fn func(args []string) Response) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[command] = fn
	return r
}

// Run implements optool.Runner.
func (r *ScriptedRunner) Run(_ context.Context, command string, args []string) optool.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.calls = append(r.calls, Call{Command: command, Args: append([]string(nil), args...)})

	var resp Response
	switch {
	case len(r.queued[command]) > 0:
		resp = r.queued[command][0]
		r.queued[command] = r.queued[command][1:]
	case r.handlers[command] != nil:
		resp = r.handlers[command](args)
	default:
		resp = Response{ExitCode: 1, Stderr: fmt.Sprintf("[ERROR] no scripted response for %q", command)}
	}

	return optool.Invocation{
		Command:  command,
		Args:     append([]string{"op"}, args...),
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
		EventID:  fmt.Sprintf("event-%d", r.seq),
		Duration: time.Millisecond,
	}
}

// Calls returns the invocations of command, or all invocations when command is empty.
func (r *ScriptedRunner) Calls(command string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if command == "" || c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

// OK is a clean exit with stdout.
func OK(stdout string) Response {
	return Response{Stdout: stdout}
}

// Fail is a non-zero exit with stderr.
func Fail(exitCode int, stderr string) Response {
	return Response{ExitCode: exitCode, Stderr: stderr}
}

// RateLimited is the response op gives when throttled.
func RateLimited() Response {
	return Response{ExitCode: 1, Stderr: "[ERROR] 2024/01/01 00:00:00 Too many requests: you have been rate-limited"}
}

// CreatedVault renders a create payload for a vault.
func CreatedVault(id, name string) string {
	doc := map[string]any{
		"id":                id,
		"name":              name,
		"content_version":   1,
		"created_at":        "2024-05-01T10:00:00Z",
		"updated_at":        "2024-05-01T10:00:00Z",
		"items":             0,
		"attribute_version": 1,
		"type":              "USER_CREATED",
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// VaultList renders an inventory listing from id/name pairs.
func VaultList(pairs ...[2]string) string {
	out := make([]map[string]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, map[string]any{"id": p[0], "name": p[1]})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// WhoAmI renders an identity document for a service account.
func WhoAmI(userUUID string) string {
	return fmt.Sprintf(`{"url":"https://example.1password.com","user_uuid":%q,"account_uuid":"ACCOUNT","user_type":"SERVICE_ACCOUNT"}`, userUUID)
}

// EchoCreate answers `vault create NAME` with a payload whose id is derived from a counter.
func EchoCreate() func(args []string) Response {
	var n int
	return func(args []string) Response {
		n++
		name := ""
		if len(args) >= 3 {
			name = args[2]
		}
		return OK(CreatedVault(fmt.Sprintf("vault-%03d", n), name))
	}
}

// EchoDelete answers every delete with success.
func EchoDelete() func(args []string) Response {
	return func(args []string) Response { return OK("") }
}
