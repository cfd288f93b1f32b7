package optool

import (
	"encoding/json"
	"time"
)

// Status is the classified outcome of a single op invocation.
type Status int

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusFailure
	StatusRateLimited
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRateLimited:
		return "rate-limited"
	default:
		return "unknown"
	}
}

// Logical command names. They key the JSON-emitting set and label logs and metrics.
const (
	CommandWhoAmI      = "whoami"
	CommandVaultList   = "vault list"
	CommandVaultCreate = "vault create"
	CommandVaultDelete = "vault delete"
)

// Invocation is the raw result of running the op binary once.
type Invocation struct {
	Command  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	EventID  string
	Duration time.Duration
}

// OperationResult is an Invocation after classification. It is produced once
// per invocation and is not modified afterwards.
type OperationResult struct {
	Command string
	Status  Status
	Payload json.RawMessage
	// DecodeErr is set when a JSON-emitting command exited cleanly but its
	// stdout was not valid JSON.
	DecodeErr error
	Error     string
	ExitCode  int
	EventID   string
	Duration  time.Duration
}

// Succeeded reports whether the result is a clean success.
func (r OperationResult) Succeeded() bool {
	return r.Status == StatusSuccess && r.DecodeErr == nil
}
