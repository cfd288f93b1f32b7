package optool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultRateLimitMarker is the stderr substring op prints when throttled.
const DefaultRateLimitMarker = "rate-limited"

// Classifier maps raw invocations onto a Status.
type Classifier struct {
	RateLimitMarker string
	JSONCommands    map[string]struct{}
}

// NewClassifier returns a classifier that knows the JSON-emitting op commands.
func NewClassifier(rateLimitMarker string) Classifier {
	if rateLimitMarker == "" {
		rateLimitMarker = DefaultRateLimitMarker
	}
	return Classifier{
		RateLimitMarker: rateLimitMarker,
		JSONCommands: map[string]struct{}{
			CommandWhoAmI:      {},
			CommandVaultList:   {},
			CommandVaultCreate: {},
		},
	}
}

// EmitsJSON reports whether command prints a JSON document on success.
func (c Classifier) EmitsJSON(command string) bool {
	_, ok := c.JSONCommands[command]
	return ok
}

// Classify applies the rules in order, first match wins:
// rate-limit marker in stderr, non-zero exit, JSON command, anything else.
func (c Classifier) Classify(inv Invocation) OperationResult {
	res := OperationResult{
		Command:  inv.Command,
		Error:    inv.Stderr,
		ExitCode: inv.ExitCode,
		EventID:  inv.EventID,
		Duration: inv.Duration,
	}

	switch {
	case c.RateLimitMarker != "" && strings.Contains(inv.Stderr, c.RateLimitMarker):
		res.Status = StatusRateLimited
	case inv.ExitCode != 0:
		res.Status = StatusFailure
	default:
		res.Status = StatusSuccess
		if c.EmitsJSON(inv.Command) {
			payload := bytes.TrimSpace([]byte(inv.Stdout))
			if !json.Valid(payload) {
				res.DecodeErr = fmt.Errorf("stdout of `op %s` is not valid JSON (%d bytes)", inv.Command, len(payload))
			} else {
				res.Payload = json.RawMessage(payload)
			}
		}
	}

	return res
}
