package opvault

import "time"

// Environment variable names
const (
	// EnvBufferOperations enables the post-success throttle sleep.
	EnvBufferOperations = "BUFFER_OPERATIONS"

	// EnvBufferSeconds is the length of the post-success throttle in seconds.
	EnvBufferSeconds = "BUFFER_TIME_SEC"

	// EnvBackoffMinutes is the fixed wait after a rate-limited invocation, in minutes.
	EnvBackoffMinutes = "RATE_LIMIT_BACKOFF_MIN"

	// EnvShouldRetry turns retrying of rate-limited invocations on or off.
	// When off, every operation gets exactly one attempt.
	EnvShouldRetry = "SHOULD_RETRY"

	// EnvMaxRetries caps the total number of attempts per operation.
	EnvMaxRetries = "MAX_RETRIES"

	// EnvCaseSensitiveNames makes exact duplicate detection case sensitive.
	// Canonical detection always ignores case.
	EnvCaseSensitiveNames = "CASE_SENSITIVE_VAULT_NAMES"

	// EnvNameJoiner is placed between project and role in a vault name.
	EnvNameJoiner = "VAULT_NAME_JOINER"

	// EnvTimeZone is the IANA zone used for run ids and receipt timestamps.
	EnvTimeZone = "DATETIME_TIME_ZONE"

	// EnvUsePacific is the older switch for the time zone. Setting it to a
	// false value selects UTC unless EnvTimeZone is also set.
	EnvUsePacific = "DATETIME_USE_PACIFIC"

	EnvInputDir        = "OPVAULT_INPUT_DIR"
	EnvOutputDir       = "OPVAULT_OUTPUT_DIR"
	EnvOpBinary        = "OPVAULT_OP_BINARY"
	EnvCommandTimeout  = "OPVAULT_COMMAND_TIMEOUT"
	EnvRateLimitMarker = "OPVAULT_RATE_LIMIT_MARKER"
	EnvLogLevel        = "OPVAULT_LOG_LEVEL"
	EnvLogFormat       = "OPVAULT_LOG_FORMAT"
	EnvMetrics         = "OPVAULT_METRICS"
)

// Default values
const (
	DefaultBufferSeconds   = 10
	DefaultBackoffMinutes  = 10
	DefaultMaxRetries      = 3
	DefaultNameJoiner      = " - "
	DefaultTimeZone        = "America/Los_Angeles"
	DefaultInputDir        = "input"
	DefaultOutputDir       = "output/runs"
	DefaultOpBinary        = "op"
	DefaultCommandTimeout  = 90 * time.Second
	DefaultRateLimitMarker = "rate-limited"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"

	// DefaultEnvFile is read when present; a missing file is not an error.
	DefaultEnvFile = ".env"
)
