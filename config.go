package opvault

import (
	"time"
	_ "time/tzdata"
)

// Config holds every setting of an opvault instance.
//
// The struct is plain data. It is built by LoadConfig (or by hand), checked
// with Validate and then passed to New, which hands the relevant values to
// each component. Nothing reads settings from the process environment after
// that point.
//
// Example usage:
//
//	cfg := opvault.DefaultConfig()
//	cfg.MaxRetries = 5
//	cfg.TimeZone = "UTC"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	ov, err := opvault.New(cfg, logger)
type Config struct {
	// ShouldBuffer sleeps BufferSeconds after every successful op call so the
	// next call is less likely to be rate-limited.
	ShouldBuffer  bool `yaml:"should_buffer" env:"BUFFER_OPERATIONS"`
	BufferSeconds int  `yaml:"buffer_seconds" env:"BUFFER_TIME_SEC"`

	// BackoffMinutes is the fixed wait after a rate-limited call. The upstream
	// limiter resets on a fixed window so the wait does not grow.
	BackoffMinutes int  `yaml:"backoff_minutes" env:"RATE_LIMIT_BACKOFF_MIN"`
	ShouldRetry    bool `yaml:"should_retry" env:"SHOULD_RETRY"`
	MaxRetries     int  `yaml:"max_retries" env:"MAX_RETRIES"`

	CaseSensitiveNames bool   `yaml:"case_sensitive_names" env:"CASE_SENSITIVE_VAULT_NAMES"`
	NameJoiner         string `yaml:"name_joiner" env:"VAULT_NAME_JOINER"`

	// TimeZone is an IANA zone name used for run ids and receipt timestamps.
	TimeZone string `yaml:"time_zone" env:"DATETIME_TIME_ZONE"`

	InputDir  string `yaml:"input_dir" env:"OPVAULT_INPUT_DIR"`
	OutputDir string `yaml:"output_dir" env:"OPVAULT_OUTPUT_DIR"`

	OpBinary        string        `yaml:"op_binary" env:"OPVAULT_OP_BINARY"`
	CommandTimeout  time.Duration `yaml:"command_timeout" env:"OPVAULT_COMMAND_TIMEOUT"`
	RateLimitMarker string        `yaml:"rate_limit_marker" env:"OPVAULT_RATE_LIMIT_MARKER"`

	LogLevel  string `yaml:"log_level" env:"OPVAULT_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"OPVAULT_LOG_FORMAT"`

	// MetricsEnabled writes a Prometheus textfile next to every receipt.
	MetricsEnabled bool `yaml:"metrics_enabled" env:"OPVAULT_METRICS"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ShouldBuffer:       false,
		BufferSeconds:      DefaultBufferSeconds,
		BackoffMinutes:     DefaultBackoffMinutes,
		ShouldRetry:        true,
		MaxRetries:         DefaultMaxRetries,
		CaseSensitiveNames: false,
		NameJoiner:         DefaultNameJoiner,
		TimeZone:           DefaultTimeZone,
		InputDir:           DefaultInputDir,
		OutputDir:          DefaultOutputDir,
		OpBinary:           DefaultOpBinary,
		CommandTimeout:     DefaultCommandTimeout,
		RateLimitMarker:    DefaultRateLimitMarker,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		MetricsEnabled:     true,
	}
}

// Backoff returns the rate-limit wait as a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMinutes) * time.Minute
}

// Buffer returns the post-success throttle, or zero when buffering is off.
func (c Config) Buffer() time.Duration {
	if !c.ShouldBuffer {
		return 0
	}
	return time.Duration(c.BufferSeconds) * time.Second
}

// Location loads TimeZone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}
