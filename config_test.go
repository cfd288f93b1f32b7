package opvault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	EnvBufferOperations, EnvBufferSeconds, EnvBackoffMinutes, EnvShouldRetry, EnvMaxRetries,
	EnvCaseSensitiveNames, EnvNameJoiner, EnvTimeZone, EnvUsePacific, EnvInputDir, EnvOutputDir,
	EnvOpBinary, EnvCommandTimeout, EnvRateLimitMarker, EnvLogLevel, EnvLogFormat, EnvMetrics,
}

// clearConfigEnv unsets every config variable for the duration of the test,
// including ones a dotenv file sets during it.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, old) })
		}
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Minute, cfg.Backoff())
	assert.Zero(t, cfg.Buffer())
	assert.Equal(t, " - ", cfg.NameJoiner)
	assert.True(t, cfg.ShouldRetry)
	assert.Equal(t, 3, cfg.MaxRetries)

	cfg.ShouldBuffer = true
	assert.Equal(t, 10*time.Second, cfg.Buffer())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		errKeys []string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name: "retry and timing bounds",
			mutate: func(c *Config) {
				c.MaxRetries = 0
				c.BackoffMinutes = -1
				c.BufferSeconds = -5
				c.CommandTimeout = 0
			},
			errKeys: []string{"max_retries", "backoff_minutes", "buffer_seconds", "command_timeout"},
		},
		{
			name: "required strings",
			mutate: func(c *Config) {
				c.NameJoiner = ""
				c.InputDir = ""
				c.OpBinary = ""
			},
			errKeys: []string{"name_joiner", "input_dir", "op_binary"},
		},
		{
			name: "time zone and logging",
			mutate: func(c *Config) {
				c.TimeZone = "Mars/Olympus_Mons"
				c.LogLevel = "loud"
				c.LogFormat = "xml"
			},
			errKeys: []string{"time_zone", "log_level", "log_format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if len(tt.errKeys) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))

			var errs errsx.Map
			require.True(t, errors.As(err, &errs), "expected an errsx.Map in the chain")
			assert.Len(t, errs, len(tt.errKeys))
			for _, key := range tt.errKeys {
				if _, ok := errs[key]; !ok {
					t.Errorf("expected key '%s' in errsx.Map", key)
				}
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "opvault.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"max_retries: 7\nname_joiner: \" | \"\ncommand_timeout: 30s\ntime_zone: UTC\nmetrics_enabled: false\n"), 0o644))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"MAX_RETRIES=5\nBUFFER_OPERATIONS=true\nBUFFER_TIME_SEC=2\nVAULT_NAME_JOINER=\" / \"\n"), 0o644))

	os.Setenv(EnvMaxRetries, "9")

	cfg, err := LoadConfig(LoadOptions{ConfigFile: yamlPath, EnvFile: envPath})
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.MaxRetries, "process env wins over dotenv and yaml")
	assert.Equal(t, " / ", cfg.NameJoiner, "dotenv wins over yaml")
	assert.Equal(t, 2*time.Second, cfg.Buffer())
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, DefaultInputDir, cfg.InputDir)
}

func TestLoadConfig_UsePacificFalseSelectsUTC(t *testing.T) {
	clearConfigEnv(t)
	chdir(t, t.TempDir())
	os.Setenv(EnvUsePacific, "false")

	cfg, err := LoadConfig(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.TimeZone)

	os.Setenv(EnvTimeZone, "Europe/Paris")
	cfg, err = LoadConfig(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", cfg.TimeZone)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearConfigEnv(t)
	chdir(t, t.TempDir())

	_, err := LoadConfig(LoadOptions{EnvFile: "missing.env"})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile("bad.yaml", []byte("max_retries: [1, 2"), 0o644))
	_, err = LoadConfig(LoadOptions{ConfigFile: "bad.yaml"})
	assert.True(t, IsInvalidConfiguration(err))

	os.Setenv(EnvMaxRetries, "zero")
	_, err = LoadConfig(LoadOptions{})
	assert.True(t, IsInvalidConfiguration(err))

	os.Setenv(EnvMaxRetries, "0")
	_, err = LoadConfig(LoadOptions{})
	assert.True(t, IsInvalidConfiguration(err))
}

func TestVersionInfo(t *testing.T) {
	assert.Equal(t, "opvault v"+Version, VersionInfo())
	assert.Equal(t, "v"+Version, FullVersionInfo().String())
}
