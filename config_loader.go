package opvault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadOptions says where LoadConfig looks for settings besides the process
// environment.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. Empty means none.
	ConfigFile string

	// EnvFile is a dotenv file. Empty means DefaultEnvFile, which may be
	// missing; an explicitly named file must exist.
	EnvFile string
}

// LoadConfig builds a validated configuration.
//
// Sources are applied in order, each overriding the previous one:
//   - DefaultConfig
//   - the YAML file, when given
//   - the dotenv file, which never overrides variables already set in the process
//   - the process environment
//
// Example usage:
//
//	cfg, err := opvault.LoadConfig(opvault.LoadOptions{ConfigFile: "opvault.yaml"})
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfig(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	if opts.ConfigFile != "" {
		if err := loadYAML(opts.ConfigFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if opts.EnvFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnvironment(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfiguration, path, err)
	}
	return nil
}

// applyEnvironment overlays set variables on cfg. Unset variables leave the
// field untouched.
func applyEnvironment(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	if _, ok := os.LookupEnv(EnvTimeZone); ok {
		return nil
	}
	if raw, ok := os.LookupEnv(EnvUsePacific); ok {
		usePacific, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, EnvUsePacific, err)
		}
		if usePacific {
			cfg.TimeZone = DefaultTimeZone
		} else {
			cfg.TimeZone = "UTC"
		}
	}
	return nil
}
