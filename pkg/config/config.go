package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Config holds the service settings read at start-up.
type Config struct {
	Port           string
	Driver         string
	DBPath         string
	ExportDir      string
	LineTerminator string
	JobTTL         time.Duration // How long finished export jobs stay queryable
}

// Load reads the configuration from the environment, filling defaults for unset values.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:           envOr(getenv, EnvPort, DefaultPort),
		Driver:         envOr(getenv, EnvDriver, DefaultDriver),
		DBPath:         envOr(getenv, EnvDBPath, DefaultDBPath),
		ExportDir:      envOr(getenv, EnvExportDir, DefaultExportDir),
		LineTerminator: strings.ToUpper(envOr(getenv, EnvLineTerminator, DefaultLineTerminator)),
	}
	ttl, err := time.ParseDuration(envOr(getenv, EnvJobTTL, DefaultJobTTL.String()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvJobTTL, err)
	}
	cfg.JobTTL = ttl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if !slices.Contains(SupportedDrivers, c.Driver) {
		return fmt.Errorf("%s must be one of %s, got %q", EnvDriver, strings.Join(SupportedDrivers, ", "), c.Driver)
	}
	switch c.LineTerminator {
	case LineTerminatorLF, LineTerminatorCRLF:
	default:
		return fmt.Errorf("%s must be %s or %s, got %q", EnvLineTerminator, LineTerminatorLF, LineTerminatorCRLF, c.LineTerminator)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvJobTTL, c.JobTTL)
	}
	if strings.TrimSpace(c.ExportDir) == "" {
		return fmt.Errorf("%s must not be empty", EnvExportDir)
	}
	return nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}
