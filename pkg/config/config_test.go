package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://app@localhost/clients
resilience:
  max_attempts: 6
  initial_backoff: 250ms
  open_duration: 1m
log_mode: prod
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://app@localhost/clients", cfg.ConnectionString())
	assert.Equal(t, DefaultMaxOpenConns, cfg.Database.MaxOpenConns)
	assert.Equal(t, uint(6), cfg.Resilience.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Resilience.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, cfg.Resilience.MaxBackoff)
	assert.Equal(t, time.Minute, cfg.Resilience.OpenDuration)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n  dsn: /tmp/a.sqlite3\n")
	t.Setenv("CLIENTBOOK_DATABASE_DSN", "/tmp/b.sqlite3")
	t.Setenv("CLIENTBOOK_RESILIENCE_MAX_ATTEMPTS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.sqlite3", cfg.Database.DSN)
	assert.Equal(t, uint(2), cfg.Resilience.MaxAttempts)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: mysql\n  dsn: x\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Resilience: ResilienceConfig{
			MaxAttempts:      DefaultMaxAttempts,
			InitialBackoff:   DefaultInitialBackoff,
			MaxBackoff:       DefaultMaxBackoff,
			Multiplier:       DefaultMultiplier,
			Jitter:           DefaultJitter,
			FailureThreshold: DefaultFailureThreshold,
			FailureWindow:    DefaultFailureWindow,
			OpenDuration:     DefaultOpenDuration,
			HalfOpenMax:      DefaultHalfOpenMax,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty driver", func(c *Config) { c.Database.Driver = "" }, "database.driver is required"},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }, "database.dsn is required"},
		{"zero attempts", func(c *Config) { c.Resilience.MaxAttempts = 0 }, "max_attempts"},
		{"backoff inverted", func(c *Config) { c.Resilience.MaxBackoff = time.Millisecond }, "backoff"},
		{"multiplier below one", func(c *Config) { c.Resilience.Multiplier = 0.5 }, "multiplier"},
		{"jitter too large", func(c *Config) { c.Resilience.Jitter = 1 }, "jitter"},
		{"zero threshold", func(c *Config) { c.Resilience.FailureThreshold = 0 }, "failure_threshold"},
		{"zero open duration", func(c *Config) { c.Resilience.OpenDuration = 0 }, "open_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
