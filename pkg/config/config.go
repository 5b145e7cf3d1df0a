package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Resilience ResilienceConfig `mapstructure:"resilience"`

	// Optional logging settings
	LogMode  string `mapstructure:"log_mode"` // "dev" or "prod"
	LogLevel string `mapstructure:"log_level"`

	// Tenant used by the CLI when --tenant is not given
	Tenant string `mapstructure:"tenant"`

	// Static paths
	ConfigPath string
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type ResilienceConfig struct {
	MaxAttempts      uint          `mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	Multiplier       float64       `mapstructure:"multiplier"`
	Jitter           float64       `mapstructure:"jitter"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	FailureWindow    time.Duration `mapstructure:"failure_window"`
	OpenDuration     time.Duration `mapstructure:"open_duration"`
	HalfOpenMax      int           `mapstructure:"half_open_max"`
}

const (
	DefaultConfigPath   = "/etc/clientbook/config.yml"
	DefaultDriver       = "sqlite"
	DefaultDSN          = "/var/lib/clientbook/clients.sqlite3"
	DefaultMaxOpenConns = 10
	DefaultLogMode      = "dev"
	DefaultLogLevel     = "info"

	DefaultMaxAttempts      = 4
	DefaultInitialBackoff   = 100 * time.Millisecond
	DefaultMaxBackoff       = 2 * time.Second
	DefaultMultiplier       = 2.0
	DefaultJitter           = 0.2
	DefaultFailureThreshold = 5
	DefaultFailureWindow    = time.Minute
	DefaultOpenDuration     = 30 * time.Second
	DefaultHalfOpenMax      = 1
)

// Load reads configPath, falling back to the default path. A missing file is
// only an error when the path was given explicitly; otherwise defaults and
// CLIENTBOOK_* environment variables apply.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.dsn", DefaultDSN)
	v.SetDefault("database.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("log_mode", DefaultLogMode)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("tenant", "")
	v.SetDefault("resilience.max_attempts", DefaultMaxAttempts)
	v.SetDefault("resilience.initial_backoff", DefaultInitialBackoff)
	v.SetDefault("resilience.max_backoff", DefaultMaxBackoff)
	v.SetDefault("resilience.multiplier", DefaultMultiplier)
	v.SetDefault("resilience.jitter", DefaultJitter)
	v.SetDefault("resilience.failure_threshold", DefaultFailureThreshold)
	v.SetDefault("resilience.failure_window", DefaultFailureWindow)
	v.SetDefault("resilience.open_duration", DefaultOpenDuration)
	v.SetDefault("resilience.half_open_max", DefaultHalfOpenMax)

	// Allow environment variable overrides, e.g. CLIENTBOOK_DATABASE_DSN
	v.SetEnvPrefix("CLIENTBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigPath = configPath

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	case "":
		return fmt.Errorf("database.driver is required")
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite'")
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative")
	}

	r := c.Resilience
	if r.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be at least 1")
	}
	if r.InitialBackoff <= 0 || r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("resilience backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("resilience.multiplier must be at least 1")
	}
	if r.Jitter < 0 || r.Jitter >= 1 {
		return fmt.Errorf("resilience.jitter must be in [0, 1)")
	}
	if r.FailureThreshold < 1 || r.HalfOpenMax < 1 {
		return fmt.Errorf("resilience.failure_threshold and resilience.half_open_max must be at least 1")
	}
	if r.OpenDuration <= 0 {
		return fmt.Errorf("resilience.open_duration must be positive")
	}

	return nil
}

// ConnectionString returns the database DSN. It makes Config the store's
// connection provider.
func (c *Config) ConnectionString() string {
	return c.Database.DSN
}
