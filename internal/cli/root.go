package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/martijn/clientbook/internal/infrastructure/persistence"
	"github.com/martijn/clientbook/internal/infrastructure/resilience"
	"github.com/martijn/clientbook/internal/platform/logger"
	"github.com/martijn/clientbook/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	tenantFlag string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clientbook",
	Short: "clientbook - tenant-scoped client records",
	Long: `clientbook manages client records (name, postal address and contact details)
in a PostgreSQL or SQLite store.

Every store call runs under a retry and circuit-breaker policy. Records are
always scoped to one tenant, selected with --tenant or the tenant config key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant id (overrides the tenant config key)")
}

// Services holds the initialized store stack
type Services struct {
	DB     *persistence.DB
	Policy *resilience.Policy
	Log    *logger.Logger
}

// initServices opens the store and builds the shared resilience policy
func initServices(ctx context.Context) (*Services, error) {
	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dialect, err := persistence.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := persistence.Open(ctx, persistence.Options{
		Dialect:      dialect,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Services{
		DB:     db,
		Policy: resilience.NewPolicy(resilienceConfig(cfg.Resilience), log),
		Log:    log,
	}, nil
}

func resilienceConfig(r config.ResilienceConfig) resilience.Config {
	return resilience.Config{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		Multiplier:     r.Multiplier,
		Jitter:         r.Jitter,
		Breaker: resilience.BreakerConfig{
			FailureThreshold: r.FailureThreshold,
			FailureWindow:    r.FailureWindow,
			OpenDuration:     r.OpenDuration,
			HalfOpenMax:      r.HalfOpenMax,
		},
	}
}

// ClientRepository returns the facade scoped to the selected tenant
func (s *Services) ClientRepository() (repository.ClientRepository, error) {
	tenant, err := selectedTenant()
	if err != nil {
		return nil, err
	}
	return persistence.NewClientRepository(s.DB, tenant, s.Policy, s.Log)
}

// Close closes all resources
func (s *Services) Close() {
	if s.Policy != nil {
		stats := s.Policy.Stats()
		s.Log.Debug("resilience policy stats",
			"state", stats.State,
			"calls", stats.TotalCalls,
			"failures", stats.TotalFailures,
			"rejections", stats.TotalRejections,
		)
	}
	if s.DB != nil {
		s.DB.Close()
	}
	s.Log.Sync()
}

func selectedTenant() (uuid.UUID, error) {
	raw := strings.TrimSpace(tenantFlag)
	if raw == "" {
		raw = strings.TrimSpace(cfg.Tenant)
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("a tenant is required: pass --tenant or set the tenant config key")
	}
	tenant, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id %q: %w", raw, err)
	}
	return tenant, nil
}
