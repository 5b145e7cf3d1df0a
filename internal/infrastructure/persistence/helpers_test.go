package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/infrastructure/resilience"
	"github.com/martijn/clientbook/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

type staticDSN string

func (d staticDSN) ConnectionString() string { return string(d) }

// setupTestDB opens a private in-memory SQLite store with the schema applied.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{Dialect: DialectSQLite}, staticDSN(":memory:"), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testPolicy() *resilience.Policy {
	return resilience.NewPolicy(resilience.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
		Breaker:        resilience.BreakerConfig{FailureThreshold: 50, OpenDuration: time.Minute},
	}, logger.NewNop())
}

func newTestClient(t *testing.T, tenantID uuid.UUID, firstName, familyName, city string, lines ...string) *domain.Client {
	t.Helper()
	address, err := domain.NewAddress(city, "SomeStreet", "bn-05", lines)
	require.NoError(t, err)
	contact, err := domain.NewContactDetails("123-9222333", "12-9987878", "a@b.com")
	require.NoError(t, err)
	client, err := domain.NewClient(firstName, familyName, address, contact, tenantID)
	require.NoError(t, err)
	return client
}

func nopLog() *logger.Logger { return logger.NewNop() }
