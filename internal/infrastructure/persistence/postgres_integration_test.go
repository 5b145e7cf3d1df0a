package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	db, err := Open(context.Background(), Options{Dialect: DialectPostgres, MaxOpenConns: 4}, staticDSN(dsn), nopLog())
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_UpdateProcedure(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tenant := uuid.New()
	repo, err := NewClientRepository(db, tenant, testPolicy(), nopLog())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM clients WHERE tenant_id = $1`, tenant)
	})

	client := newTestClient(t, tenant, "John", "Doe", "cityName")
	_, err = repo.Create(ctx, client)
	require.NoError(t, err)

	address, err := domain.NewAddress("Leiden", "Breestraat", "7", []string{"line1", "line2"})
	require.NoError(t, err)
	require.NoError(t, client.UpdateAddress(address))
	_, err = repo.Update(ctx, client)
	require.NoError(t, err)

	got, found, err := repo.GetByID(ctx, client.ID())
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, client.Equal(got))

	ghost := newTestClient(t, tenant, "Ghost", "", "Nowhere")
	_, err = repo.Update(ctx, ghost)
	assert.True(t, domain.IsNotFound(err), "procedure raises no_data_found for a missing row")

	results, err := repo.Search(ctx, repository.SearchCriteria{FirstName: "JOHN"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, client.Equal(results[0]))

	tracked, found, err := repo.GetByIDNoTracking(ctx, client.ID())
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, client.Equal(tracked))

	require.NoError(t, repo.Delete(ctx, client.ID()))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, client.ID())))
}
