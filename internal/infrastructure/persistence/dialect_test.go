package persistence

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"PostgreSQL", DialectPostgres, false},
		{"pgx", DialectPostgres, false},
		{"sqlite", DialectSQLite, false},
		{" sqlite3 ", DialectSQLite, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialect_Bindings(t *testing.T) {
	assert.Equal(t, "pgx", DialectPostgres.DriverName())
	assert.Equal(t, sqlx.DOLLAR, DialectPostgres.BindType())
	assert.Equal(t, "sqlite", DialectSQLite.DriverName())
	assert.NotEqual(t, sqlx.DOLLAR, DialectSQLite.BindType())
}

func TestOpen_RejectsEmptyConnectionString(t *testing.T) {
	_, err := Open(context.Background(), Options{Dialect: DialectSQLite}, staticDSN("  "), nopLog())
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Dialect: DialectSQLite}, nil, nopLog())
	assert.Error(t, err)
}

func TestOpen_EnsureSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.Equal(t, DialectSQLite, db.Dialect())
	assert.NotNil(t, db.ORM)
}
