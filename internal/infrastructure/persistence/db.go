package persistence

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/martijn/clientbook/internal/platform/logger"
	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

//go:embed schema_postgres.sql
var postgresSchema string

// SQLite has no stored procedures; the update procedure is emulated in mapped_store.go.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	first_name TEXT NOT NULL,
	family_name TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL,
	street TEXT NOT NULL DEFAULT '',
	building_number TEXT NOT NULL DEFAULT '',
	address_lines TEXT NOT NULL DEFAULT '[]', -- JSON array
	primary_phone_number TEXT NOT NULL,
	secondary_phone_number TEXT NOT NULL DEFAULT '',
	email_address TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_clients_tenant_id ON clients(tenant_id);
`

type Options struct {
	Dialect      Dialect
	MaxOpenConns int
}

// DB holds the single connection pool shared by the mapped (sqlx) and
// tracked (gorm) store strategies.
type DB struct {
	*sqlx.DB
	ORM     *gorm.DB
	dialect Dialect
}

// Open connects to the store described by provider. All data-mapping
// configuration (sqlx field mapper, gorm logger and dialector) happens here,
// once per pool.
func Open(ctx context.Context, opts Options, provider repository.ConnectionProvider, baseLog *logger.Logger) (*DB, error) {
	if provider == nil {
		return nil, errors.New("connection provider is required")
	}
	dsn := provider.ConnectionString()
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("connection string is empty")
	}
	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}

	db, err := sqlx.Open(opts.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.Mapper = reflectx.NewMapperFunc("db", strings.ToLower)

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.Dialect == DialectSQLite && isInMemory(dsn) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Dialect == DialectSQLite {
		if err := configureSQLite(ctx, db, dsn); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	orm, err := openORM(opts.Dialect, db, baseLog)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, ORM: orm, dialect: opts.Dialect}, nil
}

func configureSQLite(ctx context.Context, db *sqlx.DB, dsn string) error {
	if !isInMemory(dsn) {
		// Enable WAL mode for better concurrency (allows concurrent reads/writes)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Set busy timeout to handle concurrent access from multiple processes
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return nil
}

func openORM(dialect Dialect, db *sqlx.DB, baseLog *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = gormpostgres.New(gormpostgres.Config{Conn: db.DB})
	case DialectSQLite:
		dialector = gormsqlite.New(gormsqlite.Config{DriverName: dialect.DriverName(), Conn: db.DB})
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	gormLog := gormLogger.New(
		gormWriter{log: baseLog.With("component", "gorm")},
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	orm, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}
	return orm, nil
}

// gormWriter routes gorm's printf-style logger into zap.
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Warnf(format, args...)
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// EnsureSchema creates the clients table (and, on Postgres, the update
// procedure) when missing. It does not migrate existing schemas.
func (db *DB) EnsureSchema(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the shared pool. The ORM shares it and needs no separate close.
func (db *DB) Close() error {
	return db.DB.Close()
}
