package persistence

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect selects the SQL flavour and driver used by both store strategies.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", s)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// BindType is the sqlx placeholder style for the dialect's driver.
func (d Dialect) BindType() int {
	return sqlx.BindType(d.DriverName())
}

// isInMemory reports whether dsn names a private in-memory SQLite database.
func isInMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
