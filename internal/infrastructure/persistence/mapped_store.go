package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/martijn/clientbook/internal/platform/logger"
)

const insertClientSQL = `
	INSERT INTO clients (id, tenant_id, first_name, family_name, city, street, building_number, address_lines,
		primary_phone_number, secondary_phone_number, email_address)
	VALUES (:p_id, :p_tenant_id, :p_first_name, :p_family_name, :p_city, :p_street, :p_building_number,
		:p_address_lines, :p_primary_phone_number, :p_secondary_phone_number, :p_email_address)
`

const updateClientCall = `
	CALL update_client(
		p_id => :p_id,
		p_tenant_id => :p_tenant_id,
		p_first_name => :p_first_name,
		p_family_name => :p_family_name,
		p_city => :p_city,
		p_street => :p_street,
		p_building_number => :p_building_number,
		p_address_lines => :p_address_lines,
		p_primary_phone_number => :p_primary_phone_number,
		p_secondary_phone_number => :p_secondary_phone_number,
		p_email_address => :p_email_address
	)
`

// updateClientSQLite stands in for update_client where procedures are unavailable.
// Missing rows are detected through RowsAffected instead of SQLSTATE P0002.
const updateClientSQLite = `
	UPDATE clients
	SET first_name = :p_first_name,
		family_name = :p_family_name,
		city = :p_city,
		street = :p_street,
		building_number = :p_building_number,
		address_lines = :p_address_lines,
		primary_phone_number = :p_primary_phone_number,
		secondary_phone_number = :p_secondary_phone_number,
		email_address = :p_email_address
	WHERE id = :p_id AND tenant_id = :p_tenant_id
`

const sqlStateNoDataFound = "P0002"

// MappedStore is the sqlx strategy: hand-written SQL, the row mapper for
// reads and the update procedure for durable writes.
type MappedStore struct {
	db       *DB
	compiler *QueryCompiler
	mapper   *RowMapper
	log      *logger.Logger
}

func NewMappedStore(db *DB, baseLog *logger.Logger) *MappedStore {
	return &MappedStore{
		db:       db,
		compiler: NewQueryCompiler(db.Dialect()),
		mapper:   NewRowMapper(db.Mapper, DefaultSplitOn()),
		log:      baseLog.With("store", "MappedStore"),
	}
}

var _ repository.ClientStore = (*MappedStore)(nil)

func (s *MappedStore) Insert(ctx context.Context, client *domain.Client) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	query, args, err := s.db.BindNamed(insertClientSQL, updateParams(client))
	if err != nil {
		return fmt.Errorf("failed to bind insert: %w", err)
	}
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// Update applies the whole aggregate in one transaction on one connection.
// Any failure rolls back; a missing row is reported as NotFound and leaves
// the store unchanged.
func (s *MappedStore) Update(ctx context.Context, client *domain.Client) (err error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// database/sql already rolled back if ctx ended mid-transaction.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn("rollback failed", "client_id", client.ID(), "error", rbErr)
		}
		s.log.Error("client update rolled back",
			"client_id", client.ID(),
			"tenant_id", client.TenantID(),
			"error", err,
		)
	}()

	statement := updateClientSQLite
	if s.db.Dialect() == DialectPostgres {
		statement = updateClientCall
	}

	res, err := tx.NamedExecContext(ctx, statement, updateParams(client))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateNoDataFound {
			return domain.NotFound("client", client.ID())
		}
		return fmt.Errorf("failed to update client: %w", err)
	}

	if s.db.Dialect() != DialectPostgres {
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return domain.NotFound("client", client.ID())
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client update: %w", err)
	}
	return nil
}

func (s *MappedStore) Remove(ctx context.Context, tenantID, id uuid.UUID) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	query := conn.Rebind(`DELETE FROM clients WHERE tenant_id = ? AND id = ?`)
	result, err := conn.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("client", id)
	}
	return nil
}

func (s *MappedStore) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Client, bool, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	stmt := s.compiler.CompileGetByID(tenantID, id)
	rows, err := conn.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find client: %w", err)
	}
	defer rows.Close()

	return s.mapper.MapOne(rows)
}

func (s *MappedStore) Search(ctx context.Context, tenantID uuid.UUID, criteria repository.SearchCriteria) ([]*domain.Client, error) {
	stmt, err := s.compiler.CompileSearch(tenantID, criteria)
	if err != nil {
		return nil, err
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	defer rows.Close()

	return s.mapper.MapRows(rows)
}
