package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/martijn/clientbook/internal/platform/logger"
	"gorm.io/gorm"
)

// updatableColumns are written by TrackedStore.Update; id and tenant_id never change.
var updatableColumns = []string{
	"first_name", "family_name",
	"city", "street", "building_number", "address_lines",
	"primary_phone_number", "secondary_phone_number", "email_address",
}

// TrackedStore is the gorm strategy used for simple writes and untracked reads.
type TrackedStore struct {
	orm      *gorm.DB
	compiler *QueryCompiler
	log      *logger.Logger
}

func NewTrackedStore(db *DB, baseLog *logger.Logger) *TrackedStore {
	return &TrackedStore{
		orm:      db.ORM,
		compiler: NewQueryCompiler(db.Dialect()),
		log:      baseLog.With("store", "TrackedStore"),
	}
}

var _ repository.ClientStore = (*TrackedStore)(nil)

func (s *TrackedStore) Insert(ctx context.Context, client *domain.Client) error {
	rec := newClientRecord(client)
	if err := s.orm.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (s *TrackedStore) Update(ctx context.Context, client *domain.Client) error {
	rec := newClientRecord(client)
	res := s.orm.WithContext(ctx).
		Model(&clientRecord{}).
		Where("tenant_id = ? AND id = ?", rec.TenantID, rec.ID).
		Select(updatableColumns).
		Updates(&rec)
	if res.Error != nil {
		return fmt.Errorf("failed to update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("client", client.ID())
	}
	return nil
}

// Remove loads the row inside a transaction and deletes it. A missing row is
// NotFound and nothing is written.
func (s *TrackedStore) Remove(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec clientRecord
		err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("client", id)
		}
		if err != nil {
			return fmt.Errorf("failed to find client: %w", err)
		}

		if err := tx.Where("tenant_id = ?", tenantID).Delete(&rec).Error; err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return nil
	})
}

func (s *TrackedStore) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Client, bool, error) {
	var rec clientRecord
	err := s.orm.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find client: %w", err)
	}

	client, err := rec.toDomain()
	if err != nil {
		return nil, false, domain.PermanentStore(fmt.Sprintf("stored client %s is invalid", rec.ID), err)
	}
	return client, true, nil
}

func (s *TrackedStore) Search(ctx context.Context, tenantID uuid.UUID, criteria repository.SearchCriteria) ([]*domain.Client, error) {
	stmt, err := s.compiler.CompileSearch(tenantID, criteria)
	if err != nil {
		return nil, err
	}

	q := s.orm.WithContext(ctx).Where(stmt.Where, stmt.WhereArgs...).Order(stmt.OrderBy)
	if stmt.Limit > 0 {
		q = q.Limit(stmt.Limit)
	}
	if stmt.Offset > 0 {
		q = q.Offset(stmt.Offset)
	}

	var recs []clientRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}

	clients := make([]*domain.Client, 0, len(recs))
	for _, rec := range recs {
		client, err := rec.toDomain()
		if err != nil {
			return nil, domain.PermanentStore(fmt.Sprintf("stored client %s is invalid", rec.ID), err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}
