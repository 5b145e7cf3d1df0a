package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
)

// ConnectionProvider supplies the store's connection descriptor. The value is opaque to the store.
type ConnectionProvider interface {
	ConnectionString() string
}

// ClientRepository is the tenant-scoped public contract for the Client aggregate.
// Lookups report absence through the bool result rather than an error.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) (uuid.UUID, error)
	Update(ctx context.Context, client *domain.Client) (*domain.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByIDNoTracking(ctx context.Context, id uuid.UUID) (*domain.Client, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, bool, error)
	Search(ctx context.Context, criteria SearchCriteria) ([]*domain.Client, error)
}

// ClientStore is a storage strategy. Implementations run a single attempt
// and leave retries and breaking to the caller.
type ClientStore interface {
	Insert(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Remove(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Client, bool, error)
	Search(ctx context.Context, tenantID uuid.UUID, criteria SearchCriteria) ([]*domain.Client, error)
}
