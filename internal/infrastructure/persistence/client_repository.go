package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/martijn/clientbook/internal/infrastructure/resilience"
	"github.com/martijn/clientbook/internal/platform/logger"
)

type clientRepository struct {
	tenantID uuid.UUID
	tracked  repository.ClientStore
	mapped   repository.ClientStore
	policy   *resilience.Policy
	log      *logger.Logger
}

// NewClientRepository returns the facade for one tenant. Simple writes and
// untracked reads go through gorm; updates, point reads and searches through
// sqlx. Every store call runs under policy.
func NewClientRepository(db *DB, tenantID uuid.UUID, policy *resilience.Policy, baseLog *logger.Logger) (repository.ClientRepository, error) {
	repo, err := newClientRepository(tenantID, NewTrackedStore(db, baseLog), NewMappedStore(db, baseLog), policy, baseLog)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func newClientRepository(tenantID uuid.UUID, tracked, mapped repository.ClientStore, policy *resilience.Policy, baseLog *logger.Logger) (*clientRepository, error) {
	if tenantID == uuid.Nil {
		return nil, domain.Validation("tenant id is required")
	}
	if policy == nil {
		return nil, domain.Validation("resilience policy is required")
	}
	return &clientRepository{
		tenantID: tenantID,
		tracked:  tracked,
		mapped:   mapped,
		policy:   policy,
		log:      baseLog.With("repo", "ClientRepository", "tenant_id", tenantID),
	}, nil
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) (uuid.UUID, error) {
	if client == nil || client.IsZero() {
		return uuid.Nil, domain.Validation("client is required")
	}
	if err := r.checkTenant(client); err != nil {
		return uuid.Nil, err
	}

	err := r.policy.Run(ctx, "create", func(ctx context.Context) error {
		return r.tracked.Insert(ctx, client)
	})
	if err != nil {
		return uuid.Nil, err
	}

	r.log.Debug("client created", "client_id", client.ID())
	return client.ID(), nil
}

// Update persists the whole aggregate through the update procedure and
// returns the same instance; it is not re-read.
func (r *clientRepository) Update(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil || client.IsZero() || client.ID() == uuid.Nil {
		return nil, domain.Validation("client with an id is required")
	}
	if err := r.checkTenant(client); err != nil {
		return nil, err
	}

	err := r.policy.Run(ctx, "update", func(ctx context.Context) error {
		return r.mapped.Update(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.Validation("client id is required")
	}

	err := r.policy.Run(ctx, "delete", func(ctx context.Context) error {
		return r.tracked.Remove(ctx, r.tenantID, id)
	})
	if err != nil {
		return err
	}

	r.log.Debug("client deleted", "client_id", id)
	return nil
}

type lookup struct {
	client *domain.Client
	found  bool
}

func (r *clientRepository) GetByIDNoTracking(ctx context.Context, id uuid.UUID) (*domain.Client, bool, error) {
	return r.get(ctx, "get_no_tracking", r.tracked, id)
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, bool, error) {
	return r.get(ctx, "get", r.mapped, id)
}

func (r *clientRepository) get(ctx context.Context, operation string, store repository.ClientStore, id uuid.UUID) (*domain.Client, bool, error) {
	if id == uuid.Nil {
		return nil, false, domain.Validation("client id is required")
	}

	res, err := resilience.Execute(ctx, r.policy, operation, func(ctx context.Context) (lookup, error) {
		client, found, err := store.FindByID(ctx, r.tenantID, id)
		return lookup{client: client, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	return res.client, res.found, nil
}

func (r *clientRepository) Search(ctx context.Context, criteria repository.SearchCriteria) ([]*domain.Client, error) {
	clients, err := resilience.Execute(ctx, r.policy, "search", func(ctx context.Context) ([]*domain.Client, error) {
		return r.mapped.Search(ctx, r.tenantID, criteria)
	})
	if err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []*domain.Client{}
	}
	return clients, nil
}

func (r *clientRepository) checkTenant(client *domain.Client) error {
	if client.TenantID() != r.tenantID {
		return domain.Validation("client belongs to tenant %s, repository is scoped to %s", client.TenantID(), r.tenantID)
	}
	return nil
}
