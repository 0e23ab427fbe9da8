package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// SyncRecordStore persists the synchronization ledger.
// The store enforces at most one record per domain.RecordKey.
type SyncRecordStore interface {
	// Get returns the record for a key, or domain.ErrNotFound
	Get(ctx context.Context, key domain.RecordKey) (*domain.SynchronizationRecord, error)

	// Insert stores a new record and assigns its ID.
	// Returns domain.ErrConflict if a record already holds the key.
	Insert(ctx context.Context, record *domain.SynchronizationRecord) error

	// UpdateOperation rewrites the operation type of an existing record
	UpdateOperation(ctx context.Context, id int64, op domain.OperationType) error

	// Delete removes a single record
	Delete(ctx context.Context, id int64) error

	// ListByType returns records of one entity and operation type ordered by id
	ListByType(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error)

	// List returns every record ordered by id
	List(ctx context.Context) ([]*domain.SynchronizationRecord, error)

	// DeleteByEntityType removes every record of one entity type
	DeleteByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error)

	// DeleteAll empties the ledger
	DeleteAll(ctx context.Context) (int64, error)
}
