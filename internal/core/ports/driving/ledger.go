package driving

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// Ledger registers and drains pending changes
type Ledger interface {
	// RecordChange merges a change into the ledger
	RecordChange(ctx context.Context, change domain.Change) error

	// DrainPending returns the records of one entity and operation type without removing them
	DrainPending(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error)

	// ClearByEntityType removes every record of one entity type
	ClearByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error)

	// ClearAll empties the ledger
	ClearAll(ctx context.Context) (int64, error)

	// Pending lists every record
	Pending(ctx context.Context) ([]*domain.SynchronizationRecord, error)
}

// ChangeObserver translates host entity events into ledger changes
type ChangeObserver interface {
	Observe(ctx context.Context, event *domain.ChangeEvent) error
}
