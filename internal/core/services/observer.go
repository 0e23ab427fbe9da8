package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.ChangeObserver = (*ChangeObserverService)(nil)

// ChangeObserverService translates host entity events into ledger changes
type ChangeObserverService struct {
	ledger  driving.Ledger
	catalog driven.Catalog
	logger  *slog.Logger
}

// ObserverConfig holds dependencies for ChangeObserverService.
type ObserverConfig struct {
	Ledger  driving.Ledger
	Catalog driven.Catalog
	Logger  *slog.Logger
}

// NewChangeObserverService creates a new change observer.
func NewChangeObserverService(cfg ObserverConfig) *ChangeObserverService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeObserverService{ledger: cfg.Ledger, catalog: cfg.Catalog, logger: logger}
}

// Observe records the ledger changes implied by one host event
func (s *ChangeObserverService) Observe(ctx context.Context, event *domain.ChangeEvent) error {
	if event == nil {
		return fmt.Errorf("%w: empty event", domain.ErrInvalidInput)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	changes, err := s.changesFor(ctx, event)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if err := s.ledger.RecordChange(ctx, c); err != nil {
			return fmt.Errorf("record %s: %w", event, err)
		}
	}
	s.logger.Debug("event observed", "event", event.String(), "changes", len(changes))
	return nil
}

func (s *ChangeObserverService) changesFor(ctx context.Context, e *domain.ChangeEvent) ([]domain.Change, error) {
	switch e.Entity {
	case domain.EventEntityStore:
		return single(domain.EntityTypeStore, e, actionOperation(e)), nil

	case domain.EventEntityCustomer:
		if e.Guest {
			return nil, nil
		}
		return single(domain.EntityTypeCustomer, e, actionOperation(e)), nil

	case domain.EventEntitySubscription:
		return single(domain.EntityTypeSubscription, e, actionOperation(e)), nil

	case domain.EventEntityProduct:
		return single(domain.EntityTypeProduct, e, actionOperation(e)), nil

	case domain.EventEntityOrder:
		return single(domain.EntityTypeOrder, e, actionOperation(e)), nil

	case domain.EventEntityAttributeCombination:
		return single(domain.EntityTypeAttributeCombination, e, actionOperation(e)), nil

	case domain.EventEntityProductAttribute:
		if e.Action != domain.EventDeleted {
			return nil, nil
		}
		return s.combinationUpdates(ctx, e, s.catalog.CombinationsByAttribute)

	case domain.EventEntityAttributeMapping:
		if e.Action != domain.EventDeleted {
			return nil, nil
		}
		return s.combinationUpdates(ctx, e, s.catalog.CombinationsByAttributeMapping)

	case domain.EventEntityAttributeValue:
		if e.Action == domain.EventInserted {
			return nil, nil
		}
		return s.combinationUpdates(ctx, e, s.catalog.CombinationsByAttributeValue)
	}
	return nil, nil
}

// actionOperation maps an event action to the ledger operation.
// Soft-deleted rows arrive as updates and are recorded as deletes.
func actionOperation(e *domain.ChangeEvent) domain.OperationType {
	switch e.Action {
	case domain.EventInserted, domain.EventRegistered:
		return domain.OperationCreate
	case domain.EventDeleted, domain.EventUnsubscribed:
		return domain.OperationDelete
	default:
		if e.Deleted {
			return domain.OperationDelete
		}
		return domain.OperationUpdate
	}
}

func single(entityType domain.EntityType, e *domain.ChangeEvent, op domain.OperationType) []domain.Change {
	c := domain.Change{
		EntityType:    entityType,
		EntityID:      e.ID,
		OperationType: op,
		Email:         e.Email,
		ProductID:     e.ProductID,
	}
	// An unsubscribe is keyed by the address, the row may no longer exist.
	if e.Action == domain.EventUnsubscribed {
		c.EntityID = 0
	}
	return []domain.Change{c}
}

// combinationUpdates records an update for every combination referencing the changed attribute row
func (s *ChangeObserverService) combinationUpdates(ctx context.Context, e *domain.ChangeEvent, lookup func(context.Context, int64) ([]*domain.Combination, error)) ([]domain.Change, error) {
	combinations, err := lookup(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("combinations of %s: %w", e, err)
	}
	changes := make([]domain.Change, 0, len(combinations))
	for _, c := range combinations {
		changes = append(changes, domain.Change{
			EntityType:    domain.EntityTypeAttributeCombination,
			EntityID:      c.ID,
			ProductID:     c.ProductID,
			OperationType: domain.OperationUpdate,
		})
	}
	return changes, nil
}
