package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
)

var _ driving.Ledger = (*LedgerService)(nil)

// LedgerService keeps at most one pending change per entity.
//
// Concurrent changes to different keys are independent. Two first changes to
// the same key race on the store's unique key: the loser gets ErrConflict and
// merges once into the winning record. Two concurrent merges into an existing
// record are last-write-wins.
type LedgerService struct {
	store  driven.SyncRecordStore
	logger *slog.Logger
}

// LedgerConfig holds dependencies for LedgerService.
type LedgerConfig struct {
	Store  driven.SyncRecordStore
	Logger *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(cfg LedgerConfig) *LedgerService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: cfg.Store, logger: logger}
}

// RecordChange merges a change into the ledger
func (l *LedgerService) RecordChange(ctx context.Context, change domain.Change) error {
	if err := change.Validate(); err != nil {
		return err
	}

	outcome, err := l.merge(ctx, change)
	if errors.Is(err, domain.ErrConflict) {
		// Another writer inserted the key between our lookup and insert.
		outcome, err = l.merge(ctx, change)
	}
	if err != nil {
		l.logger.Error("failed to record change",
			"key", change.Key().String(),
			"operation", change.OperationType,
			"error", err,
		)
		return fmt.Errorf("record change: %w", err)
	}

	metrics.LedgerChanges.WithLabelValues(string(change.EntityType), outcome).Inc()
	l.logger.Debug("change recorded",
		"key", change.Key().String(),
		"operation", change.OperationType,
		"outcome", outcome,
	)
	return nil
}

// merge applies one lookup and at most one write, returning the outcome label
func (l *LedgerService) merge(ctx context.Context, change domain.Change) (string, error) {
	existing, err := l.store.Get(ctx, change.Key())
	if errors.Is(err, domain.ErrNotFound) {
		if err := l.store.Insert(ctx, change.NewRecord()); err != nil {
			return "", err
		}
		return "insert", nil
	}
	if err != nil {
		return "", err
	}

	action, op := domain.Merge(existing.OperationType, change.OperationType)
	switch action {
	case domain.MergeRemove:
		if err := l.store.Delete(ctx, existing.ID); err != nil {
			return "", err
		}
	case domain.MergeReplace:
		if err := l.store.UpdateOperation(ctx, existing.ID, op); err != nil {
			return "", err
		}
	}
	return action.String(), nil
}

// DrainPending returns pending records without removing them
func (l *LedgerService) DrainPending(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error) {
	records, err := l.store.ListByType(ctx, entityType, op)
	if err != nil {
		return nil, fmt.Errorf("drain %s %s records: %w", op, entityType, err)
	}
	return records, nil
}

// ClearByEntityType removes every record of one entity type
func (l *LedgerService) ClearByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error) {
	n, err := l.store.DeleteByEntityType(ctx, entityType)
	if err != nil {
		return 0, fmt.Errorf("clear %s records: %w", entityType, err)
	}
	l.logger.Info("ledger cleared", "entity_type", entityType, "records", n)
	return n, nil
}

// ClearAll empties the ledger
func (l *LedgerService) ClearAll(ctx context.Context) (int64, error) {
	n, err := l.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	l.logger.Info("ledger cleared", "records", n)
	return n, nil
}

// Pending lists every record
func (l *LedgerService) Pending(ctx context.Context) ([]*domain.SynchronizationRecord, error) {
	return l.store.List(ctx)
}
