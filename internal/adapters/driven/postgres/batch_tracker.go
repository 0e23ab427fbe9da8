package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BatchTracker = (*BatchTracker)(nil)

// BatchTracker implements driven.BatchTracker on the sync_tracking tables.
// Used when Redis is not configured; expired rows are ignored on read.
type BatchTracker struct {
	db  *DB
	ttl time.Duration
}

// NewBatchTracker creates a PostgreSQL-backed tracker
func NewBatchTracker(db *DB, ttl time.Duration) *BatchTracker {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &BatchTracker{db: db, ttl: ttl}
}

// Begin stores the expected count and forgets the previous pass
func (t *BatchTracker) Begin(ctx context.Context, expected int) error {
	expiresAt := time.Now().Add(t.ttl)
	return t.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_handled_batches`); err != nil {
			return fmt.Errorf("clear handled batches: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_tracking (id, expected, expires_at) VALUES (1, $1, $2)
			ON CONFLICT (id) DO UPDATE SET expected = EXCLUDED.expected, expires_at = EXCLUDED.expires_at`,
			expected, expiresAt)
		if err != nil {
			return fmt.Errorf("begin batch tracking: %w", err)
		}
		return nil
	})
}

// Expected returns the cached operation count of the current pass
func (t *BatchTracker) Expected(ctx context.Context) (int, bool, error) {
	var expected int
	err := t.db.QueryRowContext(ctx,
		`SELECT expected FROM sync_tracking WHERE id = 1 AND expires_at > NOW()`).Scan(&expected)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get expected operations: %w", err)
	}
	return expected, true, nil
}

// Handled returns the completed count stored for a batch
func (t *BatchTracker) Handled(ctx context.Context, batchID string) (int, bool, error) {
	var completed int
	err := t.db.QueryRowContext(ctx,
		`SELECT completed FROM sync_handled_batches WHERE batch_id = $1 AND expires_at > NOW()`,
		batchID).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get handled batch %s: %w", batchID, err)
	}
	return completed, true, nil
}

// MarkHandled inserts the count unless a live row exists and returns the stored count
func (t *BatchTracker) MarkHandled(ctx context.Context, batchID string, completed int) (int, error) {
	var stored int
	err := t.db.QueryRowContext(ctx, `
		INSERT INTO sync_handled_batches (batch_id, completed, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (batch_id) DO UPDATE SET
			completed = CASE WHEN sync_handled_batches.expires_at > NOW()
				THEN sync_handled_batches.completed ELSE EXCLUDED.completed END,
			expires_at = EXCLUDED.expires_at
		RETURNING completed`,
		batchID, completed, time.Now().Add(t.ttl)).Scan(&stored)
	if err != nil {
		return 0, fmt.Errorf("mark batch %s handled: %w", batchID, err)
	}
	return stored, nil
}

// CompletedTotal sums the completed counts of live handled batches
func (t *BatchTracker) CompletedTotal(ctx context.Context) (int, error) {
	var total int
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(completed), 0) FROM sync_handled_batches WHERE expires_at > NOW()`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum handled batches: %w", err)
	}
	return total, nil
}

// Reset forgets the expected count and every handled batch
func (t *BatchTracker) Reset(ctx context.Context) error {
	return t.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_tracking`); err != nil {
			return fmt.Errorf("reset batch tracking: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_handled_batches`); err != nil {
			return fmt.Errorf("reset handled batches: %w", err)
		}
		return nil
	})
}
