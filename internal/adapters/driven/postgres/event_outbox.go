package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventSource = (*EventOutbox)(nil)

const (
	defaultOutboxPoll  = 2 * time.Second
	defaultOutboxClaim = 5 * time.Minute
)

// OutboxConfig configures an EventOutbox
type OutboxConfig struct {
	// PollInterval is the wait between reads of an empty outbox
	PollInterval time.Duration

	// ClaimTimeout is how long a delivered row stays invisible before it is redelivered
	ClaimTimeout time.Duration

	Logger *slog.Logger
}

// EventOutbox reads change events from the change_events table.
// Rows are claimed with SELECT FOR UPDATE SKIP LOCKED so concurrent workers
// never receive the same row, and deleted on acknowledgement.
type EventOutbox struct {
	db     *DB
	poll   time.Duration
	claim  time.Duration
	logger *slog.Logger
}

// NewEventOutbox creates an outbox reader. The table is created by InitSchema.
func NewEventOutbox(db *DB, cfg OutboxConfig) *EventOutbox {
	o := &EventOutbox{
		db:     db,
		poll:   cfg.PollInterval,
		claim:  cfg.ClaimTimeout,
		logger: cfg.Logger,
	}
	if o.poll <= 0 {
		o.poll = defaultOutboxPoll
	}
	if o.claim <= 0 {
		o.claim = defaultOutboxClaim
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Publish inserts an event. Hosts normally insert rows themselves.
func (o *EventOutbox) Publish(ctx context.Context, event *domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := o.db.ExecContext(ctx, `INSERT INTO change_events (payload) VALUES ($1)`, payload); err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// Next blocks until a row is claimed or ctx is done.
// Rows with an undecodable payload are deleted.
func (o *EventOutbox) Next(ctx context.Context) (*driven.EventDelivery, error) {
	for {
		id, payload, err := o.claimNext(ctx)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.poll):
				continue
			}
		}

		event, err := domain.ParseChangeEvent(payload)
		if err != nil {
			o.logger.Warn("dropping undecodable change event", "id", id, "error", err)
			if err := o.remove(ctx, id); err != nil {
				o.logger.Warn("failed to drop change event", "id", id, "error", err)
			}
			continue
		}

		rowID := id
		return &driven.EventDelivery{
			Event: event,
			Ack: func(ctx context.Context) error {
				return o.remove(ctx, rowID)
			},
		}, nil
	}
}

// claimNext marks the oldest unclaimed or abandoned row as claimed.
// Returns id 0 when nothing is available.
func (o *EventOutbox) claimNext(ctx context.Context) (int64, []byte, error) {
	var id int64
	var payload []byte

	err := o.db.Transaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, payload
			FROM change_events
			WHERE claimed_at IS NULL OR claimed_at < $1
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED`,
			time.Now().Add(-o.claim),
		).Scan(&id, &payload)
		if errors.Is(err, sql.ErrNoRows) {
			id = 0
			return nil
		}
		if err != nil {
			return fmt.Errorf("select change event: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE change_events SET claimed_at = NOW() WHERE id = $1`, id); err != nil {
			return fmt.Errorf("claim change event %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, payload, nil
}

func (o *EventOutbox) remove(ctx context.Context, id int64) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM change_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete change event %d: %w", id, err)
	}
	return nil
}

// Close is a no-op, the pool is owned by the caller
func (o *EventOutbox) Close() error {
	return nil
}
