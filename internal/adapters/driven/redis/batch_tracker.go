package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BatchTracker = (*BatchTracker)(nil)

const (
	expectedKey = "chimp-sync:batches:expected"
	handledKey  = "chimp-sync:batches:handled"

	// DefaultTrackingTTL bounds how long a pass waits for its batch webhooks
	DefaultTrackingTTL = 2 * time.Hour
)

// BatchTracker implements driven.BatchTracker with a counter key and a
// hash of batch id to completed operation count. Both keys expire after ttl.
type BatchTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBatchTracker creates a Redis-backed tracker. A non-positive ttl uses DefaultTrackingTTL.
func NewBatchTracker(client *redis.Client, ttl time.Duration) *BatchTracker {
	if ttl <= 0 {
		ttl = DefaultTrackingTTL
	}
	return &BatchTracker{client: client, ttl: ttl}
}

// Begin stores the expected count and forgets the previous pass
func (t *BatchTracker) Begin(ctx context.Context, expected int) error {
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, handledKey)
	pipe.Set(ctx, expectedKey, expected, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("begin batch tracking: %w", err)
	}
	return nil
}

// Expected returns the cached operation count of the current pass
func (t *BatchTracker) Expected(ctx context.Context) (int, bool, error) {
	count, err := t.client.Get(ctx, expectedKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get expected operations: %w", err)
	}
	return count, true, nil
}

// Handled returns the completed count stored for a batch
func (t *BatchTracker) Handled(ctx context.Context, batchID string) (int, bool, error) {
	count, err := t.client.HGet(ctx, handledKey, batchID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get handled batch %s: %w", batchID, err)
	}
	return count, true, nil
}

// MarkHandled stores the completed count with HSETNX so the first writer wins
func (t *BatchTracker) MarkHandled(ctx context.Context, batchID string, completed int) (int, error) {
	set, err := t.client.HSetNX(ctx, handledKey, batchID, completed).Result()
	if err != nil {
		return 0, fmt.Errorf("mark batch %s handled: %w", batchID, err)
	}
	if err := t.client.Expire(ctx, handledKey, t.ttl).Err(); err != nil {
		return 0, fmt.Errorf("expire handled batches: %w", err)
	}
	if set {
		return completed, nil
	}

	stored, ok, err := t.Handled(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if !ok {
		// expired between the two calls
		return completed, nil
	}
	return stored, nil
}

// CompletedTotal sums the completed counts of all handled batches
func (t *BatchTracker) CompletedTotal(ctx context.Context) (int, error) {
	values, err := t.client.HVals(ctx, handledKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list handled batches: %w", err)
	}
	total := 0
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse handled count %q: %w", v, err)
		}
		total += n
	}
	return total, nil
}

// Reset forgets the expected count and every handled batch
func (t *BatchTracker) Reset(ctx context.Context) error {
	if err := t.client.Del(ctx, expectedKey, handledKey).Err(); err != nil {
		return fmt.Errorf("reset batch tracking: %w", err)
	}
	return nil
}
