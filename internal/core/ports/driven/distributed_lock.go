package driven

import (
	"context"
	"time"
)

// DistributedLock keeps replicas from running the same periodic pass twice.
type DistributedLock interface {
	// Acquire takes a named lock for ttl.
	// acquired is false when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release frees a named lock. Safe to call when the lock already expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
