package driving

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// Synchronizer runs synchronization passes
type Synchronizer interface {
	// Synchronize drains the ledger and dispatches the resulting operations.
	// manual re-seeds the ledger from the host catalog first.
	// Returns the number of dispatched operations.
	Synchronize(ctx context.Context, manual bool) (int, error)

	// StartManual runs a manual pass and starts completion tracking for it
	StartManual(ctx context.Context) (int, error)

	// IsComplete reports whether the last manual pass finished remotely
	IsComplete(ctx context.Context) (bool, error)
}

// CompletionHandler consumes batch completion notifications
type CompletionHandler interface {
	// OnBatchNotification returns nil when there is nothing to record yet
	OnBatchNotification(ctx context.Context, notification *domain.BatchNotification) (*domain.BatchCompletion, error)
}

// SubscriptionWebhookHandler applies list member changes to host subscriptions
type SubscriptionWebhookHandler interface {
	HandleSubscriptionNotification(ctx context.Context, notification *domain.SubscriptionNotification) error
}
