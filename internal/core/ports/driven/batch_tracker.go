package driven

import "context"

// BatchTracker correlates batch completion callbacks with the pass that dispatched them.
// Entries are short-lived; they only need to outlive the webhook delay.
type BatchTracker interface {
	// Begin records the operation count of a freshly dispatched pass and
	// forgets the batches of the previous one
	Begin(ctx context.Context, expected int) error

	// Expected returns the cached operation count, ok is false when none is cached
	Expected(ctx context.Context) (count int, ok bool, err error)

	// Handled returns the completed count stored for a batch, ok is false when unknown
	Handled(ctx context.Context, batchID string) (count int, ok bool, err error)

	// MarkHandled stores the completed count of a batch unless one is already stored.
	// It returns the stored count, which is the earlier one on a lost race.
	MarkHandled(ctx context.Context, batchID string, completed int) (int, error)

	// CompletedTotal sums the completed counts of all handled batches
	CompletedTotal(ctx context.Context) (int, error)

	// Reset forgets the expected count and every handled batch
	Reset(ctx context.Context) error
}
