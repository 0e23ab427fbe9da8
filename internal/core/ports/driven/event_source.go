package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// EventSource delivers entity change events published by the host system
type EventSource interface {
	// Next blocks until an event is available or ctx is done
	Next(ctx context.Context) (*EventDelivery, error)

	// Close releases the underlying connection
	Close() error
}

// EventDelivery is one received event.
// Ack commits the position so the event is not delivered again.
type EventDelivery struct {
	Event *domain.ChangeEvent
	Ack   func(ctx context.Context) error
}
