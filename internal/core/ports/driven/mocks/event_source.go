package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var _ driven.EventSource = (*MockEventSource)(nil)

// MockEventSource serves queued events and blocks when empty
type MockEventSource struct {
	mu     sync.Mutex
	events chan *domain.ChangeEvent
	acked  []*domain.ChangeEvent
	closed bool
}

// NewMockEventSource creates a source preloaded with events
func NewMockEventSource(events ...*domain.ChangeEvent) *MockEventSource {
	ch := make(chan *domain.ChangeEvent, len(events)+16)
	for _, e := range events {
		ch <- e
	}
	return &MockEventSource{events: ch}
}

// Publish queues another event
func (m *MockEventSource) Publish(event *domain.ChangeEvent) {
	m.events <- event
}

func (m *MockEventSource) Next(ctx context.Context) (*driven.EventDelivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event := <-m.events:
		return &driven.EventDelivery{
			Event: event,
			Ack: func(ctx context.Context) error {
				m.mu.Lock()
				defer m.mu.Unlock()
				m.acked = append(m.acked, event)
				return nil
			},
		}, nil
	}
}

func (m *MockEventSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Acked returns the acknowledged events
func (m *MockEventSource) Acked() []*domain.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.ChangeEvent(nil), m.acked...)
}

// IsClosed reports whether Close was called
func (m *MockEventSource) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
