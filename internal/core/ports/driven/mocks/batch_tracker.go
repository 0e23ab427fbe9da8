package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var _ driven.BatchTracker = (*MockBatchTracker)(nil)

// MockBatchTracker keeps tracking state in memory
type MockBatchTracker struct {
	mu       sync.Mutex
	expected *int
	handled  map[string]int

	Err error
}

// NewMockBatchTracker creates an idle tracker
func NewMockBatchTracker() *MockBatchTracker {
	return &MockBatchTracker{handled: make(map[string]int)}
}

func (m *MockBatchTracker) Begin(ctx context.Context, expected int) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expected = &expected
	m.handled = make(map[string]int)
	return nil
}

func (m *MockBatchTracker) Expected(ctx context.Context) (int, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expected == nil {
		return 0, false, nil
	}
	return *m.expected, true, nil
}

func (m *MockBatchTracker) Handled(ctx context.Context, batchID string) (int, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count, ok := m.handled[batchID]
	return count, ok, nil
}

func (m *MockBatchTracker) MarkHandled(ctx context.Context, batchID string, completed int) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if count, ok := m.handled[batchID]; ok {
		return count, nil
	}
	m.handled[batchID] = completed
	return completed, nil
}

func (m *MockBatchTracker) CompletedTotal(ctx context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, count := range m.handled {
		total += count
	}
	return total, nil
}

func (m *MockBatchTracker) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expected = nil
	m.handled = make(map[string]int)
	return nil
}

// HandledCount returns the number of handled batches (for test assertions)
func (m *MockBatchTracker) HandledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handled)
}
