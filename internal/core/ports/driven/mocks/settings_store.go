package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var _ driven.SettingsStore = (*MockSettingsStore)(nil)

// MockSettingsStore holds a single settings value
type MockSettingsStore struct {
	mu       sync.RWMutex
	settings *domain.Settings

	SaveErr error
}

// NewMockSettingsStore creates a store, nil settings means nothing saved yet
func NewMockSettingsStore(settings *domain.Settings) *MockSettingsStore {
	return &MockSettingsStore{settings: settings}
}

func (m *MockSettingsStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.settings
	cp.StoreLists = make(map[int64]string, len(m.settings.StoreLists))
	for k, v := range m.settings.StoreLists {
		cp.StoreLists[k] = v
	}
	return &cp, nil
}

func (m *MockSettingsStore) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settings
	m.settings = &cp
	return nil
}
