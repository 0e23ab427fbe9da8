package mocks

import (
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var _ driven.ClientFactory = (*MockClientFactory)(nil)

// MockClientFactory hands out one shared mock client and records the keys it was asked for
type MockClientFactory struct {
	mu     sync.Mutex
	Client *MockMailChimpClient
	Keys   []string
	Err    error
}

// NewMockClientFactory creates a factory around a fresh mock client
func NewMockClientFactory() *MockClientFactory {
	return &MockClientFactory{Client: NewMockMailChimpClient()}
}

func (f *MockClientFactory) New(apiKey string) (driven.MailChimpClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Keys = append(f.Keys, apiKey)
	return f.Client, nil
}

// Calls returns how many clients were built
func (f *MockClientFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Keys)
}
