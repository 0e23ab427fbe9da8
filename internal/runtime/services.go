package runtime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ClientProvider = (*Services)(nil)

// Services holds the remote client built from the current API key.
// The key is edited through the settings API, so the client is swapped at
// runtime. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	factory driven.ClientFactory

	// Dynamic client (nil until an API key is configured)
	apiKey string
	client driven.MailChimpClient
}

// NewServices creates a new Services registry
func NewServices(factory driven.ClientFactory) *Services {
	return &Services{factory: factory}
}

// Client returns the current remote client.
// Returns domain.ErrNotConfigured when no API key is set.
func (s *Services) Client() (driven.MailChimpClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, domain.ErrNotConfigured
	}
	return s.client, nil
}

// IsConfigured returns true once a client is available
func (s *Services) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Configure rebuilds the client for apiKey. An empty key removes the client;
// the same key keeps the current one.
func (s *Services) Configure(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if apiKey == s.apiKey && (apiKey == "" || s.client != nil) {
		return nil
	}
	if apiKey == "" {
		s.apiKey = ""
		s.client = nil
		return nil
	}

	client, err := s.factory.New(apiKey)
	if err != nil {
		return fmt.Errorf("build remote client: %w", err)
	}
	s.apiKey = apiKey
	s.client = client
	return nil
}
