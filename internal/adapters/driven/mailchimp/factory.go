package mailchimp

import (
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ClientFactory = (*Factory)(nil)

// Factory builds clients sharing one HTTP client and configuration
type Factory struct {
	cfg Config
}

// NewFactory creates a client factory
func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg}
}

// New returns a client for apiKey
func (f *Factory) New(apiKey string) (driven.MailChimpClient, error) {
	client, err := NewClient(apiKey, f.cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
