package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// MailChimpClient is the remote transport.
// Implementations return *domain.RemoteError for API problems and wrap
// domain.ErrRemoteUnavailable for transport failures.
type MailChimpClient interface {
	// Account
	AccountInfo(ctx context.Context) (*domain.AccountInfo, error)
	Lists(ctx context.Context) ([]domain.List, error)

	// Batches
	SubmitBatch(ctx context.Context, operations []domain.Operation) (*domain.Batch, error)
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)

	// BatchResults downloads and parses the results archive of a finished batch
	BatchResults(ctx context.Context, url string) ([]domain.OperationResult, error)

	// Batch completion webhooks
	BatchWebhooks(ctx context.Context) ([]domain.Webhook, error)
	CreateBatchWebhook(ctx context.Context, url string) (*domain.Webhook, error)
	DeleteBatchWebhook(ctx context.Context, id string) error

	// List webhooks
	ListWebhooks(ctx context.Context, listID string) ([]domain.Webhook, error)
	CreateListWebhook(ctx context.Context, listID, url string) (*domain.Webhook, error)
	DeleteListWebhook(ctx context.Context, listID, webhookID string) error

	// E-commerce stores and carts
	StoreIDs(ctx context.Context) ([]string, error)
	CreateStore(ctx context.Context, store *domain.RemoteStore) error
	DeleteStore(ctx context.Context, storeID string) error
	CartIDs(ctx context.Context, storeID string) ([]string, error)
}

// ClientFactory builds a client for an API key
type ClientFactory interface {
	New(apiKey string) (MailChimpClient, error)
}

// ClientProvider returns the client for the currently configured API key.
// Returns domain.ErrNotConfigured when no key is set.
type ClientProvider interface {
	Client() (MailChimpClient, error)
}
