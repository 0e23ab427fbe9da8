package mailchimp

import "github.com/custodia-labs/chimp-sync/internal/core/domain"

// Wire payloads of the endpoints the client uses. Only the fields read by
// the service are decoded.

type batchRequest struct {
	Operations []domain.Operation `json:"operations"`
}

type webhooksResponse struct {
	Webhooks   []domain.Webhook `json:"webhooks"`
	TotalItems int              `json:"total_items"`
}

type listsResponse struct {
	Lists      []domain.List `json:"lists"`
	TotalItems int           `json:"total_items"`
}

type idItem struct {
	ID string `json:"id"`
}

type storesResponse struct {
	Stores     []idItem `json:"stores"`
	TotalItems int      `json:"total_items"`
}

type cartsResponse struct {
	Carts      []idItem `json:"carts"`
	TotalItems int      `json:"total_items"`
}

type createWebhookRequest struct {
	URL string `json:"url"`
}

// listWebhookEvents selects the list events forwarded to the subscription webhook
type listWebhookEvents struct {
	Subscribe   bool `json:"subscribe"`
	Unsubscribe bool `json:"unsubscribe"`
	Cleaned     bool `json:"cleaned"`
}

type listWebhookSources struct {
	User  bool `json:"user"`
	Admin bool `json:"admin"`
	API   bool `json:"api"`
}

type createListWebhookRequest struct {
	URL     string             `json:"url"`
	Events  listWebhookEvents  `json:"events"`
	Sources listWebhookSources `json:"sources"`
}
