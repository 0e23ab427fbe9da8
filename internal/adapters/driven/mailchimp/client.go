// Package mailchimp implements the remote transport against the MailChimp
// Marketing API v3.
package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// Verify interface compliance
var _ driven.MailChimpClient = (*Client)(nil)

const (
	// DefaultTimeout bounds every request including the results download
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries applies to 5xx and 429 responses
	DefaultMaxRetries = 2

	// pageSize is the largest page the API serves
	pageSize = 1000

	basicAuthUser = "anystring"
)

// Client calls the MailChimp Marketing API with one API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Config holds client options shared by every key
type Config struct {
	// BaseURL overrides the data center URL (MAILCHIMP_API_URL)
	BaseURL string

	HTTPClient *http.Client

	// MaxRetries is the number of retries after the first attempt; negative disables retries
	MaxRetries int

	// Backoff is the base delay between retries, multiplied by the attempt number
	Backoff time.Duration

	Logger *slog.Logger
}

// NewClient creates a client for apiKey.
// The data center is taken from the key suffix unless cfg.BaseURL is set.
func NewClient(apiKey string, cfg Config) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required", domain.ErrInvalidInput)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		dc, err := DataCenter(apiKey)
		if err != nil {
			return nil, err
		}
		baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dc)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}, nil
}

// DataCenter extracts the data center from an API key ("...-us6" gives "us6")
func DataCenter(apiKey string) (string, error) {
	i := strings.LastIndex(apiKey, "-")
	if i <= 0 || i == len(apiKey)-1 {
		return "", fmt.Errorf("%w: api key has no data center suffix", domain.ErrInvalidInput)
	}
	return apiKey[i+1:], nil
}

// AccountInfo returns the account summary
func (c *Client) AccountInfo(ctx context.Context) (*domain.AccountInfo, error) {
	var info domain.AccountInfo
	if err := c.do(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Lists returns every audience list
func (c *Client) Lists(ctx context.Context) ([]domain.List, error) {
	var lists []domain.List
	err := paginate(ctx, c, "/lists", func(page *listsResponse) (int, int) {
		lists = append(lists, page.Lists...)
		return len(page.Lists), page.TotalItems
	})
	return lists, err
}

// SubmitBatch posts operations as one batch
func (c *Client) SubmitBatch(ctx context.Context, operations []domain.Operation) (*domain.Batch, error) {
	var batch domain.Batch
	if err := c.do(ctx, http.MethodPost, "/batches", batchRequest{Operations: operations}, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetBatch returns the current state of a batch
func (c *Client) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	var batch domain.Batch
	if err := c.do(ctx, http.MethodGet, "/batches/"+url.PathEscape(batchID), nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// BatchWebhooks returns every batch completion webhook
func (c *Client) BatchWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	var hooks []domain.Webhook
	err := paginate(ctx, c, "/batch-webhooks", func(page *webhooksResponse) (int, int) {
		hooks = append(hooks, page.Webhooks...)
		return len(page.Webhooks), page.TotalItems
	})
	return hooks, err
}

// CreateBatchWebhook registers a batch completion callback
func (c *Client) CreateBatchWebhook(ctx context.Context, callbackURL string) (*domain.Webhook, error) {
	var hook domain.Webhook
	if err := c.do(ctx, http.MethodPost, "/batch-webhooks", createWebhookRequest{URL: callbackURL}, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteBatchWebhook removes a batch completion callback
func (c *Client) DeleteBatchWebhook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/batch-webhooks/"+url.PathEscape(id), nil, nil)
}

// ListWebhooks returns the webhooks of one list
func (c *Client) ListWebhooks(ctx context.Context, listID string) ([]domain.Webhook, error) {
	var resp webhooksResponse
	if err := c.do(ctx, http.MethodGet, "/lists/"+url.PathEscape(listID)+"/webhooks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Webhooks, nil
}

// CreateListWebhook registers the subscription callback for subscribe, unsubscribe and cleaned events
func (c *Client) CreateListWebhook(ctx context.Context, listID, callbackURL string) (*domain.Webhook, error) {
	req := createListWebhookRequest{
		URL:     callbackURL,
		Events:  listWebhookEvents{Subscribe: true, Unsubscribe: true, Cleaned: true},
		Sources: listWebhookSources{User: true, Admin: true, API: false},
	}
	var hook domain.Webhook
	if err := c.do(ctx, http.MethodPost, "/lists/"+url.PathEscape(listID)+"/webhooks", req, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteListWebhook removes a list webhook
func (c *Client) DeleteListWebhook(ctx context.Context, listID, webhookID string) error {
	path := "/lists/" + url.PathEscape(listID) + "/webhooks/" + url.PathEscape(webhookID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// StoreIDs returns the ids of every e-commerce store
func (c *Client) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := paginate(ctx, c, "/ecommerce/stores", func(page *storesResponse) (int, int) {
		for _, s := range page.Stores {
			ids = append(ids, s.ID)
		}
		return len(page.Stores), page.TotalItems
	})
	return ids, err
}

// CreateStore creates an e-commerce store
func (c *Client) CreateStore(ctx context.Context, store *domain.RemoteStore) error {
	return c.do(ctx, http.MethodPost, "/ecommerce/stores", store, nil)
}

// DeleteStore deletes an e-commerce store with everything it holds.
// A store that is already gone is not an error.
func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	err := c.do(ctx, http.MethodDelete, domain.StorePath(url.PathEscape(storeID)), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// CartIDs returns the ids of the carts of one store
func (c *Client) CartIDs(ctx context.Context, storeID string) ([]string, error) {
	var ids []string
	err := paginate(ctx, c, domain.CartPath(url.PathEscape(storeID), ""), func(page *cartsResponse) (int, int) {
		for _, cart := range page.Carts {
			ids = append(ids, cart.ID)
		}
		return len(page.Carts), page.TotalItems
	})
	return ids, err
}

// paginate walks count/offset pages until total_items is reached.
// read appends the page items and returns the page length and total.
func paginate[P any](ctx context.Context, c *Client, path string, read func(*P) (int, int)) error {
	offset := 0
	for {
		query := url.Values{
			"count":  {strconv.Itoa(pageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		var page P
		if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, &page); err != nil {
			return err
		}
		n, total := read(&page)
		offset += n
		if n == 0 || offset >= total {
			return nil
		}
	}
}

// do sends one JSON request, retrying 429 and 5xx responses, and decodes
// the response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, span := tracing.Tracer().Start(ctx, "mailchimp.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("mailchimp.path", stripQuery(path)),
	)

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(basicAuthUser, c.apiKey)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			metrics.RemoteRequests.WithLabelValues(method, "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport failure")
			return fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, stripQuery(path), err)
		}
		metrics.RemoteRequests.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()

		if !retryable(method, resp.StatusCode) || attempt >= c.maxRetries {
			break
		}
		resp.Body.Close()
		tracing.Logger(ctx, c.logger).Warn("retrying remote request",
			"method", method, "path", stripQuery(path), "status", resp.StatusCode, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		remote := decodeRemoteError(resp)
		span.SetStatus(codes.Error, remote.Title)
		return remote
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, stripQuery(path), err)
	}
	return nil
}

// decodeRemoteError reads the problem document of a failed response
func decodeRemoteError(resp *http.Response) *domain.RemoteError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var remote domain.RemoteError
	if err := json.Unmarshal(raw, &remote); err != nil || (remote.Title == "" && remote.Detail == "") {
		remote = domain.RemoteError{
			Title:  http.StatusText(resp.StatusCode),
			Detail: strings.TrimSpace(string(raw)),
		}
	}
	if remote.Status == 0 {
		remote.Status = resp.StatusCode
	}
	return &remote
}

func isNotFound(err error) bool {
	var remote *domain.RemoteError
	return errors.As(err, &remote) && remote.Status == http.StatusNotFound
}

// retryable reports whether a response may be retried.
// A 5xx after a POST may hide an accepted request, so POST only retries 429.
func retryable(method string, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && method != http.MethodPost
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
