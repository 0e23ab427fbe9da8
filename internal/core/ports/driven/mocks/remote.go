package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var (
	_ driven.MailChimpClient = (*MockMailChimpClient)(nil)
	_ driven.ClientProvider  = (*MockClientProvider)(nil)
)

// MockMailChimpClient records every call and serves canned remote state
type MockMailChimpClient struct {
	mu sync.Mutex

	// Remote state
	Account        *domain.AccountInfo
	AvailableLists []domain.List
	Batches        map[string]*domain.Batch
	Results        map[string][]domain.OperationResult
	Webhooks       []domain.Webhook
	ListHooks      map[string][]domain.Webhook
	RemoteStores   []string
	RemoteCarts    map[string][]string

	// Recorded calls
	Submitted      [][]domain.Operation
	CreatedStores  []*domain.RemoteStore
	DeletedStores  []string
	GetBatchCalls  int
	ResultsCalls   int
	CreatedHooks   int
	CreatedListHks map[string]int

	// Optional error injection
	SubmitErr        error
	SubmitErrAt      int
	GetBatchErr      error
	WebhookErr       error
	CreateStoreErr   error
	AccountErr       error
	SubmitPanicValue any
	nextBatch        int
}

// NewMockMailChimpClient creates a client with an empty remote account
func NewMockMailChimpClient() *MockMailChimpClient {
	return &MockMailChimpClient{
		Batches:        make(map[string]*domain.Batch),
		Results:        make(map[string][]domain.OperationResult),
		ListHooks:      make(map[string][]domain.Webhook),
		RemoteCarts:    make(map[string][]string),
		CreatedListHks: make(map[string]int),
		SubmitErrAt:    -1,
	}
}

func (m *MockMailChimpClient) AccountInfo(ctx context.Context) (*domain.AccountInfo, error) {
	if m.AccountErr != nil {
		return nil, m.AccountErr
	}
	if m.Account == nil {
		return &domain.AccountInfo{AccountID: "acc", AccountName: "Test"}, nil
	}
	return m.Account, nil
}

func (m *MockMailChimpClient) Lists(ctx context.Context) ([]domain.List, error) {
	if m.AccountErr != nil {
		return nil, m.AccountErr
	}
	return m.AvailableLists, nil
}

func (m *MockMailChimpClient) SubmitBatch(ctx context.Context, operations []domain.Operation) (*domain.Batch, error) {
	if m.SubmitPanicValue != nil {
		panic(m.SubmitPanicValue)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil && (m.SubmitErrAt < 0 || m.SubmitErrAt == len(m.Submitted)) {
		return nil, m.SubmitErr
	}
	m.nextBatch++
	ops := make([]domain.Operation, len(operations))
	copy(ops, operations)
	m.Submitted = append(m.Submitted, ops)
	batch := &domain.Batch{
		ID:              fmt.Sprintf("batch-%d", m.nextBatch),
		Status:          domain.BatchStatusPending,
		TotalOperations: len(operations),
	}
	m.Batches[batch.ID] = batch
	return batch, nil
}

func (m *MockMailChimpClient) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetBatchCalls++
	if m.GetBatchErr != nil {
		return nil, m.GetBatchErr
	}
	b, ok := m.Batches[batchID]
	if !ok {
		return nil, &domain.RemoteError{Status: 404, Title: "Resource Not Found"}
	}
	return b, nil
}

func (m *MockMailChimpClient) BatchResults(ctx context.Context, url string) ([]domain.OperationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResultsCalls++
	return m.Results[url], nil
}

func (m *MockMailChimpClient) BatchWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	if m.WebhookErr != nil {
		return nil, m.WebhookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Webhook(nil), m.Webhooks...), nil
}

func (m *MockMailChimpClient) CreateBatchWebhook(ctx context.Context, url string) (*domain.Webhook, error) {
	if m.WebhookErr != nil {
		return nil, m.WebhookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedHooks++
	hook := domain.Webhook{ID: fmt.Sprintf("hook-%d", len(m.Webhooks)+1), URL: url}
	m.Webhooks = append(m.Webhooks, hook)
	return &hook, nil
}

func (m *MockMailChimpClient) DeleteBatchWebhook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, hook := range m.Webhooks {
		if hook.ID == id {
			m.Webhooks = append(m.Webhooks[:i], m.Webhooks[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Status: 404, Title: "Resource Not Found"}
}

func (m *MockMailChimpClient) ListWebhooks(ctx context.Context, listID string) ([]domain.Webhook, error) {
	if m.WebhookErr != nil {
		return nil, m.WebhookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Webhook(nil), m.ListHooks[listID]...), nil
}

func (m *MockMailChimpClient) CreateListWebhook(ctx context.Context, listID, url string) (*domain.Webhook, error) {
	if m.WebhookErr != nil {
		return nil, m.WebhookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedListHks[listID]++
	hook := domain.Webhook{ID: fmt.Sprintf("%s-hook-%d", listID, len(m.ListHooks[listID])+1), URL: url, ListID: listID}
	m.ListHooks[listID] = append(m.ListHooks[listID], hook)
	return &hook, nil
}

func (m *MockMailChimpClient) DeleteListWebhook(ctx context.Context, listID, webhookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hooks := m.ListHooks[listID]
	for i, hook := range hooks {
		if hook.ID == webhookID {
			m.ListHooks[listID] = append(hooks[:i], hooks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockMailChimpClient) StoreIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.RemoteStores...), nil
}

func (m *MockMailChimpClient) CreateStore(ctx context.Context, store *domain.RemoteStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateStoreErr != nil {
		return m.CreateStoreErr
	}
	m.CreatedStores = append(m.CreatedStores, store)
	m.RemoteStores = append(m.RemoteStores, store.ID)
	return nil
}

func (m *MockMailChimpClient) DeleteStore(ctx context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedStores = append(m.DeletedStores, storeID)
	for i, id := range m.RemoteStores {
		if id == storeID {
			m.RemoteStores = append(m.RemoteStores[:i], m.RemoteStores[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockMailChimpClient) CartIDs(ctx context.Context, storeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.RemoteCarts[storeID]...), nil
}

// Helper methods for testing

// FinishBatch marks a submitted batch finished with a results archive
func (m *MockMailChimpClient) FinishBatch(id string, results ...domain.OperationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Batches[id]
	if !ok {
		b = &domain.Batch{ID: id, TotalOperations: len(results)}
		m.Batches[id] = b
	}
	b.Status = domain.BatchStatusFinished
	b.FinishedOperations = b.TotalOperations
	b.ResponseBodyURL = "https://results.example.com/" + id + ".tar.gz"
	for _, r := range results {
		if r.Failed() {
			b.ErroredOperations++
		}
	}
	m.Results[b.ResponseBodyURL] = results
}

// SubmittedOperations flattens every submitted batch
func (m *MockMailChimpClient) SubmittedOperations() []domain.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ops []domain.Operation
	for _, batch := range m.Submitted {
		ops = append(ops, batch...)
	}
	return ops
}

// SubmittedIDs returns the operation ids of every submitted operation
func (m *MockMailChimpClient) SubmittedIDs() []string {
	var ids []string
	for _, op := range m.SubmittedOperations() {
		ids = append(ids, op.ID)
	}
	return ids
}

// HasOperation reports whether an operation id with the given prefix was submitted
func (m *MockMailChimpClient) HasOperation(prefix string) bool {
	for _, id := range m.SubmittedIDs() {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// MockClientProvider hands out a fixed client
type MockClientProvider struct {
	ClientValue driven.MailChimpClient
}

// NewMockClientProvider creates a provider for client, nil means not configured
func NewMockClientProvider(client driven.MailChimpClient) *MockClientProvider {
	return &MockClientProvider{ClientValue: client}
}

func (p *MockClientProvider) Client() (driven.MailChimpClient, error) {
	if p.ClientValue == nil {
		return nil, domain.ErrNotConfigured
	}
	return p.ClientValue, nil
}
