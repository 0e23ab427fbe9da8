package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

const testToken = "admin-token"

// Mock services for testing

type mockAuthService struct {
	issueTokenFn func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token != testToken {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.AuthContext{Subject: "admin", Role: domain.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type mockSettingsService struct {
	settings *domain.Settings
	updateFn func(ctx context.Context, req driving.UpdateSettingsRequest) (*domain.Settings, error)
	lists    []domain.List
	err      error
}

func (m *mockSettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *mockSettingsService) Update(ctx context.Context, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) AccountInfo(ctx context.Context) (*domain.AccountInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AccountInfo{AccountID: "acc-1", AccountName: "Shop"}, nil
}

func (m *mockSettingsService) AvailableLists(ctx context.Context) ([]domain.List, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lists, nil
}

type mockLedger struct {
	records    []*domain.SynchronizationRecord
	drained    [2]string
	clearedAll bool
	cleared    domain.EntityType
}

func (m *mockLedger) RecordChange(ctx context.Context, change domain.Change) error { return nil }

func (m *mockLedger) DrainPending(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error) {
	m.drained = [2]string{string(entityType), string(op)}
	var result []*domain.SynchronizationRecord
	for _, r := range m.records {
		if r.EntityType == entityType && r.OperationType == op {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockLedger) ClearByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error) {
	m.cleared = entityType
	return 2, nil
}

func (m *mockLedger) ClearAll(ctx context.Context) (int64, error) {
	m.clearedAll = true
	return int64(len(m.records)), nil
}

func (m *mockLedger) Pending(ctx context.Context) ([]*domain.SynchronizationRecord, error) {
	return m.records, nil
}

type mockObserver struct {
	events []*domain.ChangeEvent
	err    error
}

func (m *mockObserver) Observe(ctx context.Context, event *domain.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	if err := event.Validate(); err != nil {
		return err
	}
	m.events = append(m.events, event)
	return nil
}

type mockSynchronizer struct {
	startErr    error
	operations  int
	complete    bool
	completeErr error
}

func (m *mockSynchronizer) Synchronize(ctx context.Context, manual bool) (int, error) {
	return m.operations, m.startErr
}

func (m *mockSynchronizer) StartManual(ctx context.Context) (int, error) {
	return m.operations, m.startErr
}

func (m *mockSynchronizer) IsComplete(ctx context.Context) (bool, error) {
	return m.complete, m.completeErr
}

type mockCompletion struct {
	completion    *domain.BatchCompletion
	err           error
	notifications []*domain.BatchNotification
}

func (m *mockCompletion) OnBatchNotification(ctx context.Context, n *domain.BatchNotification) (*domain.BatchCompletion, error) {
	m.notifications = append(m.notifications, n)
	return m.completion, m.err
}

type mockSubscriptions struct {
	err           error
	notifications []*domain.SubscriptionNotification
}

func (m *mockSubscriptions) HandleSubscriptionNotification(ctx context.Context, n *domain.SubscriptionNotification) error {
	m.notifications = append(m.notifications, n)
	return m.err
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

type testDeps struct {
	auth          *mockAuthService
	settings      *mockSettingsService
	ledger        *mockLedger
	observer      *mockObserver
	synchronizer  *mockSynchronizer
	completion    *mockCompletion
	subscriptions *mockSubscriptions
	db            *mockPinger
}

func newTestServer() (*Server, *testDeps) {
	deps := &testDeps{
		auth:          &mockAuthService{},
		settings:      &mockSettingsService{settings: domain.DefaultSettings()},
		ledger:        &mockLedger{},
		observer:      &mockObserver{},
		synchronizer:  &mockSynchronizer{},
		completion:    &mockCompletion{},
		subscriptions: &mockSubscriptions{},
		db:            &mockPinger{},
	}
	server := NewServer(Config{
		Version: "test",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Services{
		Auth:          deps.auth,
		Settings:      deps.settings,
		Ledger:        deps.ledger,
		Observer:      deps.observer,
		Synchronizer:  deps.synchronizer,
		Completion:    deps.completion,
		Subscriptions: deps.subscriptions,
		DB:            deps.db,
	})
	return server, deps
}

func serve(server *Server, method, target string, body io.Reader, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func postForm(server *Server, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

// Health endpoints

func TestHealthHandler(t *testing.T) {
	server, _ := newTestServer()

	rr := serve(server, http.MethodGet, "/health", nil, false)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	server, deps := newTestServer()

	rr := serve(server, http.MethodGet, "/ready", nil, false)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	deps.db.err = errors.New("connection refused")
	rr = serve(server, http.MethodGet, "/ready", nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer()

	rr := serve(server, http.MethodGet, "/metrics", nil, false)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Error("expected go collector output")
	}
}

// Auth endpoints

func TestIssueTokenHandler(t *testing.T) {
	server, deps := newTestServer()
	deps.auth.issueTokenFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
		if req.Username == "admin" && req.Password == "secret" {
			return &domain.LoginResponse{Token: "jwt"}, nil
		}
		return nil, domain.ErrInvalidCredentials
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid credentials", `{"username":"admin","password":"secret"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"invalid body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(server, http.MethodPost, "/api/v1/auth/token", strings.NewReader(tt.body), false)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	server, _ := newTestServer()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/settings"},
		{http.MethodPut, "/api/v1/settings"},
		{http.MethodGet, "/api/v1/records"},
		{http.MethodPost, "/api/v1/changes"},
		{http.MethodPost, "/api/v1/synchronization"},
		{http.MethodGet, "/api/v1/synchronization/status"},
	}
	for _, route := range routes {
		rr := serve(server, route.method, route.path, nil, false)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401, got %d", route.method, route.path, rr.Code)
		}
	}
}

// Settings endpoints

func TestGetSettingsHandler_HidesAPIKey(t *testing.T) {
	server, deps := newTestServer()
	deps.settings.settings.APIKey = "secret-us6"
	deps.settings.settings.DefaultListID = "L1"

	rr := serve(server, http.MethodGet, "/api/v1/settings", nil, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret-us6") {
		t.Error("response must not contain the api key")
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["api_key_configured"] != true {
		t.Errorf("expected api_key_configured true, got %v", resp["api_key_configured"])
	}
	if resp["default_list_id"] != "L1" {
		t.Errorf("expected default list L1, got %v", resp["default_list_id"])
	}
}

func TestUpdateSettingsHandler(t *testing.T) {
	server, deps := newTestServer()
	var got driving.UpdateSettingsRequest
	deps.settings.updateFn = func(ctx context.Context, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
		got = req
		if req.BatchOperationNumber != nil && *req.BatchOperationNumber > domain.MaxBatchOperationNumber {
			return nil, domain.ErrInvalidInput
		}
		return domain.DefaultSettings(), nil
	}

	rr := serve(server, http.MethodPut, "/api/v1/settings",
		strings.NewReader(`{"default_list_id":"L2","store_lists":{"3":"L3"}}`), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.DefaultListID == nil || *got.DefaultListID != "L2" {
		t.Errorf("expected default list L2 to be passed, got %v", got.DefaultListID)
	}
	if got.StoreLists[3] != "L3" {
		t.Errorf("expected store 3 mapped to L3, got %v", got.StoreLists)
	}

	rr = serve(server, http.MethodPut, "/api/v1/settings",
		strings.NewReader(`{"batch_operation_number":5000}`), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAvailableListsHandler(t *testing.T) {
	server, deps := newTestServer()
	deps.settings.lists = []domain.List{{ID: "L1", Name: "Newsletter"}}

	rr := serve(server, http.MethodGet, "/api/v1/lists", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	deps.settings.err = domain.ErrNotConfigured
	rr = serve(server, http.MethodGet, "/api/v1/lists", nil, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without api key, got %d", rr.Code)
	}

	deps.settings.err = domain.ErrSynchronizationFailed
	rr = serve(server, http.MethodGet, "/api/v1/account", nil, true)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502 on remote failure, got %d", rr.Code)
	}
}

// Ledger endpoints

func TestListRecordsHandler(t *testing.T) {
	server, deps := newTestServer()
	deps.ledger.records = []*domain.SynchronizationRecord{
		{ID: 1, EntityType: domain.EntityTypeProduct, EntityID: 5, OperationType: domain.OperationCreate},
		{ID: 2, EntityType: domain.EntityTypeOrder, EntityID: 7, OperationType: domain.OperationDelete},
	}

	rr := serve(server, http.MethodGet, "/api/v1/records", nil, true)
	var all []domain.SynchronizationRecord
	if err := json.NewDecoder(rr.Body).Decode(&all); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 records, got %d", len(all))
	}

	rr = serve(server, http.MethodGet, "/api/v1/records?entity_type=order", nil, true)
	var orders []domain.SynchronizationRecord
	if err := json.NewDecoder(rr.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 1 || orders[0].EntityID != 7 {
		t.Errorf("expected only order 7, got %+v", orders)
	}

	rr = serve(server, http.MethodGet, "/api/v1/records?entity_type=product&operation=create", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if deps.ledger.drained != [2]string{"product", "create"} {
		t.Errorf("expected drain of product/create, got %v", deps.ledger.drained)
	}

	rr = serve(server, http.MethodGet, "/api/v1/records?entity_type=widget", nil, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown entity type, got %d", rr.Code)
	}
}

func TestClearRecordsHandler(t *testing.T) {
	server, deps := newTestServer()

	rr := serve(server, http.MethodDelete, "/api/v1/records?entity_type=store", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if deps.ledger.cleared != domain.EntityTypeStore || deps.ledger.clearedAll {
		t.Errorf("expected only store records cleared")
	}

	rr = serve(server, http.MethodDelete, "/api/v1/records", nil, true)
	if rr.Code != http.StatusOK || !deps.ledger.clearedAll {
		t.Errorf("expected all records cleared, status %d", rr.Code)
	}
}

func TestRecordChangesHandler(t *testing.T) {
	server, deps := newTestServer()

	rr := serve(server, http.MethodPost, "/api/v1/changes",
		strings.NewReader(`{"entity":"product","action":"inserted","id":4}`), true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/v1/changes", strings.NewReader(`[
		{"entity":"order","action":"updated","id":9},
		{"entity":"subscription","action":"unsubscribed","email":"jane@example.com"}
	]`), true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	if len(deps.observer.events) != 3 {
		t.Errorf("expected 3 observed events, got %d", len(deps.observer.events))
	}

	rr = serve(server, http.MethodPost, "/api/v1/changes",
		strings.NewReader(`{"entity":"widget","action":"inserted","id":1}`), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid event, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/v1/changes", bytes.NewReader(nil), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty body, got %d", rr.Code)
	}

	deps.observer.err = errors.New("database down")
	rr = serve(server, http.MethodPost, "/api/v1/changes",
		strings.NewReader(`{"entity":"product","action":"inserted","id":4}`), true)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 on storage failure, got %d", rr.Code)
	}
}

// Synchronization endpoints

func TestTriggerSynchronizationHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"started", nil, http.StatusAccepted},
		{"not configured", domain.ErrNotConfigured, http.StatusBadRequest},
		{"did not start", domain.ErrSynchronizationFailed, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, deps := newTestServer()
			deps.synchronizer.startErr = tt.err
			deps.synchronizer.operations = 12

			rr := serve(server, http.MethodPost, "/api/v1/synchronization", nil, true)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.err == domain.ErrNotConfigured && !strings.Contains(decodeError(t, rr), "not configured") {
				t.Error("expected the configuration error to be shown")
			}
		})
	}
}

func TestSynchronizationStatusHandler(t *testing.T) {
	server, deps := newTestServer()

	rr := serve(server, http.MethodGet, "/api/v1/synchronization/status", nil, true)
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 while pending, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Error("expected empty body while pending")
	}

	deps.synchronizer.complete = true
	rr = serve(server, http.MethodGet, "/api/v1/synchronization/status", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var status CompletionStatus
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !status.Complete {
		t.Error("expected complete true")
	}
}

func TestRecoveryMiddleware_ConvertsPanic(t *testing.T) {
	server, _ := newTestServer()
	server.synchronizer = panickingSynchronizer{&mockSynchronizer{}}

	rr := serve(server, http.MethodPost, "/api/v1/synchronization", nil, true)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

type panickingSynchronizer struct{ *mockSynchronizer }

func (panickingSynchronizer) StartManual(ctx context.Context) (int, error) {
	panic("boom")
}
