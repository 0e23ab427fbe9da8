package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
)

// Webhook paths registered on the remote system
const (
	BatchWebhookPath        = "/webhooks/mailchimp/batch"
	SubscriptionWebhookPath = "/webhooks/mailchimp/subscription"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	settingsService driving.SettingsService
	ledger          driving.Ledger
	observer        driving.ChangeObserver
	synchronizer    driving.Synchronizer
	completion      driving.CompletionHandler
	subscriptions   driving.SubscriptionWebhookHandler

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Services groups the driving ports served over HTTP
type Services struct {
	Auth          driving.AuthService
	Settings      driving.SettingsService
	Ledger        driving.Ledger
	Observer      driving.ChangeObserver
	Synchronizer  driving.Synchronizer
	Completion    driving.CompletionHandler
	Subscriptions driving.SubscriptionWebhookHandler

	DB    Pinger
	Redis Pinger // can be nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     svc.Auth,
		settingsService: svc.Settings,
		ledger:          svc.Ledger,
		observer:        svc.Observer,
		synchronizer:    svc.Synchronizer,
		completion:      svc.Completion,
		subscriptions:   svc.Subscriptions,
		db:              svc.DB,
		redisClient:     svc.Redis,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the logging and recovery middleware
func (s *Server) Handler() http.Handler {
	logging := NewLoggingMiddleware(s.logger)
	recovery := NewRecoveryMiddleware(s.logger)
	return recovery.Handler(logging.Handler(s.router))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", metrics.Handler())

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)

	// Settings endpoints (admin-only)
	s.router.Handle("GET /api/v1/settings", admin(s.handleGetSettings))
	s.router.Handle("PUT /api/v1/settings", admin(s.handleUpdateSettings))
	s.router.Handle("GET /api/v1/account", admin(s.handleAccountInfo))
	s.router.Handle("GET /api/v1/lists", admin(s.handleAvailableLists))

	// Ledger endpoints (admin-only)
	s.router.Handle("GET /api/v1/records", admin(s.handleListRecords))
	s.router.Handle("DELETE /api/v1/records", admin(s.handleClearRecords))
	s.router.Handle("POST /api/v1/changes", admin(s.handleRecordChanges))

	// Synchronization endpoints (admin-only)
	s.router.Handle("POST /api/v1/synchronization", admin(s.handleTriggerSynchronization))
	s.router.Handle("GET /api/v1/synchronization/status", admin(s.handleSynchronizationStatus))

	// Webhooks (public, the remote system validates the URL with a GET)
	s.router.HandleFunc("GET "+BatchWebhookPath, s.handleWebhookValidation)
	s.router.HandleFunc("POST "+BatchWebhookPath, s.handleBatchWebhook)
	s.router.HandleFunc("GET "+SubscriptionWebhookPath, s.handleWebhookValidation)
	s.router.HandleFunc("POST "+SubscriptionWebhookPath, s.handleSubscriptionWebhook)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
