package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// Verify interface compliance
var _ driving.Synchronizer = (*SynchronizationService)(nil)

// SynchronizationService runs synchronization passes: it maps the pending
// ledger records, dispatches them in batches and clears the ledger.
type SynchronizationService struct {
	ledger          driving.Ledger
	mapper          *OperationMapper
	dispatcher      *BatchDispatcher
	clients         driven.ClientProvider
	settings        driven.SettingsStore
	tracker         driven.BatchTracker
	catalog         driven.Catalog
	batchWebhookURL string
	logger          *slog.Logger
}

// SynchronizerConfig holds dependencies for SynchronizationService.
type SynchronizerConfig struct {
	Ledger     driving.Ledger
	Mapper     *OperationMapper
	Dispatcher *BatchDispatcher
	Clients    driven.ClientProvider
	Settings   driven.SettingsStore
	Tracker    driven.BatchTracker
	Catalog    driven.Catalog

	// BatchWebhookURL is the public URL of the batch completion webhook
	BatchWebhookURL string

	Logger *slog.Logger
}

// NewSynchronizationService creates a new synchronizer.
func NewSynchronizationService(cfg SynchronizerConfig) *SynchronizationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = NewBatchDispatcher(logger)
	}
	mapper := cfg.Mapper
	if mapper == nil {
		mapper = NewOperationMapper(MapperConfig{Ledger: cfg.Ledger, Catalog: cfg.Catalog, Logger: logger})
	}
	return &SynchronizationService{
		ledger:          cfg.Ledger,
		mapper:          mapper,
		dispatcher:      dispatcher,
		clients:         cfg.Clients,
		settings:        cfg.Settings,
		tracker:         cfg.Tracker,
		catalog:         cfg.Catalog,
		batchWebhookURL: cfg.BatchWebhookURL,
		logger:          logger,
	}
}

// StartManual runs a manual pass and tracks its batches for polling.
func (s *SynchronizationService) StartManual(ctx context.Context) (int, error) {
	return s.Synchronize(ctx, true)
}

// Synchronize runs one pass and returns the number of dispatched operations.
// A manual pass first rebuilds the ledger from the full host catalog.
func (s *SynchronizationService) Synchronize(ctx context.Context, manual bool) (int, error) {
	trigger := "periodic"
	if manual {
		trigger = "manual"
	}
	started := time.Now()

	ctx, span := tracing.Tracer().Start(ctx, "synchronizer.pass")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", trigger))
	logger := tracing.Logger(ctx, s.logger).With("trigger", trigger)

	count, err := s.run(ctx, logger, manual)
	if err != nil {
		span.RecordError(err)
		metrics.Passes.WithLabelValues(trigger, "failed").Inc()
		logger.Error("synchronization pass failed", "error", err)
		return count, err
	}

	metrics.Passes.WithLabelValues(trigger, "dispatched").Inc()
	metrics.PassDuration.Observe(time.Since(started).Seconds())
	logger.Info("synchronization pass dispatched", "operations", count, "duration", time.Since(started))
	return count, nil
}

func (s *SynchronizationService) run(ctx context.Context, logger *slog.Logger, manual bool) (int, error) {
	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return 0, err
	}
	if !settings.IsConfigured() {
		return 0, domain.ErrNotConfigured
	}
	client, err := s.clients.Client()
	if err != nil {
		return 0, err
	}

	if manual {
		if err := s.prepareBaseline(ctx, logger, settings, client); err != nil {
			return 0, err
		}
	}

	// Without the callback nobody would learn that the batches finished.
	if _, err := s.dispatcher.EnsureBatchWebhook(ctx, client, s.batchWebhookURL); err != nil {
		return 0, err
	}

	ops, err := s.mapper.MapSubscriptions(ctx, settings)
	if err != nil {
		return 0, fmt.Errorf("map subscriptions: %w", err)
	}
	if settings.PassEcommerceData {
		stores, err := s.mapper.PendingStoreCreates(ctx, settings)
		if err != nil {
			return 0, fmt.Errorf("map stores: %w", err)
		}
		if len(stores) > 0 {
			created := s.dispatcher.CreateStores(ctx, client, stores)
			logger.Info("remote stores created", "created", created, "requested", len(stores))
		}
		ecommerce, err := s.mapper.MapEcommerce(ctx, settings, client)
		if err != nil {
			return 0, fmt.Errorf("map e-commerce data: %w", err)
		}
		ops = append(ops, ecommerce...)
	}

	if manual {
		if err := s.tracker.Begin(ctx, len(ops)); err != nil {
			return 0, fmt.Errorf("track pass: %w", err)
		}
	}

	result, err := s.dispatcher.Submit(ctx, client, ops, settings.BatchSize())
	if err != nil {
		if manual {
			if resetErr := s.tracker.Reset(ctx); resetErr != nil {
				logger.Warn("failed to reset pass tracking", "error", resetErr)
			}
		}
		return result.Operations, err
	}

	if err := s.clearDispatched(ctx, settings); err != nil {
		return result.Operations, err
	}
	return result.Operations, nil
}

// clearDispatched drops the records of the pass once every batch was accepted
func (s *SynchronizationService) clearDispatched(ctx context.Context, settings *domain.Settings) error {
	var err error
	if settings.PassEcommerceData {
		_, err = s.ledger.ClearAll(ctx)
	} else {
		_, err = s.ledger.ClearByEntityType(ctx, domain.EntityTypeSubscription)
	}
	if err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

// prepareBaseline replaces the ledger with create records for the whole catalog.
// With e-commerce data on, remote stores matching local stores are deleted
// first so they are recreated from scratch.
func (s *SynchronizationService) prepareBaseline(ctx context.Context, logger *slog.Logger, settings *domain.Settings, client driven.MailChimpClient) error {
	if !settings.PassEcommerceData {
		if _, err := s.ledger.ClearByEntityType(ctx, domain.EntityTypeSubscription); err != nil {
			return fmt.Errorf("clear subscriptions: %w", err)
		}
		return s.seed(ctx, domain.EntityTypeSubscription, s.catalog.ListSubscriptionIDs)
	}

	stores, err := s.catalog.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	var remoteIDs []string
	err = guardRemote(ctx, logger, "list remote stores", func(ctx context.Context) error {
		var err error
		remoteIDs, err = client.StoreIDs(ctx)
		return err
	})
	if err != nil {
		return err
	}
	remote := make(map[string]bool, len(remoteIDs))
	for _, id := range remoteIDs {
		remote[id] = true
	}
	for _, store := range stores {
		remoteID := settings.RemoteStoreID(store.ID)
		if !remote[remoteID] {
			continue
		}
		err := guardRemote(ctx, logger, "delete remote store", func(ctx context.Context) error {
			return client.DeleteStore(ctx, remoteID)
		})
		if err != nil {
			logger.Warn("remote store not deleted", "store_id", remoteID, "error", err)
		}
	}

	if _, err := s.ledger.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}

	storeIDs := func(context.Context) ([]int64, error) {
		ids := make([]int64, 0, len(stores))
		for _, store := range stores {
			ids = append(ids, store.ID)
		}
		return ids, nil
	}
	seeds := []struct {
		entityType domain.EntityType
		list       func(context.Context) ([]int64, error)
	}{
		{domain.EntityTypeSubscription, s.catalog.ListSubscriptionIDs},
		{domain.EntityTypeStore, storeIDs},
		{domain.EntityTypeCustomer, s.catalog.ListRegisteredCustomerIDs},
		{domain.EntityTypeProduct, s.catalog.ListProductIDs},
		{domain.EntityTypeOrder, s.catalog.ListOrderIDs},
	}
	for _, seed := range seeds {
		if err := s.seed(ctx, seed.entityType, seed.list); err != nil {
			return err
		}
	}
	return nil
}

func (s *SynchronizationService) seed(ctx context.Context, entityType domain.EntityType, list func(context.Context) ([]int64, error)) error {
	ids, err := list(ctx)
	if err != nil {
		return fmt.Errorf("list %s ids: %w", entityType, err)
	}
	for _, id := range ids {
		c := domain.Change{EntityType: entityType, EntityID: id, OperationType: domain.OperationCreate}
		if err := s.ledger.RecordChange(ctx, c); err != nil {
			return fmt.Errorf("seed %s %d: %w", entityType, id, err)
		}
	}
	return nil
}

// IsComplete reports whether every batch of the tracked manual pass was handled.
// Once it reports true the tracking state is reset.
func (s *SynchronizationService) IsComplete(ctx context.Context) (bool, error) {
	expected, ok, err := s.tracker.Expected(ctx)
	if err != nil {
		return false, fmt.Errorf("read expected operations: %w", err)
	}
	if !ok {
		return true, nil
	}
	completed, err := s.tracker.CompletedTotal(ctx)
	if err != nil {
		return false, fmt.Errorf("read completed operations: %w", err)
	}
	if completed < expected {
		return false, nil
	}
	if err := s.tracker.Reset(ctx); err != nil {
		return true, fmt.Errorf("reset pass tracking: %w", err)
	}
	return true, nil
}

// loadSettings returns the saved settings or the defaults before the first save
func loadSettings(ctx context.Context, store driven.SettingsStore) (*domain.Settings, error) {
	settings, err := store.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}
