package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// Rescheduler applies saved settings to the periodic synchronization task
type Rescheduler interface {
	Reschedule(ctx context.Context, settings *domain.Settings) error
}

// settingsService implements the SettingsService interface
type settingsService struct {
	settingsStore  driven.SettingsStore
	catalog        driven.Catalog
	ledger         driving.Ledger
	services       *runtime.Services
	scheduler      Rescheduler
	listWebhookURL string
	logger         *slog.Logger
}

// SettingsServiceConfig holds dependencies for the settings service.
type SettingsServiceConfig struct {
	Store    driven.SettingsStore
	Catalog  driven.Catalog
	Ledger   driving.Ledger
	Services *runtime.Services

	// Scheduler is optional; nil leaves the schedule untouched
	Scheduler Rescheduler

	// ListWebhookURL is the public URL of the subscription webhook
	ListWebhookURL string

	Logger *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(cfg SettingsServiceConfig) driving.SettingsService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		settingsStore:  cfg.Store,
		catalog:        cfg.Catalog,
		ledger:         cfg.Ledger,
		services:       cfg.Services,
		scheduler:      cfg.Scheduler,
		listWebhookURL: cfg.ListWebhookURL,
		logger:         logger,
	}
}

// Get retrieves the current settings
func (s *settingsService) Get(ctx context.Context) (*domain.Settings, error) {
	return loadSettings(ctx, s.settingsStore)
}

// Update applies the provided fields and saves the settings
func (s *settingsService) Update(ctx context.Context, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
	previous, err := loadSettings(ctx, s.settingsStore)
	if err != nil {
		return nil, err
	}

	settings := *previous
	settings.StoreLists = make(map[int64]string, len(previous.StoreLists))
	for k, v := range previous.StoreLists {
		settings.StoreLists[k] = v
	}

	// Apply updates
	if req.APIKey != nil {
		settings.APIKey = *req.APIKey
	}
	if req.PassEcommerceData != nil {
		settings.PassEcommerceData = *req.PassEcommerceData
	}
	if req.DefaultListID != nil {
		settings.DefaultListID = *req.DefaultListID
	}
	if req.StoreLists != nil {
		settings.StoreLists = req.StoreLists
	}
	if req.BatchOperationNumber != nil {
		settings.BatchOperationNumber = *req.BatchOperationNumber
	}
	if req.StoreIDMask != nil {
		settings.StoreIDMask = *req.StoreIDMask
	}
	if req.CurrencyCode != nil {
		settings.CurrencyCode = *req.CurrencyCode
	}
	if req.AutoSynchronization != nil {
		settings.AutoSynchronization = *req.AutoSynchronization
	}
	if req.SynchronizationPeriodH != nil {
		settings.SynchronizationPeriodH = *req.SynchronizationPeriodH
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if settings.APIKey != previous.APIKey {
		if err := s.services.Configure(settings.APIKey); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}

	settings.UpdatedAt = time.Now()
	if err := s.settingsStore.SaveSettings(ctx, &settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings updated", "default_list_id", settings.DefaultListID, "ecommerce", settings.PassEcommerceData)

	if err := s.recordListChanges(ctx, previous, &settings); err != nil {
		return nil, err
	}
	s.ensureListWebhooks(ctx, &settings)

	if s.scheduler != nil {
		if err := s.scheduler.Reschedule(ctx, &settings); err != nil {
			s.logger.Warn("failed to reschedule synchronization", "error", err)
		}
	}

	return &settings, nil
}

// recordListChanges records a store update for every store whose destination list changed
func (s *settingsService) recordListChanges(ctx context.Context, previous, current *domain.Settings) error {
	stores, err := s.catalog.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	for _, store := range stores {
		list := current.ListFor(store.ID)
		if list == "" || list == previous.ListFor(store.ID) {
			continue
		}
		c := domain.Change{EntityType: domain.EntityTypeStore, EntityID: store.ID, OperationType: domain.OperationUpdate}
		if err := s.ledger.RecordChange(ctx, c); err != nil {
			return fmt.Errorf("record store %d: %w", store.ID, err)
		}
	}
	return nil
}

// ensureListWebhooks registers the subscription webhook on every mapped list.
// Failures only warn: the settings are saved either way.
func (s *settingsService) ensureListWebhooks(ctx context.Context, settings *domain.Settings) {
	if s.listWebhookURL == "" {
		return
	}
	client, err := s.services.Client()
	if err != nil {
		return
	}
	for _, listID := range settings.Lists() {
		err := guardRemote(ctx, s.logger, "ensure list webhook", func(ctx context.Context) error {
			hooks, err := client.ListWebhooks(ctx, listID)
			if err != nil {
				return err
			}
			for i := range hooks {
				if hooks[i].MatchesURL(s.listWebhookURL) {
					return nil
				}
			}
			_, err = client.CreateListWebhook(ctx, listID, s.listWebhookURL)
			return err
		})
		if err != nil {
			s.logger.Warn("list webhook not registered", "list_id", listID, "error", err)
		}
	}
}

// AccountInfo returns the remote account summary
func (s *settingsService) AccountInfo(ctx context.Context) (*domain.AccountInfo, error) {
	client, err := s.services.Client()
	if err != nil {
		return nil, err
	}
	var info *domain.AccountInfo
	err = guardRemote(ctx, s.logger, "account info", func(ctx context.Context) error {
		var err error
		info, err = client.AccountInfo(ctx)
		return err
	})
	return info, err
}

// AvailableLists returns the audience lists of the remote account
func (s *settingsService) AvailableLists(ctx context.Context) ([]domain.List, error) {
	client, err := s.services.Client()
	if err != nil {
		return nil, err
	}
	var lists []domain.List
	err = guardRemote(ctx, s.logger, "available lists", func(ctx context.Context) error {
		var err error
		lists, err = client.Lists(ctx)
		return err
	})
	return lists, err
}
