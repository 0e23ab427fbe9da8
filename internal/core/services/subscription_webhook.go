package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SubscriptionWebhookHandler = (*SubscriptionWebhookService)(nil)

// SubscriptionWebhookService applies list subscription changes made on the
// remote side to the local subscriptions of every store mapped to the list.
type SubscriptionWebhookService struct {
	catalog  driven.Catalog
	writer   driven.SubscriptionWriter
	settings driven.SettingsStore
	logger   *slog.Logger
}

// SubscriptionWebhookConfig holds dependencies for SubscriptionWebhookService.
type SubscriptionWebhookConfig struct {
	Catalog  driven.Catalog
	Writer   driven.SubscriptionWriter
	Settings driven.SettingsStore
	Logger   *slog.Logger
}

// NewSubscriptionWebhookService creates a new subscription webhook handler.
func NewSubscriptionWebhookService(cfg SubscriptionWebhookConfig) *SubscriptionWebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionWebhookService{
		catalog:  cfg.Catalog,
		writer:   cfg.Writer,
		settings: cfg.Settings,
		logger:   logger,
	}
}

// HandleSubscriptionNotification subscribes or unsubscribes the address in
// the stores mapped to the notification's list. Other events are ignored.
func (s *SubscriptionWebhookService) HandleSubscriptionNotification(ctx context.Context, n *domain.SubscriptionNotification) error {
	if n.Event != domain.SubscriptionEventSubscribe && !n.Event.Deactivates() {
		s.logger.Debug("ignoring list event", "event", n.Event, "list_id", n.ListID)
		return nil
	}

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return err
	}
	stores, err := s.catalog.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}

	storeIDs := settings.StoresForList(n.ListID, stores)
	if len(storeIDs) == 0 {
		s.logger.Warn("no store is mapped to list", "list_id", n.ListID)
		return nil
	}

	for _, storeID := range storeIDs {
		if err := s.apply(ctx, n, storeID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubscriptionWebhookService) apply(ctx context.Context, n *domain.SubscriptionNotification, storeID int64) error {
	active := n.Event == domain.SubscriptionEventSubscribe

	sub, err := s.catalog.FindSubscription(ctx, n.Email, storeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if !active {
			return nil
		}
		sub = &domain.Subscription{
			GUID:      uuid.New().String(),
			Email:     n.Email,
			StoreID:   storeID,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.writer.CreateSubscription(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		s.logger.Info("subscription created from list webhook", "store_id", storeID, "subscription_id", sub.ID)
		return nil
	case err != nil:
		return fmt.Errorf("find subscription: %w", err)
	}

	if sub.Active == active {
		return nil
	}
	if err := s.writer.SetActive(ctx, sub.ID, active); err != nil {
		return fmt.Errorf("update subscription %d: %w", sub.ID, err)
	}
	s.logger.Info("subscription updated from list webhook",
		"store_id", storeID, "subscription_id", sub.ID, "active", active)
	return nil
}
