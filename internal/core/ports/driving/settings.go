package driving

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// UpdateSettingsRequest carries partial settings updates.
// Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	APIKey                 *string          `json:"api_key,omitempty"`
	PassEcommerceData      *bool            `json:"pass_ecommerce_data,omitempty"`
	DefaultListID          *string          `json:"default_list_id,omitempty"`
	StoreLists             map[int64]string `json:"store_lists,omitempty"`
	BatchOperationNumber   *int             `json:"batch_operation_number,omitempty"`
	StoreIDMask            *string          `json:"store_id_mask,omitempty"`
	CurrencyCode           *string          `json:"currency_code,omitempty"`
	AutoSynchronization    *bool            `json:"auto_synchronization,omitempty"`
	SynchronizationPeriodH *int             `json:"synchronization_period_hours,omitempty"`
}

// SettingsService manages the synchronization settings
type SettingsService interface {
	// Get returns the current settings, defaults before the first save
	Get(ctx context.Context) (*domain.Settings, error)

	// Update validates and saves settings and applies their side effects
	Update(ctx context.Context, req UpdateSettingsRequest) (*domain.Settings, error)

	// AccountInfo describes the remote account of the configured key
	AccountInfo(ctx context.Context) (*domain.AccountInfo, error)

	// AvailableLists returns the remote audience lists
	AvailableLists(ctx context.Context) ([]domain.List, error)
}
