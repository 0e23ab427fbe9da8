package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// SettingsStore persists the synchronization settings
type SettingsStore interface {
	// GetSettings returns the saved settings, or domain.ErrNotFound before the first save
	GetSettings(ctx context.Context) (*domain.Settings, error)

	// SaveSettings replaces the settings and the store list overrides
	SaveSettings(ctx context.Context, settings *domain.Settings) error
}
