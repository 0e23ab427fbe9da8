package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// SchedulerStore handles persistence for scheduled tasks.
type SchedulerStore interface {
	// GetScheduledTask retrieves a scheduled task by ID
	GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// ListScheduledTasks retrieves all scheduled tasks
	ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// SaveScheduledTask creates or updates a scheduled task
	SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error

	// GetDueScheduledTasks retrieves enabled tasks whose next run has passed
	GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateLastRun stamps the last run, moves the next run and records the error if any
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}
