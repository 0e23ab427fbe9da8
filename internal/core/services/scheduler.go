package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

// SynchronizationLock is the distributed lock held while a periodic pass runs
const SynchronizationLock = "synchronization"

// Scheduler runs the periodic synchronization task.
//
// For multi-instance deployments, configure a DistributedLock so that only
// one replica runs a due pass.
type Scheduler struct {
	store        driven.SchedulerStore
	synchronizer driving.Synchronizer
	lock         driven.DistributedLock
	logger       *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL time.Duration
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	Synchronizer driving.Synchronizer
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check for due tasks (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 10m)
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	// A pass maps and submits the whole ledger, give it room.
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 10 * time.Minute
	}

	return &Scheduler{
		store:        cfg.Store,
		synchronizer: cfg.Synchronizer,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkDue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkDue(ctx)
		}
	}
}

// checkDue runs every due synchronization task
func (s *Scheduler) checkDue(ctx context.Context) {
	tasks, err := s.store.GetDueScheduledTasks(ctx)
	if err != nil {
		s.logger.Error("failed to get due scheduled tasks", "error", err)
		return
	}

	for _, scheduled := range tasks {
		if !scheduled.Enabled || !scheduled.IsDue() || scheduled.Type != domain.TaskTypeSynchronization {
			continue
		}
		if _, err := s.runLocked(ctx, scheduled); err != nil && !errors.Is(err, domain.ErrConflict) {
			s.logger.Warn("scheduled synchronization did not complete",
				"scheduled_id", scheduled.ID,
				"error", err,
			)
		}
	}
}

// runLocked runs one pass under the distributed lock and stamps the task
func (s *Scheduler) runLocked(ctx context.Context, scheduled *domain.ScheduledTask) (int, error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, SynchronizationLock, s.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("acquire synchronization lock: %w", err)
		}
		if !acquired {
			s.logger.Debug("synchronization lock held by another instance", "scheduled_id", scheduled.ID)
			return 0, fmt.Errorf("%w: synchronization already running", domain.ErrConflict)
		}
		defer func() {
			if err := s.lock.Release(ctx, SynchronizationLock); err != nil {
				s.logger.Warn("failed to release synchronization lock", "error", err)
			}
		}()
	}

	count, runErr := s.synchronizer.Synchronize(ctx, false)

	lastError := ""
	if runErr != nil {
		lastError = runErr.Error()
	}
	if err := s.store.UpdateLastRun(ctx, scheduled.ID, lastError); err != nil {
		s.logger.Warn("failed to update scheduled task last run",
			"scheduled_id", scheduled.ID,
			"error", err,
		)
	}
	if runErr != nil {
		return count, runErr
	}

	s.logger.Info("scheduled synchronization dispatched",
		"scheduled_id", scheduled.ID,
		"operations", count,
	)
	return count, nil
}

// TriggerNow runs a scheduled task immediately, ignoring its schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (int, error) {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.runLocked(ctx, scheduled)
}

// Reschedule creates the synchronization task or applies new settings to it.
func (s *Scheduler) Reschedule(ctx context.Context, settings *domain.Settings) error {
	scheduled, err := s.store.GetScheduledTask(ctx, domain.SynchronizationTaskID)
	if errors.Is(err, domain.ErrNotFound) {
		scheduled = domain.NewSynchronizationTask(settings)
		s.logger.Info("synchronization task created",
			"interval", scheduled.Interval,
			"enabled", scheduled.Enabled,
		)
		return s.store.SaveScheduledTask(ctx, scheduled)
	}
	if err != nil {
		return fmt.Errorf("get synchronization task: %w", err)
	}

	if !scheduled.Reschedule(settings.SynchronizationPeriod(), settings.AutoSynchronization) {
		return nil
	}
	s.logger.Info("synchronization task rescheduled",
		"interval", scheduled.Interval,
		"enabled", scheduled.Enabled,
		"next_run", scheduled.NextRun,
	)
	return s.store.SaveScheduledTask(ctx, scheduled)
}

// ListScheduledTasks lists all scheduled tasks.
func (s *Scheduler) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	return s.store.ListScheduledTasks(ctx)
}
