// Package worker consumes the entity change feed and records changes in the ledger.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
)

// Scheduler is started and stopped together with the worker
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// Worker reads change events one at a time and acknowledges each once observed.
// Events are handled in feed order so acknowledgements never skip ahead.
type Worker struct {
	source    driven.EventSource
	observer  driving.ChangeObserver
	scheduler Scheduler
	logger    *slog.Logger

	retryAttempts int
	retryBackoff  time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Source    driven.EventSource
	Observer  driving.ChangeObserver
	Scheduler Scheduler // optional
	Logger    *slog.Logger

	// RetryAttempts is how often a failing event is observed before it is skipped
	RetryAttempts int
	RetryBackoff  time.Duration
}

// NewWorker creates a new change event worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Worker{
		source:        cfg.Source,
		observer:      cfg.Observer,
		scheduler:     cfg.Scheduler,
		logger:        logger,
		retryAttempts: attempts,
		retryBackoff:  backoff,
	}
}

// Start begins the consume loop in the background.
// It runs until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting", "retry_attempts", w.retryAttempts)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	if w.source == nil {
		w.logger.Info("no event source configured, only the scheduler runs")
		close(w.doneCh)
		return nil
	}

	go func() {
		defer close(w.doneCh)
		w.consumeLoop(ctx)
	}()

	return nil
}

// Stop cancels the loop, waits for the current event and closes the source.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-w.doneCh
	if w.source != nil {
		if err := w.source.Close(); err != nil {
			w.logger.Warn("failed to close event source", "error", err)
		}
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (w *Worker) consumeLoop(ctx context.Context) {
	for {
		delivery, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to read change event", "error", err)
			if !sleep(ctx, w.retryBackoff) {
				return
			}
			continue
		}

		w.handle(ctx, delivery)
	}
}

// handle observes one delivery with retries and acknowledges it.
// Invalid events are acknowledged at once; events still failing after the
// last attempt are logged and acknowledged so the feed keeps moving.
func (w *Worker) handle(ctx context.Context, delivery *driven.EventDelivery) {
	event := delivery.Event
	logger := w.logger.With("event", event.String())

	outcome := "observed"
	for attempt := 1; ; attempt++ {
		err := w.observer.Observe(ctx, event)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Warn("dropping invalid change event", "error", err)
			outcome = "invalid"
			break
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= w.retryAttempts {
			logger.Error("giving up on change event", "attempts", attempt, "error", err)
			outcome = "failed"
			break
		}
		logger.Warn("change event failed, retrying", "attempt", attempt, "error", err)
		if !sleep(ctx, time.Duration(attempt)*w.retryBackoff) {
			return
		}
	}

	metrics.Events.WithLabelValues(outcome).Inc()
	if outcome == "observed" {
		w.processed.Add(1)
	} else {
		w.failed.Add(1)
	}

	if err := delivery.Ack(context.WithoutCancel(ctx)); err != nil {
		logger.Error("failed to ack change event", "error", err)
	}
}

// sleep waits for d and returns false when ctx ends first
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Health reports the worker state.
type Health struct {
	Running   bool  `json:"running"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Health returns the health status of the worker.
func (w *Worker) Health() Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	return Health{
		Running:   running,
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
	}
}
