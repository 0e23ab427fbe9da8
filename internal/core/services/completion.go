package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// Verify interface compliance
var _ driving.CompletionHandler = (*CompletionService)(nil)

// CompletionService handles batch completion notifications.
// Batches of periodic passes are recorded in the same handled table that
// IsComplete sums, so one finishing during a manual pass counts toward it.
type CompletionService struct {
	clients driven.ClientProvider
	tracker driven.BatchTracker
	logger  *slog.Logger
}

// CompletionConfig holds dependencies for CompletionService.
type CompletionConfig struct {
	Clients driven.ClientProvider
	Tracker driven.BatchTracker
	Logger  *slog.Logger
}

// NewCompletionService creates a new completion handler.
func NewCompletionService(cfg CompletionConfig) *CompletionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionService{clients: cfg.Clients, tracker: cfg.Tracker, logger: logger}
}

// OnBatchNotification records the outcome of a finished batch.
// It returns nil when there is nothing to record yet. Repeated notifications
// for the same batch return the stored count without calling the remote API.
func (s *CompletionService) OnBatchNotification(ctx context.Context, n *domain.BatchNotification) (*domain.BatchCompletion, error) {
	if n == nil || !n.IsFinished() {
		return nil, nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "completion.batch")
	defer span.End()
	span.SetAttributes(attribute.String("batch_id", n.BatchID))
	logger := tracing.Logger(ctx, s.logger).With("batch_id", n.BatchID)

	count, ok, err := s.tracker.Handled(ctx, n.BatchID)
	if err != nil {
		return nil, fmt.Errorf("read handled batch: %w", err)
	}
	if ok {
		logger.Debug("batch already handled", "completed_operations", count)
		return &domain.BatchCompletion{BatchID: n.BatchID, CompletedOperations: count, Replayed: true}, nil
	}

	client, err := s.clients.Client()
	if err != nil {
		return nil, err
	}

	var batch *domain.Batch
	var results []domain.OperationResult
	err = guardRemote(ctx, logger, "handle batch completion", func(ctx context.Context) error {
		var err error
		batch, err = client.GetBatch(ctx, n.BatchID)
		if err != nil {
			return err
		}
		if !batch.IsFinished() || batch.ResponseBodyURL == "" {
			return nil
		}
		results, err = client.BatchResults(ctx, batch.ResponseBodyURL)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !batch.IsFinished() {
		logger.Info("batch not finished yet", "status", batch.Status)
		return nil, nil
	}

	errored := 0
	for _, result := range results {
		if !result.Failed() {
			continue
		}
		errored++
		remote := result.RemoteError()
		logger.Warn("operation failed",
			"operation_id", result.OperationID,
			"status_code", result.StatusCode,
			"error", remote.Error())
	}
	metrics.OperationErrors.Add(float64(errored))

	stored, err := s.tracker.MarkHandled(ctx, n.BatchID, batch.TotalOperations)
	if err != nil {
		return nil, fmt.Errorf("mark batch handled: %w", err)
	}
	logger.Info("batch handled", "completed_operations", stored, "errored_operations", errored)

	return &domain.BatchCompletion{
		BatchID:             n.BatchID,
		CompletedOperations: stored,
		ErroredOperations:   errored,
	}, nil
}
