package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// BatchDispatcher submits operations to the remote API in bounded batches
type BatchDispatcher struct {
	logger *slog.Logger
}

// NewBatchDispatcher creates a new dispatcher.
func NewBatchDispatcher(logger *slog.Logger) *BatchDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchDispatcher{logger: logger}
}

// EnsureBatchWebhook registers the batch completion callback unless a
// webhook with the same URL already exists. It returns the webhook id.
func (d *BatchDispatcher) EnsureBatchWebhook(ctx context.Context, client driven.MailChimpClient, url string) (string, error) {
	var id string
	err := guardRemote(ctx, d.logger, "ensure batch webhook", func(ctx context.Context) error {
		hooks, err := client.BatchWebhooks(ctx)
		if err != nil {
			return err
		}
		for i := range hooks {
			if hooks[i].MatchesURL(url) {
				id = hooks[i].ID
				return nil
			}
		}
		hook, err := client.CreateBatchWebhook(ctx, url)
		if err != nil {
			return err
		}
		id = hook.ID
		d.logger.Info("batch webhook registered", "webhook_id", id, "url", url)
		return nil
	})
	return id, err
}

// CreateStores creates remote stores one by one. Failures are logged and
// skipped; it returns the number of stores created.
func (d *BatchDispatcher) CreateStores(ctx context.Context, client driven.MailChimpClient, stores []*domain.RemoteStore) int {
	created := 0
	for _, store := range stores {
		err := guardRemote(ctx, d.logger, "create store", func(ctx context.Context) error {
			return client.CreateStore(ctx, store)
		})
		if err != nil {
			d.logger.Warn("store not created", "store_id", store.ID, "error", err)
			continue
		}
		created++
	}
	return created
}

// Submit sends operations in sequential batches of at most maxBatchSize.
// Batches accepted before a failure keep running remotely.
func (d *BatchDispatcher) Submit(ctx context.Context, client driven.MailChimpClient, operations []domain.Operation, maxBatchSize int) (*domain.DispatchResult, error) {
	if maxBatchSize <= 0 {
		maxBatchSize = domain.DefaultBatchOperationNumber
	}

	ctx, span := tracing.Tracer().Start(ctx, "dispatcher.submit")
	defer span.End()
	span.SetAttributes(attribute.Int("operations", len(operations)))

	result := &domain.DispatchResult{}
	for start := 0; start < len(operations); start += maxBatchSize {
		end := min(start+maxBatchSize, len(operations))
		chunk := operations[start:end]

		var batch *domain.Batch
		err := guardRemote(ctx, d.logger, "submit batch", func(ctx context.Context) error {
			var err error
			batch, err = client.SubmitBatch(ctx, chunk)
			return err
		})
		if err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("batch %d of %d operations: %w", len(result.BatchIDs)+1, len(chunk), err)
		}

		result.BatchIDs = append(result.BatchIDs, batch.ID)
		result.Operations += len(chunk)
		metrics.BatchesSubmitted.Inc()
		metrics.OperationsDispatched.Add(float64(len(chunk)))
		tracing.Logger(ctx, d.logger).Info("batch submitted", "batch_id", batch.ID, "operations", len(chunk))
	}
	return result, nil
}
