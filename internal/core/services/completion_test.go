package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven/mocks"
)

func newTestCompletion() (*CompletionService, *mocks.MockMailChimpClient, *mocks.MockBatchTracker) {
	client := mocks.NewMockMailChimpClient()
	tracker := mocks.NewMockBatchTracker()
	svc := NewCompletionService(CompletionConfig{
		Clients: mocks.NewMockClientProvider(client),
		Tracker: tracker,
	})
	return svc, client, tracker
}

func finished(batchID string) *domain.BatchNotification {
	return &domain.BatchNotification{BatchID: batchID, Status: domain.BatchStatusFinished}
}

func TestCompletion_ReplayedNotificationFetchesOnce(t *testing.T) {
	ctx := context.Background()
	svc, client, tracker := newTestCompletion()
	client.FinishBatch("B1",
		domain.OperationResult{OperationID: "a", StatusCode: 200},
		domain.OperationResult{OperationID: "b", StatusCode: 200},
		domain.OperationResult{OperationID: "c", StatusCode: 400, Response: `{"title":"Invalid Resource","status":400,"detail":"bad email"}`},
	)

	first, err := svc.OnBatchNotification(ctx, finished("B1"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 3, first.CompletedOperations)
	assert.Equal(t, 1, first.ErroredOperations)
	assert.False(t, first.Replayed)

	second, err := svc.OnBatchNotification(ctx, finished("B1"))
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 3, second.CompletedOperations)
	assert.True(t, second.Replayed)

	assert.Equal(t, 1, client.GetBatchCalls)
	assert.Equal(t, 1, client.ResultsCalls)
	assert.Equal(t, 1, tracker.HandledCount())
}

func TestCompletion_IgnoresUnfinishedNotification(t *testing.T) {
	svc, client, _ := newTestCompletion()

	result, err := svc.OnBatchNotification(context.Background(),
		&domain.BatchNotification{BatchID: "B1", Status: domain.BatchStatusStarted})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Zero(t, client.GetBatchCalls)
}

func TestCompletion_RemoteBatchNotFinished(t *testing.T) {
	svc, client, tracker := newTestCompletion()
	client.Batches["B2"] = &domain.Batch{ID: "B2", Status: domain.BatchStatusFinalizing, TotalOperations: 4}

	result, err := svc.OnBatchNotification(context.Background(), finished("B2"))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, client.GetBatchCalls)
	assert.Zero(t, client.ResultsCalls)
	assert.Zero(t, tracker.HandledCount())
}

func TestCompletion_UnknownBatch(t *testing.T) {
	svc, _, tracker := newTestCompletion()

	_, err := svc.OnBatchNotification(context.Background(), finished("missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSynchronizationFailed)
	assert.Zero(t, tracker.HandledCount())
}

func TestCompletion_NotConfigured(t *testing.T) {
	svc := NewCompletionService(CompletionConfig{
		Clients: mocks.NewMockClientProvider(nil),
		Tracker: mocks.NewMockBatchTracker(),
	})

	_, err := svc.OnBatchNotification(context.Background(), finished("B1"))
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestCompletion_ReturnsStoredCount(t *testing.T) {
	ctx := context.Background()
	svc, client, tracker := newTestCompletion()
	client.FinishBatch("B3", domain.OperationResult{OperationID: "a", StatusCode: 200})

	stored, err := tracker.MarkHandled(ctx, "B3", 7)
	require.NoError(t, err)
	require.Equal(t, 7, stored)

	result, err := svc.OnBatchNotification(ctx, finished("B3"))
	require.NoError(t, err)
	assert.Equal(t, 7, result.CompletedOperations)
	assert.True(t, result.Replayed)
	assert.Zero(t, client.GetBatchCalls)
}
