package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/runtime"
)

const testListWebhookURL = "https://sync.example.com/webhooks/mailchimp/subscription"

type settingsFixture struct {
	store     *mocks.MockSettingsStore
	catalog   *mocks.MockCatalog
	ledger    *LedgerService
	factory   *mocks.MockClientFactory
	services  *runtime.Services
	scheduler *mocks.MockSchedulerStore
	svc       driving.SettingsService
}

func newSettingsFixture(saved *domain.Settings) *settingsFixture {
	ledger, _ := newTestLedger()
	f := &settingsFixture{
		store:     mocks.NewMockSettingsStore(saved),
		catalog:   mocks.NewMockCatalog(),
		ledger:    ledger,
		factory:   mocks.NewMockClientFactory(),
		scheduler: mocks.NewMockSchedulerStore(),
	}
	f.services = runtime.NewServices(f.factory)
	if saved != nil {
		_ = f.services.Configure(saved.APIKey)
	}
	f.svc = NewSettingsService(SettingsServiceConfig{
		Store:          f.store,
		Catalog:        f.catalog,
		Ledger:         ledger,
		Services:       f.services,
		Scheduler:      NewScheduler(SchedulerConfig{Store: f.scheduler, Synchronizer: &stubSynchronizer{}}),
		ListWebhookURL: testListWebhookURL,
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func TestSettingsService_GetDefaults(t *testing.T) {
	f := newSettingsFixture(nil)

	settings, err := f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBatchOperationNumber, settings.BatchOperationNumber)
	assert.Equal(t, domain.DefaultStoreIDMask, settings.StoreIDMask)
	assert.False(t, settings.IsConfigured())
}

func TestSettingsService_UpdateConfiguresClient(t *testing.T) {
	ctx := context.Background()
	f := newSettingsFixture(nil)

	settings, err := f.svc.Update(ctx, driving.UpdateSettingsRequest{
		APIKey:        ptr("key-us6"),
		DefaultListID: ptr("list-a"),
	})
	require.NoError(t, err)
	assert.True(t, settings.IsConfigured())
	assert.False(t, settings.UpdatedAt.IsZero())

	assert.True(t, f.services.IsConfigured())
	assert.Equal(t, []string{"key-us6"}, f.factory.Keys)
	assert.Equal(t, 1, f.factory.Client.CreatedListHks["list-a"])

	saved, err := f.store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "list-a", saved.DefaultListID)
}

func TestSettingsService_ListWebhookNotDuplicated(t *testing.T) {
	ctx := context.Background()
	saved := testSettings()
	f := newSettingsFixture(saved)
	f.factory.Client.ListHooks["list-a"] = []domain.Webhook{{ID: "w1", URL: testListWebhookURL, ListID: "list-a"}}

	_, err := f.svc.Update(ctx, driving.UpdateSettingsRequest{
		StoreLists: map[int64]string{2: "list-b"},
	})
	require.NoError(t, err)
	assert.Zero(t, f.factory.Client.CreatedListHks["list-a"])
	assert.Equal(t, 1, f.factory.Client.CreatedListHks["list-b"])
}

func TestSettingsService_ListWebhookFailureOnlyWarns(t *testing.T) {
	f := newSettingsFixture(testSettings())
	f.factory.Client.WebhookErr = errors.New("remote down")

	_, err := f.svc.Update(context.Background(), driving.UpdateSettingsRequest{CurrencyCode: ptr("EUR")})
	assert.NoError(t, err)
}

func TestSettingsService_ListChangeRecordsStoreUpdates(t *testing.T) {
	ctx := context.Background()
	f := newSettingsFixture(testSettings())
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddStore(&domain.Store{ID: 2})

	_, err := f.svc.Update(ctx, driving.UpdateSettingsRequest{
		StoreLists: map[int64]string{2: "list-b"},
	})
	require.NoError(t, err)

	records, err := f.ledger.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.EntityTypeStore, records[0].EntityType)
	assert.Equal(t, int64(2), records[0].EntityID)
	assert.Equal(t, domain.OperationUpdate, records[0].OperationType)
}

func TestSettingsService_UpdateReschedules(t *testing.T) {
	ctx := context.Background()
	f := newSettingsFixture(testSettings())

	_, err := f.svc.Update(ctx, driving.UpdateSettingsRequest{
		AutoSynchronization:    ptr(true),
		SynchronizationPeriodH: ptr(3),
	})
	require.NoError(t, err)

	task, err := f.scheduler.GetScheduledTask(ctx, domain.SynchronizationTaskID)
	require.NoError(t, err)
	assert.True(t, task.Enabled)
	assert.Equal(t, 3*time.Hour, task.Interval)
}

func TestSettingsService_UpdateValidation(t *testing.T) {
	f := newSettingsFixture(nil)

	_, err := f.svc.Update(context.Background(), driving.UpdateSettingsRequest{
		BatchOperationNumber: ptr(5000),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.store.GetSettings(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettingsService_UpdateSaveError(t *testing.T) {
	f := newSettingsFixture(nil)
	f.store.SaveErr = errors.New("db down")

	_, err := f.svc.Update(context.Background(), driving.UpdateSettingsRequest{DefaultListID: ptr("list-a")})
	assert.Error(t, err)
}

func TestSettingsService_AccountInfo(t *testing.T) {
	ctx := context.Background()

	f := newSettingsFixture(nil)
	_, err := f.svc.AccountInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	f = newSettingsFixture(testSettings())
	f.factory.Client.Account = &domain.AccountInfo{AccountID: "a1", AccountName: "Shop"}
	info, err := f.svc.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Shop", info.AccountName)

	f.factory.Client.AccountErr = &domain.RemoteError{Status: 401, Title: "API Key Invalid"}
	_, err = f.svc.AccountInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrSynchronizationFailed)
}

func TestSettingsService_AvailableLists(t *testing.T) {
	f := newSettingsFixture(testSettings())
	f.factory.Client.AvailableLists = []domain.List{{ID: "list-a", Name: "Newsletter"}}

	lists, err := f.svc.AvailableLists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.List{{ID: "list-a", Name: "Newsletter"}}, lists)
}
