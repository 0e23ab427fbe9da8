package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven/mocks"
)

func newTestObserver() (*ChangeObserverService, *LedgerService, *mocks.MockCatalog) {
	ledger, _ := newTestLedger()
	catalog := mocks.NewMockCatalog()
	return NewChangeObserverService(ObserverConfig{Ledger: ledger, Catalog: catalog}), ledger, catalog
}

func pendingRecords(t *testing.T, ledger *LedgerService) []*domain.SynchronizationRecord {
	t.Helper()
	records, err := ledger.Pending(context.Background())
	require.NoError(t, err)
	return records
}

func TestObserver_EntityEvents(t *testing.T) {
	tests := []struct {
		name   string
		event  domain.ChangeEvent
		entity domain.EntityType
		op     domain.OperationType
	}{
		{"store inserted", domain.ChangeEvent{Entity: domain.EventEntityStore, Action: domain.EventInserted, ID: 1}, domain.EntityTypeStore, domain.OperationCreate},
		{"customer registered", domain.ChangeEvent{Entity: domain.EventEntityCustomer, Action: domain.EventRegistered, ID: 5}, domain.EntityTypeCustomer, domain.OperationCreate},
		{"customer soft deleted", domain.ChangeEvent{Entity: domain.EventEntityCustomer, Action: domain.EventUpdated, ID: 5, Deleted: true}, domain.EntityTypeCustomer, domain.OperationDelete},
		{"product updated", domain.ChangeEvent{Entity: domain.EventEntityProduct, Action: domain.EventUpdated, ID: 42}, domain.EntityTypeProduct, domain.OperationUpdate},
		{"order soft deleted", domain.ChangeEvent{Entity: domain.EventEntityOrder, Action: domain.EventUpdated, ID: 7, Deleted: true}, domain.EntityTypeOrder, domain.OperationDelete},
		{"subscription deleted", domain.ChangeEvent{Entity: domain.EventEntitySubscription, Action: domain.EventDeleted, ID: 10, Email: "a@example.com"}, domain.EntityTypeSubscription, domain.OperationDelete},
		{"combination inserted", domain.ChangeEvent{Entity: domain.EventEntityAttributeCombination, Action: domain.EventInserted, ID: 420, ProductID: 42}, domain.EntityTypeAttributeCombination, domain.OperationCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer, ledger, _ := newTestObserver()
			event := tt.event
			require.NoError(t, observer.Observe(context.Background(), &event))

			records := pendingRecords(t, ledger)
			require.Len(t, records, 1)
			assert.Equal(t, tt.entity, records[0].EntityType)
			assert.Equal(t, tt.event.ID, records[0].EntityID)
			assert.Equal(t, tt.op, records[0].OperationType)
			assert.Equal(t, tt.event.Email, records[0].Email)
			assert.Equal(t, tt.event.ProductID, records[0].ProductID)
		})
	}
}

func TestObserver_GuestCustomersDropped(t *testing.T) {
	observer, ledger, _ := newTestObserver()

	err := observer.Observe(context.Background(), &domain.ChangeEvent{
		Entity: domain.EventEntityCustomer, Action: domain.EventInserted, ID: 6, Guest: true,
	})
	require.NoError(t, err)
	assert.Empty(t, pendingRecords(t, ledger))
}

func TestObserver_UnsubscribeKeyedByEmail(t *testing.T) {
	ctx := context.Background()
	observer, ledger, _ := newTestObserver()

	require.NoError(t, observer.Observe(ctx, &domain.ChangeEvent{
		Entity: domain.EventEntitySubscription, Action: domain.EventUnsubscribed, Email: "Gone@Example.com",
	}))
	require.NoError(t, observer.Observe(ctx, &domain.ChangeEvent{
		Entity: domain.EventEntitySubscription, Action: domain.EventUnsubscribed, Email: "gone@example.com",
	}))

	records := pendingRecords(t, ledger)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].EntityID)
	assert.Equal(t, domain.OperationDelete, records[0].OperationType)
}

func TestObserver_AttributeChangesUpdateCombinations(t *testing.T) {
	tests := []struct {
		name  string
		event domain.ChangeEvent
		setup func(*mocks.MockCatalog)
	}{
		{
			name:  "attribute deleted",
			event: domain.ChangeEvent{Entity: domain.EventEntityProductAttribute, Action: domain.EventDeleted, ID: 3},
			setup: func(c *mocks.MockCatalog) { c.AttributeCombinations[3] = []int64{420, 421} },
		},
		{
			name:  "mapping deleted",
			event: domain.ChangeEvent{Entity: domain.EventEntityAttributeMapping, Action: domain.EventDeleted, ID: 8, ProductID: 42},
			setup: func(c *mocks.MockCatalog) { c.MappingCombinations[8] = []int64{420, 421} },
		},
		{
			name:  "value updated",
			event: domain.ChangeEvent{Entity: domain.EventEntityAttributeValue, Action: domain.EventUpdated, ID: 9},
			setup: func(c *mocks.MockCatalog) { c.ValueCombinations[9] = []int64{420, 421} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer, ledger, catalog := newTestObserver()
			catalog.AddCombination(&domain.Combination{ID: 420, ProductID: 42})
			catalog.AddCombination(&domain.Combination{ID: 421, ProductID: 42})
			tt.setup(catalog)

			event := tt.event
			require.NoError(t, observer.Observe(context.Background(), &event))

			records := pendingRecords(t, ledger)
			require.Len(t, records, 2)
			for _, r := range records {
				assert.Equal(t, domain.EntityTypeAttributeCombination, r.EntityType)
				assert.Equal(t, domain.OperationUpdate, r.OperationType)
				assert.Equal(t, int64(42), r.ProductID)
			}
		})
	}
}

func TestObserver_AttributeInsertsIgnored(t *testing.T) {
	observer, ledger, catalog := newTestObserver()
	catalog.AddCombination(&domain.Combination{ID: 420, ProductID: 42})
	catalog.ValueCombinations[9] = []int64{420}

	require.NoError(t, observer.Observe(context.Background(), &domain.ChangeEvent{
		Entity: domain.EventEntityAttributeValue, Action: domain.EventInserted, ID: 9,
	}))
	assert.Empty(t, pendingRecords(t, ledger))
}

func TestObserver_InvalidEvent(t *testing.T) {
	observer, _, _ := newTestObserver()

	err := observer.Observe(context.Background(), &domain.ChangeEvent{Entity: "invoice", Action: domain.EventInserted, ID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = observer.Observe(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
