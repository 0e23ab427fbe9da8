package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven/mocks"
)

type mapperFixture struct {
	ledger  *LedgerService
	catalog *mocks.MockCatalog
	client  *mocks.MockMailChimpClient
	mapper  *OperationMapper
}

func newMapperFixture() *mapperFixture {
	ledger, _ := newTestLedger()
	catalog := mocks.NewMockCatalog()
	return &mapperFixture{
		ledger:  ledger,
		catalog: catalog,
		client:  mocks.NewMockMailChimpClient(),
		mapper:  NewOperationMapper(MapperConfig{Ledger: ledger, Catalog: catalog}),
	}
}

func (f *mapperFixture) record(t *testing.T, c domain.Change) {
	t.Helper()
	require.NoError(t, f.ledger.RecordChange(context.Background(), c))
}

func testSettings() *domain.Settings {
	s := domain.DefaultSettings()
	s.APIKey = "key-us1"
	s.DefaultListID = "list-a"
	s.PassEcommerceData = true
	return s
}

// renderOperations prints one operation per line, followed by its body if any
func renderOperations(ops []domain.Operation) []byte {
	var lines []string
	for _, op := range ops {
		lines = append(lines, op.ID+" "+op.Method+" "+op.Path)
		if op.Body != "" {
			lines = append(lines, op.Body)
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestMapper_Subscriptions(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	settings := testSettings()
	settings.StoreLists = map[int64]string{2: "list-b"}

	f.catalog.AddStore(&domain.Store{ID: 1, Name: "Main"})
	f.catalog.AddStore(&domain.Store{ID: 2, Name: "Outlet"})
	f.catalog.AddCustomer(&domain.Customer{ID: 5, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", LanguageCode: "en"})
	f.catalog.AddSubscription(&domain.Subscription{
		ID: 10, Email: "jane@example.com", StoreID: 1, Active: true,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	f.catalog.AddSubscription(&domain.Subscription{
		ID: 11, Email: "bob@example.com", StoreID: 2, Active: false,
		CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	})

	f.record(t, change(domain.EntityTypeSubscription, 10, domain.OperationCreate))
	f.record(t, change(domain.EntityTypeSubscription, 11, domain.OperationUpdate))
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 12, Email: "gone@example.com", OperationType: domain.OperationDelete})
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 13, Email: "jane@example.com", OperationType: domain.OperationDelete})

	ops, err := f.mapper.MapSubscriptions(ctx, settings)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "subscriptions", renderOperations(ops))
}

func TestMapper_SubscriptionDeleteSkippedWhenResubscribed(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddSubscription(&domain.Subscription{ID: 20, Email: "back@example.com", StoreID: 1, Active: true})
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 19, Email: "BACK@example.com", OperationType: domain.OperationDelete})

	ops, err := f.mapper.MapSubscriptions(ctx, testSettings())
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestMapper_UnsubscribesByEmailGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})

	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, Email: "a@x.com", OperationType: domain.OperationDelete})
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, Email: "b@x.com", OperationType: domain.OperationDelete})
	// same address as the first unsubscribe, keyed by the deleted row
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 12, Email: "a@x.com", OperationType: domain.OperationDelete})

	ops, err := f.mapper.MapSubscriptions(ctx, testSettings())
	require.NoError(t, err)
	require.Len(t, ops, 2)

	paths := map[string]string{}
	for _, op := range ops {
		assert.Equal(t, domain.MethodDelete, op.Method)
		paths[op.Path] = op.ID
	}
	assert.Equal(t, domain.MemberOperationID(domain.OperationDelete, "b@x.com", "list-a"),
		paths[domain.MembersPath("list-a", "b@x.com")])
	assert.Contains(t, paths, domain.MembersPath("list-a", "a@x.com"))
	assertUniqueOperationIDs(t, ops)
}

func TestMapper_SharedListDeletesOncePerMember(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddStore(&domain.Store{ID: 2})
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 12, Email: "gone@x.com", OperationType: domain.OperationDelete})

	ops, err := f.mapper.MapSubscriptions(ctx, testSettings())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "delete-subscription-12-list-list-a", ops[0].ID)
}

func TestMapper_NoListMeansNoOperations(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	settings := testSettings()
	settings.DefaultListID = ""

	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddSubscription(&domain.Subscription{ID: 10, Email: "a@example.com", StoreID: 1})
	f.record(t, change(domain.EntityTypeSubscription, 10, domain.OperationCreate))

	ops, err := f.mapper.MapSubscriptions(ctx, settings)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestMapper_Ecommerce(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	settings := testSettings()

	f.catalog.AddStore(&domain.Store{
		ID: 1, Name: "Main", URL: "https://shop.example.com",
		Phone: "555-0100", LanguageCode: "en", Timezone: "UTC",
	})
	f.catalog.AddCustomer(&domain.Customer{ID: 5, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"})
	f.catalog.SetStats(5, 1, &domain.CustomerStats{OrdersCount: 2, TotalSpent: 59.5})

	override := 11.25
	f.catalog.AddProduct(&domain.Product{
		ID: 42, Name: "Mug", Sku: "MUG", Price: 9.5, URL: "https://shop.example.com/mug",
		Published: true, Inventory: domain.InventoryManaged, StockQuantity: 7,
	})
	f.catalog.AddCombination(&domain.Combination{ID: 420, ProductID: 42, OverriddenPrice: &override, StockQuantity: 3})
	f.catalog.AddProduct(&domain.Product{ID: 43, Name: "Cap", Description: "Blue cap", Price: 15})
	f.catalog.AddCombination(&domain.Combination{ID: 430, ProductID: 43, Sku: "CAP-L", StockQuantity: 2})

	f.catalog.AddOrder(&domain.Order{
		ID: 7, CustomerID: 5, StoreID: 1, PaymentStatus: 2, OrderStatus: 3, CurrencyCode: "EUR",
		Total: 30, Tax: 5, Shipping: 4.5, CreatedAt: time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		Lines: []domain.OrderLine{
			{ID: 1, ProductID: 42, CombinationID: 420, Price: 11.25, Quantity: 2},
			{ID: 2, ProductID: 43, Price: 7.5, Quantity: 1},
		},
	})
	f.catalog.Carts = []*domain.Cart{{
		CustomerID: 5, StoreID: 1, CheckoutURL: "https://shop.example.com/cart",
		Lines: []domain.OrderLine{{ID: 1, ProductID: 42, Price: 9.5, Quantity: 1}},
	}}
	f.client.RemoteCarts["store-1"] = []string{"5", "9"}

	f.record(t, change(domain.EntityTypeStore, 1, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeCustomer, 5, domain.OperationCreate))
	f.record(t, change(domain.EntityTypeCustomer, 6, domain.OperationDelete))
	f.record(t, change(domain.EntityTypeProduct, 42, domain.OperationCreate))
	f.record(t, change(domain.EntityTypeProduct, 43, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeAttributeCombination, 430, domain.OperationUpdate))
	f.record(t, domain.Change{EntityType: domain.EntityTypeAttributeCombination, EntityID: 431, ProductID: 43, OperationType: domain.OperationDelete})
	f.record(t, change(domain.EntityTypeOrder, 7, domain.OperationCreate))
	f.record(t, change(domain.EntityTypeOrder, 8, domain.OperationDelete))

	ops, err := f.mapper.MapEcommerce(ctx, settings, f.client)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "ecommerce", renderOperations(ops))
}

func TestMapper_ProductsFilteredByStore(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddStore(&domain.Store{ID: 2})
	f.catalog.AddProduct(&domain.Product{ID: 42, Name: "Mug", StoreIDs: []int64{2}})
	f.record(t, change(domain.EntityTypeProduct, 42, domain.OperationCreate))

	ops, err := f.mapper.MapEcommerce(ctx, testSettings(), f.client)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "create-product-42-store-2", ops[0].ID)
	assert.Equal(t, "/ecommerce/stores/store-2/products", ops[0].Path)
}

func TestMapper_GuestOrdersAndOtherStores(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.AddStore(&domain.Store{ID: 2})
	f.catalog.AddOrder(&domain.Order{ID: 7, StoreID: 2, CustomerID: 5})
	f.catalog.AddOrder(&domain.Order{ID: 8, StoreID: 1, GuestCustomer: true})
	f.record(t, change(domain.EntityTypeOrder, 7, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeOrder, 8, domain.OperationCreate))

	ops, err := f.mapper.MapEcommerce(ctx, testSettings(), f.client)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "update-order-7-store-2", ops[0].ID)
	assert.Equal(t, domain.MethodPatch, ops[0].Method)
	assert.Equal(t, "/ecommerce/stores/store-2/orders/7", ops[0].Path)
}

func TestMapper_MissingEntitiesAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.record(t, change(domain.EntityTypeCustomer, 99, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeSubscription, 98, domain.OperationUpdate))

	subs, err := f.mapper.MapSubscriptions(ctx, testSettings())
	require.NoError(t, err)
	assert.Empty(t, subs)

	ecommerce, err := f.mapper.MapEcommerce(ctx, testSettings(), f.client)
	require.NoError(t, err)
	assert.Empty(t, ecommerce)
}

func TestMapper_CartsWithoutRemoteState(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	f.catalog.AddStore(&domain.Store{ID: 1})
	f.catalog.Carts = []*domain.Cart{{CustomerID: 5, StoreID: 1}}

	ops, err := f.mapper.MapEcommerce(ctx, testSettings(), nil)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "create-cart-5-store-1", ops[0].ID)
	assert.Equal(t, domain.MethodPost, ops[0].Method)
	assert.Equal(t, "/ecommerce/stores/store-1/carts", ops[0].Path)
}

func TestMapper_PendingStoreCreates(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	settings := testSettings()
	settings.StoreIDMask = "shop-%d"
	f.catalog.AddStore(&domain.Store{ID: 1, Name: "Main", URL: "https://shop.example.com", DefaultCurrency: "EUR"})
	f.catalog.AddStore(&domain.Store{ID: 2, Name: "Outlet"})
	f.record(t, change(domain.EntityTypeStore, 1, domain.OperationCreate))

	stores, err := f.mapper.PendingStoreCreates(ctx, settings)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, &domain.RemoteStore{
		ID: "shop-1", ListID: "list-a", Name: "Main",
		Domain: "https://shop.example.com", CurrencyCode: "EUR",
	}, stores[0])
}

func TestMapper_CatalogFailure(t *testing.T) {
	f := newMapperFixture()
	f.catalog.Err = assert.AnError

	_, err := f.mapper.MapSubscriptions(context.Background(), testSettings())
	assert.ErrorIs(t, err, assert.AnError)
}

func assertUniqueOperationIDs(t *testing.T, ops []domain.Operation) {
	t.Helper()
	seen := make(map[string]int, len(ops))
	for _, op := range ops {
		seen[op.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "operation id %s used %d times in one batch", id, n)
	}
}

func TestMapper_OperationIDsUniqueAcrossMixedLedger(t *testing.T) {
	ctx := context.Background()
	f := newMapperFixture()
	settings := testSettings()
	settings.StoreLists = map[int64]string{3: "list-b"}

	for _, id := range []int64{1, 2, 3} {
		f.catalog.AddStore(&domain.Store{ID: id})
	}
	f.catalog.AddSubscription(&domain.Subscription{ID: 10, Email: "jane@x.com", StoreID: 1, Active: true})
	f.catalog.AddSubscription(&domain.Subscription{ID: 11, Email: "jane@x.com", StoreID: 2, Active: true})
	f.catalog.AddSubscription(&domain.Subscription{ID: 14, Email: "zoe@x.com", StoreID: 3, Active: true})
	f.catalog.AddCustomer(&domain.Customer{ID: 5, Email: "jane@x.com"})
	f.catalog.AddProduct(&domain.Product{ID: 42, Name: "Mug", Price: 9.5})
	f.catalog.AddProduct(&domain.Product{ID: 43, Name: "Cap", Price: 15})
	f.catalog.AddCombination(&domain.Combination{ID: 430, ProductID: 43, Sku: "CAP-L"})

	f.record(t, change(domain.EntityTypeSubscription, 10, domain.OperationCreate))
	f.record(t, change(domain.EntityTypeSubscription, 11, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeSubscription, 14, domain.OperationCreate))
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, Email: email, OperationType: domain.OperationDelete})
	}
	f.record(t, domain.Change{EntityType: domain.EntityTypeSubscription, EntityID: 20, Email: "a@x.com", OperationType: domain.OperationDelete})
	f.record(t, change(domain.EntityTypeCustomer, 5, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeProduct, 42, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeProduct, 43, domain.OperationUpdate))
	f.record(t, change(domain.EntityTypeAttributeCombination, 430, domain.OperationUpdate))

	subscriptionOps, err := f.mapper.MapSubscriptions(ctx, settings)
	require.NoError(t, err)
	ecommerceOps, err := f.mapper.MapEcommerce(ctx, settings, f.client)
	require.NoError(t, err)

	ops := append(subscriptionOps, ecommerceOps...)
	// 3 upserts plus 3 deletes on each list; per store 1 customer, 2 products, 2 default variants, 1 variant
	assert.Len(t, subscriptionOps, 9)
	assert.Len(t, ecommerceOps, 18)
	assertUniqueOperationIDs(t, ops)
}
