package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var (
	_ driven.Catalog            = (*MockCatalog)(nil)
	_ driven.SubscriptionWriter = (*MockCatalog)(nil)
)

// MockCatalog is an in-memory host database
type MockCatalog struct {
	mu            sync.RWMutex
	Stores        map[int64]*domain.Store
	Subscriptions map[int64]*domain.Subscription
	Customers     map[int64]*domain.Customer
	Stats         map[[2]int64]*domain.CustomerStats
	Products      map[int64]*domain.Product
	Combinations  map[int64]*domain.Combination
	Orders        map[int64]*domain.Order
	Carts         []*domain.Cart

	// Attribute links resolving to combination ids
	MappingCombinations   map[int64][]int64
	ValueCombinations     map[int64][]int64
	AttributeCombinations map[int64][]int64

	nextSubscriptionID int64

	// Optional error injection
	Err error
}

// NewMockCatalog creates an empty catalog
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Stores:                make(map[int64]*domain.Store),
		Subscriptions:         make(map[int64]*domain.Subscription),
		Customers:             make(map[int64]*domain.Customer),
		Stats:                 make(map[[2]int64]*domain.CustomerStats),
		Products:              make(map[int64]*domain.Product),
		Combinations:          make(map[int64]*domain.Combination),
		Orders:                make(map[int64]*domain.Order),
		MappingCombinations:   make(map[int64][]int64),
		ValueCombinations:     make(map[int64][]int64),
		AttributeCombinations: make(map[int64][]int64),
		nextSubscriptionID:    1000,
	}
}

// Fixture helpers

func (m *MockCatalog) AddStore(s *domain.Store) { m.lock(); m.Stores[s.ID] = s; m.unlock() }

func (m *MockCatalog) AddSubscription(s *domain.Subscription) {
	m.lock()
	m.Subscriptions[s.ID] = s
	m.unlock()
}

func (m *MockCatalog) AddCustomer(c *domain.Customer) { m.lock(); m.Customers[c.ID] = c; m.unlock() }

func (m *MockCatalog) AddProduct(p *domain.Product) { m.lock(); m.Products[p.ID] = p; m.unlock() }

func (m *MockCatalog) AddCombination(c *domain.Combination) {
	m.lock()
	m.Combinations[c.ID] = c
	m.unlock()
}

func (m *MockCatalog) AddOrder(o *domain.Order) { m.lock(); m.Orders[o.ID] = o; m.unlock() }

func (m *MockCatalog) SetStats(customerID, storeID int64, stats *domain.CustomerStats) {
	m.lock()
	m.Stats[[2]int64{customerID, storeID}] = stats
	m.unlock()
}

func (m *MockCatalog) lock()   { m.mu.Lock() }
func (m *MockCatalog) unlock() { m.mu.Unlock() }

func (m *MockCatalog) ListStores(ctx context.Context) ([]*domain.Store, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stores := make([]*domain.Store, 0, len(m.Stores))
	for _, s := range m.Stores {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })
	return stores, nil
}

func (m *MockCatalog) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.Stores[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockCatalog) GetSubscription(ctx context.Context, id int64) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.Subscriptions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockCatalog) FindSubscription(ctx context.Context, email string, storeID int64) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.Subscriptions {
		if s.StoreID == storeID && strings.EqualFold(s.Email, strings.TrimSpace(email)) {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCatalog) ListSubscriptionIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.Subscriptions), nil
}

func (m *MockCatalog) GetCustomers(ctx context.Context, ids []int64) ([]*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Customer
	for _, id := range ids {
		if c, ok := m.Customers[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCatalog) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range sortedKeys(m.Customers) {
		if c := m.Customers[id]; strings.EqualFold(c.Email, strings.TrimSpace(email)) {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCatalog) ListRegisteredCustomerIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, id := range sortedKeys(m.Customers) {
		if c := m.Customers[id]; !c.Guest && !c.Deleted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MockCatalog) CustomerStats(ctx context.Context, customerID, storeID int64) (*domain.CustomerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.Stats[[2]int64{customerID, storeID}]; ok {
		return s, nil
	}
	return &domain.CustomerStats{}, nil
}

func (m *MockCatalog) GetProducts(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Product
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockCatalog) ListProductIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.Products), nil
}

func (m *MockCatalog) GetCombinations(ctx context.Context, ids []int64) ([]*domain.Combination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Combination
	for _, id := range ids {
		if c, ok := m.Combinations[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCatalog) CombinationsByProduct(ctx context.Context, productID int64) ([]*domain.Combination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Combination
	for _, id := range sortedKeys(m.Combinations) {
		if c := m.Combinations[id]; c.ProductID == productID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCatalog) CombinationsByAttributeMapping(ctx context.Context, mappingID int64) ([]*domain.Combination, error) {
	return m.resolve(m.MappingCombinations[mappingID])
}

func (m *MockCatalog) CombinationsByAttributeValue(ctx context.Context, valueID int64) ([]*domain.Combination, error) {
	return m.resolve(m.ValueCombinations[valueID])
}

func (m *MockCatalog) CombinationsByAttribute(ctx context.Context, attributeID int64) ([]*domain.Combination, error) {
	return m.resolve(m.AttributeCombinations[attributeID])
}

func (m *MockCatalog) resolve(ids []int64) ([]*domain.Combination, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.GetCombinations(context.Background(), ids)
}

func (m *MockCatalog) GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Order
	for _, id := range ids {
		if o, ok := m.Orders[id]; ok {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockCatalog) ListOrderIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.Orders), nil
}

func (m *MockCatalog) ListCarts(ctx context.Context, storeID int64) ([]*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Cart
	for _, c := range m.Carts {
		if c.StoreID == storeID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCatalog) SetActive(ctx context.Context, id int64, active bool) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = active
	return nil
}

func (m *MockCatalog) CreateSubscription(ctx context.Context, subscription *domain.Subscription) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubscriptionID++
	subscription.ID = m.nextSubscriptionID
	m.Subscriptions[subscription.ID] = subscription
	return nil
}

func sortedKeys[T any](items map[int64]T) []int64 {
	keys := make([]int64, 0, len(items))
	for id := range items {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
