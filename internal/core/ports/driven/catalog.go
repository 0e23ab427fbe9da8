package driven

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// Catalog is the read model of the host database.
// Lookups of a single entity return domain.ErrNotFound when the row is gone.
// Batch lookups silently omit missing ids.
type Catalog interface {
	// Stores
	ListStores(ctx context.Context) ([]*domain.Store, error)
	GetStore(ctx context.Context, id int64) (*domain.Store, error)

	// Newsletter subscriptions
	GetSubscription(ctx context.Context, id int64) (*domain.Subscription, error)
	FindSubscription(ctx context.Context, email string, storeID int64) (*domain.Subscription, error)
	ListSubscriptionIDs(ctx context.Context) ([]int64, error)

	// Customers
	GetCustomers(ctx context.Context, ids []int64) ([]*domain.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	ListRegisteredCustomerIDs(ctx context.Context) ([]int64, error)
	CustomerStats(ctx context.Context, customerID, storeID int64) (*domain.CustomerStats, error)

	// Products and attribute combinations
	GetProducts(ctx context.Context, ids []int64) ([]*domain.Product, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
	GetCombinations(ctx context.Context, ids []int64) ([]*domain.Combination, error)
	CombinationsByProduct(ctx context.Context, productID int64) ([]*domain.Combination, error)
	CombinationsByAttributeMapping(ctx context.Context, mappingID int64) ([]*domain.Combination, error)
	CombinationsByAttributeValue(ctx context.Context, valueID int64) ([]*domain.Combination, error)
	CombinationsByAttribute(ctx context.Context, attributeID int64) ([]*domain.Combination, error)

	// Orders
	GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error)
	ListOrderIDs(ctx context.Context) ([]int64, error)

	// Carts of registered customers in one store
	ListCarts(ctx context.Context, storeID int64) ([]*domain.Cart, error)
}

// SubscriptionWriter is the only write access the service has to host data
type SubscriptionWriter interface {
	// SetActive activates or deactivates a subscription
	SetActive(ctx context.Context, id int64, active bool) error

	// CreateSubscription inserts a subscription and assigns its ID
	CreateSubscription(ctx context.Context, subscription *domain.Subscription) error
}
