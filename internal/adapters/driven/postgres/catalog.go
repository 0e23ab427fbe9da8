package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Catalog            = (*Catalog)(nil)
	_ driven.SubscriptionWriter = (*Catalog)(nil)
)

const (
	storeColumns        = `id, name, url, phone, language_code, timezone, default_currency`
	subscriptionColumns = `id, guid, email, store_id, active, created_at`
	customerColumns     = `id, email, first_name, last_name, company, language_code, guest, deleted, address`
	productColumns      = `id, name, description, sku, price, url, image_url, vendor, category,
		published, deleted, stock_quantity, inventory, store_ids`
	combinationColumns = `c.id, c.product_id, c.sku, c.overridden_price, c.stock_quantity, c.image_url`
	orderColumns       = `id, customer_id, store_id, guest_customer, deleted, payment_status, order_status,
		currency_code, total, tax, shipping, created_at, shipping_address, billing_address`
)

// Catalog reads host entities from the shared database.
// Batch lookups return rows in the order of the requested ids.
type Catalog struct {
	db *DB
}

// NewCatalog creates a new Catalog
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// ListStores returns every store ordered by id
func (c *Catalog) ListStores(ctx context.Context) ([]*domain.Store, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []*domain.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

// GetStore returns a single store
func (c *Catalog) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	store, err := scanStore(c.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store %d: %w", id, err)
	}
	return store, nil
}

// GetSubscription returns a single newsletter subscription
func (c *Catalog) GetSubscription(ctx context.Context, id int64) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM newsletter_subscriptions WHERE id = $1`
	sub, err := scanSubscription(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return sub, nil
}

// FindSubscription looks up a subscription by email in one store, ignoring case
func (c *Catalog) FindSubscription(ctx context.Context, email string, storeID int64) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM newsletter_subscriptions
		WHERE LOWER(email) = LOWER($1) AND store_id = $2
		ORDER BY id
		LIMIT 1`
	sub, err := scanSubscription(c.db.QueryRowContext(ctx, query, strings.TrimSpace(email), storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptionIDs returns every subscription id
func (c *Catalog) ListSubscriptionIDs(ctx context.Context) ([]int64, error) {
	return c.listIDs(ctx, `SELECT id FROM newsletter_subscriptions ORDER BY id`)
}

// GetCustomers returns the customers that still exist
func (c *Catalog) GetCustomers(ctx context.Context, ids []int64) ([]*domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get customers: %w", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

// FindCustomerByEmail returns the oldest customer with the email, ignoring case
func (c *Catalog) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE LOWER(email) = LOWER($1)
		ORDER BY id
		LIMIT 1`
	customer, err := scanCustomer(c.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return customer, nil
}

// ListRegisteredCustomerIDs returns customers that are neither guests nor deleted
func (c *Catalog) ListRegisteredCustomerIDs(ctx context.Context) ([]int64, error) {
	return c.listIDs(ctx, `SELECT id FROM customers WHERE NOT guest AND NOT deleted ORDER BY id`)
}

// CustomerStats aggregates the live orders of a customer in one store
func (c *Catalog) CustomerStats(ctx context.Context, customerID, storeID int64) (*domain.CustomerStats, error) {
	var stats domain.CustomerStats
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE customer_id = $1 AND store_id = $2 AND NOT deleted`,
		customerID, storeID).Scan(&stats.OrdersCount, &stats.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("customer stats %d: %w", customerID, err)
	}
	return &stats, nil
}

// GetProducts returns the products that still exist
func (c *Catalog) GetProducts(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		var inventory string
		var storeIDs pq.Int64Array
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Sku, &p.Price, &p.URL, &p.ImageURL,
			&p.Vendor, &p.Category, &p.Published, &p.Deleted, &p.StockQuantity, &inventory, &storeIDs)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Inventory = domain.InventoryMode(inventory)
		p.StoreIDs = []int64(storeIDs)
		products = append(products, &p)
	}
	return products, rows.Err()
}

// ListProductIDs returns every product id
func (c *Catalog) ListProductIDs(ctx context.Context) ([]int64, error) {
	return c.listIDs(ctx, `SELECT id FROM products ORDER BY id`)
}

// GetCombinations returns the combinations that still exist
func (c *Catalog) GetCombinations(ctx context.Context, ids []int64) ([]*domain.Combination, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.queryCombinations(ctx, `SELECT `+combinationColumns+`
		FROM product_attribute_combinations c
		WHERE c.id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], c.id)`, pq.Array(ids))
}

// CombinationsByProduct returns the combinations of one product
func (c *Catalog) CombinationsByProduct(ctx context.Context, productID int64) ([]*domain.Combination, error) {
	return c.queryCombinations(ctx, `SELECT `+combinationColumns+`
		FROM product_attribute_combinations c
		WHERE c.product_id = $1
		ORDER BY c.id`, productID)
}

// CombinationsByAttributeMapping returns combinations built from an attribute mapping
func (c *Catalog) CombinationsByAttributeMapping(ctx context.Context, mappingID int64) ([]*domain.Combination, error) {
	return c.combinationsLinkedBy(ctx, "attribute_mapping_id", mappingID)
}

// CombinationsByAttributeValue returns combinations built from an attribute value
func (c *Catalog) CombinationsByAttributeValue(ctx context.Context, valueID int64) ([]*domain.Combination, error) {
	return c.combinationsLinkedBy(ctx, "attribute_value_id", valueID)
}

// CombinationsByAttribute returns combinations built from any value of an attribute
func (c *Catalog) CombinationsByAttribute(ctx context.Context, attributeID int64) ([]*domain.Combination, error) {
	return c.combinationsLinkedBy(ctx, "attribute_id", attributeID)
}

// combinationsLinkedBy filters the link table on a fixed column name
func (c *Catalog) combinationsLinkedBy(ctx context.Context, column string, id int64) ([]*domain.Combination, error) {
	query := `SELECT ` + combinationColumns + `
		FROM product_attribute_combinations c
		WHERE c.id IN (
			SELECT combination_id FROM product_attribute_combination_values WHERE ` + column + ` = $1
		)
		ORDER BY c.id`
	return c.queryCombinations(ctx, query, id)
}

func (c *Catalog) queryCombinations(ctx context.Context, query string, args ...any) ([]*domain.Combination, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get combinations: %w", err)
	}
	defer rows.Close()

	var combinations []*domain.Combination
	for rows.Next() {
		var comb domain.Combination
		var price sql.NullFloat64
		if err := rows.Scan(&comb.ID, &comb.ProductID, &comb.Sku, &price, &comb.StockQuantity, &comb.ImageURL); err != nil {
			return nil, fmt.Errorf("scan combination: %w", err)
		}
		if price.Valid {
			comb.OverriddenPrice = &price.Float64
		}
		combinations = append(combinations, &comb)
	}
	return combinations, rows.Err()
}

// GetOrders returns the orders that still exist with their lines
func (c *Catalog) GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	byID := make(map[int64]*domain.Order)
	for rows.Next() {
		var o domain.Order
		var shipping, billing []byte
		err := rows.Scan(&o.ID, &o.CustomerID, &o.StoreID, &o.GuestCustomer, &o.Deleted, &o.PaymentStatus,
			&o.OrderStatus, &o.CurrencyCode, &o.Total, &o.Tax, &o.Shipping, &o.CreatedAt, &shipping, &billing)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.ShippingAddress, err = decodeAddress(shipping); err != nil {
			return nil, err
		}
		if o.BillingAddress, err = decodeAddress(billing); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	lineRows, err := c.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, combination_id, price, quantity
		FROM order_lines
		WHERE order_id = ANY($1::bigint[])
		ORDER BY order_id, id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var orderID int64
		var line domain.OrderLine
		if err := lineRows.Scan(&orderID, &line.ID, &line.ProductID, &line.CombinationID, &line.Price, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return orders, lineRows.Err()
}

// ListOrderIDs returns every order id
func (c *Catalog) ListOrderIDs(ctx context.Context) ([]int64, error) {
	return c.listIDs(ctx, `SELECT id FROM orders ORDER BY id`)
}

// ListCarts groups the cart lines of registered customers in one store.
// The checkout URL is the store URL with a /cart path.
func (c *Catalog) ListCarts(ctx context.Context, storeID int64) ([]*domain.Cart, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT cl.customer_id, s.url, cl.id, cl.product_id, cl.combination_id, cl.price, cl.quantity
		FROM cart_lines cl
		JOIN customers cu ON cu.id = cl.customer_id AND NOT cu.guest AND NOT cu.deleted
		JOIN stores s ON s.id = cl.store_id
		WHERE cl.store_id = $1
		ORDER BY cl.customer_id, cl.id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list carts of store %d: %w", storeID, err)
	}
	defer rows.Close()

	var carts []*domain.Cart
	var current *domain.Cart
	for rows.Next() {
		var customerID int64
		var storeURL string
		var line domain.OrderLine
		if err := rows.Scan(&customerID, &storeURL, &line.ID, &line.ProductID, &line.CombinationID, &line.Price, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if current == nil || current.CustomerID != customerID {
			current = &domain.Cart{
				CustomerID:  customerID,
				StoreID:     storeID,
				CheckoutURL: checkoutURL(storeURL),
			}
			carts = append(carts, current)
		}
		current.Lines = append(current.Lines, line)
	}
	return carts, rows.Err()
}

// SetActive activates or deactivates a subscription
func (c *Catalog) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := c.db.ExecContext(ctx, `UPDATE newsletter_subscriptions SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set subscription %d active: %w", id, err)
	}
	return expectRow(result)
}

// CreateSubscription inserts a subscription and assigns its ID
func (c *Catalog) CreateSubscription(ctx context.Context, subscription *domain.Subscription) error {
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscriptions (guid, email, store_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		subscription.GUID,
		subscription.Email,
		subscription.StoreID,
		subscription.Active,
		subscription.CreatedAt,
	).Scan(&subscription.ID)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (c *Catalog) listIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanStore(row rowScanner) (*domain.Store, error) {
	var s domain.Store
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.Phone, &s.LanguageCode, &s.Timezone, &s.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(&s.ID, &s.GUID, &s.Email, &s.StoreID, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var cu domain.Customer
	var address []byte
	err := row.Scan(&cu.ID, &cu.Email, &cu.FirstName, &cu.LastName, &cu.Company, &cu.LanguageCode,
		&cu.Guest, &cu.Deleted, &address)
	if err != nil {
		return nil, err
	}
	if cu.Address, err = decodeAddress(address); err != nil {
		return nil, err
	}
	return &cu, nil
}

// decodeAddress parses a JSONB address column, nil when NULL
func decodeAddress(raw []byte) (*domain.Address, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var address domain.Address
	if err := json.Unmarshal(raw, &address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	return &address, nil
}

func checkoutURL(storeURL string) string {
	if storeURL == "" {
		return ""
	}
	return strings.TrimRight(storeURL, "/") + "/cart"
}
