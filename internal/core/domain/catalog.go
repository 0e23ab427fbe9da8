package domain

import "time"

// Host entity snapshots. The host database owns these rows; the service reads
// them at drain time and only ever writes newsletter subscriptions.

// Store is a storefront of the host system
type Store struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Phone           string `json:"phone,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	Timezone        string `json:"timezone,omitempty"`
	DefaultCurrency string `json:"default_currency,omitempty"`
}

// Address is a postal address attached to customers and orders
type Address struct {
	Company      string `json:"company,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address1     string `json:"address1,omitempty"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

// Customer is a registered or guest customer
type Customer struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	Company      string   `json:"company,omitempty"`
	LanguageCode string   `json:"language_code,omitempty"`
	Guest        bool     `json:"guest"`
	Deleted      bool     `json:"deleted"`
	Address      *Address `json:"address,omitempty"`
}

// CustomerStats aggregates a customer's orders in one store
type CustomerStats struct {
	OrdersCount int     `json:"orders_count"`
	TotalSpent  float64 `json:"total_spent"`
}

// Subscription is a newsletter subscription of an email address in one store
type Subscription struct {
	ID        int64     `json:"id"`
	GUID      string    `json:"guid"`
	Email     string    `json:"email"`
	StoreID   int64     `json:"store_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryMode mirrors how the host tracks stock for a product
type InventoryMode string

const (
	InventoryNotManaged          InventoryMode = "none"
	InventoryManaged             InventoryMode = "product"
	InventoryManagedByAttributes InventoryMode = "attributes"
)

// UnlimitedInventory is reported for products whose stock is not tracked
const UnlimitedInventory = 2147483647

// Product is a catalog product
type Product struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Sku           string        `json:"sku,omitempty"`
	Price         float64       `json:"price"`
	URL           string        `json:"url,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	Vendor        string        `json:"vendor,omitempty"`
	Category      string        `json:"category,omitempty"`
	Published     bool          `json:"published"`
	Deleted       bool          `json:"deleted"`
	StockQuantity int           `json:"stock_quantity"`
	Inventory     InventoryMode `json:"inventory"`

	// StoreIDs limits the product to these stores, empty means every store
	StoreIDs []int64 `json:"store_ids,omitempty"`
}

// AvailableIn reports whether the product is mapped to a store
func (p *Product) AvailableIn(storeID int64) bool {
	if len(p.StoreIDs) == 0 {
		return true
	}
	for _, id := range p.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// InventoryQuantity is the stock reported for the product itself
func (p *Product) InventoryQuantity() int {
	if p.Inventory == InventoryNotManaged || p.Inventory == "" {
		return UnlimitedInventory
	}
	return p.StockQuantity
}

// Combination is a product attribute combination, synchronized as a product variant
type Combination struct {
	ID              int64    `json:"id"`
	ProductID       int64    `json:"product_id"`
	Sku             string   `json:"sku,omitempty"`
	OverriddenPrice *float64 `json:"overridden_price,omitempty"`
	StockQuantity   int      `json:"stock_quantity"`
	ImageURL        string   `json:"image_url,omitempty"`
}

// OrderLine is an item of an order or a shopping cart
type OrderLine struct {
	ID            int64   `json:"id"`
	ProductID     int64   `json:"product_id"`
	CombinationID int64   `json:"combination_id,omitempty"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
}

// Order is a placed order
type Order struct {
	ID              int64       `json:"id"`
	CustomerID      int64       `json:"customer_id"`
	StoreID         int64       `json:"store_id"`
	GuestCustomer   bool        `json:"guest_customer"`
	Deleted         bool        `json:"deleted"`
	PaymentStatus   int         `json:"payment_status"`
	OrderStatus     int         `json:"order_status"`
	CurrencyCode    string      `json:"currency_code,omitempty"`
	Total           float64     `json:"total"`
	Tax             float64     `json:"tax"`
	Shipping        float64     `json:"shipping"`
	CreatedAt       time.Time   `json:"created_at"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
	BillingAddress  *Address    `json:"billing_address,omitempty"`
	Lines           []OrderLine `json:"lines"`
}

// Cart is the shopping cart of a registered customer in one store
type Cart struct {
	CustomerID  int64       `json:"customer_id"`
	StoreID     int64       `json:"store_id"`
	CheckoutURL string      `json:"checkout_url,omitempty"`
	Lines       []OrderLine `json:"lines"`
}

// Total sums the line prices
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.Lines {
		total += line.Price
	}
	return total
}
