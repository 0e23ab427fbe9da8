package domain

// Remote payloads. Field names follow the remote API; empty values are omitted
// so PATCH bodies never clear remote fields by accident.

// Member statuses
const (
	MemberSubscribed   = "subscribed"
	MemberUnsubscribed = "unsubscribed"
)

// Merge field names for member names
const (
	MergeFieldFirstName = "FNAME"
	MergeFieldLastName  = "LNAME"
)

// Member is a list member
type Member struct {
	EmailAddress    string            `json:"email_address"`
	Status          string            `json:"status,omitempty"`
	StatusIfNew     string            `json:"status_if_new,omitempty"`
	TimestampSignup string            `json:"timestamp_signup,omitempty"`
	Language        string            `json:"language,omitempty"`
	MergeFields     map[string]string `json:"merge_fields,omitempty"`
}

// RemoteStore is an e-commerce store
type RemoteStore struct {
	ID            string `json:"id"`
	ListID        string `json:"list_id,omitempty"`
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	CurrencyCode  string `json:"currency_code,omitempty"`
	PrimaryLocale string `json:"primary_locale,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
}

// RemoteAddress is an address of a customer or an order
type RemoteAddress struct {
	Name         string `json:"name,omitempty"`
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

// RemoteCustomer is an e-commerce customer
type RemoteCustomer struct {
	ID           string         `json:"id"`
	EmailAddress string         `json:"email_address,omitempty"`
	OptInStatus  *bool          `json:"opt_in_status,omitempty"`
	Company      string         `json:"company,omitempty"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	OrdersCount  *int           `json:"orders_count,omitempty"`
	TotalSpent   *float64       `json:"total_spent,omitempty"`
	Address      *RemoteAddress `json:"address,omitempty"`
}

// RemoteVariant is a product variant
type RemoteVariant struct {
	ID                string  `json:"id"`
	Title             string  `json:"title,omitempty"`
	URL               string  `json:"url,omitempty"`
	Sku               string  `json:"sku,omitempty"`
	Price             float64 `json:"price"`
	InventoryQuantity int     `json:"inventory_quantity"`
	ImageURL          string  `json:"image_url,omitempty"`
	Visibility        string  `json:"visibility,omitempty"`
}

// RemoteProduct is an e-commerce product
type RemoteProduct struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Variants    []RemoteVariant `json:"variants,omitempty"`
}

// RemoteLine is a line of an order or a cart
type RemoteLine struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"product_id"`
	ProductVariantID string  `json:"product_variant_id"`
	Quantity         int     `json:"quantity"`
	Price            float64 `json:"price"`
}

// RemoteCustomerRef references a customer by id
type RemoteCustomerRef struct {
	ID string `json:"id"`
}

// RemoteOrder is an e-commerce order
type RemoteOrder struct {
	ID                 string            `json:"id"`
	Customer           RemoteCustomerRef `json:"customer"`
	FinancialStatus    string            `json:"financial_status,omitempty"`
	FulfillmentStatus  string            `json:"fulfillment_status,omitempty"`
	CurrencyCode       string            `json:"currency_code"`
	OrderTotal         float64           `json:"order_total"`
	TaxTotal           float64           `json:"tax_total"`
	ShippingTotal      float64           `json:"shipping_total"`
	ProcessedAtForeign string            `json:"processed_at_foreign,omitempty"`
	ShippingAddress    *RemoteAddress    `json:"shipping_address,omitempty"`
	BillingAddress     *RemoteAddress    `json:"billing_address,omitempty"`
	Lines              []RemoteLine      `json:"lines"`
}

// RemoteCart is an e-commerce cart
type RemoteCart struct {
	ID           string            `json:"id"`
	Customer     RemoteCustomerRef `json:"customer"`
	CheckoutURL  string            `json:"checkout_url,omitempty"`
	CurrencyCode string            `json:"currency_code"`
	OrderTotal   float64           `json:"order_total"`
	Lines        []RemoteLine      `json:"lines"`
}

// AccountInfo is the summary of the remote account
type AccountInfo struct {
	AccountID        string `json:"account_id"`
	AccountName      string `json:"account_name"`
	Email            string `json:"email,omitempty"`
	TotalSubscribers int    `json:"total_subscribers"`
}

// List is a remote audience list
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
