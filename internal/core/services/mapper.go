package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// CartLister returns the remote cart ids of a store
type CartLister interface {
	CartIDs(ctx context.Context, storeID string) ([]string, error)
}

// OperationMapper turns pending ledger records into remote operations.
// Payloads are built from the host catalog as it is at drain time, so records
// whose entity disappeared in the meantime produce no operation.
type OperationMapper struct {
	ledger  driving.Ledger
	catalog driven.Catalog
	logger  *slog.Logger
}

// MapperConfig holds dependencies for OperationMapper.
type MapperConfig struct {
	Ledger  driving.Ledger
	Catalog driven.Catalog
	Logger  *slog.Logger
}

// NewOperationMapper creates a new operation mapper.
func NewOperationMapper(cfg MapperConfig) *OperationMapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationMapper{ledger: cfg.Ledger, catalog: cfg.Catalog, logger: logger}
}

// scope is a host store with a destination list
type scope struct {
	store    *domain.Store
	listID   string
	remoteID string
}

// scopes returns the stores that have a destination list, ordered by id
func (m *OperationMapper) scopes(ctx context.Context, settings *domain.Settings) ([]scope, error) {
	stores, err := m.catalog.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	var result []scope
	for _, store := range stores {
		listID := settings.ListFor(store.ID)
		if listID == "" {
			continue
		}
		result = append(result, scope{store: store, listID: listID, remoteID: settings.RemoteStoreID(store.ID)})
	}
	return result, nil
}

// MapSubscriptions builds list member operations for pending subscription records
func (m *OperationMapper) MapSubscriptions(ctx context.Context, settings *domain.Settings) ([]domain.Operation, error) {
	scopes, err := m.scopes(ctx, settings)
	if err != nil {
		return nil, err
	}

	var ops []domain.Operation

	ids, err := m.pendingIDs(ctx, domain.EntityTypeSubscription, domain.OperationCreate, domain.OperationUpdate)
	if err != nil {
		return nil, err
	}
	var subscriptions []*domain.Subscription
	for _, id := range ids {
		sub, err := m.catalog.GetSubscription(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get subscription %d: %w", id, err)
		}
		subscriptions = append(subscriptions, sub)
	}

	for _, sc := range scopes {
		for _, sub := range subscriptions {
			if sub.StoreID != sc.store.ID || sub.Email == "" {
				continue
			}
			member, err := m.member(ctx, sub)
			if err != nil {
				return nil, err
			}
			op, err := newOperation(domain.OperationCreateOrUpdate,
				domain.SubscriptionOperationID(domain.OperationCreateOrUpdate, sub.ID, sc.listID),
				domain.MembersPath(sc.listID, sub.Email), member)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}

	deletes, err := m.ledger.DrainPending(ctx, domain.EntityTypeSubscription, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	// One operation per member path: an id-keyed delete and an email-keyed
	// unsubscribe of the same address collapse into one DELETE.
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		seen[op.Path] = true
	}
	for _, sc := range scopes {
		for _, record := range deletes {
			if record.Email == "" {
				continue
			}
			path := domain.MembersPath(sc.listID, record.Email)
			if seen[path] {
				continue
			}
			// The address may have subscribed again in this store.
			if _, err := m.catalog.FindSubscription(ctx, record.Email, sc.store.ID); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("find subscription: %w", err)
			}
			id := domain.SubscriptionOperationID(domain.OperationDelete, record.EntityID, sc.listID)
			if record.EntityID == 0 {
				id = domain.MemberOperationID(domain.OperationDelete, record.Email, sc.listID)
			}
			op, _ := newOperation(domain.OperationDelete, id, path, nil)
			ops = append(ops, op)
			seen[path] = true
		}
	}

	return ops, nil
}

func (m *OperationMapper) member(ctx context.Context, sub *domain.Subscription) (*domain.Member, error) {
	status := domain.MemberUnsubscribed
	if sub.Active {
		status = domain.MemberSubscribed
	}
	member := &domain.Member{
		EmailAddress:    sub.Email,
		Status:          status,
		StatusIfNew:     status,
		TimestampSignup: sub.CreatedAt.UTC().Format(timestampLayout),
	}

	customer, err := m.catalog.FindCustomerByEmail(ctx, sub.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return member, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer.Guest {
		return member, nil
	}
	member.Language = customer.LanguageCode
	if customer.FirstName != "" || customer.LastName != "" {
		member.MergeFields = map[string]string{
			domain.MergeFieldFirstName: customer.FirstName,
			domain.MergeFieldLastName:  customer.LastName,
		}
	}
	return member, nil
}

// PendingStoreCreates returns the remote stores to create before batching
func (m *OperationMapper) PendingStoreCreates(ctx context.Context, settings *domain.Settings) ([]*domain.RemoteStore, error) {
	ids, err := m.pendingIDs(ctx, domain.EntityTypeStore, domain.OperationCreate)
	if err != nil {
		return nil, err
	}
	scopes, err := m.scopes(ctx, settings)
	if err != nil {
		return nil, err
	}

	var stores []*domain.RemoteStore
	for _, sc := range scopes {
		if containsID(ids, sc.store.ID) {
			stores = append(stores, m.remoteStore(settings, sc))
		}
	}
	return stores, nil
}

// MapEcommerce builds store, customer, product, variant, order and cart operations
func (m *OperationMapper) MapEcommerce(ctx context.Context, settings *domain.Settings, carts CartLister) ([]domain.Operation, error) {
	scopes, err := m.scopes(ctx, settings)
	if err != nil {
		return nil, err
	}

	steps := []func(context.Context, *domain.Settings, []scope) ([]domain.Operation, error){
		m.storeOperations,
		m.customerOperations,
		m.productOperations,
		m.variantOperations,
		m.orderOperations,
	}
	var ops []domain.Operation
	for _, step := range steps {
		stepOps, err := step(ctx, settings, scopes)
		if err != nil {
			return nil, err
		}
		ops = append(ops, stepOps...)
	}

	cartOps, err := m.cartOperations(ctx, settings, scopes, carts)
	if err != nil {
		return nil, err
	}
	return append(ops, cartOps...), nil
}

func (m *OperationMapper) storeOperations(ctx context.Context, settings *domain.Settings, scopes []scope) ([]domain.Operation, error) {
	var ops []domain.Operation

	updates, err := m.pendingIDs(ctx, domain.EntityTypeStore, domain.OperationUpdate)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		if !containsID(updates, sc.store.ID) {
			continue
		}
		op, err := newOperation(domain.OperationUpdate,
			domain.StoreOperationID(domain.OperationUpdate, sc.store.ID),
			domain.StorePath(sc.remoteID), m.remoteStore(settings, sc))
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	deletes, err := m.pendingIDs(ctx, domain.EntityTypeStore, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	for _, id := range deletes {
		op, _ := newOperation(domain.OperationDelete,
			domain.StoreOperationID(domain.OperationDelete, id),
			domain.StorePath(settings.RemoteStoreID(id)), nil)
		ops = append(ops, op)
	}
	return ops, nil
}

func (m *OperationMapper) remoteStore(settings *domain.Settings, sc scope) *domain.RemoteStore {
	currency := sc.store.DefaultCurrency
	if currency == "" {
		currency = currencyCode(settings)
	}
	return &domain.RemoteStore{
		ID:            sc.remoteID,
		ListID:        sc.listID,
		Name:          sc.store.Name,
		Domain:        sc.store.URL,
		CurrencyCode:  currency,
		PrimaryLocale: sc.store.LanguageCode,
		Phone:         sc.store.Phone,
		Timezone:      sc.store.Timezone,
	}
}

func (m *OperationMapper) customerOperations(ctx context.Context, settings *domain.Settings, scopes []scope) ([]domain.Operation, error) {
	var ops []domain.Operation

	ids, err := m.pendingIDs(ctx, domain.EntityTypeCustomer, domain.OperationCreate, domain.OperationUpdate)
	if err != nil {
		return nil, err
	}
	customers, err := m.catalog.GetCustomers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get customers: %w", err)
	}
	for _, sc := range scopes {
		for _, customer := range customers {
			if customer.Guest {
				continue
			}
			stats, err := m.catalog.CustomerStats(ctx, customer.ID, sc.store.ID)
			if err != nil {
				return nil, fmt.Errorf("customer stats: %w", err)
			}
			op, err := newOperation(domain.OperationCreateOrUpdate,
				domain.CustomerOperationID(domain.OperationCreateOrUpdate, customer.ID, sc.store.ID),
				domain.CustomerPath(sc.remoteID, customer.ID), remoteCustomer(customer, stats))
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}

	deletes, err := m.pendingIDs(ctx, domain.EntityTypeCustomer, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		for _, id := range deletes {
			op, _ := newOperation(domain.OperationDelete,
				domain.CustomerOperationID(domain.OperationDelete, id, sc.store.ID),
				domain.CustomerPath(sc.remoteID, id), nil)
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func remoteCustomer(customer *domain.Customer, stats *domain.CustomerStats) *domain.RemoteCustomer {
	optIn := false
	orders := stats.OrdersCount
	spent := stats.TotalSpent
	rc := &domain.RemoteCustomer{
		ID:           strconv.FormatInt(customer.ID, 10),
		EmailAddress: customer.Email,
		OptInStatus:  &optIn,
		Company:      customer.Company,
		FirstName:    customer.FirstName,
		LastName:     customer.LastName,
		OrdersCount:  &orders,
		TotalSpent:   &spent,
	}
	if customer.Address != nil {
		rc.Address = remoteAddress(customer.Address)
	}
	return rc
}

func remoteAddress(a *domain.Address) *domain.RemoteAddress {
	if a == nil {
		return nil
	}
	return &domain.RemoteAddress{
		Company:      a.Company,
		Phone:        a.Phone,
		Address1:     a.Address1,
		Address2:     a.Address2,
		City:         a.City,
		Province:     a.Province,
		ProvinceCode: a.ProvinceCode,
		Country:      a.Country,
		CountryCode:  a.CountryCode,
		PostalCode:   a.PostalCode,
	}
}

func (m *OperationMapper) productOperations(ctx context.Context, settings *domain.Settings, scopes []scope) ([]domain.Operation, error) {
	var ops []domain.Operation

	for _, opType := range []domain.OperationType{domain.OperationCreate, domain.OperationUpdate} {
		ids, err := m.pendingIDs(ctx, domain.EntityTypeProduct, opType)
		if err != nil {
			return nil, err
		}
		products, err := m.catalog.GetProducts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get products: %w", err)
		}
		for _, sc := range scopes {
			for _, product := range products {
				if !product.AvailableIn(sc.store.ID) {
					continue
				}
				productOps, err := m.productOperation(ctx, opType, sc, product)
				if err != nil {
					return nil, err
				}
				ops = append(ops, productOps...)
			}
		}
	}

	deletes, err := m.pendingIDs(ctx, domain.EntityTypeProduct, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		for _, id := range deletes {
			op, _ := newOperation(domain.OperationDelete,
				domain.ProductOperationID(domain.OperationDelete, id, sc.store.ID),
				domain.ProductPath(sc.remoteID, id), nil)
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (m *OperationMapper) productOperation(ctx context.Context, opType domain.OperationType, sc scope, product *domain.Product) ([]domain.Operation, error) {
	body, err := m.remoteProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	if opType == domain.OperationCreate {
		op, err := newOperation(opType,
			domain.ProductOperationID(opType, product.ID, sc.store.ID),
			domain.ProductPath(sc.remoteID, 0), body)
		if err != nil {
			return nil, err
		}
		return []domain.Operation{op}, nil
	}

	productOp, err := newOperation(opType,
		domain.ProductOperationID(opType, product.ID, sc.store.ID),
		domain.ProductPath(sc.remoteID, product.ID), body)
	if err != nil {
		return nil, err
	}
	// The default variant is not updated with its product.
	variantOp, err := newOperation(opType,
		domain.VariantOperationID(opType, domain.DefaultVariantID, product.ID, sc.store.ID),
		domain.VariantPath(sc.remoteID, product.ID, domain.DefaultVariantID), defaultVariant(product))
	if err != nil {
		return nil, err
	}
	return []domain.Operation{productOp, variantOp}, nil
}

func (m *OperationMapper) remoteProduct(ctx context.Context, product *domain.Product) (*domain.RemoteProduct, error) {
	description := product.Description
	if description == "" {
		description = product.Name
	}
	rp := &domain.RemoteProduct{
		ID:          strconv.FormatInt(product.ID, 10),
		Title:       product.Name,
		URL:         product.URL,
		Description: description,
		Type:        product.Category,
		Vendor:      product.Vendor,
		ImageURL:    product.ImageURL,
		Variants:    []domain.RemoteVariant{*defaultVariant(product)},
	}

	combinations, err := m.catalog.CombinationsByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("combinations of product %d: %w", product.ID, err)
	}
	for _, c := range combinations {
		rp.Variants = append(rp.Variants, *combinationVariant(product, c))
	}
	return rp, nil
}

func defaultVariant(product *domain.Product) *domain.RemoteVariant {
	return &domain.RemoteVariant{
		ID:                domain.DefaultVariantID,
		Title:             product.Name,
		URL:               product.URL,
		Sku:               product.Sku,
		Price:             product.Price,
		InventoryQuantity: product.InventoryQuantity(),
		ImageURL:          product.ImageURL,
		Visibility:        strconv.FormatBool(product.Published),
	}
}

func combinationVariant(product *domain.Product, c *domain.Combination) *domain.RemoteVariant {
	v := &domain.RemoteVariant{
		ID:                strconv.FormatInt(c.ID, 10),
		Title:             product.Name,
		URL:               product.URL,
		Sku:               c.Sku,
		Price:             product.Price,
		InventoryQuantity: product.InventoryQuantity(),
		ImageURL:          c.ImageURL,
		Visibility:        strconv.FormatBool(product.Published),
	}
	if v.Sku == "" {
		v.Sku = product.Sku
	}
	if c.OverriddenPrice != nil {
		v.Price = *c.OverriddenPrice
	}
	if product.Inventory == domain.InventoryManagedByAttributes {
		v.InventoryQuantity = c.StockQuantity
	}
	if v.ImageURL == "" {
		v.ImageURL = product.ImageURL
	}
	return v
}

func (m *OperationMapper) variantOperations(ctx context.Context, settings *domain.Settings, scopes []scope) ([]domain.Operation, error) {
	var ops []domain.Operation

	ids, err := m.pendingIDs(ctx, domain.EntityTypeAttributeCombination, domain.OperationCreate, domain.OperationUpdate)
	if err != nil {
		return nil, err
	}
	combinations, err := m.catalog.GetCombinations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get combinations: %w", err)
	}
	productIDs := make([]int64, 0, len(combinations))
	for _, c := range combinations {
		if !containsID(productIDs, c.ProductID) {
			productIDs = append(productIDs, c.ProductID)
		}
	}
	products, err := m.catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, sc := range scopes {
		for _, c := range combinations {
			product, ok := byID[c.ProductID]
			if !ok || !product.AvailableIn(sc.store.ID) {
				continue
			}
			variantID := strconv.FormatInt(c.ID, 10)
			op, err := newOperation(domain.OperationCreateOrUpdate,
				domain.VariantOperationID(domain.OperationCreateOrUpdate, variantID, c.ProductID, sc.store.ID),
				domain.VariantPath(sc.remoteID, c.ProductID, variantID), combinationVariant(product, c))
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}

	deletes, err := m.ledger.DrainPending(ctx, domain.EntityTypeAttributeCombination, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		for _, record := range deletes {
			if record.ProductID == 0 {
				m.logger.Warn("skipping variant delete without product", "combination_id", record.EntityID)
				continue
			}
			variantID := strconv.FormatInt(record.EntityID, 10)
			op, _ := newOperation(domain.OperationDelete,
				domain.VariantOperationID(domain.OperationDelete, variantID, record.ProductID, sc.store.ID),
				domain.VariantPath(sc.remoteID, record.ProductID, variantID), nil)
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (m *OperationMapper) orderOperations(ctx context.Context, settings *domain.Settings, scopes []scope) ([]domain.Operation, error) {
	var ops []domain.Operation

	for _, opType := range []domain.OperationType{domain.OperationCreate, domain.OperationUpdate} {
		ids, err := m.pendingIDs(ctx, domain.EntityTypeOrder, opType)
		if err != nil {
			return nil, err
		}
		orders, err := m.catalog.GetOrders(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get orders: %w", err)
		}
		for _, sc := range scopes {
			for _, order := range orders {
				if order.GuestCustomer || order.StoreID != sc.store.ID {
					continue
				}
				path := domain.OrderPath(sc.remoteID, order.ID)
				if opType == domain.OperationCreate {
					path = domain.OrderPath(sc.remoteID, 0)
				}
				op, err := newOperation(opType,
					domain.OrderOperationID(opType, order.ID, sc.store.ID), path, remoteOrder(settings, order))
				if err != nil {
					return nil, err
				}
				ops = append(ops, op)
			}
		}
	}

	deletes, err := m.pendingIDs(ctx, domain.EntityTypeOrder, domain.OperationDelete)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		for _, id := range deletes {
			op, _ := newOperation(domain.OperationDelete,
				domain.OrderOperationID(domain.OperationDelete, id, sc.store.ID),
				domain.OrderPath(sc.remoteID, id), nil)
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func remoteOrder(settings *domain.Settings, order *domain.Order) *domain.RemoteOrder {
	currency := order.CurrencyCode
	if currency == "" {
		currency = currencyCode(settings)
	}
	return &domain.RemoteOrder{
		ID:                 strconv.FormatInt(order.ID, 10),
		Customer:           domain.RemoteCustomerRef{ID: strconv.FormatInt(order.CustomerID, 10)},
		FinancialStatus:    strconv.Itoa(order.PaymentStatus),
		FulfillmentStatus:  strconv.Itoa(order.OrderStatus),
		CurrencyCode:       currency,
		OrderTotal:         order.Total,
		TaxTotal:           order.Tax,
		ShippingTotal:      order.Shipping,
		ProcessedAtForeign: order.CreatedAt.UTC().Format(timestampLayout),
		ShippingAddress:    remoteAddress(order.ShippingAddress),
		BillingAddress:     remoteAddress(order.BillingAddress),
		Lines:              remoteLines(order.Lines),
	}
}

func remoteLines(lines []domain.OrderLine) []domain.RemoteLine {
	result := make([]domain.RemoteLine, 0, len(lines))
	for _, line := range lines {
		variantID := domain.DefaultVariantID
		if line.CombinationID > 0 {
			variantID = strconv.FormatInt(line.CombinationID, 10)
		}
		result = append(result, domain.RemoteLine{
			ID:               strconv.FormatInt(line.ID, 10),
			ProductID:        strconv.FormatInt(line.ProductID, 10),
			ProductVariantID: variantID,
			Quantity:         line.Quantity,
			Price:            line.Price,
		})
	}
	return result
}

// cartOperations diffs host carts against the carts the remote store already holds
func (m *OperationMapper) cartOperations(ctx context.Context, settings *domain.Settings, scopes []scope, lister CartLister) ([]domain.Operation, error) {
	var ops []domain.Operation

	for _, sc := range scopes {
		carts, err := m.catalog.ListCarts(ctx, sc.store.ID)
		if err != nil {
			return nil, fmt.Errorf("list carts: %w", err)
		}

		var remoteIDs []string
		if lister != nil {
			remoteIDs, err = lister.CartIDs(ctx, sc.remoteID)
			if err != nil {
				logRemoteError(m.logger, "list remote carts", err)
				remoteIDs = nil
			}
		}
		remote := make(map[string]bool, len(remoteIDs))
		for _, id := range remoteIDs {
			remote[id] = true
		}

		local := make(map[string]bool, len(carts))
		for _, cart := range carts {
			customerID := strconv.FormatInt(cart.CustomerID, 10)
			local[customerID] = true

			opType, path := domain.OperationCreate, domain.CartPath(sc.remoteID, "")
			if remote[customerID] {
				opType, path = domain.OperationUpdate, domain.CartPath(sc.remoteID, customerID)
			}
			op, err := newOperation(opType, domain.CartOperationID(opType, customerID, sc.store.ID), path, remoteCart(settings, cart))
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}

		for _, id := range remoteIDs {
			if local[id] {
				continue
			}
			op, _ := newOperation(domain.OperationDelete,
				domain.CartOperationID(domain.OperationDelete, id, sc.store.ID),
				domain.CartPath(sc.remoteID, id), nil)
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func remoteCart(settings *domain.Settings, cart *domain.Cart) *domain.RemoteCart {
	customerID := strconv.FormatInt(cart.CustomerID, 10)
	return &domain.RemoteCart{
		ID:           customerID,
		Customer:     domain.RemoteCustomerRef{ID: customerID},
		CheckoutURL:  cart.CheckoutURL,
		CurrencyCode: currencyCode(settings),
		OrderTotal:   cart.Total(),
		Lines:        remoteLines(cart.Lines),
	}
}

// pendingIDs returns the distinct entity ids of pending records in ledger order
func (m *OperationMapper) pendingIDs(ctx context.Context, entityType domain.EntityType, ops ...domain.OperationType) ([]int64, error) {
	var ids []int64
	for _, op := range ops {
		records, err := m.ledger.DrainPending(ctx, entityType, op)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.EntityID > 0 && !containsID(ids, r.EntityID) {
				ids = append(ids, r.EntityID)
			}
		}
	}
	return ids, nil
}

// newOperation encodes body as the operation payload, nil means no body
func newOperation(opType domain.OperationType, id, path string, body any) (domain.Operation, error) {
	op := domain.Operation{ID: id, Method: domain.MethodFor(opType), Path: path}
	if body == nil {
		return op, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return domain.Operation{}, fmt.Errorf("encode %s: %w", id, err)
	}
	op.Body = string(data)
	return op, nil
}

func currencyCode(settings *domain.Settings) string {
	if settings.CurrencyCode != "" {
		return settings.CurrencyCode
	}
	return domain.DefaultCurrencyCode
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
