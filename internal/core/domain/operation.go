package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HTTP methods used by batch operations
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// DefaultVariantID is the remote id of the variant every product carries implicitly
var DefaultVariantID = uuid.Nil.String()

// Operation is one remote API call inside a batch
type Operation struct {
	ID     string `json:"operation_id"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Body   string `json:"body,omitempty"`
}

// MethodFor returns the HTTP method an operation type is sent with
func MethodFor(op OperationType) string {
	switch op {
	case OperationCreate:
		return MethodPost
	case OperationUpdate:
		return MethodPatch
	case OperationDelete:
		return MethodDelete
	case OperationCreateOrUpdate:
		return MethodPut
	default:
		return MethodGet
	}
}

// operationVerb is the prefix used in operation ids
func operationVerb(op OperationType) string {
	switch op {
	case OperationCreateOrUpdate:
		return "createOrUpdate"
	default:
		return string(op)
	}
}

// MemberHash is the remote member id for an email address
func MemberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Remote API paths
func MembersPath(listID, email string) string {
	return fmt.Sprintf("/lists/%s/members/%s", listID, MemberHash(email))
}

func StorePath(remoteStoreID string) string {
	return fmt.Sprintf("/ecommerce/stores/%s", remoteStoreID)
}

func CustomerPath(remoteStoreID string, customerID int64) string {
	return fmt.Sprintf("/ecommerce/stores/%s/customers/%d", remoteStoreID, customerID)
}

// ProductPath returns the products collection path when productID is zero
func ProductPath(remoteStoreID string, productID int64) string {
	if productID == 0 {
		return fmt.Sprintf("/ecommerce/stores/%s/products", remoteStoreID)
	}
	return fmt.Sprintf("/ecommerce/stores/%s/products/%d", remoteStoreID, productID)
}

func VariantPath(remoteStoreID string, productID int64, variantID string) string {
	return fmt.Sprintf("/ecommerce/stores/%s/products/%d/variants/%s", remoteStoreID, productID, variantID)
}

// OrderPath returns the orders collection path when orderID is zero
func OrderPath(remoteStoreID string, orderID int64) string {
	if orderID == 0 {
		return fmt.Sprintf("/ecommerce/stores/%s/orders", remoteStoreID)
	}
	return fmt.Sprintf("/ecommerce/stores/%s/orders/%d", remoteStoreID, orderID)
}

// CartPath returns the carts collection path when cartID is empty
func CartPath(remoteStoreID, cartID string) string {
	if cartID == "" {
		return fmt.Sprintf("/ecommerce/stores/%s/carts", remoteStoreID)
	}
	return fmt.Sprintf("/ecommerce/stores/%s/carts/%s", remoteStoreID, cartID)
}

// Operation ids. They only need to be unique within a batch and readable in logs.

func SubscriptionOperationID(op OperationType, subscriptionID int64, listID string) string {
	return fmt.Sprintf("%s-subscription-%d-list-%s", operationVerb(op), subscriptionID, listID)
}

// MemberOperationID identifies a list member operation by address, for records without a subscription id
func MemberOperationID(op OperationType, email, listID string) string {
	return fmt.Sprintf("%s-subscription-%s-list-%s", operationVerb(op), MemberHash(email), listID)
}

func StoreOperationID(op OperationType, storeID int64) string {
	return fmt.Sprintf("%s-store-%d", operationVerb(op), storeID)
}

func CustomerOperationID(op OperationType, customerID, storeID int64) string {
	return fmt.Sprintf("%s-customer-%d-store-%d", operationVerb(op), customerID, storeID)
}

func ProductOperationID(op OperationType, productID, storeID int64) string {
	return fmt.Sprintf("%s-product-%d-store-%d", operationVerb(op), productID, storeID)
}

func VariantOperationID(op OperationType, variantID string, productID, storeID int64) string {
	return fmt.Sprintf("%s-productVariant-%s-product-%d-store-%d", operationVerb(op), variantID, productID, storeID)
}

func OrderOperationID(op OperationType, orderID, storeID int64) string {
	return fmt.Sprintf("%s-order-%d-store-%d", operationVerb(op), orderID, storeID)
}

func CartOperationID(op OperationType, customerID string, storeID int64) string {
	return fmt.Sprintf("%s-cart-%s-store-%d", operationVerb(op), customerID, storeID)
}
