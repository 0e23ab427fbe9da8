package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the kind of host entity a ledger record refers to
type EntityType string

const (
	EntityTypeStore                EntityType = "store"
	EntityTypeCustomer             EntityType = "customer"
	EntityTypeSubscription         EntityType = "subscription"
	EntityTypeOrder                EntityType = "order"
	EntityTypeProduct              EntityType = "product"
	EntityTypeProductAttribute     EntityType = "product_attribute"
	EntityTypeAttributeValue       EntityType = "attribute_value"
	EntityTypeAttributeCombination EntityType = "attribute_combination"
)

// EntityTypes lists every entity type in ledger order
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeStore,
		EntityTypeCustomer,
		EntityTypeSubscription,
		EntityTypeOrder,
		EntityTypeProduct,
		EntityTypeProductAttribute,
		EntityTypeAttributeValue,
		EntityTypeAttributeCombination,
	}
}

// IsValid returns true if this is a known entity type
func (t EntityType) IsValid() bool {
	for _, known := range EntityTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// OperationType is the pending change kind of a record
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"

	// OperationCreateOrUpdate is derived by the mapper and never stored
	OperationCreateOrUpdate OperationType = "create_or_update"
)

// IsStorable returns true for the operation types the ledger accepts
func (o OperationType) IsStorable() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

// SynchronizationRecord is a single pending change in the ledger
type SynchronizationRecord struct {
	ID            int64         `json:"id"`
	EntityType    EntityType    `json:"entity_type"`
	EntityID      int64         `json:"entity_id"`
	Email         string        `json:"email,omitempty"`
	ProductID     int64         `json:"product_id,omitempty"`
	OperationType OperationType `json:"operation_type"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Key returns the ledger key of the record
func (r *SynchronizationRecord) Key() RecordKey {
	return NewRecordKey(r.EntityType, r.EntityID, r.Email)
}

// RecordKey identifies the single ledger slot of an entity.
// Email only takes part in the key when the entity id is unknown.
type RecordKey struct {
	EntityType EntityType
	EntityID   int64
	EmailKey   string
}

// NewRecordKey builds a normalized key
func NewRecordKey(entityType EntityType, entityID int64, email string) RecordKey {
	key := RecordKey{EntityType: entityType, EntityID: entityID}
	if entityID == 0 {
		key.EmailKey = strings.ToLower(strings.TrimSpace(email))
	}
	return key
}

func (k RecordKey) String() string {
	if k.EntityID == 0 {
		return fmt.Sprintf("%s:email:%s", k.EntityType, k.EmailKey)
	}
	return fmt.Sprintf("%s:%d", k.EntityType, k.EntityID)
}

// Change is a request to register a pending change
type Change struct {
	EntityType    EntityType
	EntityID      int64
	OperationType OperationType
	Email         string
	ProductID     int64
}

// Key returns the ledger key the change targets
func (c Change) Key() RecordKey {
	return NewRecordKey(c.EntityType, c.EntityID, c.Email)
}

// Validate checks that the change can be stored
func (c Change) Validate() error {
	if !c.EntityType.IsValid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, c.EntityType)
	}
	if !c.OperationType.IsStorable() {
		return fmt.Errorf("%w: operation type %q cannot be recorded", ErrInvalidInput, c.OperationType)
	}
	if c.EntityID < 0 {
		return fmt.Errorf("%w: negative entity id", ErrInvalidInput)
	}
	if c.EntityID == 0 && strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: entity id or email is required", ErrInvalidInput)
	}
	return nil
}

// NewRecord creates the record inserted when no record exists for the key
func (c Change) NewRecord() *SynchronizationRecord {
	return &SynchronizationRecord{
		EntityType:    c.EntityType,
		EntityID:      c.EntityID,
		Email:         strings.TrimSpace(c.Email),
		ProductID:     c.ProductID,
		OperationType: c.OperationType,
		CreatedAt:     time.Now(),
	}
}

// MergeAction is the outcome of merging an incoming change into an existing record
type MergeAction int

const (
	// MergeKeep leaves the existing record untouched
	MergeKeep MergeAction = iota
	// MergeRemove deletes the existing record
	MergeRemove
	// MergeReplace rewrites the operation type of the existing record
	MergeReplace
)

func (a MergeAction) String() string {
	switch a {
	case MergeKeep:
		return "keep"
	case MergeRemove:
		return "remove"
	case MergeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Merge decides what happens when a change with the incoming operation type
// arrives for a key that already holds a record with the existing operation type.
// The returned operation type is only meaningful for MergeReplace.
//
//	existing create + delete -> remove (never reached the remote side)
//	existing update + delete -> replace with delete
//	existing delete + create -> replace with update (remote may still hold it)
//	everything else          -> keep
func Merge(existing, incoming OperationType) (MergeAction, OperationType) {
	switch existing {
	case OperationCreate:
		if incoming == OperationDelete {
			return MergeRemove, ""
		}
	case OperationUpdate:
		if incoming == OperationDelete {
			return MergeReplace, OperationDelete
		}
	case OperationDelete:
		if incoming == OperationCreate {
			return MergeReplace, OperationUpdate
		}
	}
	return MergeKeep, existing
}
