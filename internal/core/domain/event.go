package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventEntity names the host entity an event is about
type EventEntity string

const (
	EventEntityStore                EventEntity = "store"
	EventEntityCustomer             EventEntity = "customer"
	EventEntitySubscription         EventEntity = "subscription"
	EventEntityProduct              EventEntity = "product"
	EventEntityOrder                EventEntity = "order"
	EventEntityProductAttribute     EventEntity = "product_attribute"
	EventEntityAttributeMapping     EventEntity = "product_attribute_mapping"
	EventEntityAttributeValue       EventEntity = "product_attribute_value"
	EventEntityAttributeCombination EventEntity = "product_attribute_combination"
)

// EventAction is what happened to the entity
type EventAction string

const (
	EventInserted     EventAction = "inserted"
	EventUpdated      EventAction = "updated"
	EventDeleted      EventAction = "deleted"
	EventUnsubscribed EventAction = "unsubscribed"
	EventRegistered   EventAction = "registered"
)

// ChangeEvent is an entity change published by the host system
type ChangeEvent struct {
	Entity EventEntity `json:"entity"`
	Action EventAction `json:"action"`
	ID     int64       `json:"id"`

	// Email is sent for subscriptions so deletions survive the row
	Email string `json:"email,omitempty"`

	// ProductID is sent for combinations and attribute mappings
	ProductID int64 `json:"product_id,omitempty"`

	// Deleted marks a soft-deleted row on an update
	Deleted bool `json:"deleted,omitempty"`

	// Guest marks customers without a registration
	Guest bool `json:"guest,omitempty"`
}

// Validate checks the event before it reaches the ledger
func (e *ChangeEvent) Validate() error {
	switch e.Entity {
	case EventEntityStore, EventEntityCustomer, EventEntitySubscription, EventEntityProduct,
		EventEntityOrder, EventEntityProductAttribute, EventEntityAttributeMapping,
		EventEntityAttributeValue, EventEntityAttributeCombination:
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidInput, e.Entity)
	}
	switch e.Action {
	case EventInserted, EventUpdated, EventDeleted:
	case EventUnsubscribed:
		if e.Entity != EventEntitySubscription {
			return fmt.Errorf("%w: %s cannot be unsubscribed", ErrInvalidInput, e.Entity)
		}
		if strings.TrimSpace(e.Email) == "" {
			return fmt.Errorf("%w: unsubscribed event requires an email", ErrInvalidInput)
		}
		return nil
	case EventRegistered:
		if e.Entity != EventEntityCustomer {
			return fmt.Errorf("%w: %s cannot be registered", ErrInvalidInput, e.Entity)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, e.Action)
	}
	if e.ID <= 0 {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return nil
}

func (e *ChangeEvent) String() string {
	return fmt.Sprintf("%s.%s#%d", e.Entity, e.Action, e.ID)
}

// ParseChangeEvent decodes a JSON event read from an event feed.
// Only the shape is checked here, Validate applies the entity rules.
func ParseChangeEvent(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if e.Entity == "" || e.Action == "" {
		return nil, fmt.Errorf("%w: entity and action are required", ErrMalformedPayload)
	}
	return &e, nil
}
