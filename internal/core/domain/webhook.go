package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Batch webhook form values
const (
	BatchWebhookType = "batch_operation_completed"

	formType       = "type"
	formDataID     = "data[id]"
	formDataStatus = "data[status]"
	formListID     = "data[list_id]"
	formEmail      = "data[email]"
)

// BatchNotification is a parsed batch completion webhook
type BatchNotification struct {
	BatchID string
	Status  BatchStatus
}

// IsFinished returns true when the notification reports a finished batch
func (n *BatchNotification) IsFinished() bool {
	return n.Status == BatchStatusFinished
}

// ParseBatchNotification validates a batch webhook form
func ParseBatchNotification(form url.Values) (*BatchNotification, error) {
	if len(form) == 0 {
		return nil, fmt.Errorf("%w: empty form", ErrMalformedPayload)
	}
	if form.Get(formType) != BatchWebhookType {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrMalformedPayload, form.Get(formType))
	}
	id := strings.TrimSpace(form.Get(formDataID))
	if id == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, formDataID)
	}
	status := strings.TrimSpace(form.Get(formDataStatus))
	if status == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, formDataStatus)
	}
	return &BatchNotification{BatchID: id, Status: BatchStatus(status)}, nil
}

// SubscriptionEvent is the kind of list event sent by the subscription webhook
type SubscriptionEvent string

const (
	SubscriptionEventSubscribe   SubscriptionEvent = "subscribe"
	SubscriptionEventUnsubscribe SubscriptionEvent = "unsubscribe"
	SubscriptionEventCleaned     SubscriptionEvent = "cleaned"
)

// Deactivates returns true for events that switch the local subscription off
func (e SubscriptionEvent) Deactivates() bool {
	return e == SubscriptionEventUnsubscribe || e == SubscriptionEventCleaned
}

// SubscriptionNotification is a parsed list webhook
type SubscriptionNotification struct {
	ListID string
	Email  string
	Event  SubscriptionEvent
}

// ParseSubscriptionNotification validates a list webhook form.
// Unknown event types are accepted and ignored by the handler.
func ParseSubscriptionNotification(form url.Values) (*SubscriptionNotification, error) {
	if len(form) == 0 {
		return nil, fmt.Errorf("%w: empty form", ErrMalformedPayload)
	}
	n := &SubscriptionNotification{
		ListID: strings.TrimSpace(form.Get(formListID)),
		Email:  strings.TrimSpace(form.Get(formEmail)),
		Event:  SubscriptionEvent(strings.TrimSpace(form.Get(formType))),
	}
	switch {
	case n.ListID == "":
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, formListID)
	case n.Email == "":
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, formEmail)
	case n.Event == "":
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, formType)
	}
	return n, nil
}

// Webhook is a callback registration on the remote system
type Webhook struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	ListID string `json:"list_id,omitempty"`
}

// MatchesURL compares callback URLs case-insensitively
func (w *Webhook) MatchesURL(u string) bool {
	return w != nil && w.URL != "" && strings.EqualFold(w.URL, u)
}
