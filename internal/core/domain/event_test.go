package domain

import (
	"errors"
	"testing"
)

func TestChangeEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   ChangeEvent
		wantErr bool
	}{
		{"product inserted", ChangeEvent{Entity: EventEntityProduct, Action: EventInserted, ID: 1}, false},
		{"customer registered", ChangeEvent{Entity: EventEntityCustomer, Action: EventRegistered, ID: 3}, false},
		{"unsubscribed by email", ChangeEvent{Entity: EventEntitySubscription, Action: EventUnsubscribed, Email: "a@x.com"}, false},
		{"unsubscribed without email", ChangeEvent{Entity: EventEntitySubscription, Action: EventUnsubscribed}, true},
		{"order unsubscribed", ChangeEvent{Entity: EventEntityOrder, Action: EventUnsubscribed, Email: "a@x.com"}, true},
		{"store registered", ChangeEvent{Entity: EventEntityStore, Action: EventRegistered, ID: 1}, true},
		{"unknown entity", ChangeEvent{Entity: "vendor", Action: EventInserted, ID: 1}, true},
		{"unknown action", ChangeEvent{Entity: EventEntityStore, Action: "moved", ID: 1}, true},
		{"missing id", ChangeEvent{Entity: EventEntityStore, Action: EventUpdated}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseChangeEvent(t *testing.T) {
	event, err := ParseChangeEvent([]byte(`{"entity":"subscription","action":"unsubscribed","email":"jane@example.com"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Entity != EventEntitySubscription || event.Action != EventUnsubscribed || event.Email != "jane@example.com" {
		t.Errorf("unexpected event %+v", event)
	}

	for _, raw := range []string{`{`, `{"id":4}`, `[]`} {
		if _, err := ParseChangeEvent([]byte(raw)); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%s: expected ErrMalformedPayload, got %v", raw, err)
		}
	}
}
