package domain

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseBatchNotification(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantErr    bool
		wantID     string
		wantFinish bool
	}{
		{
			name:       "finished",
			form:       url.Values{"type": {"batch_operation_completed"}, "data[id]": {"B1"}, "data[status]": {"finished"}},
			wantID:     "B1",
			wantFinish: true,
		},
		{
			name:   "started",
			form:   url.Values{"type": {"batch_operation_completed"}, "data[id]": {"B1"}, "data[status]": {"started"}},
			wantID: "B1",
		},
		{name: "empty", form: url.Values{}, wantErr: true},
		{name: "wrong type", form: url.Values{"type": {"subscribe"}, "data[id]": {"B1"}, "data[status]": {"finished"}}, wantErr: true},
		{name: "missing id", form: url.Values{"type": {"batch_operation_completed"}, "data[status]": {"finished"}}, wantErr: true},
		{name: "missing status", form: url.Values{"type": {"batch_operation_completed"}, "data[id]": {"B1"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseBatchNotification(tt.form)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Errorf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.BatchID != tt.wantID {
				t.Errorf("expected batch %q, got %q", tt.wantID, n.BatchID)
			}
			if n.IsFinished() != tt.wantFinish {
				t.Errorf("expected finished=%v", tt.wantFinish)
			}
		})
	}
}

func TestParseSubscriptionNotification(t *testing.T) {
	form := url.Values{"type": {"unsubscribe"}, "data[email]": {"a@x.com"}, "data[list_id]": {"L1"}}
	n, err := ParseSubscriptionNotification(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ListID != "L1" || n.Email != "a@x.com" || n.Event != SubscriptionEventUnsubscribe {
		t.Errorf("unexpected notification %+v", n)
	}
	if !n.Event.Deactivates() {
		t.Error("expected unsubscribe to deactivate")
	}

	for _, missing := range []string{"type", "data[email]", "data[list_id]"} {
		broken := url.Values{}
		for k, v := range form {
			if k != missing {
				broken[k] = v
			}
		}
		if _, err := ParseSubscriptionNotification(broken); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("missing %s: expected ErrMalformedPayload, got %v", missing, err)
		}
	}
}

func TestSubscriptionEvent_Deactivates(t *testing.T) {
	if !SubscriptionEventCleaned.Deactivates() {
		t.Error("expected cleaned to deactivate")
	}
	if SubscriptionEventSubscribe.Deactivates() {
		t.Error("expected subscribe not to deactivate")
	}
}

func TestWebhook_MatchesURL(t *testing.T) {
	w := &Webhook{ID: "w1", URL: "https://Shop.example.com/webhooks/mailchimp/batch"}
	if !w.MatchesURL("https://shop.example.com/webhooks/mailchimp/batch") {
		t.Error("expected case-insensitive match")
	}
	if w.MatchesURL("https://shop.example.com/other") {
		t.Error("expected mismatch")
	}
	if (&Webhook{}).MatchesURL("") {
		t.Error("expected empty URL never to match")
	}
}
