package runtime

import (
	"errors"
	"testing"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven/mocks"
)

func TestNewServices(t *testing.T) {
	svc := NewServices(mocks.NewMockClientFactory())

	if svc.IsConfigured() {
		t.Error("expected new registry to be unconfigured")
	}
	if _, err := svc.Client(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestServices_Configure(t *testing.T) {
	factory := mocks.NewMockClientFactory()
	svc := NewServices(factory)

	if err := svc.Configure(" key-us6 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client, err := svc.Client()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != factory.Client {
		t.Error("expected the factory client")
	}
	if factory.Keys[0] != "key-us6" {
		t.Errorf("expected trimmed key, got %q", factory.Keys[0])
	}

	// Same key keeps the client
	if err := svc.Configure("key-us6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory.Calls() != 1 {
		t.Errorf("expected 1 build, got %d", factory.Calls())
	}

	// New key rebuilds it
	if err := svc.Configure("other-us1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory.Calls() != 2 {
		t.Errorf("expected 2 builds, got %d", factory.Calls())
	}

	// Empty key removes it
	if err := svc.Configure(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.IsConfigured() {
		t.Error("expected registry to be unconfigured")
	}
}

func TestServices_ConfigureFailureKeepsClient(t *testing.T) {
	factory := mocks.NewMockClientFactory()
	svc := NewServices(factory)
	_ = svc.Configure("key-us6")

	factory.Err = errors.New("bad key")
	if err := svc.Configure("broken"); err == nil {
		t.Fatal("expected error")
	}
	if !svc.IsConfigured() {
		t.Error("expected previous client to be kept")
	}
}

func TestServices_ConcurrentAccess(t *testing.T) {
	svc := NewServices(mocks.NewMockClientFactory())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(i int) {
			if i%2 == 0 {
				_ = svc.Configure("key-us6")
			} else {
				_, _ = svc.Client()
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if !svc.IsConfigured() {
		t.Error("expected registry to be configured")
	}
}
