package oauth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("expected distinct state tokens")
	}
}

func TestMemoryStateStoreConsume(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	req := AuthorizationRequest{State: "abc", RedirectURI: "http://localhost:3001/auth/oauth/callback"}
	if err := store.Save(ctx, req, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored request")
	}
	if got.RedirectURI != req.RedirectURI {
		t.Errorf("expected redirect uri %q, got %q", req.RedirectURI, got.RedirectURI)
	}

	// A state token redeems at most once.
	again, err := store.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if again != nil {
		t.Error("expected second consume to miss")
	}
}

func TestMemoryStateStoreUnknownState(t *testing.T) {
	store := NewMemoryStateStore()
	got, err := store.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Error("expected unknown state to miss")
	}
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	if err := store.Save(ctx, AuthorizationRequest{State: "xyz"}, 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	store.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }
	got, err := store.Consume(ctx, "xyz")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Error("expected expired state to miss")
	}
}
