package user

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	u := &User{Email: "a@b.com", Name: "A B", PasswordHash: "hashed"}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}

	byID, err := store.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID == nil || byID.Email != "a@b.com" {
		t.Errorf("unexpected user: %+v", byID)
	}

	byEmail, err := store.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != u.ID {
		t.Errorf("unexpected user: %+v", byEmail)
	}

	missing, err := store.FindByEmail(ctx, "nobody@b.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if missing != nil {
		t.Errorf("expected miss, got %+v", missing)
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, &User{Email: "a@b.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, &User{Email: "a@b.com"}); err != ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestFindOrCreateOAuthIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.FindOrCreateOAuth(ctx, "a@b.com", "ext1", "A B")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if first.OAuthID != "ext1" {
		t.Errorf("expected oauth id ext1, got %q", first.OAuthID)
	}
	if first.PasswordHash != "" {
		t.Error("oauth user must have no password hash")
	}

	second, err := store.FindOrCreateOAuth(ctx, "a@b.com", "ext1", "A B")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same user, got %q and %q", first.ID, second.ID)
	}
	if store.Count() != 1 {
		t.Errorf("expected exactly one record, got %d", store.Count())
	}
}

func TestFindOrCreateOAuthConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.FindOrCreateOAuth(ctx, "a@b.com", "ext1", "A B")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent find or create: %v", err)
		}
	}
	if store.Count() != 1 {
		t.Errorf("expected exactly one record after %d concurrent calls, got %d", attempts, store.Count())
	}
}
