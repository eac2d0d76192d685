package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
// It mirrors the GormStore semantics, including the (email, oauth_id)
// uniqueness invariant behind FindOrCreateOAuth.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email && existing.OAuthID == u.OAuthID {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindOrCreateOAuth(_ context.Context, email, oauthID, name string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email && u.OAuthID == oauthID {
			clone := *u
			return &clone, nil
		}
	}

	now := time.Now()
	u := &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		OAuthID:   oauthID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u

	clone := *u
	return &clone, nil
}

// Count returns the number of stored users.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
