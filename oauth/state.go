package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"
)

// GenerateState creates a cryptographically secure random state string
// for CSRF protection. Returns a 32-byte hex-encoded string (64 characters).
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AuthorizationRequest is the per-login-attempt record bound to a state token.
// It lives in a StateStore for a single request/callback round-trip.
type AuthorizationRequest struct {
	State       string    `json:"state"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// StateStore persists issued state tokens so callbacks can be bound to the
// authorization requests that initiated them.
type StateStore interface {
	// Save stores the request under its state token with the given TTL.
	Save(ctx context.Context, req AuthorizationRequest, ttl time.Duration) error

	// Consume retrieves and atomically deletes the request for a state token.
	// Returns (nil, nil) when the state is unknown or expired. A state token
	// redeems at most once.
	Consume(ctx context.Context, state string) (*AuthorizationRequest, error)
}

// MemoryStateStore is an in-process StateStore for single-instance deployments
// and tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryStateEntry
	now     func() time.Time
}

type memoryStateEntry struct {
	req       AuthorizationRequest
	expiresAt time.Time
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryStateEntry),
		now:     time.Now,
	}
}

// Save stores the request, evicting any expired entries in passing.
func (s *MemoryStateStore) Save(_ context.Context, req AuthorizationRequest, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, entry := range s.entries {
		if entry.expiresAt.Before(now) {
			delete(s.entries, state)
		}
	}

	s.entries[req.State] = memoryStateEntry{
		req:       req,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Consume removes and returns the request for the state token, or (nil, nil)
// when the token is unknown or past its TTL.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (*AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return nil, nil
	}
	delete(s.entries, state)

	if entry.expiresAt.Before(s.now()) {
		return nil, nil
	}
	req := entry.req
	return &req, nil
}
