package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth:state:"

// RedisStateStore is a Redis-backed StateStore for multi-instance deployments.
// Expiry is enforced by Redis key TTLs; Consume uses GETDEL so a state token
// redeems at most once even across instances.
type RedisStateStore struct {
	client goredis.UniversalClient
}

var _ StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore creates a StateStore backed by the given Redis client.
func NewRedisStateStore(client goredis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save serializes the request to JSON and stores it with the given TTL.
func (s *RedisStateStore) Save(ctx context.Context, req AuthorizationRequest, ttl time.Duration) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("oauth: marshal state %q: %w", req.State, err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+req.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("oauth: persist state %q: %w", req.State, err)
	}
	return nil
}

// Consume loads and deletes the request in one round-trip.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*AuthorizationRequest, error) {
	raw, err := s.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("oauth: load state %q: %w", state, err)
	}
	var req AuthorizationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("oauth: decode state %q: %w", state, err)
	}
	return &req, nil
}
