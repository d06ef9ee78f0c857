package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps replayable HTTP responses and the in-flight locks
// that stop two requests with the same key from running at once.
type IdempotencyStore struct {
	client redis.Cmdable
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Key prefixes
const (
	idempotencyPrefix     = "idempotency:"
	idempotencyLockPrefix = "lock:idempotency:"
)

// Get retrieves a stored response. A miss returns nil without error.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save stores a response for ttl.
func (s *IdempotencyStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}

// Acquire attempts to take the in-flight lock for key.
// Returns true if the lock was acquired, false if already held.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyLockPrefix+key, "1", ttl).Result()
}

// Release releases the in-flight lock for key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyLockPrefix+key).Err()
}
