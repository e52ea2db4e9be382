package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// StateStore holds outstanding OAuth state nonces. A nonce is single use:
// Take reports whether it existed and removes it in the same step.
type StateStore interface {
	Put(ctx context.Context, state string, ttl time.Duration) error
	Take(ctx context.Context, state string) (bool, error)
}

// RedisStateStore keeps nonces in Redis so callbacks can land on any
// instance behind a load balancer.
type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Put(ctx context.Context, state string, ttl time.Duration) error {
	return s.rdb.Set(ctx, statePrefix+state, "1", ttl).Err()
}

func (s *RedisStateStore) Take(ctx context.Context, state string) (bool, error) {
	_, err := s.rdb.GetDel(ctx, statePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
