package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lti:token:"

// RedisStore backs the token store with a shared redis instance so that a
// launch and its follow-up requests may land on different processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed token store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Issue implements Store.Issue.
func (s *RedisStore) Issue(ctx context.Context, payload Payload, ttl time.Duration) (string, error) {
	tokenID, err := newTokenID()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+tokenID, data, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return tokenID, nil
}

// Peek implements Store.Peek.
func (s *RedisStore) Peek(ctx context.Context, tokenID string) (Payload, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Payload{}, ErrTokenInvalid
		}
		return Payload{}, fmt.Errorf("failed to read token: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, ErrTokenInvalid
	}

	return payload, nil
}

// Consume implements Store.Consume. GETDEL keeps redeem-once atomic across
// instances.
func (s *RedisStore) Consume(ctx context.Context, tokenID string) (Payload, error) {
	data, err := s.client.GetDel(ctx, redisKeyPrefix+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Payload{}, ErrTokenInvalid
		}
		return Payload{}, fmt.Errorf("failed to consume token: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, ErrTokenInvalid
	}

	return payload, nil
}

// Sweep implements Store.Sweep; redis expires keys itself.
func (s *RedisStore) Sweep(_ context.Context) error {
	return nil
}

// Close implements Store.Close. The redis client is shared and closed by the
// caller.
func (s *RedisStore) Close() error {
	return nil
}
