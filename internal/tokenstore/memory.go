package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps tokens in a process-local ttlcache. Expired entries are
// swept opportunistically on every Issue; no background timer runs.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, Payload]
}

// NewMemoryStore creates an in-memory token store.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, Payload](),
	)

	return &MemoryStore{cache: cache}
}

// Issue implements Store.Issue.
func (s *MemoryStore) Issue(_ context.Context, payload Payload, ttl time.Duration) (string, error) {
	tokenID, err := newTokenID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.DeleteExpired()
	s.cache.Set(tokenID, payload, ttl)

	return tokenID, nil
}

// Peek implements Store.Peek.
func (s *MemoryStore) Peek(_ context.Context, tokenID string) (Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(tokenID)
	if item == nil {
		return Payload{}, ErrTokenInvalid
	}

	return item.Value(), nil
}

// Consume implements Store.Consume.
func (s *MemoryStore) Consume(_ context.Context, tokenID string) (Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(tokenID)
	if item == nil {
		return Payload{}, ErrTokenInvalid
	}

	payload := item.Value()
	s.cache.Delete(tokenID)

	return payload, nil
}

// Sweep implements Store.Sweep.
func (s *MemoryStore) Sweep(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.DeleteExpired()

	return nil
}

// Len returns the number of live entries, expired or not yet swept included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Len()
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.DeleteAll()

	return nil
}
