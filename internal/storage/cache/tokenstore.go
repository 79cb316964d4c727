// Package cache adds a read-aside Redis cache in front of any TokenStore.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// CacheClient is the subset of cache commands the decorator needs.
type CacheClient interface {
	// Get loads the value at key into dest. A miss is (false, nil).
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedTokenStore decorates a TokenStore with read-aside caching of the
// per-user record set and invalidate-on-write semantics. Invalidation on
// Delete matters most: a user who unregisters must stop receiving
// notifications immediately, not when the TTL runs out.
type CachedTokenStore struct {
	realStore notify.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedTokenStore(realStore notify.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedTokenStore) Get(ctx context.Context, userID string) ([]notify.TokenRecord, error) {
	key := s.cacheKey(userID)

	var cached []notify.TokenRecord
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	fresh, err := s.realStore.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Caching is an optimisation, not a transaction. If Redis is down we
	// just keep serving from the source of truth.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedTokenStore) Put(ctx context.Context, userID string, record notify.TokenRecord) error {
	if err := s.realStore.Put(ctx, userID, record); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedTokenStore) Delete(ctx context.Context, userID string, token string) error {
	if err := s.realStore.Delete(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, s.cacheKey(userID))
}

func (s *CachedTokenStore) cacheKey(userID string) string {
	return fmt.Sprintf("dispatch:tokens:%s", userID)
}
