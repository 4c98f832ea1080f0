package services

import (
	"context"
	"strings"
	"time"

	"ebis/storage"
)

// DefaultCacheTTL is the default lifetime of cached market data
const DefaultCacheTTL = 5 * time.Minute

// marketCachePrefix namespaces cached market data in the shared store
const marketCachePrefix = "ebis_market_cache:"

type cacheEnvelope[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StoreCache keeps values in a storage.Store wrapped in an expiry
// envelope, so cached data survives restarts on persistent backends.
// A TTL of 0 effectively disables caching.
type StoreCache[V any] struct {
	store  storage.Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStoreCache creates a cache whose keys live under the given kind
func NewStoreCache[V any](store storage.Store, kind string, ttl time.Duration) *StoreCache[V] {
	return &StoreCache[V]{
		store:  store,
		prefix: marketCachePrefix + kind + ":",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (c *StoreCache[V]) key(key string) string {
	return c.prefix + strings.ToUpper(strings.TrimSpace(key))
}

// Get returns the cached value and whether it is present and unexpired
func (c *StoreCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var env cacheEnvelope[V]
	ok, err := storage.GetJSON(ctx, c.store, c.key(key), &env)
	if err != nil || !ok || !c.now().Before(env.ExpiresAt) {
		var zero V
		return zero, false, err
	}
	return env.Value, true, nil
}

// Set stores value for key until the TTL elapses
func (c *StoreCache[V]) Set(ctx context.Context, key string, value V) error {
	if c.ttl <= 0 {
		return nil
	}
	return storage.SetJSON(ctx, c.store, c.key(key), cacheEnvelope[V]{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	})
}

// Invalidate drops a single key
func (c *StoreCache[V]) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.key(key))
}

// Prune removes expired entries and returns how many were dropped
func (c *StoreCache[V]) Prune(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := c.now()
	for _, k := range keys {
		var env struct {
			ExpiresAt time.Time `json:"expiresAt"`
		}
		ok, err := storage.GetJSON(ctx, c.store, k, &env)
		if err != nil {
			// undecodable entries are dropped with the expired ones
			env.ExpiresAt = time.Time{}
		} else if !ok {
			continue
		}
		if now.Before(env.ExpiresAt) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not
func (c *StoreCache[V]) Len(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.prefix)
	return len(keys), err
}

// TTL returns the cache's time-to-live duration
func (c *StoreCache[V]) TTL() time.Duration {
	return c.ttl
}
