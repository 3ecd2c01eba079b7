package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// DefaultCacheTTL applies when Set is called with a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// CacheEntry is the persisted form of a cached value. Timestamp and TTL are milliseconds.
// An entry is valid while now - Timestamp <= TTL.
type CacheEntry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
	TTL       int64 `json:"ttl"`
}

// storedEntry defers decoding of the payload until the entry is known to be fresh.
type storedEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"`
	TTL       *int64          `json:"ttl"`
}

// TTLCache is an expiring key/value cache over a KeyValueStore.
// Expired and malformed entries are removed when read; nothing runs in the background.
// No method returns an error: storage failures are logged and read as misses.
type TTLCache struct {
	store      domain.KeyValueStore
	clock      domain.Clock
	logger     domain.Logger
	namespace  string
	defaultTTL time.Duration
}

// NewTTLCache creates a cache writing under namespace. A non-positive defaultTTL means DefaultCacheTTL.
func NewTTLCache(store domain.KeyValueStore, clock domain.Clock, logger domain.Logger, namespace string, defaultTTL time.Duration) *TTLCache {
	if store == nil {
		panic("store is nil in NewTTLCache")
	}
	if clock == nil {
		panic("clock is nil in NewTTLCache")
	}
	if logger == nil {
		panic("logger is nil in NewTTLCache")
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &TTLCache{
		store:      store,
		clock:      clock,
		logger:     logger,
		namespace:  namespace,
		defaultTTL: defaultTTL,
	}
}

func (c *TTLCache) storageKey(key string) string {
	return c.namespace + key
}

// CacheGet returns the fresh value stored under key, or the zero value and false.
func CacheGet[T any](ctx context.Context, c *TTLCache, key string) (T, bool) {
	var zero T
	raw, ok := c.read(ctx, key)
	if !ok {
		return zero, false
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.Warn(ctx, "Cached value does not match requested type, removing", "key", key, "error", err.Error())
		metrics.IncrementCacheLookup("malformed")
		c.Clear(ctx, key)
		return zero, false
	}
	metrics.IncrementCacheLookup("hit")
	return data, true
}

// read returns the raw payload of a fresh entry. Stale and malformed entries are removed.
func (c *TTLCache) read(ctx context.Context, key string) (json.RawMessage, bool) {
	storeCtx := context.WithoutCancel(ctx)
	value, err := c.store.GetItem(storeCtx, c.storageKey(key))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			metrics.IncrementCacheLookup("miss")
		} else {
			c.logger.Warn(ctx, "Cache read failed, treating as miss", "key", key, "error", err.Error())
			metrics.IncrementCacheLookup("error")
		}
		return nil, false
	}

	var entry storedEntry
	if err := json.Unmarshal([]byte(value), &entry); err != nil || entry.Timestamp == nil || entry.TTL == nil || entry.Data == nil {
		c.logger.Warn(ctx, "Malformed cache entry, removing", "key", key)
		metrics.IncrementCacheLookup("malformed")
		c.Clear(ctx, key)
		return nil, false
	}

	if c.clock.Now().UnixMilli()-*entry.Timestamp > *entry.TTL {
		c.logger.Debug(ctx, "Cache entry expired, removing", "key", key)
		metrics.IncrementCacheLookup("expired")
		c.Clear(ctx, key)
		return nil, false
	}
	return entry.Data, true
}

// Set stores data under key for ttl (DefaultCacheTTL when ttl <= 0).
// A failed write is logged and otherwise ignored; the next read simply misses.
func (c *TTLCache) Set(ctx context.Context, key string, data any, ttl time.Duration) {
	if err := c.write(ctx, key, data, ttl); err != nil {
		c.logger.Warn(ctx, "Cache write failed", "key", key, "error", err.Error())
		metrics.IncrementCacheWriteFailure()
	}
}

func (c *TTLCache) write(ctx context.Context, key string, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	payload, err := json.Marshal(CacheEntry[any]{
		Data:      data,
		Timestamp: c.clock.Now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry '%s': %w", key, err)
	}
	if err := c.store.SetItem(context.WithoutCancel(ctx), c.storageKey(key), string(payload)); err != nil {
		return fmt.Errorf("store cache entry '%s': %w", key, err)
	}
	return nil
}

// Clear removes key.
func (c *TTLCache) Clear(ctx context.Context, key string) {
	if err := c.store.RemoveItem(context.WithoutCancel(ctx), c.storageKey(key)); err != nil {
		c.logger.Warn(ctx, "Cache clear failed", "key", key, "error", err.Error())
	}
}

// ClearAll removes every key in this cache's namespace that starts with prefix.
// An empty prefix clears the whole namespace.
func (c *TTLCache) ClearAll(ctx context.Context, prefix string) {
	storeCtx := context.WithoutCancel(ctx)
	keys, err := c.store.Keys(storeCtx, c.storageKey(prefix))
	if err != nil {
		c.logger.Warn(ctx, "Cache key listing failed", "prefix", prefix, "error", err.Error())
		return
	}
	for _, k := range keys {
		if err := c.store.RemoveItem(storeCtx, k); err != nil {
			c.logger.Warn(ctx, "Cache clear failed", "key", k, "error", err.Error())
		}
	}
}
