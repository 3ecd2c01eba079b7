package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

const (
	// DefaultProductCap bounds the number of cached products.
	DefaultProductCap = 2000
	// DefaultProductSnapshotTTL is the age past which a persisted snapshot is ignored at startup.
	DefaultProductSnapshotTTL = 10 * time.Minute
)

// productSnapshot is the persisted form of the cache. Items are in insertion order.
type productSnapshot struct {
	Timestamp int64                  `json:"timestamp"`
	Items     []domain.CachedProduct `json:"items"`
}

// ProductCache keeps partial product records by ID, bounded by a cap with
// oldest-inserted-first eviction. Every write persists the whole cache as one snapshot.
type ProductCache struct {
	store       domain.KeyValueStore
	clock       domain.Clock
	logger      domain.Logger
	cap         int
	snapshotTTL time.Duration

	mu    sync.Mutex
	items map[string]domain.CachedProduct
	order []string
}

// NewProductCache creates the cache and hydrates it from the persisted snapshot, unless
// that snapshot is older than snapshotTTL.
func NewProductCache(ctx context.Context, store domain.KeyValueStore, clock domain.Clock, logger domain.Logger, capacity int, snapshotTTL time.Duration) *ProductCache {
	if store == nil {
		panic("store is nil in NewProductCache")
	}
	if clock == nil {
		panic("clock is nil in NewProductCache")
	}
	if logger == nil {
		panic("logger is nil in NewProductCache")
	}
	if capacity <= 0 {
		capacity = DefaultProductCap
	}
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultProductSnapshotTTL
	}
	c := &ProductCache{
		store:       store,
		clock:       clock,
		logger:      logger,
		cap:         capacity,
		snapshotTTL: snapshotTTL,
		items:       make(map[string]domain.CachedProduct),
	}
	c.hydrate(ctx)
	return c
}

func (c *ProductCache) hydrate(ctx context.Context) {
	raw, err := c.store.GetItem(context.WithoutCancel(ctx), storagekeys.ProductSnapshot)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			c.logger.Warn(ctx, "Product snapshot read failed, starting empty", "error", err.Error())
		}
		return
	}
	var snap productSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.logger.Warn(ctx, "Product snapshot is malformed, starting empty", "error", err.Error())
		return
	}
	age := c.clock.Now().Sub(time.UnixMilli(snap.Timestamp))
	if age > c.snapshotTTL {
		c.logger.Info(ctx, "Product snapshot expired, starting empty", "age", age.String())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(snap.Items)
	c.evictLocked()
	metrics.SetProductCacheSize(len(c.items))
	c.logger.Debug(ctx, "Product cache hydrated", "count", len(c.items))
}

// CacheProducts upserts products and persists the result. Persist failures are logged only.
func (c *ProductCache) CacheProducts(ctx context.Context, products []domain.CachedProduct) {
	if len(products) == 0 {
		return
	}
	if err := c.cacheProducts(ctx, products); err != nil {
		c.logger.Warn(ctx, "Product snapshot persist failed", "error", err.Error())
	}
}

func (c *ProductCache) cacheProducts(ctx context.Context, products []domain.CachedProduct) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(products)
	c.evictLocked()
	metrics.SetProductCacheSize(len(c.items))
	return c.persistLocked(ctx)
}

// upsertLocked keeps the position of IDs already present.
func (c *ProductCache) upsertLocked(products []domain.CachedProduct) {
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, exists := c.items[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.items[p.ID] = p
	}
}

func (c *ProductCache) evictLocked() {
	overflow := len(c.order) - c.cap
	if overflow <= 0 {
		return
	}
	for _, id := range c.order[:overflow] {
		delete(c.items, id)
	}
	c.order = append([]string(nil), c.order[overflow:]...)
}

func (c *ProductCache) persistLocked(ctx context.Context) error {
	snap := productSnapshot{
		Timestamp: c.clock.Now().UnixMilli(),
		Items:     make([]domain.CachedProduct, 0, len(c.order)),
	}
	for _, id := range c.order {
		snap.Items = append(snap.Items, c.items[id])
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal product snapshot: %w", err)
	}
	if err := c.store.SetItem(context.WithoutCancel(ctx), storagekeys.ProductSnapshot, string(payload)); err != nil {
		return fmt.Errorf("store product snapshot: %w", err)
	}
	return nil
}

// GetCachedProducts splits ids into cached products and missing IDs.
// Missing IDs keep request order and appear once.
func (c *ProductCache) GetCachedProducts(ids []string) (map[string]domain.CachedProduct, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits := make(map[string]domain.CachedProduct, len(ids))
	missing := make([]string, 0)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := c.items[id]; ok {
			hits[id] = p
		} else {
			missing = append(missing, id)
		}
	}
	metrics.AddProductCacheLookups(len(hits), len(missing))
	return hits, missing
}

// Len returns the number of cached products.
func (c *ProductCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
