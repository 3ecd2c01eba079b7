package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/benchmarks/mocks"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

func product(id string) domain.CachedProduct {
	return domain.CachedProduct{ID: id, Name: "name-" + id, NameAr: "name-" + id, Price: 10}
}

func readSnapshot(t *testing.T, store *mocks.MockKeyValueStore) productSnapshot {
	t.Helper()
	raw, ok := store.Raw(storagekeys.ProductSnapshot)
	if !ok {
		t.Fatal("expected a persisted product snapshot")
	}
	var snap productSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	return snap
}

func TestProductCache_UpsertAndLookup(t *testing.T) {
	store := mocks.NewMockKeyValueStore()
	ctx := context.Background()
	c := NewProductCache(ctx, store, mocks.NewMockClock(), mocks.NewMockLogger(), 0, 0)

	c.CacheProducts(ctx, []domain.CachedProduct{product("a"), product("b")})
	updated := product("a")
	updated.Price = 99
	c.CacheProducts(ctx, []domain.CachedProduct{updated, product("c")})

	hits, missing := c.GetCachedProducts([]string{"c", "x", "a", "x", "y"})
	if len(hits) != 2 || hits["a"].Price != 99 {
		t.Errorf("unexpected hits %+v", hits)
	}
	if !reflect.DeepEqual(missing, []string{"x", "y"}) {
		t.Errorf("missing = %v, want [x y]", missing)
	}

	snap := readSnapshot(t, store)
	var ids []string
	for _, p := range snap.Items {
		ids = append(ids, p.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("upsert must keep insertion positions, got %v", ids)
	}
}

func TestProductCache_CapEviction(t *testing.T) {
	store := mocks.NewMockKeyValueStore()
	ctx := context.Background()
	c := NewProductCache(ctx, store, mocks.NewMockClock(), mocks.NewMockLogger(), DefaultProductCap, 0)

	batch := make([]domain.CachedProduct, 0, DefaultProductCap+1)
	for i := 0; i <= DefaultProductCap; i++ {
		batch = append(batch, product(fmt.Sprintf("p%04d", i)))
	}
	c.CacheProducts(ctx, batch)

	snap := readSnapshot(t, store)
	if len(snap.Items) > DefaultProductCap {
		t.Fatalf("snapshot holds %d products, cap is %d", len(snap.Items), DefaultProductCap)
	}
	if c.Len() != DefaultProductCap {
		t.Errorf("expected %d cached products, got %d", DefaultProductCap, c.Len())
	}
	if _, missing := c.GetCachedProducts([]string{"p0000"}); len(missing) != 1 {
		t.Error("expected the oldest insertion to be evicted")
	}
	if _, missing := c.GetCachedProducts([]string{"p2000"}); len(missing) != 0 {
		t.Error("expected the newest insertion to be kept")
	}
}

func TestProductCache_Hydration(t *testing.T) {
	store := mocks.NewMockKeyValueStore()
	clock := mocks.NewMockClock()
	ctx := context.Background()

	first := NewProductCache(ctx, store, clock, mocks.NewMockLogger(), 0, 0)
	first.CacheProducts(ctx, []domain.CachedProduct{product("a"), product("b")})

	clock.Advance(9 * time.Minute)
	fresh := NewProductCache(ctx, store, clock, mocks.NewMockLogger(), 0, 0)
	if fresh.Len() != 2 {
		t.Fatalf("expected hydration from a fresh snapshot, got %d products", fresh.Len())
	}

	clock.Advance(2 * time.Minute)
	stale := NewProductCache(ctx, store, clock, mocks.NewMockLogger(), 0, 0)
	if stale.Len() != 0 {
		t.Fatalf("expected an expired snapshot to be discarded wholesale, got %d products", stale.Len())
	}
}

func TestProductCache_MalformedSnapshotIgnored(t *testing.T) {
	store := mocks.NewMockKeyValueStore()
	store.Put(storagekeys.ProductSnapshot, "[[[")
	c := NewProductCache(context.Background(), store, mocks.NewMockClock(), mocks.NewMockLogger(), 0, 0)
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestProductCache_PersistFailureKeepsMemory(t *testing.T) {
	store := mocks.NewMockKeyValueStore()
	ctx := context.Background()
	c := NewProductCache(ctx, store, mocks.NewMockClock(), mocks.NewMockLogger(), 0, 0)
	store.FailWrites = true

	err := c.cacheProducts(ctx, []domain.CachedProduct{product("a")})
	if !errors.Is(err, domain.ErrStorageQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	c.CacheProducts(ctx, []domain.CachedProduct{product("b")})
	if hits, _ := c.GetCachedProducts([]string{"a", "b"}); len(hits) != 2 {
		t.Errorf("in-memory cache must survive persist failures, got %d hits", len(hits))
	}
}
