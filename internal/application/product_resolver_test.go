package application

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"gitlab.com/timkado/api/storefront-access-service/benchmarks/mocks"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

func newResolver(t *testing.T, batchSize int) (*ProductResolver, *ProductCache, *mocks.MockProductCatalog) {
	t.Helper()
	ctx := context.Background()
	cache := NewProductCache(ctx, mocks.NewMockKeyValueStore(), mocks.NewMockClock(), mocks.NewMockLogger(), 0, 0)
	catalog := mocks.NewMockProductCatalog()
	return NewProductResolver(cache, catalog, mocks.NewMockLogger(), batchSize, 2), cache, catalog
}

func ids(products []domain.CachedProduct) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestProductResolver_OrderPreservation(t *testing.T) {
	r, cache, catalog := newResolver(t, 2)
	ctx := context.Background()

	cache.CacheProducts(ctx, []domain.CachedProduct{product("b"), product("d")})
	for _, id := range []string{"a", "c", "e"} {
		catalog.Add(id, domain.RawProduct{MongoID: id, Name: "n-" + id})
	}

	got := r.Resolve(ctx, []string{"e", "d", "zz", "c", "b", "a"})
	if want := []string{"e", "d", "c", "b", "a"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("Resolve order = %v, want %v", ids(got), want)
	}

	// Only misses are fetched, in batches of two.
	for _, batch := range catalog.Batches {
		if len(batch) > 2 {
			t.Errorf("batch %v exceeds batch size", batch)
		}
		for _, id := range batch {
			if id == "b" || id == "d" {
				t.Errorf("cached id %s was fetched", id)
			}
		}
	}
	if !reflect.DeepEqual(catalog.Fields, ProductFields) {
		t.Errorf("unexpected projection %v", catalog.Fields)
	}

	// Fetched products are cached for the next call.
	calls := catalog.Calls()
	r.Resolve(ctx, []string{"a", "c", "e"})
	if catalog.Calls() != calls {
		t.Error("expected second resolution to be served from cache")
	}
}

func TestProductResolver_PartialFailure(t *testing.T) {
	r, _, catalog := newResolver(t, 1)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("p%d", i)
		catalog.Add(id, domain.RawProduct{ID: id})
	}
	catalog.FailIDs["p2"] = true

	got := r.Resolve(ctx, []string{"p0", "p1", "p2", "p3"})
	if want := []string{"p0", "p1", "p3"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Resolve = %v, want %v", ids(got), want)
	}
}

func TestNormalizeProduct(t *testing.T) {
	p, ok := NormalizeProduct(domain.RawProduct{
		ID:            float64(42),
		NameAr:        "منتج",
		Price:         "19.5",
		OriginalPrice: 25,
		Images:        []string{"first.png", "second.png"},
		Rating:        "4.5",
		Reviews:       float64(12),
		Discount:      "not-a-number",
		Badge:         "new",
	})
	if !ok {
		t.Fatal("expected record with numeric id to normalize")
	}
	if p.ID != "42" {
		t.Errorf("id = %q", p.ID)
	}
	if p.Name != "منتج" || p.NameAr != "منتج" {
		t.Errorf("name fallback failed: %q / %q", p.Name, p.NameAr)
	}
	if p.Price != 19.5 || p.Rating != 4.5 || p.Reviews != 12 {
		t.Errorf("numeric coercion failed: %+v", p)
	}
	if p.OriginalPrice == nil || *p.OriginalPrice != 25 {
		t.Errorf("originalPrice = %v", p.OriginalPrice)
	}
	if p.Discount != nil {
		t.Errorf("unparseable discount must be dropped, got %v", *p.Discount)
	}
	if p.Image != "first.png" {
		t.Errorf("image fallback failed: %q", p.Image)
	}

	p, _ = NormalizeProduct(domain.RawProduct{MongoID: "m1", ID: "ignored", Name: "Lamp", Image: "lamp.png"})
	if p.ID != "m1" || p.NameAr != "Lamp" || p.Image != "lamp.png" || p.Price != 0 {
		t.Errorf("unexpected normalization %+v", p)
	}

	if _, ok := NormalizeProduct(domain.RawProduct{Name: "no id"}); ok {
		t.Error("record without id must be rejected")
	}
}
