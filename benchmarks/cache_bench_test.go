package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/benchmarks/mocks"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/memory"
	"gitlab.com/timkado/api/storefront-access-service/internal/application"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

type cachedPayload struct {
	IDs   []string `json:"ids"`
	Label string   `json:"label"`
}

// setupCacheBenchmark creates a TTL cache over the quota-bound in-memory store.
func setupCacheBenchmark(b *testing.B) (*application.TTLCache, *mocks.MockClock) {
	b.Helper()
	clock := mocks.NewMockClock()
	cache := application.NewTTLCache(memory.NewKVStore(0), clock, mocks.NewMockLogger(), "bench", time.Minute)
	return cache, clock
}

// BenchmarkTTLCache measures get/set cost of the persistent TTL cache.
func BenchmarkTTLCache(b *testing.B) {
	ctx := context.Background()
	payload := cachedPayload{IDs: []string{"p1", "p2", "p3", "p4"}, Label: "favorites"}

	b.Run("Set", func(b *testing.B) {
		cache, _ := setupCacheBenchmark(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			cache.Set(ctx, fmt.Sprintf("key-%d", i%100), payload, 0)
		}
	})

	b.Run("GetHit", func(b *testing.B) {
		cache, _ := setupCacheBenchmark(b)
		cache.Set(ctx, "hot", payload, 0)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, ok := application.CacheGet[cachedPayload](ctx, cache, "hot"); !ok {
				b.Fatal("expected cache hit")
			}
		}
	})

	b.Run("GetExpired", func(b *testing.B) {
		cache, clock := setupCacheBenchmark(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			cache.Set(ctx, "stale", payload, time.Second)
			clock.Advance(2 * time.Second)
			b.StartTimer()
			if _, ok := application.CacheGet[cachedPayload](ctx, cache, "stale"); ok {
				b.Fatal("expected expired entry to miss")
			}
		}
	})

	b.Run("ConcurrentGet", func(b *testing.B) {
		cache, _ := setupCacheBenchmark(b)
		for i := 0; i < 16; i++ {
			cache.Set(ctx, fmt.Sprintf("key-%d", i), payload, 0)
		}
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				application.CacheGet[cachedPayload](ctx, cache, fmt.Sprintf("key-%d", i%16))
				i++
			}
		})
	})
}

// BenchmarkPermissionChecks measures permission checks once the set is resolved.
func BenchmarkPermissionChecks(b *testing.B) {
	ctx := context.Background()
	clock := mocks.NewMockClock()
	logger := mocks.NewMockLogger()
	identity := mocks.NewMockIdentitySource()
	identity.Set(domain.Identity{UserID: "bench-user", Email: "ops@example.com", AuthMode: domain.AuthModeAdmin})

	perms := make([]domain.Permission, 0, 40)
	for _, resource := range []string{"dashboard", "products", "categories", "orders", "users", "branches", "qr", "home"} {
		for _, action := range []domain.Action{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete, domain.ActionManage} {
			perms = append(perms, domain.Permission{Resource: resource, Action: action, Allowed: action != domain.ActionDelete})
		}
	}
	fetcher := mocks.NewMockPermissionFetcher(perms...)
	cache := application.NewTTLCache(mocks.NewMockKeyValueStore(), clock, logger, "", 0)
	resolver := application.NewPermissionResolver(identity, fetcher, cache, clock, mocks.NewMockConfigProvider(), logger)

	resolver.GetUserPermissions(ctx, false)

	b.Run("HasPermission", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			resolver.HasPermission(ctx, "orders", domain.ActionUpdate)
		}
	})

	b.Run("GetAccessiblePages", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if len(resolver.GetAccessiblePages(ctx)) == 0 {
				b.Fatal("expected accessible pages")
			}
		}
	})

	b.Run("ConcurrentCanAccessPage", func(b *testing.B) {
		pages := application.AdminPages()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				resolver.CanAccessPage(ctx, pages[i%len(pages)])
				i++
			}
		})
		b.Logf("Remote permission fetches: %d", fetcher.Calls())
	})
}
