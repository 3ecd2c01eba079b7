package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/benchmarks/mocks"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

type resolverFixture struct {
	resolver *PermissionResolver
	identity *mocks.MockIdentitySource
	fetcher  *mocks.MockPermissionFetcher
	store    *mocks.MockKeyValueStore
	cache    *TTLCache
	clock    *mocks.MockClock
}

func newResolverFixture(t *testing.T, perms ...domain.Permission) *resolverFixture {
	t.Helper()
	store := mocks.NewMockKeyValueStore()
	clock := mocks.NewMockClock()
	logger := mocks.NewMockLogger()
	cache := NewTTLCache(store, clock, logger, "", 0)
	identity := mocks.NewMockIdentitySource()
	fetcher := mocks.NewMockPermissionFetcher(perms...)
	return &resolverFixture{
		resolver: NewPermissionResolver(identity, fetcher, cache, clock, mocks.NewMockConfigProvider(), logger),
		identity: identity,
		fetcher:  fetcher,
		store:    store,
		cache:    cache,
		clock:    clock,
	}
}

func perm(resource string, action domain.Action, allowed bool) domain.Permission {
	return domain.Permission{Resource: resource, Action: action, Allowed: allowed}
}

func TestPermissionResolver_IsSuperAdmin(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cases := []struct {
		identity domain.Identity
		want     bool
	}{
		{domain.Identity{UserID: "u1", Email: "ROOT@example.com"}, true},
		{domain.Identity{UserID: "u1", Role: "super_admin"}, true},
		{domain.Identity{UserID: "u1", Role: "SuperAdmin"}, true},
		{domain.Identity{UserID: "u1", Email: "staff@example.com", Role: "manager"}, false},
		{domain.Identity{}, false},
	}
	for _, tc := range cases {
		f.identity.Set(tc.identity)
		if got := f.resolver.IsSuperAdmin(ctx); got != tc.want {
			t.Errorf("IsSuperAdmin(%+v) = %v, want %v", tc.identity, got, tc.want)
		}
	}
	if f.fetcher.Calls() != 0 {
		t.Error("IsSuperAdmin must not call the network")
	}
}

func TestPermissionResolver_SuperAdminShortCircuit(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1", Role: "super_admin"})

	perms := f.resolver.GetUserPermissions(ctx, false)
	if !perms.IsSuperAdmin || len(perms.Permissions) != 0 {
		t.Fatalf("unexpected super admin permissions %+v", perms)
	}
	if !f.resolver.HasPermission(ctx, "anything", domain.ActionDelete) {
		t.Error("super admin must pass every check")
	}
	if !reflect.DeepEqual(f.resolver.GetAccessiblePages(ctx), AdminPages()) {
		t.Error("super admin must see every page")
	}
	if f.fetcher.Calls() != 0 {
		t.Errorf("super admin resolution must not call the network, got %d calls", f.fetcher.Calls())
	}
}

func TestPermissionResolver_RemoteAndCaching(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1", Token: "t"})

	first := f.resolver.GetUserPermissions(ctx, false)
	if first.IsSuperAdmin || len(first.Permissions) != 1 {
		t.Fatalf("unexpected permissions %+v", first)
	}
	f.resolver.GetUserPermissions(ctx, false)
	if f.fetcher.Calls() != 1 {
		t.Fatalf("expected cached slot to be reused, got %d fetches", f.fetcher.Calls())
	}

	f.clock.Advance(DefaultPermissionsTTL)
	f.resolver.GetUserPermissions(ctx, false)
	if f.fetcher.Calls() != 2 {
		t.Fatalf("expected refetch once the slot is 5 minutes old, got %d fetches", f.fetcher.Calls())
	}

	f.resolver.GetUserPermissions(ctx, true)
	if f.fetcher.Calls() != 3 {
		t.Fatalf("expected forced refresh to refetch, got %d fetches", f.fetcher.Calls())
	}
}

func TestPermissionResolver_DefaultDenyOnFailure(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})
	f.fetcher.SetResult(nil, errors.New("connection refused"))

	perms := f.resolver.GetUserPermissions(ctx, false)
	if perms.IsSuperAdmin || len(perms.Permissions) != 0 || perms.Permissions == nil {
		t.Fatalf("expected deny-all, got %+v", perms)
	}
	for _, page := range AdminPages() {
		if f.resolver.CanAccessPage(ctx, page) {
			t.Errorf("page %s must be denied after a failed fetch", page)
		}
	}
	if len(f.resolver.GetAccessiblePages(ctx)) != 0 {
		t.Error("expected no accessible pages")
	}

	// Failures are not cached: recovery is picked up on the next call.
	f.fetcher.SetResult([]domain.Permission{perm("orders", domain.ActionRead, true)}, nil)
	if !f.resolver.CanAccessPage(ctx, "orders") {
		t.Error("expected access once the backend recovers")
	}
}

func TestPermissionResolver_Unauthenticated(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()

	if f.resolver.HasPermission(ctx, "orders", domain.ActionRead) {
		t.Error("unauthenticated identity must be denied")
	}
	if f.fetcher.Calls() != 0 {
		t.Error("unauthenticated resolution must not call the network")
	}
}

func TestPermissionResolver_HasPermission(t *testing.T) {
	f := newResolverFixture(t,
		perm("products", domain.ActionRead, true),
		perm("products", domain.ActionDelete, false),
		perm("branches", domain.ActionRead, true),
	)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})

	if !f.resolver.HasPermission(ctx, "products", domain.ActionRead) {
		t.Error("expected products:read")
	}
	if f.resolver.HasPermission(ctx, "products", domain.ActionDelete) {
		t.Error("explicitly disallowed action must be denied")
	}
	if f.resolver.HasPermission(ctx, "products", domain.ActionUpdate) {
		t.Error("absent action must be denied")
	}
	if !f.resolver.CanAccessPage(ctx, "locations") {
		t.Error("locations page is gated by branches:read")
	}
	if f.resolver.CanAccessPage(ctx, "nonexistent") {
		t.Error("unknown page must be denied")
	}
}

func TestPermissionResolver_AccessiblePagesOrder(t *testing.T) {
	f := newResolverFixture(t,
		perm("expenses", domain.ActionRead, true),
		perm("dashboard", domain.ActionRead, true),
		perm("qr", domain.ActionRead, true),
	)
	f.identity.Set(domain.Identity{UserID: "u1"})

	got := f.resolver.GetAccessiblePages(context.Background())
	want := []string{"dashboard", "qr-codes", "profit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetAccessiblePages = %v, want %v", got, want)
	}
}

func TestPermissionResolver_IdentitySwitchIsMiss(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()

	f.identity.Set(domain.Identity{UserID: "u1"})
	f.resolver.GetUserPermissions(ctx, false)

	f.identity.Set(domain.Identity{UserID: "u2"})
	f.fetcher.SetResult([]domain.Permission{}, nil)
	if f.resolver.HasPermission(ctx, "orders", domain.ActionRead) {
		t.Error("a permission set resolved for another user must not be reused")
	}
	if f.fetcher.Calls() != 2 {
		t.Errorf("expected a fetch per identity, got %d", f.fetcher.Calls())
	}
}

func TestPermissionResolver_MirrorSurvivesRestart(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})
	f.resolver.GetUserPermissions(ctx, false)

	restarted := NewPermissionResolver(f.identity, f.fetcher, f.cache, f.clock, mocks.NewMockConfigProvider(), mocks.NewMockLogger())
	f.clock.Advance(time.Minute)
	if !restarted.HasPermission(ctx, "orders", domain.ActionRead) {
		t.Fatal("expected mirrored permissions")
	}
	if f.fetcher.Calls() != 1 {
		t.Errorf("expected mirror reuse without a fetch, got %d fetches", f.fetcher.Calls())
	}
}

func TestPermissionResolver_ClearPermissionsCache(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})
	f.resolver.GetUserPermissions(ctx, false)

	f.resolver.ClearPermissionsCache(ctx)
	if _, ok := f.store.Raw(storagekeys.Permissions("u1")); ok {
		t.Error("expected mirror to be removed")
	}
	f.resolver.GetUserPermissions(ctx, false)
	if f.fetcher.Calls() != 2 {
		t.Errorf("expected re-resolution after clear, got %d fetches", f.fetcher.Calls())
	}
}

func TestPermissionResolver_RoleChangeOverridesCachedSet(t *testing.T) {
	f := newResolverFixture(t, perm("orders", domain.ActionRead, true))
	ctx := context.Background()

	f.identity.Set(domain.Identity{UserID: "u1", Role: "manager"})
	if f.resolver.HasPermission(ctx, "users", domain.ActionDelete) {
		t.Fatal("manager must not delete users")
	}

	// Promoted in the shared store, no login in between.
	f.identity.Set(domain.Identity{UserID: "u1", Role: "super_admin"})
	if !f.resolver.HasPermission(ctx, "users", domain.ActionDelete) {
		t.Error("expected super admin to pass without waiting for the cached set to expire")
	}
	if got := f.resolver.GetAccessiblePages(ctx); len(got) != len(AdminPages()) {
		t.Errorf("expected every page for a super admin, got %v", got)
	}

	// Demoted again: the cached super-admin set must not survive either.
	calls := f.fetcher.Calls()
	f.identity.Set(domain.Identity{UserID: "u1", Role: "manager"})
	if f.resolver.HasPermission(ctx, "users", domain.ActionDelete) {
		t.Error("expected demotion to take effect immediately")
	}
	if f.fetcher.Calls() != calls+1 {
		t.Errorf("expected a fresh fetch after demotion, got %d calls", f.fetcher.Calls()-calls)
	}
	if !f.resolver.CanAccessPage(ctx, "orders") {
		t.Error("expected fetched permissions after demotion")
	}
}
