package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

// DefaultPermissionsTTL is how long a resolved permission set is reused.
const DefaultPermissionsTTL = 5 * time.Minute

// adminPages maps each back-office page to the resource its read permission gates, in menu order.
var adminPages = []struct {
	page     string
	resource string
}{
	{"dashboard", "dashboard"},
	{"products", "products"},
	{"categories", "categories"},
	{"orders", "orders"},
	{"users", "users"},
	{"locations", "branches"},
	{"qr-codes", "qr"},
	{"home-config", "home"},
	{"settings", "settings"},
	{"history", "history"},
	{"profit", "expenses"},
}

// AdminPages returns every back-office page in menu order.
func AdminPages() []string {
	pages := make([]string, len(adminPages))
	for i, p := range adminPages {
		pages[i] = p.page
	}
	return pages
}

// PageResource returns the resource gating page.
func PageResource(page string) (string, bool) {
	for _, p := range adminPages {
		if p.page == page {
			return p.resource, true
		}
	}
	return "", false
}

type permissionSlot struct {
	perms    domain.UserPermissions
	cachedAt time.Time
	owner    string
}

// permissionMirror is the persisted copy of the slot.
type permissionMirror struct {
	Permissions domain.UserPermissions `json:"permissions"`
	CachedAt    int64                  `json:"cachedAt"`
}

// PermissionResolver answers access questions for the current identity.
// It keeps one resolved permission set at a time; a forced refresh drops it entirely.
// Every failure resolves to deny-all and is never cached.
type PermissionResolver struct {
	identity domain.IdentitySource
	fetcher  domain.PermissionFetcher
	cache    *TTLCache
	clock    domain.Clock
	config   config.Provider
	logger   domain.Logger

	mu   sync.Mutex
	slot *permissionSlot
}

// NewPermissionResolver creates a new PermissionResolver.
func NewPermissionResolver(identity domain.IdentitySource, fetcher domain.PermissionFetcher, cache *TTLCache, clock domain.Clock, cfg config.Provider, logger domain.Logger) *PermissionResolver {
	if identity == nil {
		panic("identity source is nil in NewPermissionResolver")
	}
	if fetcher == nil {
		panic("permission fetcher is nil in NewPermissionResolver")
	}
	if cache == nil {
		panic("cache is nil in NewPermissionResolver")
	}
	if clock == nil {
		panic("clock is nil in NewPermissionResolver")
	}
	if cfg == nil {
		panic("config provider is nil in NewPermissionResolver")
	}
	if logger == nil {
		panic("logger is nil in NewPermissionResolver")
	}
	return &PermissionResolver{
		identity: identity,
		fetcher:  fetcher,
		cache:    cache,
		clock:    clock,
		config:   cfg,
		logger:   logger,
	}
}

func (r *PermissionResolver) ttl() time.Duration {
	if secs := r.config.Get().Access.PermissionsTTLSeconds; secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return DefaultPermissionsTTL
}

// IsSuperAdmin reports whether the stored identity is a super-admin. It never calls the network.
func (r *PermissionResolver) IsSuperAdmin(ctx context.Context) bool {
	return r.isSuperAdmin(r.identity.Current(ctx))
}

func (r *PermissionResolver) isSuperAdmin(id domain.Identity) bool {
	access := r.config.Get().Access
	if id.Email != "" {
		for _, email := range access.SuperAdminEmails {
			if strings.EqualFold(strings.TrimSpace(email), id.Email) {
				return true
			}
		}
	}
	if id.Role != "" {
		for _, role := range access.SuperAdminRoles {
			if strings.EqualFold(strings.TrimSpace(role), id.Role) {
				return true
			}
		}
	}
	return false
}

// GetUserPermissions returns the permission set of the current identity, reusing a
// resolution younger than the permissions TTL unless forceRefresh is set. Super-admin
// status is always taken from the stored identity, never from the cached set.
func (r *PermissionResolver) GetUserPermissions(ctx context.Context, forceRefresh bool) domain.UserPermissions {
	id := r.identity.Current(ctx)
	owner := id.Owner()

	superAdmin := r.isSuperAdmin(id)

	if forceRefresh {
		r.ClearPermissionsCache(ctx)
	} else if perms, ok := r.cached(ctx, owner); ok && perms.IsSuperAdmin == superAdmin {
		// A cached set resolved under a different super-admin status is stale.
		return perms
	}

	if superAdmin {
		perms := domain.UserPermissions{IsSuperAdmin: true, Permissions: []domain.Permission{}}
		r.store(ctx, owner, perms)
		metrics.IncrementPermissionResolution("super_admin")
		return perms
	}

	if !id.Authenticated() {
		metrics.IncrementPermissionResolution("denied")
		return domain.DenyAll()
	}

	fetched, err := r.fetcher.FetchPermissions(ctx, id)
	if err != nil {
		r.logger.Warn(ctx, "Permission fetch failed, denying all", "user_id", id.UserID, "error", err.Error())
		metrics.IncrementPermissionResolution("denied")
		return domain.DenyAll()
	}
	if fetched == nil {
		fetched = []domain.Permission{}
	}

	perms := domain.UserPermissions{IsSuperAdmin: false, Permissions: fetched}
	r.store(ctx, owner, perms)
	metrics.IncrementPermissionResolution("remote")
	return perms
}

// cached returns the slot when it belongs to owner and is fresh, then falls back to the persisted mirror.
func (r *PermissionResolver) cached(ctx context.Context, owner string) (domain.UserPermissions, bool) {
	now := r.clock.Now()
	ttl := r.ttl()

	r.mu.Lock()
	slot := r.slot
	r.mu.Unlock()
	if slot != nil && slot.owner == owner && now.Sub(slot.cachedAt) < ttl {
		metrics.IncrementPermissionResolution("slot")
		return slot.perms, true
	}

	mirror, ok := CacheGet[permissionMirror](ctx, r.cache, storagekeys.Permissions(owner))
	if !ok {
		return domain.UserPermissions{}, false
	}
	cachedAt := time.UnixMilli(mirror.CachedAt)
	if now.Sub(cachedAt) >= ttl {
		return domain.UserPermissions{}, false
	}
	if mirror.Permissions.Permissions == nil {
		mirror.Permissions.Permissions = []domain.Permission{}
	}

	r.mu.Lock()
	r.slot = &permissionSlot{perms: mirror.Permissions, cachedAt: cachedAt, owner: owner}
	r.mu.Unlock()
	metrics.IncrementPermissionResolution("mirror")
	return mirror.Permissions, true
}

func (r *PermissionResolver) store(ctx context.Context, owner string, perms domain.UserPermissions) {
	now := r.clock.Now()
	r.mu.Lock()
	r.slot = &permissionSlot{perms: perms, cachedAt: now, owner: owner}
	r.mu.Unlock()

	r.cache.Set(ctx, storagekeys.Permissions(owner), permissionMirror{
		Permissions: perms,
		CachedAt:    now.UnixMilli(),
	}, r.ttl())
}

// HasPermission reports whether the current identity may perform action on resource.
func (r *PermissionResolver) HasPermission(ctx context.Context, resource string, action domain.Action) bool {
	return allows(r.GetUserPermissions(ctx, false), resource, action)
}

func allows(perms domain.UserPermissions, resource string, action domain.Action) bool {
	if perms.IsSuperAdmin {
		return true
	}
	for _, p := range perms.Permissions {
		if p.Resource == resource && p.Action == action && p.Allowed {
			return true
		}
	}
	return false
}

// CanAccessPage reports whether the current identity may open a back-office page.
// Unknown pages are never accessible.
func (r *PermissionResolver) CanAccessPage(ctx context.Context, page string) bool {
	resource, ok := PageResource(page)
	if !ok {
		return false
	}
	return r.HasPermission(ctx, resource, domain.ActionRead)
}

// GetAccessiblePages returns the back-office pages the current identity may open, in menu order.
func (r *PermissionResolver) GetAccessiblePages(ctx context.Context) []string {
	perms := r.GetUserPermissions(ctx, false)
	if perms.IsSuperAdmin {
		return AdminPages()
	}
	pages := make([]string, 0, len(adminPages))
	for _, p := range adminPages {
		if allows(perms, p.resource, domain.ActionRead) {
			pages = append(pages, p.page)
		}
	}
	return pages
}

// ClearPermissionsCache drops the resolved set and every persisted mirror.
func (r *PermissionResolver) ClearPermissionsCache(ctx context.Context) {
	r.mu.Lock()
	r.slot = nil
	r.mu.Unlock()
	r.cache.ClearAll(ctx, storagekeys.PermissionsPrefix)
}
