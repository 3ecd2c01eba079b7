package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// MockPermissionFetcher implements domain.PermissionFetcher.
type MockPermissionFetcher struct {
	mu          sync.Mutex
	Permissions []domain.Permission
	Err         error

	CallCount int64
}

// NewMockPermissionFetcher returns a fetcher that grants perms.
func NewMockPermissionFetcher(perms ...domain.Permission) *MockPermissionFetcher {
	return &MockPermissionFetcher{Permissions: perms}
}

// FetchPermissions implements domain.PermissionFetcher
func (m *MockPermissionFetcher) FetchPermissions(ctx context.Context, identity domain.Identity) ([]domain.Permission, error) {
	atomic.AddInt64(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.Permission, len(m.Permissions))
	copy(out, m.Permissions)
	return out, nil
}

// SetResult replaces the next result.
func (m *MockPermissionFetcher) SetResult(perms []domain.Permission, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Permissions = perms
	m.Err = err
}

// Calls returns how many times FetchPermissions ran.
func (m *MockPermissionFetcher) Calls() int64 {
	return atomic.LoadInt64(&m.CallCount)
}

// MockFavoritesAPI implements domain.FavoritesAPI over per-user server-side lists.
type MockFavoritesAPI struct {
	mu    sync.Mutex
	lists map[string][]string

	// Err, when set, fails every call.
	Err error

	CallCount int64
}

// NewMockFavoritesAPI creates an API with no stored favorites.
func NewMockFavoritesAPI() *MockFavoritesAPI {
	return &MockFavoritesAPI{lists: make(map[string][]string)}
}

// Seed replaces the server-side list of userID.
func (m *MockFavoritesAPI) Seed(userID string, items ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[userID] = append([]string(nil), items...)
}

// SetErr makes every subsequent call fail with err (nil to recover).
func (m *MockFavoritesAPI) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockFavoritesAPI) begin() error {
	atomic.AddInt64(&m.CallCount, 1)
	if m.Err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteCall, m.Err)
	}
	return nil
}

func (m *MockFavoritesAPI) snapshot(userID string) []string {
	return append([]string(nil), m.lists[userID]...)
}

// ListFavorites implements domain.FavoritesAPI
func (m *MockFavoritesAPI) ListFavorites(ctx context.Context, identity domain.Identity) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	return m.snapshot(identity.UserID), nil
}

// AddFavorite implements domain.FavoritesAPI. Like the real backend, it appends without deduplicating.
func (m *MockFavoritesAPI) AddFavorite(ctx context.Context, identity domain.Identity, productID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	m.lists[identity.UserID] = append(m.lists[identity.UserID], productID)
	return m.snapshot(identity.UserID), nil
}

// RemoveFavorite implements domain.FavoritesAPI
func (m *MockFavoritesAPI) RemoveFavorite(ctx context.Context, identity domain.Identity, productID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	kept := m.lists[identity.UserID][:0]
	for _, id := range m.lists[identity.UserID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	m.lists[identity.UserID] = kept
	return m.snapshot(identity.UserID), nil
}

// ClearFavorites implements domain.FavoritesAPI
func (m *MockFavoritesAPI) ClearFavorites(ctx context.Context, identity domain.Identity) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	m.lists[identity.UserID] = nil
	return []string{}, nil
}

// Calls returns the number of API calls made.
func (m *MockFavoritesAPI) Calls() int64 {
	return atomic.LoadInt64(&m.CallCount)
}

// MockProductCatalog implements domain.ProductCatalog over a fixed product set.
type MockProductCatalog struct {
	mu       sync.Mutex
	products map[string]domain.RawProduct

	// FailIDs fails any batch that contains one of these IDs.
	FailIDs map[string]bool

	CallCount int64
	Batches   [][]string
	Fields    []string
}

// NewMockProductCatalog creates an empty catalog.
func NewMockProductCatalog() *MockProductCatalog {
	return &MockProductCatalog{
		products: make(map[string]domain.RawProduct),
		FailIDs:  make(map[string]bool),
	}
}

// Add registers a product under id.
func (m *MockProductCatalog) Add(id string, p domain.RawProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = p
}

// ListProductsByIDs implements domain.ProductCatalog
func (m *MockProductCatalog) ListProductsByIDs(ctx context.Context, ids []string, fields []string) ([]domain.RawProduct, error) {
	atomic.AddInt64(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, append([]string(nil), ids...))
	m.Fields = fields
	for _, id := range ids {
		if m.FailIDs[id] {
			return nil, fmt.Errorf("%w: batch containing %s", domain.ErrRemoteCall, id)
		}
	}
	out := make([]domain.RawProduct, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Calls returns the number of listing calls.
func (m *MockProductCatalog) Calls() int64 {
	return atomic.LoadInt64(&m.CallCount)
}
