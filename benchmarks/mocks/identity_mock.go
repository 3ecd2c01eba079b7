package mocks

import (
	"context"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// MockIdentitySource implements domain.IdentitySource with a settable identity.
type MockIdentitySource struct {
	mu       sync.Mutex
	identity domain.Identity
}

// NewMockIdentitySource starts unauthenticated.
func NewMockIdentitySource() *MockIdentitySource {
	return &MockIdentitySource{}
}

// Current implements domain.IdentitySource
func (m *MockIdentitySource) Current(ctx context.Context) domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Set replaces the current identity.
func (m *MockIdentitySource) Set(identity domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = identity
}
