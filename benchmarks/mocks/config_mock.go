package mocks

import (
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
)

// MockConfigProvider implements config.Provider with settings tuned for tests and benchmarks.
type MockConfigProvider struct {
	config *config.Config
}

// NewMockConfigProvider creates a provider over the default configuration with quiet logging,
// an in-memory substrate and no broadcast relay.
func NewMockConfigProvider() *MockConfigProvider {
	cfg := config.Defaults()
	cfg.Server.InstanceID = "test-instance"
	cfg.Server.HTTPPort = 0
	cfg.Server.GRPCPort = 0
	cfg.Log.Level = "error"
	cfg.Storage.Backend = "memory"
	cfg.Broadcast.Backend = "none"
	cfg.Access.SuperAdminEmails = []string{"root@example.com"}
	return &MockConfigProvider{config: cfg}
}

// Get implements config.Provider.
func (m *MockConfigProvider) Get() *config.Config {
	return m.config
}

// Update mutates the held configuration in place.
func (m *MockConfigProvider) Update(fn func(cfg *config.Config)) {
	fn(m.config)
}
