package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// MockKeyValueStore implements domain.KeyValueStore over a map, with failure injection.
type MockKeyValueStore struct {
	mu    sync.Mutex
	items map[string]string

	// FailWrites makes SetItem return ErrStorageQuotaExceeded.
	FailWrites bool
	// FailReads makes GetItem and Keys return a generic error.
	FailReads bool

	GetCount    int64
	SetCount    int64
	RemoveCount int64
}

// NewMockKeyValueStore creates an empty store.
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{items: make(map[string]string)}
}

// GetItem implements domain.KeyValueStore
func (m *MockKeyValueStore) GetItem(ctx context.Context, key string) (string, error) {
	atomic.AddInt64(&m.GetCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return "", fmt.Errorf("mock storage read '%s' failed", key)
	}
	v, ok := m.items[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// SetItem implements domain.KeyValueStore
func (m *MockKeyValueStore) SetItem(ctx context.Context, key, value string) error {
	atomic.AddInt64(&m.SetCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("mock storage write '%s': %w", key, domain.ErrStorageQuotaExceeded)
	}
	m.items[key] = value
	return nil
}

// RemoveItem implements domain.KeyValueStore
func (m *MockKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	atomic.AddInt64(&m.RemoveCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys implements domain.KeyValueStore
func (m *MockKeyValueStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, fmt.Errorf("mock storage keys '%s' failed", prefix)
	}
	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Raw returns the stored value without side effects.
func (m *MockKeyValueStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

// Put stores a value directly, bypassing failure injection.
func (m *MockKeyValueStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}
