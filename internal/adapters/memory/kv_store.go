package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// KVStore is an in-process domain.KeyValueStore with a byte quota, sized the way
// browser storage is: the sum of key and value lengths.
type KVStore struct {
	mu         sync.RWMutex
	items      map[string]string
	used       int
	quotaBytes int
}

// NewKVStore creates a store. quotaBytes <= 0 disables the quota.
func NewKVStore(quotaBytes int) *KVStore {
	return &KVStore{
		items:      make(map[string]string),
		quotaBytes: quotaBytes,
	}
}

// GetItem returns the value under key or domain.ErrKeyNotFound.
func (s *KVStore) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// SetItem stores value under key, failing with domain.ErrStorageQuotaExceeded when it does not fit.
// A rejected write leaves the previous value in place.
func (s *KVStore) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used + len(key) + len(value)
	if old, ok := s.items[key]; ok {
		next -= len(key) + len(old)
	}
	if s.quotaBytes > 0 && next > s.quotaBytes {
		return fmt.Errorf("memory SET '%s' needs %d bytes of %d: %w", key, next, s.quotaBytes, domain.ErrStorageQuotaExceeded)
	}
	s.items[key] = value
	s.used = next
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *KVStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.items[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.items, key)
	}
	return nil
}

// Keys lists the keys starting with prefix.
func (s *KVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// UsedBytes reports the bytes currently counted against the quota.
func (s *KVStore) UsedBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
