package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

const scanBatch = 200

// KVStore implements domain.KeyValueStore on Redis strings under a key prefix,
// so several agents can share one Redis without seeing each other's keys.
type KVStore struct {
	redisClient *redis.Client
	logger      domain.Logger
	prefix      string
}

// NewKVStore creates a new instance of KVStore.
func NewKVStore(redisClient *redis.Client, logger domain.Logger, prefix string) *KVStore {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewKVStore")
	}
	if logger == nil {
		panic("logger cannot be nil in NewKVStore")
	}
	return &KVStore{
		redisClient: redisClient,
		logger:      logger,
		prefix:      prefix,
	}
}

// GetItem reads key, returning domain.ErrKeyNotFound on redis.Nil.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, error) {
	val, err := s.redisClient.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "Failed to get item from Redis", "key", key, "error", err.Error())
		return "", fmt.Errorf("redis GET for key '%s' failed: %w", key, err)
	}
	return val, nil
}

// SetItem writes key without expiry. Redis refusing writes for lack of memory maps to domain.ErrStorageQuotaExceeded.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if err := s.redisClient.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("redis SET for key '%s' failed: %w: %v", key, domain.ErrStorageQuotaExceeded, err)
		}
		s.logger.Error(ctx, "Failed to set item in Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for key '%s' failed: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if err := s.redisClient.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Error(ctx, "Failed to delete item from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for key '%s' failed: %w", key, err)
	}
	return nil
}

// Keys SCANs for keys starting with prefix and returns them without the store prefix.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(s.prefix+prefix) + "*"
	keys := make([]string, 0)
	iter := s.redisClient.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		s.logger.Error(ctx, "Failed to scan keys in Redis", "prefix", prefix, "error", err.Error())
		return nil, fmt.Errorf("redis SCAN for prefix '%s' failed: %w", prefix, err)
	}
	return keys, nil
}

func isOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
