package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"

	_ "modernc.org/sqlite"
)

const defaultDBPath = "data/storefront-access.sqlite3"

// KVStore implements domain.KeyValueStore in a single SQLite table, for agents
// that must keep their caches across restarts without a Redis.
type KVStore struct {
	db         *sql.DB
	quotaBytes int64
}

// Open opens (creating if needed) the store at path. quotaBytes <= 0 disables the quota.
func Open(path string, quotaBytes int) (*KVStore, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultDBPath
	}

	dsn := path
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &KVStore{db: db, quotaBytes: int64(quotaBytes)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *KVStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *KVStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kv_items (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			size INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite kv store: %w", err)
		}
	}
	return nil
}

// GetItem implements domain.KeyValueStore.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get '%s': %w", key, err)
	}
	return value, nil
}

// SetItem implements domain.KeyValueStore. The quota check and the write share one transaction.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	size := int64(len(key) + len(value))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin set '%s': %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.quotaBytes > 0 {
		var used int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM kv_items WHERE key <> ?`, key).Scan(&used); err != nil {
			return fmt.Errorf("sqlite usage for '%s': %w", key, err)
		}
		if used+size > s.quotaBytes {
			return fmt.Errorf("sqlite set '%s' needs %d bytes of %d: %w", key, used+size, s.quotaBytes, domain.ErrStorageQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv_items (key, value, size, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, size = excluded.size, updated_at = excluded.updated_at`,
		key, value, size, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite set '%s': %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit set '%s': %w", key, err)
	}
	return nil
}

// RemoveItem implements domain.KeyValueStore.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete '%s': %w", key, err)
	}
	return nil
}

// Keys implements domain.KeyValueStore. Matching is case-sensitive, unlike LIKE.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_items WHERE substr(key, 1, ?) = ?`,
		utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite keys '%s': %w", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite keys '%s': %w", prefix, err)
	}
	return keys, nil
}
