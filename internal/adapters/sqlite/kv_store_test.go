package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

func openTestStore(t *testing.T, quota int) (*KVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.sqlite3")
	s, err := Open(path, quota)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestKVStore_CRUDAndPersistence(t *testing.T) {
	s, path := openTestStore(t, 0)
	ctx := context.Background()

	if _, err := s.GetItem(ctx, "k"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.SetItem(ctx, "favorites:u1", `["p1"]`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := s.SetItem(ctx, "favorites:u1", `["p1","p2"]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.SetItem(ctx, "Favorites:u2", `[]`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	keys, err := s.Keys(ctx, "favorites:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "favorites:u1" {
		t.Errorf("expected case-sensitive prefix match, got %v", keys)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	if v, err := reopened.GetItem(ctx, "favorites:u1"); err != nil || v != `["p1","p2"]` {
		t.Fatalf("expected value to survive reopen, got %q, %v", v, err)
	}
	if err := reopened.RemoveItem(ctx, "favorites:u1"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	all, _ := reopened.Keys(ctx, "")
	sort.Strings(all)
	if len(all) != 1 || all[0] != "Favorites:u2" {
		t.Errorf("unexpected remaining keys %v", all)
	}
}

func TestKVStore_Quota(t *testing.T) {
	s, _ := openTestStore(t, 20)
	ctx := context.Background()

	if err := s.SetItem(ctx, "a", "0123456789"); err != nil { // 11 bytes
		t.Fatalf("SetItem: %v", err)
	}
	if err := s.SetItem(ctx, "b", "0123456789"); !errors.Is(err, domain.ErrStorageQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if _, err := s.GetItem(ctx, "b"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Error("rejected write must not be stored")
	}
	// Replacing a value only counts the new size.
	if err := s.SetItem(ctx, "a", "0123456789012345678"); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}
