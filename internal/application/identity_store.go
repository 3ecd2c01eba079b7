package application

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

// IdentityStore keeps the current actor in the key/value substrate, one key per field.
type IdentityStore struct {
	store  domain.KeyValueStore
	logger domain.Logger
}

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(store domain.KeyValueStore, logger domain.Logger) *IdentityStore {
	if store == nil {
		panic("store is nil in NewIdentityStore")
	}
	if logger == nil {
		panic("logger is nil in NewIdentityStore")
	}
	return &IdentityStore{store: store, logger: logger}
}

// Current implements domain.IdentitySource. Unreadable fields read as empty.
func (s *IdentityStore) Current(ctx context.Context) domain.Identity {
	ctx = context.WithoutCancel(ctx)
	return domain.Identity{
		UserID:   s.read(ctx, storagekeys.AuthUserID),
		Email:    s.read(ctx, storagekeys.AuthEmail),
		Role:     s.read(ctx, storagekeys.AuthRole),
		Token:    s.read(ctx, storagekeys.AuthToken),
		AuthMode: domain.AuthMode(s.read(ctx, storagekeys.AuthAuthMode)),
	}
}

func (s *IdentityStore) read(ctx context.Context, key string) string {
	v, err := s.store.GetItem(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.Warn(ctx, "Identity read failed", "key", key, "error", err.Error())
		}
		return ""
	}
	return v
}

// Save replaces the stored identity. The previous identity is cleared first and the
// user ID is written last, so a failed write never leaves fields of two identities
// side by side; on failure the store is cleared again and reads as unauthenticated.
func (s *IdentityStore) Save(ctx context.Context, identity domain.Identity) error {
	if identity.UserID == "" {
		return fmt.Errorf("save identity: %w", domain.ErrNotAuthenticated)
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	fields := []struct {
		key   string
		value string
	}{
		{storagekeys.AuthEmail, identity.Email},
		{storagekeys.AuthRole, identity.Role},
		{storagekeys.AuthToken, identity.Token},
		{storagekeys.AuthAuthMode, string(identity.AuthMode)},
		{storagekeys.AuthUserID, identity.UserID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := s.store.SetItem(ctx, f.key, f.value); err != nil {
			if clearErr := s.Clear(ctx); clearErr != nil {
				s.logger.Error(ctx, "Identity rollback failed", "error", clearErr.Error())
			}
			return fmt.Errorf("save identity field '%s': %w", f.key, err)
		}
	}
	return nil
}

// Clear removes the stored identity.
func (s *IdentityStore) Clear(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, key := range []string{storagekeys.AuthUserID, storagekeys.AuthEmail, storagekeys.AuthRole, storagekeys.AuthToken, storagekeys.AuthAuthMode} {
		if err := s.store.RemoveItem(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear identity field '%s': %w", key, err))
		}
	}
	return errors.Join(errs...)
}
