package application

import (
	"context"
	"fmt"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/crypto"
)

// SessionService applies sign-in and sign-out: it is the auth-state-changed signal
// the permission and favorites services react to.
type SessionService struct {
	identities  *IdentityStore
	permissions *PermissionResolver
	favorites   *FavoritesSynchronizer
	logger      domain.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(identities *IdentityStore, permissions *PermissionResolver, favorites *FavoritesSynchronizer, logger domain.Logger) *SessionService {
	if identities == nil {
		panic("identity store is nil in NewSessionService")
	}
	if permissions == nil {
		panic("permission resolver is nil in NewSessionService")
	}
	if favorites == nil {
		panic("favorites synchronizer is nil in NewSessionService")
	}
	if logger == nil {
		panic("logger is nil in NewSessionService")
	}
	return &SessionService{
		identities:  identities,
		permissions: permissions,
		favorites:   favorites,
		logger:      logger,
	}
}

// Login stores identity, drops cached permissions and reloads favorites for it.
func (s *SessionService) Login(ctx context.Context, identity domain.Identity) error {
	err := s.identities.Save(ctx, identity)
	// Save may have cleared the previous identity before failing.
	s.permissions.ClearPermissionsCache(ctx)
	s.favorites.Load(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Session not started", "user_id", identity.UserID, "error", err.Error())
		return fmt.Errorf("login: %w", err)
	}
	s.logger.Info(ctx, "Session started",
		"user_id", identity.UserID,
		"auth_mode", string(identity.AuthMode),
		"token_fp", crypto.TokenFingerprint(identity.Token),
	)
	return nil
}

// Logout clears the identity, cached permissions and favorites.
func (s *SessionService) Logout(ctx context.Context) error {
	previous := s.identities.Current(ctx)
	err := s.identities.Clear(ctx)
	s.permissions.ClearPermissionsCache(ctx)
	s.favorites.Load(ctx)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info(ctx, "Session ended", "user_id", previous.UserID)
	return nil
}

// Current returns the stored identity.
func (s *SessionService) Current(ctx context.Context) domain.Identity {
	return s.identities.Current(ctx)
}
