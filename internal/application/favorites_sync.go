package application

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

// favoritesPersistTTL bounds how long a persisted favorites list is trusted.
const favoritesPersistTTL = 24 * time.Hour

// FavoritesSynchronizer holds the favorites list of the current owner and keeps it
// consistent with the server and with every other synchronizer on the same bus.
// State is only ever replaced by a server response or a broadcast, never patched locally.
type FavoritesSynchronizer struct {
	api      domain.FavoritesAPI
	identity domain.IdentitySource
	bus      domain.FavoritesBus
	cache    *TTLCache
	prompter domain.AuthPrompter
	logger   domain.Logger
	origin   string

	mu                sync.Mutex
	owner             string
	state             domain.FavoritesState
	authPromptPending bool

	unsubscribe func()
}

// NewFavoritesSynchronizer creates a synchronizer subscribed to bus. origin tags the
// events it publishes. prompter may be nil.
func NewFavoritesSynchronizer(api domain.FavoritesAPI, identity domain.IdentitySource, bus domain.FavoritesBus, cache *TTLCache, prompter domain.AuthPrompter, logger domain.Logger, origin string) *FavoritesSynchronizer {
	if api == nil {
		panic("favorites api is nil in NewFavoritesSynchronizer")
	}
	if identity == nil {
		panic("identity source is nil in NewFavoritesSynchronizer")
	}
	if bus == nil {
		panic("bus is nil in NewFavoritesSynchronizer")
	}
	if cache == nil {
		panic("cache is nil in NewFavoritesSynchronizer")
	}
	if logger == nil {
		panic("logger is nil in NewFavoritesSynchronizer")
	}
	s := &FavoritesSynchronizer{
		api:      api,
		identity: identity,
		bus:      bus,
		cache:    cache,
		prompter: prompter,
		logger:   logger,
		origin:   origin,
		owner:    domain.GuestOwner,
		state:    domain.NewFavoritesState(nil),
	}
	s.unsubscribe = bus.Subscribe(s.onEvent)
	return s
}

// Close stops listening for broadcasts.
func (s *FavoritesSynchronizer) Close() {
	s.unsubscribe()
}

// State returns a copy of the current state.
func (s *FavoritesSynchronizer) State() domain.FavoritesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Owner returns the user ID the state belongs to, or domain.GuestOwner.
func (s *FavoritesSynchronizer) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// AuthPromptPending reports whether a mutation was refused for lack of an identity.
func (s *FavoritesSynchronizer) AuthPromptPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authPromptPending
}

// DismissAuthPrompt clears the pending auth prompt.
func (s *FavoritesSynchronizer) DismissAuthPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authPromptPending = false
}

// IsFavorite reports whether productID is in the current list.
func (s *FavoritesSynchronizer) IsFavorite(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Contains(productID)
}

// Load re-reads the identity and fetches its list. A different identity than
// before empties the state immediately; a failed fetch leaves it empty.
func (s *FavoritesSynchronizer) Load(ctx context.Context) {
	id := s.identity.Current(ctx)
	owner := id.Owner()

	s.mu.Lock()
	if owner != s.owner {
		s.owner = owner
		s.state = domain.NewFavoritesState(nil)
		s.authPromptPending = false
	}
	s.mu.Unlock()

	if !id.Authenticated() {
		s.replace(owner, nil)
		return
	}

	items, err := s.api.ListFavorites(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "Favorites load failed, starting empty", "user_id", id.UserID, "error", err.Error())
		metrics.IncrementFavoritesMutation("load", "failure")
		s.replace(owner, nil)
		return
	}
	metrics.IncrementFavoritesMutation("load", "success")
	if state, ok := s.replace(owner, items); ok {
		s.persist(ctx, owner, state)
	}
}

// AddToFavorites adds productID. It returns false, and flags an auth prompt,
// when nobody is signed in.
func (s *FavoritesSynchronizer) AddToFavorites(ctx context.Context, productID string) bool {
	return s.mutate(ctx, "add", func(id domain.Identity) ([]string, error) {
		return s.api.AddFavorite(ctx, id, productID)
	})
}

// RemoveFromFavorites removes productID.
func (s *FavoritesSynchronizer) RemoveFromFavorites(ctx context.Context, productID string) bool {
	return s.mutate(ctx, "remove", func(id domain.Identity) ([]string, error) {
		return s.api.RemoveFavorite(ctx, id, productID)
	})
}

// ToggleFavorite adds productID when absent and removes it otherwise.
func (s *FavoritesSynchronizer) ToggleFavorite(ctx context.Context, productID string) bool {
	if s.IsFavorite(productID) {
		return s.RemoveFromFavorites(ctx, productID)
	}
	return s.AddToFavorites(ctx, productID)
}

// ClearFavorites removes every favorite of the current user.
func (s *FavoritesSynchronizer) ClearFavorites(ctx context.Context) bool {
	return s.mutate(ctx, "clear", func(id domain.Identity) ([]string, error) {
		return s.api.ClearFavorites(ctx, id)
	})
}

func (s *FavoritesSynchronizer) mutate(ctx context.Context, op string, call func(domain.Identity) ([]string, error)) bool {
	id := s.identity.Current(ctx)
	if !id.Authenticated() {
		s.mu.Lock()
		s.authPromptPending = true
		s.mu.Unlock()
		if s.prompter != nil {
			s.prompter.RequestAuth(ctx, "favorites_"+op)
		}
		metrics.IncrementFavoritesMutation(op, "unauthenticated")
		return false
	}

	items, err := call(id)
	if err != nil {
		s.logger.Warn(ctx, "Favorites mutation failed, state unchanged", "operation", op, "user_id", id.UserID, "error", err.Error())
		metrics.IncrementFavoritesMutation(op, "failure")
		return false
	}

	// The identity may have switched while the call was in flight. The answer then
	// belongs to the previous owner: it is persisted and broadcast for that owner's
	// other listeners but stays out of the local state.
	owner := id.Owner()
	state, adopted := s.replace(owner, items)
	if !adopted {
		s.logger.Debug(ctx, "Favorites answer for a previous owner kept out of local state", "operation", op, "user_id", owner)
	}
	s.persist(ctx, owner, state)
	metrics.IncrementFavoritesMutation(op, "success")

	// Published outside the lock: our own handler runs synchronously.
	s.bus.Publish(ctx, domain.FavoritesEvent{UserID: owner, Items: state.Items, Origin: s.origin})
	return true
}

// replace swaps in the normalized list if the state still belongs to owner.
func (s *FavoritesSynchronizer) replace(owner string, items []string) (domain.FavoritesState, bool) {
	next := domain.NewFavoritesState(items)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != owner {
		return next, false
	}
	s.state = next
	return copyState(next), true
}

func (s *FavoritesSynchronizer) persist(ctx context.Context, owner string, state domain.FavoritesState) {
	s.cache.Set(ctx, storagekeys.Favorites(owner), state.Items, favoritesPersistTTL)
}

func (s *FavoritesSynchronizer) onEvent(ctx context.Context, event domain.FavoritesEvent) {
	if _, ok := s.replace(event.UserID, event.Items); ok {
		s.logger.Debug(ctx, "Adopted broadcast favorites", "user_id", event.UserID, "count", len(event.Items), "origin", event.Origin)
	}
}

func copyState(st domain.FavoritesState) domain.FavoritesState {
	return domain.FavoritesState{Items: append([]string{}, st.Items...), Count: st.Count}
}
