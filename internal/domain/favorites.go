package domain

import "context"

// FavoritesState is the favorites list of the current owner.
// Count always equals len(Items); Items never holds duplicates.
type FavoritesState struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// NewFavoritesState builds a state from a server list, dropping empty and
// repeated IDs while keeping first-seen order.
func NewFavoritesState(items []string) FavoritesState {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, id := range items {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return FavoritesState{Items: out, Count: len(out)}
}

// Contains reports whether productID is in the list.
func (s FavoritesState) Contains(productID string) bool {
	for _, id := range s.Items {
		if id == productID {
			return true
		}
	}
	return false
}

// FavoritesEvent announces the authoritative favorites list of a user.
// Origin is the instance ID of the agent that performed the mutation.
type FavoritesEvent struct {
	UserID string   `json:"userId"`
	Items  []string `json:"items"`
	Origin string   `json:"origin,omitempty"`
}

// FavoritesAPI is the storefront favorites backend. Every call returns the
// authoritative item list after the operation.
type FavoritesAPI interface {
	ListFavorites(ctx context.Context, identity Identity) ([]string, error)
	AddFavorite(ctx context.Context, identity Identity, productID string) ([]string, error)
	RemoveFavorite(ctx context.Context, identity Identity, productID string) ([]string, error)
	ClearFavorites(ctx context.Context, identity Identity) ([]string, error)
}

// FavoritesEventHandler receives events published on a FavoritesBus.
type FavoritesEventHandler func(ctx context.Context, event FavoritesEvent)

// FavoritesBus is the process-wide, synchronous event bus for favorites changes.
// Publish delivers to every handler registered at the time of the call before returning.
type FavoritesBus interface {
	Publish(ctx context.Context, event FavoritesEvent)
	// Subscribe registers handler and returns a function that removes it.
	Subscribe(handler FavoritesEventHandler) (unsubscribe func())
}

// FavoritesRelay carries favorites events between agent processes.
type FavoritesRelay interface {
	PublishFavorites(ctx context.Context, event FavoritesEvent) error
	// SubscribeFavorites starts delivering remote events to handler. It returns once
	// the subscription is established; delivery continues in the background until Close.
	SubscribeFavorites(ctx context.Context, handler FavoritesEventHandler) error
	Close() error
}

// AuthPrompter is notified when an operation needs the user to sign in.
type AuthPrompter interface {
	RequestAuth(ctx context.Context, reason string)
}
