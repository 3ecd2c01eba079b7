package memory

import (
	"context"
	"errors"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

var errRelayClosed = errors.New("memory relay: closed")

// RelayHub connects in-process domain.FavoritesRelay endpoints. Like a pub/sub
// broker, it delivers every publication to all subscribed endpoints, the publisher included.
// A hub with a single endpoint is a working relay with nobody on the other side.
type RelayHub struct {
	mu      sync.RWMutex
	members map[*HubRelay]struct{}
}

// NewRelayHub creates an empty hub.
func NewRelayHub() *RelayHub {
	return &RelayHub{members: make(map[*HubRelay]struct{})}
}

// Join returns a new endpoint on the hub.
func (h *RelayHub) Join() *HubRelay {
	r := &HubRelay{hub: h}
	h.mu.Lock()
	h.members[r] = struct{}{}
	h.mu.Unlock()
	return r
}

func (h *RelayHub) deliver(ctx context.Context, event domain.FavoritesEvent) {
	h.mu.RLock()
	handlers := make([]domain.FavoritesEventHandler, 0, len(h.members))
	for m := range h.members {
		if handler := m.current(); handler != nil {
			handlers = append(handlers, handler)
		}
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		ev := event
		ev.Items = append([]string(nil), event.Items...)
		handler(ctx, ev)
	}
}

// HubRelay is one endpoint of a RelayHub.
type HubRelay struct {
	hub *RelayHub

	mu      sync.Mutex
	handler domain.FavoritesEventHandler
	closed  bool
}

func (r *HubRelay) current() domain.FavoritesEventHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// PublishFavorites implements domain.FavoritesRelay.
func (r *HubRelay) PublishFavorites(ctx context.Context, event domain.FavoritesEvent) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return errRelayClosed
	}
	r.hub.deliver(ctx, event)
	return nil
}

// SubscribeFavorites implements domain.FavoritesRelay.
func (r *HubRelay) SubscribeFavorites(_ context.Context, handler domain.FavoritesEventHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errRelayClosed
	}
	r.handler = handler
	return nil
}

// Close implements domain.FavoritesRelay.
func (r *HubRelay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.handler = nil
	r.mu.Unlock()

	r.hub.mu.Lock()
	delete(r.hub.members, r)
	r.hub.mu.Unlock()
	return nil
}
