package memory

import (
	"context"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

type subscription struct {
	id      uint64
	handler domain.FavoritesEventHandler
}

// FavoritesBus is the in-process domain.FavoritesBus. Publish runs every handler
// registered at the time of the call, in registration order, before returning.
type FavoritesBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger domain.Logger
}

// NewFavoritesBus creates an empty bus.
func NewFavoritesBus(logger domain.Logger) *FavoritesBus {
	if logger == nil {
		panic("logger is nil in NewFavoritesBus")
	}
	return &FavoritesBus{logger: logger}
}

// Publish delivers event synchronously. A panicking handler is logged and does not stop delivery.
func (b *FavoritesBus) Publish(ctx context.Context, event domain.FavoritesEvent) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		// Each handler gets its own copy of the item list.
		ev := event
		ev.Items = append([]string(nil), event.Items...)
		safego.Run(ctx, b.logger, "FavoritesBusHandler", func() { s.handler(ctx, ev) })
	}
}

// Subscribe registers handler. The returned function is idempotent.
func (b *FavoritesBus) Subscribe(handler domain.FavoritesEventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of live subscriptions.
func (b *FavoritesBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
