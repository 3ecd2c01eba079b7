package application

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/contextkeys"
)

// FavoritesRelayService bridges the local favorites bus and a cross-process relay.
// Events published locally by this instance go out; events from other instances come
// in and are republished locally. Our own events coming back are dropped.
type FavoritesRelayService struct {
	bus    domain.FavoritesBus
	relay  domain.FavoritesRelay
	origin string
	logger domain.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// NewFavoritesRelayService creates a new FavoritesRelayService for the instance origin.
func NewFavoritesRelayService(bus domain.FavoritesBus, relay domain.FavoritesRelay, origin string, logger domain.Logger) *FavoritesRelayService {
	if bus == nil {
		panic("bus is nil in NewFavoritesRelayService")
	}
	if relay == nil {
		panic("relay is nil in NewFavoritesRelayService")
	}
	if origin == "" {
		panic("origin is empty in NewFavoritesRelayService")
	}
	if logger == nil {
		panic("logger is nil in NewFavoritesRelayService")
	}
	return &FavoritesRelayService{
		bus:    bus,
		relay:  relay,
		origin: origin,
		logger: logger.With("component", "favorites_relay"),
	}
}

// Start subscribes to the relay and begins forwarding local events.
func (s *FavoritesRelayService) Start(ctx context.Context) error {
	if err := s.relay.SubscribeFavorites(ctx, s.receive); err != nil {
		return fmt.Errorf("favorites relay subscribe: %w", err)
	}
	s.mu.Lock()
	s.unsubscribe = s.bus.Subscribe(s.forward)
	s.mu.Unlock()
	s.logger.Info(ctx, "Favorites relay started", "origin", s.origin)
	return nil
}

// Stop detaches from the bus and closes the relay.
func (s *FavoritesRelayService) Stop() error {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()
	return s.relay.Close()
}

func (s *FavoritesRelayService) forward(ctx context.Context, event domain.FavoritesEvent) {
	if event.Origin != s.origin {
		return
	}
	if err := s.relay.PublishFavorites(ctx, event); err != nil {
		s.logger.Error(ctx, "Failed to relay favorites event", "user_id", event.UserID, "error", err.Error())
		metrics.IncrementRelayEvent("error")
		return
	}
	metrics.IncrementRelayEvent("out")
}

func (s *FavoritesRelayService) receive(ctx context.Context, event domain.FavoritesEvent) {
	if event.Origin == s.origin || event.Origin == "" {
		metrics.IncrementRelayEvent("echo")
		return
	}
	metrics.IncrementRelayEvent("in")
	ctx = context.WithValue(ctx, contextkeys.EventOriginKey, event.Origin)
	s.logger.Debug(ctx, "Republishing remote favorites event", "user_id", event.UserID, "count", len(event.Items))
	s.bus.Publish(ctx, event)
}
