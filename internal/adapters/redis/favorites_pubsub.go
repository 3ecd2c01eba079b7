package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

// FavoritesPubSubAdapter implements domain.FavoritesRelay over a Redis pub/sub channel.
type FavoritesPubSubAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	channel     string

	mu  sync.Mutex
	sub *redis.PubSub
}

// NewFavoritesPubSubAdapter creates a new adapter for Redis pub/sub on channel.
func NewFavoritesPubSubAdapter(redisClient *redis.Client, logger domain.Logger, channel string) *FavoritesPubSubAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewFavoritesPubSubAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewFavoritesPubSubAdapter")
	}
	return &FavoritesPubSubAdapter{
		redisClient: redisClient,
		logger:      logger,
		channel:     channel,
	}
}

// PublishFavorites publishes event as JSON.
func (a *FavoritesPubSubAdapter) PublishFavorites(ctx context.Context, event domain.FavoritesEvent) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal FavoritesEvent: %w", err)
	}
	if err := a.redisClient.Publish(ctx, a.channel, string(payloadBytes)).Err(); err != nil {
		a.logger.Error(ctx, "Failed to publish favorites event to Redis", "channel", a.channel, "error", err.Error())
		return fmt.Errorf("failed to publish to Redis channel '%s': %w", a.channel, err)
	}
	a.logger.Debug(ctx, "Published favorites event", "channel", a.channel, "user_id", event.UserID)
	return nil
}

// SubscribeFavorites subscribes to the channel and delivers decoded events to handler
// from a background goroutine until Close.
func (a *FavoritesPubSubAdapter) SubscribeFavorites(ctx context.Context, handler domain.FavoritesEventHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub != nil {
		return fmt.Errorf("already subscribed to Redis channel '%s'", a.channel)
	}

	sub := a.redisClient.Subscribe(ctx, a.channel)
	// Receive confirms the subscription before messages are expected.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		a.logger.Error(ctx, "Failed to confirm Redis SUBSCRIBE", "channel", a.channel, "error", err.Error())
		return fmt.Errorf("failed to subscribe to channel '%s': %w", a.channel, err)
	}
	a.sub = sub
	a.logger.Info(ctx, "Subscribed to Redis favorites channel", "channel", a.channel)

	ch := sub.Channel()
	safego.Execute(ctx, a.logger, "RedisFavoritesSubscriber", func() {
		for msg := range ch {
			var event domain.FavoritesEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				a.logger.Error(ctx, "Failed to unmarshal FavoritesEvent from pub/sub",
					"channel", msg.Channel,
					"error", err.Error(),
				)
				continue
			}
			handler(ctx, event)
		}
		a.logger.Info(ctx, "Subscription goroutine ended for channel", "channel", a.channel)
	})
	return nil
}

// Close closes the subscription. Closing without a subscription is a no-op.
func (a *FavoritesPubSubAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub == nil {
		return nil
	}
	err := a.sub.Close()
	a.sub = nil
	if err != nil {
		return fmt.Errorf("error closing Redis pub/sub: %w", err)
	}
	return nil
}
