package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

// FavoritesRelayAdapter implements domain.FavoritesRelay on a core NATS subject.
// Favorites events are ephemeral state notifications, so plain pub/sub is used, not JetStream.
type FavoritesRelayAdapter struct {
	nc      *nats.Conn
	subject string
	logger  domain.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewFavoritesRelayAdapter connects to NATS and returns the adapter with a cleanup func.
func NewFavoritesRelayAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*FavoritesRelayAdapter, func(), error) {
	cfg := cfgProvider.Get()
	natsCfg := cfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-%s", natsCfg.Name, cfg.Server.InstanceID)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}
	appLogger.Info(ctx, "Successfully connected to NATS server", "url", nc.ConnectedUrl())

	adapter := NewFavoritesRelayFromConn(nc, cfg.Broadcast.Subject, appLogger)
	cleanup := func() {
		appLogger.Info(context.Background(), "Draining NATS connection...")
		if err := nc.Drain(); err != nil {
			appLogger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
	return adapter, cleanup, nil
}

// NewFavoritesRelayFromConn wraps an existing connection.
func NewFavoritesRelayFromConn(nc *nats.Conn, subject string, logger domain.Logger) *FavoritesRelayAdapter {
	if logger == nil {
		panic("logger cannot be nil in NewFavoritesRelayFromConn")
	}
	return &FavoritesRelayAdapter{nc: nc, subject: subject, logger: logger}
}

// PublishFavorites publishes event as JSON on the subject.
func (a *FavoritesRelayAdapter) PublishFavorites(ctx context.Context, event domain.FavoritesEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal FavoritesEvent: %w", err)
	}
	if err := a.nc.Publish(a.subject, data); err != nil {
		a.logger.Error(ctx, "Failed to publish favorites event to NATS", "subject", a.subject, "error", err.Error())
		return fmt.Errorf("failed to publish to NATS subject '%s': %w", a.subject, err)
	}
	return nil
}

// SubscribeFavorites subscribes to the subject. NATS invokes handler from its own delivery goroutine.
func (a *FavoritesRelayAdapter) SubscribeFavorites(ctx context.Context, handler domain.FavoritesEventHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub != nil {
		return fmt.Errorf("already subscribed to NATS subject '%s'", a.subject)
	}
	sub, err := a.nc.Subscribe(a.subject, a.msgHandler(ctx, handler))
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject '%s': %w", a.subject, err)
	}
	a.sub = sub
	a.logger.Info(ctx, "Subscribed to NATS favorites subject", "subject", a.subject)
	return nil
}

func (a *FavoritesRelayAdapter) msgHandler(ctx context.Context, handler domain.FavoritesEventHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var event domain.FavoritesEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			a.logger.Error(ctx, "Failed to unmarshal FavoritesEvent from NATS", "subject", msg.Subject, "error", err.Error())
			return
		}
		safego.Run(ctx, a.logger, "NATSFavoritesHandler", func() { handler(ctx, event) })
	}
}

// Close unsubscribes. The connection itself is closed by the cleanup func.
func (a *FavoritesRelayAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub == nil {
		return nil
	}
	err := a.sub.Unsubscribe()
	a.sub = nil
	if err != nil && err != nats.ErrConnectionClosed {
		return fmt.Errorf("error unsubscribing from NATS: %w", err)
	}
	return nil
}
