package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

const (
	subprotocol       = "json.v1"
	eventBufferSize   = 32
	defaultWriteAfter = 10 * time.Second
)

// FavoritesView is the part of the favorites synchronizer the stream reads.
type FavoritesView interface {
	Owner() string
	State() domain.FavoritesState
}

// Handler streams favorites changes of the current owner to a websocket client.
type Handler struct {
	logger         domain.Logger
	configProvider config.Provider
	bus            domain.FavoritesBus
	favorites      FavoritesView
	notifier       *Notifier
}

// NewHandler creates a new WebSocket Handler.
func NewHandler(logger domain.Logger, cfgProvider config.Provider, bus domain.FavoritesBus, favorites FavoritesView, notifier *Notifier) *Handler {
	if logger == nil || cfgProvider == nil || bus == nil || favorites == nil || notifier == nil {
		panic("nil dependency passed to websocket.NewHandler")
	}
	return &Handler{
		logger:         logger,
		configProvider: cfgProvider,
		bus:            bus,
		favorites:      favorites,
		notifier:       notifier,
	}
}

// ServeHTTP upgrades the request and runs the stream until either side goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{subprotocol}})
	if err != nil {
		h.logger.Error(r.Context(), "WebSocket upgrade failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "stream ended")

	metrics.IncrementActiveFavoritesStreams()
	defer metrics.DecrementActiveFavoritesStreams()

	// Clients never send anything; CloseRead handles control frames and cancels on close.
	ctx := c.CloseRead(r.Context())

	outbox := make(chan BaseMessage, eventBufferSize)
	unsubscribe := h.bus.Subscribe(func(evCtx context.Context, event domain.FavoritesEvent) {
		if event.UserID != h.favorites.Owner() {
			return
		}
		select {
		case outbox <- NewEventMessage(event):
		default:
			h.logger.Warn(evCtx, "Favorites stream buffer full, dropping event", "user_id", event.UserID)
		}
	})
	defer unsubscribe()
	defer h.notifier.register(outbox)()

	h.logger.Info(ctx, "Favorites stream opened", "remote_addr", r.RemoteAddr, "subprotocol", c.Subprotocol())
	h.stream(ctx, c, outbox)
}

func (h *Handler) stream(ctx context.Context, c *websocket.Conn, outbox <-chan BaseMessage) {
	appCfg := h.configProvider.Get().App
	writeTimeout := time.Duration(appCfg.WriteTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteAfter
	}

	if err := h.write(ctx, c, writeTimeout, NewReadyMessage()); err != nil {
		return
	}
	if err := h.write(ctx, c, writeTimeout, NewSnapshotMessage(h.favorites.Owner(), h.favorites.State())); err != nil {
		return
	}

	var pings <-chan time.Time
	if interval := time.Duration(appCfg.PingIntervalSeconds) * time.Second; interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "Favorites stream closed by peer")
			return
		case msg := <-outbox:
			if err := h.write(ctx, c, writeTimeout, msg); err != nil {
				return
			}
		case <-pings:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logger.Warn(ctx, "Failed to send ping, closing stream", "error", err.Error())
				c.Close(websocket.StatusPolicyViolation, "ping failure")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, c *websocket.Conn, timeout time.Duration, msg BaseMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, c, msg); err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Error(ctx, "Failed to write stream message", "type", msg.Type, "error", err.Error())
		}
		return err
	}
	return nil
}
