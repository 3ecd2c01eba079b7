package websocket

import (
	"context"
	"net/http"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// StreamPattern is the route of the favorites stream.
const StreamPattern = "GET /v1/favorites/stream"

// Router mounts the favorites stream behind the API key check.
type Router struct {
	logger         domain.Logger
	configProvider config.Provider
	wsHandler      http.Handler
}

// NewRouter creates a new WebSocket router.
func NewRouter(logger domain.Logger, cfgProvider config.Provider, wsHandler http.Handler) *Router {
	return &Router{
		logger:         logger,
		configProvider: cfgProvider,
		wsHandler:      wsHandler,
	}
}

// RegisterRoutes registers the stream endpoint on mux.
func (r *Router) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	authedHandler := middleware.APIKeyAuthMiddleware(r.configProvider, r.logger)(r.wsHandler)
	mux.Handle(StreamPattern, authedHandler)
	r.logger.Info(ctx, "WebSocket endpoint registered", "pattern", StreamPattern)
}
