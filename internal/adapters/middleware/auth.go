package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

const (
	apiKeyHeaderName = "X-API-Key"
	apiKeyQueryParam = "x-api-key" // websocket clients cannot set headers
)

// APIKeyAuthMiddleware guards the local API with server.api_key.
// With no key configured every request passes; the agent then relies on binding to loopback.
func APIKeyAuthMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := cfgProvider.Get().Server.APIKey
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(apiKeyHeaderName)
			if apiKey == "" {
				apiKey = r.URL.Query().Get(apiKeyQueryParam)
			}
			if apiKey == "" {
				logger.Warn(r.Context(), "API key authentication failed: Key missing", "path", r.URL.Path)
				domain.NewErrorResponse(domain.ErrUnauthorized, "API key is required", "Provide API key in X-API-Key header or x-api-key query parameter.").
					WriteJSON(w, http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
				logger.Warn(r.Context(), "API key authentication failed: Invalid key", "path", r.URL.Path)
				domain.NewErrorResponse(domain.ErrUnauthorized, "Invalid API key", "The provided API key is not valid.").
					WriteJSON(w, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PageChecker decides back-office page access.
type PageChecker interface {
	CanAccessPage(ctx context.Context, page string) bool
}

// RequirePage rejects requests with 403 unless the current identity can open page.
// An empty page is read from the {page} path value.
func RequirePage(checker PageChecker, page string, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := page
			if target == "" {
				target = r.PathValue("page")
			}
			if !checker.CanAccessPage(r.Context(), target) {
				logger.Info(r.Context(), "Page access denied", "page", target, "path", r.URL.Path)
				domain.NewErrorResponse(domain.ErrForbidden, "Access denied", "You do not have permission to open page '"+target+"'.").
					WriteJSON(w, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
