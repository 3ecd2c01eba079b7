package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// RequestIDMiddleware injects a request ID into the context.
// It tries to get it from the X-Request-ID header, otherwise generates a new UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityContextMiddleware puts the stored identity's user ID and auth mode on the
// request context so every log line of the request carries them.
func IdentityContextMiddleware(identity domain.IdentitySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.Current(r.Context())
			ctx := r.Context()
			if id.UserID != "" {
				ctx = context.WithValue(ctx, contextkeys.UserIDKey, id.UserID)
			}
			if id.AuthMode != "" {
				ctx = context.WithValue(ctx, contextkeys.AuthModeKey, string(id.AuthMode))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
