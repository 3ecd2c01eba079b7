package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/logger"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/contextkeys"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(contextkeys.RequestIDKey).(string)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(XRequestIDHeader) != seen {
		t.Errorf("expected generated request id in context and header, got %q / %q", seen, rec.Header().Get(XRequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(XRequestIDHeader, "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "given" {
		t.Errorf("expected incoming request id to be kept, got %q", seen)
	}
}

type staticIdentity domain.Identity

func (s staticIdentity) Current(context.Context) domain.Identity { return domain.Identity(s) }

func TestIdentityContextMiddleware(t *testing.T) {
	var userID, mode string
	h := IdentityContextMiddleware(staticIdentity{UserID: "u1", AuthMode: domain.AuthModeCustomer})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ = r.Context().Value(contextkeys.UserIDKey).(string)
			mode, _ = r.Context().Value(contextkeys.AuthModeKey).(string)
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if userID != "u1" || mode != "customer" {
		t.Errorf("context = %q/%q", userID, mode)
	}
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	cfg := config.Defaults()
	provider := config.NewStaticProvider(cfg)
	h := APIKeyAuthMiddleware(provider, logger.NewNop())(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through without configured key, got %d", rec.Code)
	}

	cfg.Server.APIKey = "k3y"
	cases := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"missing", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/v1/session", nil) }, http.StatusUnauthorized},
		{"wrong", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
			r.Header.Set("X-API-Key", "nope")
			return r
		}, http.StatusUnauthorized},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
			r.Header.Set("X-API-Key", "k3y")
			return r
		}, http.StatusNoContent},
		{"query", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/v1/favorites/stream?x-api-key=k3y", nil) }, http.StatusNoContent},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, tc.req())
		if rec.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

type pageSet map[string]bool

func (p pageSet) CanAccessPage(_ context.Context, page string) bool { return p[page] }

func TestRequirePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /admin/{page}", RequirePage(pageSet{"orders": true}, "", logger.NewNop())(okHandler))
	mux.Handle("GET /fixed", RequirePage(pageSet{"orders": true}, "profit", logger.NewNop())(okHandler))

	for path, want := range map[string]int{
		"/admin/orders": http.StatusNoContent,
		"/admin/users":  http.StatusForbidden,
		"/fixed":        http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s: status %d, want %d", path, rec.Code, want)
		}
	}
}
