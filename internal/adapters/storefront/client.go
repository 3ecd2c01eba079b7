// Package storefront is the HTTP client for the storefront backend API.
package storefront

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

const (
	headerUserID   = "X-User-Id"
	headerEmail    = "X-User-Email"
	headerRole     = "X-User-Role"
	headerAuthMode = "X-Auth-Mode"
)

// envelope is the {ok, ...} wrapper every storefront endpoint answers with.
type envelope[T any] struct {
	OK          bool                `json:"ok"`
	Permissions []domain.Permission `json:"permissions,omitempty"`
	Items       T                   `json:"items,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Client calls the storefront backend. It implements domain.PermissionFetcher,
// domain.FavoritesAPI and domain.ProductCatalog.
type Client struct {
	resty           *resty.Client
	permissionsPath string
	favoritesPath   string
	productsPath    string
	logger          domain.Logger
}

// NewClient builds a client from the storefront section of the config.
func NewClient(cfgProvider config.Provider, logger domain.Logger) *Client {
	if logger == nil {
		panic("logger cannot be nil in storefront.NewClient")
	}
	cfg := cfgProvider.Get().Storefront

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.TimeoutSeconds > 0 {
		rc.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	if cfg.RetryCount > 0 {
		rc.SetRetryCount(cfg.RetryCount)
	}

	return &Client{
		resty:           rc,
		permissionsPath: cfg.PermissionsPath,
		favoritesPath:   cfg.FavoritesPath,
		productsPath:    cfg.ProductsPath,
		logger:          logger,
	}
}

type requestOption func(*resty.Request)

func withIdentity(id domain.Identity) requestOption {
	return func(r *resty.Request) {
		if token := strings.TrimSpace(id.Token); token != "" {
			r.SetHeader("Authorization", "Bearer "+token)
		}
		headers := map[string]string{
			headerUserID:   id.UserID,
			headerEmail:    id.Email,
			headerRole:     id.Role,
			headerAuthMode: string(id.AuthMode),
		}
		for k, v := range headers {
			if v != "" {
				r.SetHeader(k, v)
			}
		}
	}
}

func withQuery(params map[string]string) requestOption {
	return func(r *resty.Request) {
		if len(params) > 0 {
			r.SetQueryParams(params)
		}
	}
}

func withBody(body any) requestOption {
	return func(r *resty.Request) {
		r.SetBody(body)
	}
}

// call performs one request and unwraps the envelope. Transport errors and non-2xx
// answers wrap domain.ErrRemoteCall; a missing or ok:false envelope wraps domain.ErrMalformedEnvelope.
func call[T any](ctx context.Context, c *Client, method, path string, opts ...requestOption) (envelope[T], error) {
	var env envelope[T]
	req := c.resty.R().SetContext(ctx).SetResult(&env)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return env, fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteCall, method, path, err)
	}
	if resp.IsError() {
		return env, fmt.Errorf("%w: %s %s: http %d: %s", domain.ErrRemoteCall, method, path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if !env.OK {
		detail := env.Error
		if detail == "" {
			detail = "ok is false or missing"
		}
		return env, fmt.Errorf("%w: %s %s: %s", domain.ErrMalformedEnvelope, method, path, detail)
	}
	return env, nil
}
