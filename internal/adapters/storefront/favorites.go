package storefront

import (
	"context"

	"github.com/go-resty/resty/v2"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

type favoriteRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// ListFavorites implements domain.FavoritesAPI.
func (c *Client) ListFavorites(ctx context.Context, identity domain.Identity) ([]string, error) {
	return c.favorites(ctx, resty.MethodGet, identity,
		withQuery(map[string]string{"userId": identity.UserID}))
}

// AddFavorite implements domain.FavoritesAPI.
func (c *Client) AddFavorite(ctx context.Context, identity domain.Identity, productID string) ([]string, error) {
	return c.favorites(ctx, resty.MethodPost, identity,
		withBody(favoriteRequest{UserID: identity.UserID, ProductID: productID}))
}

// RemoveFavorite implements domain.FavoritesAPI.
func (c *Client) RemoveFavorite(ctx context.Context, identity domain.Identity, productID string) ([]string, error) {
	return c.favorites(ctx, resty.MethodDelete, identity,
		withQuery(map[string]string{"userId": identity.UserID, "productId": productID}))
}

// ClearFavorites implements domain.FavoritesAPI.
func (c *Client) ClearFavorites(ctx context.Context, identity domain.Identity) ([]string, error) {
	return c.favorites(ctx, resty.MethodDelete, identity,
		withQuery(map[string]string{"userId": identity.UserID, "all": "true"}))
}

func (c *Client) favorites(ctx context.Context, method string, identity domain.Identity, opts ...requestOption) ([]string, error) {
	opts = append([]requestOption{withIdentity(identity)}, opts...)
	env, err := call[[]string](ctx, c, method, c.favoritesPath, opts...)
	if err != nil {
		return nil, err
	}
	if env.Items == nil {
		return []string{}, nil
	}
	return env.Items, nil
}
