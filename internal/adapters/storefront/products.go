package storefront

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// ListProductsByIDs implements domain.ProductCatalog. The listing endpoint is public, no identity is sent.
func (c *Client) ListProductsByIDs(ctx context.Context, ids []string, fields []string) ([]domain.RawProduct, error) {
	if len(ids) == 0 {
		return []domain.RawProduct{}, nil
	}
	query := map[string]string{"ids": strings.Join(ids, ",")}
	if len(fields) > 0 {
		query["fields"] = strings.Join(fields, ",")
	}
	env, err := call[[]domain.RawProduct](ctx, c, resty.MethodGet, c.productsPath, withQuery(query))
	if err != nil {
		return nil, err
	}
	return env.Items, nil
}
