package storefront

import (
	"context"

	"github.com/go-resty/resty/v2"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// FetchPermissions implements domain.PermissionFetcher. Entries with an unknown action are dropped.
func (c *Client) FetchPermissions(ctx context.Context, identity domain.Identity) ([]domain.Permission, error) {
	env, err := call[any](ctx, c, resty.MethodGet, c.permissionsPath, withIdentity(identity))
	if err != nil {
		return nil, err
	}
	perms := make([]domain.Permission, 0, len(env.Permissions))
	for _, p := range env.Permissions {
		if !p.Action.Valid() || p.Resource == "" {
			c.logger.Debug(ctx, "Ignoring malformed permission", "resource", p.Resource, "action", string(p.Action))
			continue
		}
		perms = append(perms, p)
	}
	return perms, nil
}
