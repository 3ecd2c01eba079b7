package domain

import "context"

// Action is an operation a permission grants on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage:
		return true
	}
	return false
}

// Permission grants or denies one action on one resource.
type Permission struct {
	Resource string `json:"resource"`
	Action   Action `json:"action"`
	Allowed  bool   `json:"allowed"`
}

// UserPermissions is the resolved permission set of an actor.
// When IsSuperAdmin is set, Permissions is irrelevant: every check passes.
type UserPermissions struct {
	IsSuperAdmin bool         `json:"isSuperAdmin"`
	Permissions  []Permission `json:"permissions"`
}

// DenyAll is the fail-closed permission set.
func DenyAll() UserPermissions {
	return UserPermissions{IsSuperAdmin: false, Permissions: []Permission{}}
}

// PermissionFetcher loads the permission list of an identity from the storefront backend.
type PermissionFetcher interface {
	FetchPermissions(ctx context.Context, identity Identity) ([]Permission, error)
}
