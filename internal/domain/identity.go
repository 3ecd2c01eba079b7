package domain

import "context"

// GuestOwner is the owner key used for state held while nobody is signed in.
const GuestOwner = "guest"

// AuthMode distinguishes storefront customers from back-office admins.
type AuthMode string

const (
	AuthModeCustomer AuthMode = "customer"
	AuthModeAdmin    AuthMode = "admin"
)

// Identity is the current actor as persisted in the local key/value substrate.
type Identity struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	Role     string   `json:"role,omitempty"`
	Token    string   `json:"token,omitempty"`
	AuthMode AuthMode `json:"auth_mode,omitempty"`
}

// Authenticated reports whether the identity carries a user ID.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Owner returns the key that scopes per-user state: the user ID, or GuestOwner.
func (i Identity) Owner() string {
	if i.UserID == "" {
		return GuestOwner
	}
	return i.UserID
}

// IdentitySource reads the current actor. It never fails: an unreadable
// identity is reported as the zero (unauthenticated) Identity.
type IdentitySource interface {
	Current(ctx context.Context) Identity
}
