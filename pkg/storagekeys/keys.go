// Package storagekeys builds the keys used in the persistent key/value substrate.
package storagekeys

import "fmt"

// Identity keys, read and written by the identity store.
const (
	AuthUserID   = "auth:userId"
	AuthEmail    = "auth:email"
	AuthRole     = "auth:role"
	AuthToken    = "auth:token"
	AuthAuthMode = "auth:authMode"
)

// ProductSnapshot is the key of the persisted product reference cache.
const ProductSnapshot = "products:snapshot"

// PermissionsPrefix prefixes every mirrored permission resolution.
const PermissionsPrefix = "permissions:"

// FavoritesPrefix prefixes every persisted favorites list.
const FavoritesPrefix = "favorites:"

// Permissions is the TTL cache key of the permission resolution of owner.
func Permissions(owner string) string {
	return fmt.Sprintf("%s%s", PermissionsPrefix, owner)
}

// Favorites is the TTL cache key of the favorites list of owner.
func Favorites(owner string) string {
	return fmt.Sprintf("%s%s", FavoritesPrefix, owner)
}
