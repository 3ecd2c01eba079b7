package domain

import "context"

// KeyValueStore is the persistent string key/value substrate the caches sit on.
// It plays the role browser local storage plays for a web client: scoped,
// synchronous from the caller's point of view, and capacity-bounded.
//
// Implementations must return ErrKeyNotFound (possibly wrapped) from GetItem when
// the key is absent, and ErrStorageQuotaExceeded when a write does not fit.
// Callers never retry failed writes.
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error

	// Keys lists every stored key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
