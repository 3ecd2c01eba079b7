package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for the user ID of the identity the agent is acting for.
	UserIDKey contextKey = "user_id"

	// AuthModeKey is the context key for the auth mode (customer or admin) of the current identity.
	AuthModeKey contextKey = "auth_mode"

	// EventOriginKey marks contexts created while handling a favorites event from another agent instance.
	EventOriginKey contextKey = "event_origin"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
