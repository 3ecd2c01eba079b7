package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrKeyNotFound is returned by a KeyValueStore when the key has no value.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrStorageQuotaExceeded is returned by a KeyValueStore when a write would exceed its capacity.
	ErrStorageQuotaExceeded = errors.New("storage: quota exceeded")

	// ErrNotAuthenticated marks operations that need an identity but found none.
	ErrNotAuthenticated = errors.New("no authenticated identity")

	// ErrRemoteCall wraps transport-level and non-2xx failures of storefront API calls.
	ErrRemoteCall = errors.New("storefront call failed")

	// ErrMalformedEnvelope is returned when a storefront response is not a usable {ok, ...} envelope.
	ErrMalformedEnvelope = errors.New("storefront response envelope is malformed or not ok")
)

// ErrorCode represents a specific error condition on the local HTTP surface.
type ErrorCode string

const (
	ErrBadRequest   ErrorCode = "BadRequest"          // HTTP 400
	ErrUnauthorized ErrorCode = "Unauthorized"        // HTTP 401, no identity stored
	ErrForbidden    ErrorCode = "Forbidden"           // HTTP 403, permission check denied
	ErrNotFound     ErrorCode = "NotFound"            // HTTP 404
	ErrInternal     ErrorCode = "InternalServerError" // HTTP 500
	ErrBadGateway   ErrorCode = "BadGateway"          // HTTP 502, storefront call failed
)

// ErrorResponse is the standard error format returned to UI clients as JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, the status line is already written.
}
