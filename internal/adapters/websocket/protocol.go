package websocket

import (
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// Message types of the json.v1 favorites stream.
const (
	MessageTypeReady    = "ready"
	MessageTypeSnapshot = "snapshot"
	MessageTypeEvent    = "event"
	MessageTypeError    = "error"
	MessageTypeAuth     = "auth_required"
)

// BaseMessage is the envelope of every frame sent to the client.
type BaseMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// SnapshotPayload is the favorites state at subscription time.
type SnapshotPayload struct {
	Owner string   `json:"owner"`
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// NewReadyMessage creates a new message of type "ready".
func NewReadyMessage() BaseMessage {
	return BaseMessage{Type: MessageTypeReady}
}

// NewSnapshotMessage carries the current favorites of owner.
func NewSnapshotMessage(owner string, state domain.FavoritesState) BaseMessage {
	items := state.Items
	if items == nil {
		items = []string{}
	}
	return BaseMessage{
		Type:    MessageTypeSnapshot,
		Payload: SnapshotPayload{Owner: owner, Items: items, Count: state.Count},
	}
}

// NewEventMessage wraps a favorites change.
func NewEventMessage(event domain.FavoritesEvent) BaseMessage {
	return BaseMessage{Type: MessageTypeEvent, Payload: event}
}

// AuthRequiredPayload tells the UI to show its sign-in prompt.
type AuthRequiredPayload struct {
	Reason string `json:"reason"`
}

// NewAuthRequiredMessage asks the client to sign in.
func NewAuthRequiredMessage(reason string) BaseMessage {
	return BaseMessage{Type: MessageTypeAuth, Payload: AuthRequiredPayload{Reason: reason}}
}

// NewErrorMessage creates a new message of type "error".
func NewErrorMessage(errResp domain.ErrorResponse) BaseMessage {
	return BaseMessage{Type: MessageTypeError, Payload: errResp}
}
