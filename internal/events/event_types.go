package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/astro-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAuthChanged   EventType = "auth_changed"
	EventCartChanged   EventType = "cart_changed"
	EventChannelOpened EventType = "channel_opened"
	EventChannelClosed EventType = "channel_closed"
)

// SessionTypes lists every event a browsing session can observe.
var SessionTypes = []EventType{EventAuthChanged, EventCartChanged, EventChannelOpened, EventChannelClosed}

// Event represents a state transition inside one browsing session.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	SessionKey string      `json:"-"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, sessionKey string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SessionKey: sessionKey,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// AuthChangedPayload payload.
type AuthChangedPayload struct {
	Reason string           `json:"reason"`
	State  domain.AuthState `json:"state"`
}

// CartChangedPayload payload.
type CartChangedPayload struct {
	Snapshot domain.CartSnapshot `json:"snapshot"`
}

// ChannelPayload payload.
type ChannelPayload struct {
	ConnectionID string `json:"connection_id,omitempty"`
}
