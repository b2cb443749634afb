// Package protocol defines the named events exchanged with the game server
// and the codecs that frame them on the wire.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventName identifies an inbound notification or an outbound intent.
type EventName string

// Inbound events pushed by the server.
const (
	EventRoomCreated        EventName = "roomCreated"
	EventGameStarted        EventName = "gameStarted"
	EventUpdateGame         EventName = "updateGame"
	EventGameEnded          EventName = "gameEnded"
	EventRoomError          EventName = "roomError"
	EventPlayerLeft         EventName = "playerLeft"
	EventForceDisconnect    EventName = "forceDisconnect"
	EventReceiveChatMessage EventName = "receiveChatMessage"
	EventRematchStatus      EventName = "rematchStatus"
)

// Outbound intents emitted by the client.
const (
	IntentCreateRoom      EventName = "createRoom"
	IntentJoinRoom        EventName = "joinRoom"
	IntentMakeMove        EventName = "makeMove"
	IntentSendChatMessage EventName = "sendChatMessage"
	IntentRequestRematch  EventName = "requestRematch"
	IntentExitRoom        EventName = "exitRoom"
)

// String returns the wire name.
func (n EventName) String() string {
	return string(n)
}

// Event is one framed message: a name plus its raw JSON payload.
// Payloads stay raw until the receiver knows which type to decode into.
type Event struct {
	Name EventName       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an Event, marshaling payload as its data.
// A nil payload produces an event without data.
func NewEvent(name EventName, payload any) (Event, error) {
	ev := Event{Name: name}
	if payload == nil {
		return ev, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	ev.Data = data
	return ev, nil
}

// Bind decodes the event data into v.
func (e Event) Bind(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: failed to decode payload: %w", e.Name, err)
	}
	return nil
}
