package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Mark is the content of a board cell or a player's symbol.
// A JSON null decodes to MarkEmpty.
type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

// Valid reports whether m is one of the three known marks.
func (m Mark) Valid() bool {
	return m == MarkEmpty || m == MarkX || m == MarkO
}

// Player as described by the server. ID is stable per connection and is the
// only safe identity key; usernames may repeat.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Symbol   Mark   `json:"symbol"`
}

// RoomDetails is a full room/game snapshot.
type RoomDetails struct {
	RoomID             string   `json:"roomId,omitempty"`
	Players            []Player `json:"players"`
	Board              []Mark   `json:"board"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	Status             string   `json:"status"`
}

// RoomCreated is the payload of roomCreated.
type RoomCreated struct {
	RoomID      string       `json:"roomId"`
	RoomDetails *RoomDetails `json:"roomDetails,omitempty"`
}

// GameEnded is the payload of gameEnded. Winner is a symbol, a username or "Draw".
type GameEnded struct {
	Winner string `json:"winner"`
}

// WinnerDraw is the winner value the server uses for a tie.
const WinnerDraw = "Draw"

// ChatMessage is the payload of receiveChatMessage.
type ChatMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// RematchStatus is the payload of rematchStatus. Players and Current are the
// fields older servers send instead of Accepted; Current is a bare count and
// may come without any identifiers.
type RematchStatus struct {
	Accepted      []string `json:"accepted,omitempty"`
	Players       []string `json:"players,omitempty"`
	Current       int      `json:"current,omitempty"`
	Total         int      `json:"total,omitempty"`
	TimeRemaining *float64 `json:"timeRemaining,omitempty"`
}

// Voters returns the accepted identifiers regardless of which field carried them.
func (r RematchStatus) Voters() []string {
	if len(r.Accepted) > 0 {
		return r.Accepted
	}
	return r.Players
}

// Remaining converts TimeRemaining (seconds) to a duration.
func (r RematchStatus) Remaining() (time.Duration, bool) {
	if r.TimeRemaining == nil {
		return 0, false
	}
	return time.Duration(*r.TimeRemaining * float64(time.Second)), true
}

// Outbound intent payloads.

type CreateRoom struct {
	Username string `json:"username"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type MakeMove struct {
	RoomID   string `json:"roomId"`
	Position int    `json:"position"`
}

type SendChatMessage struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// RoomMember is shared by requestRematch and exitRoom.
type RoomMember struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// DecodeRoomDetails accepts either {"roomDetails": {...}} or the bare details,
// since servers differ on whether gameStarted/updateGame wrap the snapshot.
func DecodeRoomDetails(ev Event) (RoomDetails, error) {
	var wrapped struct {
		RoomDetails *RoomDetails `json:"roomDetails"`
	}
	if err := ev.Bind(&wrapped); err != nil {
		return RoomDetails{}, err
	}
	if wrapped.RoomDetails != nil {
		return *wrapped.RoomDetails, nil
	}
	var details RoomDetails
	if err := ev.Bind(&details); err != nil {
		return RoomDetails{}, err
	}
	return details, nil
}

// DecodeRoomError accepts a bare JSON string or {"message": "..."}.
func DecodeRoomError(ev Event) (string, error) {
	data := bytes.TrimSpace(ev.Data)
	if len(data) > 0 && data[0] == '"' {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", fmt.Errorf("%s: failed to decode payload: %w", ev.Name, err)
		}
		return msg, nil
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := ev.Bind(&body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// Timestamp decodes an RFC 3339 string or epoch milliseconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
