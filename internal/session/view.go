package session

import (
	"github.com/omochice/toy-tictactoe-client/internal/chat"
	"github.com/omochice/toy-tictactoe-client/internal/rematch"
	"github.com/omochice/toy-tictactoe-client/internal/room"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
)

// View is the screen the session is on. Exactly one is active.
type View int

const (
	ViewUsername View = iota
	ViewJoinRoom
	ViewWaitingRoom
	ViewGame
	ViewGameEnd
)

// String returns the string representation of View
func (v View) String() string {
	switch v {
	case ViewUsername:
		return "username"
	case ViewJoinRoom:
		return "joinRoom"
	case ViewWaitingRoom:
		return "waitingRoom"
	case ViewGame:
		return "game"
	case ViewGameEnd:
		return "gameEnd"
	default:
		return "unknown"
	}
}

// Notices shown when the server ends the session.
const (
	NoticePlayerLeft      = "El otro jugador ha abandonado la sala."
	NoticeForceDisconnect = "La sala ha sido cerrada debido a la falta de acuerdo para la revancha."
)

// GameResult is produced once per game by gameEnded.
type GameResult struct {
	Winner string
}

// Draw reports whether the game ended without a winner.
func (r GameResult) Draw() bool {
	return r.Winner == protocol.WinnerDraw
}

// Snapshot is an immutable copy of the projection handed to readers.
type Snapshot struct {
	View      View
	Username  string
	RoomID    string
	RoomCode  string
	Room      *room.State
	Result    *GameResult
	Rematch   *rematch.Status
	Celebrate bool

	Chat        []chat.Message
	ChatUnread  int
	ChatVisible bool
	ChatInput   string

	Error     string
	Notice    string
	Connected bool
}

// CanRequestRematch reports whether the rematch button should be enabled.
func (s Snapshot) CanRequestRematch() bool {
	return s.View == ViewGameEnd && s.Rematch != nil && !s.Rematch.Requested && !s.Rematch.Satisfied()
}
