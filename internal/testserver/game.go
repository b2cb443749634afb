package testserver

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
)

// Room errors, worded the way the game server words them.
const (
	ErrTextRoomNotFound = "La sala no existe"
	ErrTextRoomFull     = "La sala está llena"
	ErrTextNotYourTurn  = "No es tu turno"
	ErrTextCellTaken    = "Casilla ocupada"
)

var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

type gameRoom struct {
	id       string
	players  []*Client
	board    [9]protocol.Mark
	current  int
	status   string
	accepted []string
}

func (r *gameRoom) details() protocol.RoomDetails {
	d := protocol.RoomDetails{
		RoomID:             r.id,
		Board:              append([]protocol.Mark(nil), r.board[:]...),
		CurrentPlayerIndex: r.current,
		Status:             r.status,
	}
	for i, p := range r.players {
		d.Players = append(d.Players, protocol.Player{ID: p.ID, Username: p.Username, Symbol: symbol(i)})
	}
	return d
}

func (r *gameRoom) wrapped() map[string]protocol.RoomDetails {
	return map[string]protocol.RoomDetails{"roomDetails": r.details()}
}

func (r *gameRoom) reset() {
	r.board = [9]protocol.Mark{}
	r.current = 0
	r.status = "playing"
	r.accepted = nil
}

func (r *gameRoom) winner() (string, bool) {
	for _, line := range winningLines {
		a := r.board[line[0]]
		if a != protocol.MarkEmpty && a == r.board[line[1]] && a == r.board[line[2]] {
			return string(a), true
		}
	}
	for _, cell := range r.board {
		if cell == protocol.MarkEmpty {
			return "", false
		}
	}
	return protocol.WinnerDraw, true
}

func symbol(i int) protocol.Mark {
	if i == 0 {
		return protocol.MarkX
	}
	return protocol.MarkO
}

// handle applies one intent from c.
func (h *Hub) handle(c *Client, ev protocol.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Name {
	case protocol.IntentCreateRoom:
		var p protocol.CreateRoom
		if err := ev.Bind(&p); err != nil {
			h.reject(c, ev, err)
			return
		}
		h.leave(c)
		c.Username = p.Username
		r := &gameRoom{id: newRoomID(), players: []*Client{c}, status: "waiting"}
		h.rooms[r.id] = r
		c.RoomID = r.id
		d := r.details()
		h.send(c, protocol.EventRoomCreated, protocol.RoomCreated{RoomID: r.id, RoomDetails: &d})

	case protocol.IntentJoinRoom:
		var p protocol.JoinRoom
		if err := ev.Bind(&p); err != nil {
			h.reject(c, ev, err)
			return
		}
		r, ok := h.rooms[p.RoomID]
		switch {
		case !ok:
			h.send(c, protocol.EventRoomError, map[string]string{"message": ErrTextRoomNotFound})
			return
		case len(r.players) >= 2:
			h.send(c, protocol.EventRoomError, map[string]string{"message": ErrTextRoomFull})
			return
		}
		c.Username = p.Username
		c.RoomID = r.id
		r.players = append(r.players, c)
		r.reset()
		h.broadcast(r, protocol.EventGameStarted, r.wrapped())

	case protocol.IntentMakeMove:
		var p protocol.MakeMove
		if err := ev.Bind(&p); err != nil {
			h.reject(c, ev, err)
			return
		}
		r, ok := h.rooms[c.RoomID]
		if !ok || r.status != "playing" {
			return
		}
		if r.players[r.current] != c {
			h.send(c, protocol.EventRoomError, map[string]string{"message": ErrTextNotYourTurn})
			return
		}
		if p.Position < 0 || p.Position >= len(r.board) || r.board[p.Position] != protocol.MarkEmpty {
			h.send(c, protocol.EventRoomError, map[string]string{"message": ErrTextCellTaken})
			return
		}
		r.board[p.Position] = symbol(r.current)
		if winner, done := r.winner(); done {
			r.status = "ended"
			h.broadcast(r, protocol.EventUpdateGame, r.wrapped())
			h.broadcast(r, protocol.EventGameEnded, protocol.GameEnded{Winner: winner})
			return
		}
		r.current = 1 - r.current
		h.broadcast(r, protocol.EventUpdateGame, r.wrapped())

	case protocol.IntentSendChatMessage:
		var p protocol.SendChatMessage
		if err := ev.Bind(&p); err != nil {
			h.reject(c, ev, err)
			return
		}
		if r, ok := h.rooms[c.RoomID]; ok {
			h.broadcast(r, protocol.EventReceiveChatMessage, protocol.ChatMessage{
				Username:  p.Username,
				Message:   p.Message,
				Timestamp: protocol.Timestamp{Time: time.Now()},
			})
		}

	case protocol.IntentRequestRematch:
		r, ok := h.rooms[c.RoomID]
		if !ok || r.status != "ended" {
			return
		}
		for _, id := range r.accepted {
			if id == c.ID {
				return
			}
		}
		r.accepted = append(r.accepted, c.ID)
		h.broadcast(r, protocol.EventRematchStatus, protocol.RematchStatus{
			Accepted: append([]string(nil), r.accepted...),
			Total:    len(r.players),
		})
		if len(r.accepted) == len(r.players) {
			r.reset()
			h.broadcast(r, protocol.EventGameStarted, r.wrapped())
		}

	case protocol.IntentExitRoom:
		h.leave(c)

	default:
		h.logger.Debug("ignoring unknown intent", zap.String("event", ev.Name.String()))
	}
}

// leave closes c's room and tells the other player. Callers hold h.mu.
func (h *Hub) leave(c *Client) {
	r, ok := h.rooms[c.RoomID]
	c.RoomID = ""
	if !ok {
		return
	}
	delete(h.rooms, r.id)
	for _, p := range r.players {
		if p != c {
			p.RoomID = ""
			h.send(p, protocol.EventPlayerLeft, struct{}{})
		}
	}
}

func (h *Hub) reject(c *Client, ev protocol.Event, err error) {
	h.logger.Warn("dropping malformed intent", zap.String("event", ev.Name.String()), zap.Error(err))
	h.send(c, protocol.EventRoomError, err.Error())
}

func newRoomID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
