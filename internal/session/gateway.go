package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Local validation failures. They never reach the network.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrRoomCodeRequired = errors.New("room code is required")
)

// userMessages is the inline text shown for each validation failure.
var userMessages = map[error]string{
	ErrUsernameRequired: "Por favor ingresa un nombre de usuario",
	ErrRoomCodeRequired: "Por favor ingresa un código de sala",
}

// Emitter is the outbound half of the transport.
type Emitter interface {
	// Emit forwards an intent without waiting for any acknowledgment.
	Emit(ctx context.Context, name protocol.EventName, payload any) error
	// Cycle drops the connection and dials again so no session identity
	// survives into the next connect.
	Cycle(ctx context.Context) error
}

// Gateway validates local intents and forwards them. It never mutates the
// authoritative part of the projection; only server events do that.
type Gateway struct {
	m      *Machine
	out    Emitter
	logger *zap.Logger
}

// NewGateway binds a Gateway to a Machine and an Emitter.
func NewGateway(m *Machine, out Emitter, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{m: m, out: out, logger: logger}
}

// SetUsername updates the username input and clears any inline error.
func (g *Gateway) SetUsername(name string) {
	g.m.username = name
	g.m.errText = ""
}

// SetRoomCode updates the room code input and clears any inline error.
func (g *Gateway) SetRoomCode(code string) {
	g.m.roomCode = code
	g.m.errText = ""
}

// SetChatInput updates the chat input buffer.
func (g *Gateway) SetChatInput(text string) {
	g.m.chatInput = text
}

// SetChatVisible opens or closes the chat panel.
func (g *Gateway) SetChatVisible(visible bool) {
	g.m.chat.SetVisible(visible)
}

// OpenJoinForm navigates from Username to the join form. It is the one
// transition that needs no server event since it has no authority.
func (g *Gateway) OpenJoinForm() {
	if g.m.view != ViewUsername {
		return
	}
	g.m.view = ViewJoinRoom
	g.m.roomCode = ""
	g.m.errText = ""
}

// CreateRoom asks the server for a new room.
func (g *Gateway) CreateRoom(ctx context.Context) error {
	username, err := g.validUsername()
	if err != nil {
		return err
	}
	g.m.notice = ""
	return g.emit(ctx, protocol.IntentCreateRoom, protocol.CreateRoom{Username: username})
}

// JoinRoom asks the server to seat the user in an existing room.
func (g *Gateway) JoinRoom(ctx context.Context) error {
	username, err := g.validUsername()
	if err != nil {
		return err
	}
	code := strings.TrimSpace(g.m.roomCode)
	if code == "" {
		return g.fail(ErrRoomCodeRequired)
	}
	g.m.roomID = code
	g.m.notice = ""
	return g.emit(ctx, protocol.IntentJoinRoom, protocol.JoinRoom{RoomID: code, Username: username})
}

// MakeMove forwards a move. Without a playing room the intent is dropped
// silently; only a stale UI can produce it.
func (g *Gateway) MakeMove(ctx context.Context, position int) error {
	if !g.m.rooms.CanMove() {
		g.logger.Debug("dropping move outside a playing room", zap.Int("position", position))
		return nil
	}
	return g.emit(ctx, protocol.IntentMakeMove, protocol.MakeMove{RoomID: g.m.roomID, Position: position})
}

// SendChat forwards the chat input buffer and clears it once the intent is
// handed to the transport. Whitespace-only input is dropped.
func (g *Gateway) SendChat(ctx context.Context) error {
	text := strings.TrimSpace(g.m.chatInput)
	if text == "" {
		return nil
	}
	err := g.emit(ctx, protocol.IntentSendChatMessage, protocol.SendChatMessage{
		RoomID:   g.m.roomID,
		Username: strings.TrimSpace(g.m.username),
		Message:  text,
	})
	if err != nil {
		return err
	}
	g.m.chatInput = ""
	return nil
}

// RequestRematch forwards the local accept once per GameEnd.
func (g *Gateway) RequestRematch(ctx context.Context) error {
	if g.m.view != ViewGameEnd || g.m.vote == nil || g.m.vote.Requested() {
		return nil
	}
	err := g.emit(ctx, protocol.IntentRequestRematch, protocol.RoomMember{
		RoomID:   g.m.roomID,
		Username: strings.TrimSpace(g.m.username),
	})
	if err != nil {
		return err
	}
	g.m.vote.MarkRequested()
	return nil
}

// Exit leaves the room. It is always permitted: the local reset happens even
// when the transport fails, and the returned error only reports that failure.
func (g *Gateway) Exit(ctx context.Context) error {
	var errs error
	if g.m.roomID != "" {
		errs = multierr.Append(errs, g.emit(ctx, protocol.IntentExitRoom, protocol.RoomMember{
			RoomID:   g.m.roomID,
			Username: strings.TrimSpace(g.m.username),
		}))
	}
	if err := g.out.Cycle(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to cycle connection: %w", err))
	}

	g.m.terminate("")
	g.m.username = ""
	g.m.errText = ""
	return errs
}

func (g *Gateway) validUsername() (string, error) {
	username := strings.TrimSpace(g.m.username)
	if username == "" {
		return "", g.fail(ErrUsernameRequired)
	}
	return username, nil
}

func (g *Gateway) fail(err error) error {
	g.m.errText = userMessages[err]
	return err
}

func (g *Gateway) emit(ctx context.Context, name protocol.EventName, payload any) error {
	if err := g.out.Emit(ctx, name, payload); err != nil {
		g.logger.Warn("failed to forward intent", zap.String("intent", name.String()), zap.Error(err))
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	return nil
}
