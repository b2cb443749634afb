// Package session is the client's controller: it consumes server events in
// arrival order, keeps the projection consistent and forwards user intents.
package session

import (
	"strings"

	"github.com/omochice/toy-tictactoe-client/internal/chat"
	"github.com/omochice/toy-tictactoe-client/internal/rematch"
	"github.com/omochice/toy-tictactoe-client/internal/room"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
)

// Outcome says what Handle did with an event.
type Outcome int

const (
	Applied Outcome = iota
	// Ignored covers unknown event names and events that do not apply to
	// the current view.
	Ignored
	// Rejected covers malformed payloads and snapshots.
	Rejected
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const connectionErrorPrefix = "Connection failed: "

type handlerFunc func(m *Machine, ev protocol.Event) Outcome

// handlers is the event table. An event name absent from it is ignored.
var handlers = map[protocol.EventName]handlerFunc{
	protocol.EventRoomCreated:        (*Machine).onRoomCreated,
	protocol.EventGameStarted:        (*Machine).onGameStarted,
	protocol.EventUpdateGame:         (*Machine).onUpdateGame,
	protocol.EventGameEnded:          (*Machine).onGameEnded,
	protocol.EventRoomError:          (*Machine).onRoomError,
	protocol.EventPlayerLeft:         (*Machine).onPlayerLeft,
	protocol.EventForceDisconnect:    (*Machine).onForceDisconnect,
	protocol.EventReceiveChatMessage: (*Machine).onChatMessage,
	protocol.EventRematchStatus:      (*Machine).onRematchStatus,
}

// Machine is the session state machine. It is not safe for concurrent use;
// Runner serializes every access.
type Machine struct {
	view      View
	username  string
	roomCode  string
	roomID    string
	rooms     *room.Reconciler
	chat      *chat.Stream
	chatInput string
	vote      *rematch.Coordinator
	result    *GameResult
	celebrate bool
	errText   string
	notice    string
	connected bool

	// countdownGen changes whenever the countdown is re-seeded or dropped so
	// ticks scheduled for an older countdown are discarded.
	countdownGen uint64

	logger *zap.Logger
}

// NewMachine creates a Machine on the Username view.
func NewMachine(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		view:   ViewUsername,
		rooms:  room.NewReconciler(logger.Named("room")),
		chat:   chat.NewStream(),
		logger: logger,
	}
}

// View returns the active view.
func (m *Machine) View() View {
	return m.view
}

// Handle applies one inbound event.
func (m *Machine) Handle(ev protocol.Event) Outcome {
	h, ok := handlers[ev.Name]
	if !ok {
		m.logger.Debug("ignoring unknown event", zap.String("event", ev.Name.String()))
		return Ignored
	}
	out := h(m, ev)
	if out != Applied {
		m.logger.Debug("event not applied",
			zap.String("event", ev.Name.String()),
			zap.String("view", m.view.String()),
			zap.Stringer("outcome", out))
	}
	return out
}

func (m *Machine) onRoomCreated(ev protocol.Event) Outcome {
	switch m.view {
	case ViewUsername, ViewJoinRoom, ViewWaitingRoom:
	default:
		return Ignored
	}

	var payload protocol.RoomCreated
	if err := ev.Bind(&payload); err != nil || payload.RoomID == "" {
		m.logger.Warn("dropping roomCreated", zap.Error(err))
		return Rejected
	}
	if m.view == ViewWaitingRoom && payload.RoomID == m.roomID {
		// Redelivery: keep the chat that arrived in between.
		return Applied
	}

	m.rooms.Discard()
	if payload.RoomDetails != nil {
		// The waiting room renders fine without details.
		_ = m.rooms.Apply(*payload.RoomDetails)
	}
	m.roomID = payload.RoomID
	m.view = ViewWaitingRoom
	m.errText = ""
	m.notice = ""
	m.chat.Reset()
	return Applied
}

func (m *Machine) onGameStarted(ev protocol.Event) Outcome {
	details, err := protocol.DecodeRoomDetails(ev)
	if err != nil {
		m.logger.Warn("dropping gameStarted", zap.Error(err))
		return Rejected
	}
	if err := m.rooms.Apply(details); err != nil {
		return Rejected
	}
	if details.RoomID != "" {
		m.roomID = details.RoomID
	}
	m.view = ViewGame
	m.result = nil
	m.celebrate = false
	m.errText = ""
	m.notice = ""
	m.dropVote()
	m.chat.Reset()
	return Applied
}

func (m *Machine) onUpdateGame(ev protocol.Event) Outcome {
	if m.view != ViewGame {
		return Ignored
	}
	details, err := protocol.DecodeRoomDetails(ev)
	if err != nil {
		m.logger.Warn("dropping updateGame", zap.Error(err))
		return Rejected
	}
	if err := m.rooms.Apply(details); err != nil {
		return Rejected
	}
	return Applied
}

func (m *Machine) onGameEnded(ev protocol.Event) Outcome {
	var payload protocol.GameEnded
	if err := ev.Bind(&payload); err != nil {
		m.logger.Warn("dropping gameEnded", zap.Error(err))
		return Rejected
	}

	switch m.view {
	case ViewGame:
	case ViewGameEnd:
		// Redelivery of the same result must not wipe the vote in progress.
		if m.result != nil && m.result.Winner == payload.Winner {
			return Applied
		}
		return Ignored
	default:
		return Ignored
	}

	m.view = ViewGameEnd
	m.result = &GameResult{Winner: payload.Winner}
	m.celebrate = !m.result.Draw()
	m.dropVote()
	m.vote = rematch.New(rematch.DefaultTotal)
	m.chat.Reset()
	return Applied
}

func (m *Machine) onRoomError(ev protocol.Event) Outcome {
	msg, err := protocol.DecodeRoomError(ev)
	if err != nil {
		m.logger.Warn("dropping roomError", zap.Error(err))
		return Rejected
	}
	m.errText = msg
	return Applied
}

func (m *Machine) onPlayerLeft(protocol.Event) Outcome {
	m.terminate(NoticePlayerLeft)
	return Applied
}

func (m *Machine) onForceDisconnect(protocol.Event) Outcome {
	m.terminate(NoticeForceDisconnect)
	return Applied
}

func (m *Machine) onChatMessage(ev protocol.Event) Outcome {
	var payload protocol.ChatMessage
	if err := ev.Bind(&payload); err != nil {
		m.logger.Warn("dropping chat message", zap.Error(err))
		return Rejected
	}
	m.chat.Append(chat.Message{
		Username:  payload.Username,
		Message:   payload.Message,
		Timestamp: payload.Timestamp.Time,
	})
	return Applied
}

func (m *Machine) onRematchStatus(ev protocol.Event) Outcome {
	if m.view != ViewGameEnd || m.vote == nil {
		return Ignored
	}
	var payload protocol.RematchStatus
	if err := ev.Bind(&payload); err != nil {
		m.logger.Warn("dropping rematchStatus", zap.Error(err))
		return Rejected
	}
	m.vote.Apply(payload.Voters(), payload.Current, payload.Total)
	if d, ok := payload.Remaining(); ok {
		m.vote.Seed(d)
		m.countdownGen++
	}
	return Applied
}

// terminate ends the session after the server closed it.
func (m *Machine) terminate(notice string) {
	m.view = ViewUsername
	m.roomID = ""
	m.roomCode = ""
	m.rooms.Discard()
	m.result = nil
	m.celebrate = false
	m.dropVote()
	m.chat.Reset()
	m.chatInput = ""
	m.notice = notice
}

func (m *Machine) dropVote() {
	if m.vote != nil {
		m.vote = nil
		m.countdownGen++
	}
}

// Countdown reports the generation of the running countdown and whether it
// should still tick.
func (m *Machine) Countdown() (uint64, bool) {
	return m.countdownGen, m.vote != nil && m.vote.Counting()
}

// Tick advances the cosmetic countdown if gen is still current.
func (m *Machine) Tick(gen uint64) bool {
	if m.vote == nil || gen != m.countdownGen {
		return false
	}
	m.vote.Tick(rematch.TickInterval)
	return true
}

// ConnectionLost records a dropped or failed connection.
func (m *Machine) ConnectionLost(err error) {
	m.connected = false
	if err != nil {
		m.errText = connectionErrorPrefix + err.Error()
	}
}

// ConnectionRestored records a (re)established connection. Nothing is
// replayed; the next snapshot is a full resync.
func (m *Machine) ConnectionRestored() {
	m.connected = true
	if strings.HasPrefix(m.errText, connectionErrorPrefix) {
		m.errText = ""
	}
}

// Snapshot returns an immutable copy of the projection.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		View:        m.view,
		Username:    m.username,
		RoomID:      m.roomID,
		RoomCode:    m.roomCode,
		Celebrate:   m.celebrate,
		Chat:        m.chat.Messages(),
		ChatUnread:  m.chat.UnreadCount(),
		ChatVisible: m.chat.Visible(),
		ChatInput:   m.chatInput,
		Error:       m.errText,
		Notice:      m.notice,
		Connected:   m.connected,
	}
	if st, ok := m.rooms.Current(); ok {
		snap.Room = &st
	}
	if m.result != nil {
		res := *m.result
		snap.Result = &res
	}
	if m.vote != nil {
		status := m.vote.Status()
		snap.Rematch = &status
	}
	return snap
}
