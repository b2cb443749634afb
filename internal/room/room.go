// Package room holds the client's projection of the authoritative room/game
// state. Every snapshot replaces the previous one wholesale.
package room

import (
	"errors"
	"fmt"

	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
)

// BoardSize is the number of cells on a tic-tac-toe board.
const BoardSize = 9

var (
	ErrInvalidSnapshot = errors.New("invalid room snapshot")
	ErrNoPlayers       = fmt.Errorf("%w: no players", ErrInvalidSnapshot)
	ErrBoardSize       = fmt.Errorf("%w: board must have %d cells", ErrInvalidSnapshot, BoardSize)
)

// Status of a room as reported by the server.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusEnded
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ParseStatus maps the server's status string onto Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "waiting":
		return StatusWaiting, nil
	case "playing":
		return StatusPlaying, nil
	case "ended", "finished":
		return StatusEnded, nil
	default:
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidSnapshot, s)
	}
}

// State is one validated room snapshot. Values are never mutated after
// construction; Players is copied in and out.
type State struct {
	RoomID             string
	Players            []protocol.Player
	Board              [BoardSize]protocol.Mark
	CurrentPlayerIndex int
	Status             Status
}

// FromDetails validates a wire snapshot and converts it to a State.
func FromDetails(d protocol.RoomDetails) (State, error) {
	if len(d.Players) == 0 {
		return State{}, ErrNoPlayers
	}
	if len(d.Board) != BoardSize {
		return State{}, fmt.Errorf("%w (got %d)", ErrBoardSize, len(d.Board))
	}
	if d.CurrentPlayerIndex < 0 || d.CurrentPlayerIndex >= len(d.Players) {
		return State{}, fmt.Errorf("%w: current player index %d out of range", ErrInvalidSnapshot, d.CurrentPlayerIndex)
	}
	status, err := ParseStatus(d.Status)
	if err != nil {
		return State{}, err
	}

	st := State{
		RoomID:             d.RoomID,
		Players:            append([]protocol.Player(nil), d.Players...),
		CurrentPlayerIndex: d.CurrentPlayerIndex,
		Status:             status,
	}
	for i, cell := range d.Board {
		if !cell.Valid() {
			return State{}, fmt.Errorf("%w: cell %d has mark %q", ErrInvalidSnapshot, i, cell)
		}
		st.Board[i] = cell
	}
	return st, nil
}

// CurrentPlayer returns the player whose turn it is.
func (s State) CurrentPlayer() protocol.Player {
	return s.Players[s.CurrentPlayerIndex]
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Players = append([]protocol.Player(nil), s.Players...)
	return s
}

// Reconciler owns the single live room projection.
type Reconciler struct {
	state  *State
	logger *zap.Logger
}

// NewReconciler creates an empty Reconciler.
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Apply replaces the projection with the snapshot. A malformed snapshot is
// dropped and logged; the previous projection stays in place.
func (r *Reconciler) Apply(d protocol.RoomDetails) error {
	st, err := FromDetails(d)
	if err != nil {
		r.logger.Warn("dropping room snapshot", zap.String("room", d.RoomID), zap.Error(err))
		return err
	}
	r.state = &st
	return nil
}

// Current returns a copy of the live projection, if any.
func (r *Reconciler) Current() (State, bool) {
	if r.state == nil {
		return State{}, false
	}
	return r.state.Clone(), true
}

// CanMove reports whether a move intent may be forwarded. Cell legality is
// the server's concern.
func (r *Reconciler) CanMove() bool {
	return r.state != nil && r.state.Status == StatusPlaying
}

// Discard drops the projection.
func (r *Reconciler) Discard() {
	r.state = nil
}
