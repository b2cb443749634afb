package status

import (
	"encoding/json"
	"net/http"

	metrics "github.com/armon/go-metrics"
	"github.com/omochice/toy-tictactoe-client/internal/session"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
)

// SessionView is the JSON shape of a session snapshot.
type SessionView struct {
	View         string       `json:"view"`
	Username     string       `json:"username,omitempty"`
	RoomID       string       `json:"roomId,omitempty"`
	Connected    bool         `json:"connected"`
	Room         *RoomView    `json:"room,omitempty"`
	Winner       string       `json:"winner,omitempty"`
	Rematch      *RematchView `json:"rematch,omitempty"`
	ChatMessages int          `json:"chatMessages"`
	ChatUnread   int          `json:"chatUnread"`
	Error        string       `json:"error,omitempty"`
	Notice       string       `json:"notice,omitempty"`
}

type RoomView struct {
	Board         []protocol.Mark   `json:"board"`
	Players       []protocol.Player `json:"players"`
	CurrentPlayer string            `json:"currentPlayer"`
	Status        string            `json:"status"`
}

type RematchView struct {
	Accepted      []string `json:"accepted"`
	Count         int      `json:"count"`
	Total         int      `json:"total"`
	TimeRemaining *float64 `json:"timeRemaining,omitempty"`
}

// NewSessionView converts a snapshot.
func NewSessionView(s session.Snapshot) SessionView {
	v := SessionView{
		View:         s.View.String(),
		Username:     s.Username,
		RoomID:       s.RoomID,
		Connected:    s.Connected,
		ChatMessages: len(s.Chat),
		ChatUnread:   s.ChatUnread,
		Error:        s.Error,
		Notice:       s.Notice,
	}
	if s.Room != nil {
		v.Room = &RoomView{
			Board:         s.Room.Board[:],
			Players:       s.Room.Players,
			CurrentPlayer: s.Room.CurrentPlayer().Username,
			Status:        s.Room.Status.String(),
		}
	}
	if s.Result != nil {
		v.Winner = s.Result.Winner
	}
	if s.Rematch != nil {
		v.Rematch = &RematchView{
			Accepted: append([]string{}, s.Rematch.Accepted...),
			Count:    s.Rematch.Count(),
			Total:    s.Rematch.Total,
		}
		if s.Rematch.HasDeadline {
			secs := s.Rematch.TimeRemaining.Seconds()
			v.Rematch.TimeRemaining = &secs
		}
	}
	return v
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Session reports the current projection.
func Session(src SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := src.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NewSessionView(snap))
	}
}

// Metrics dumps the in-memory metrics.
func Metrics(sink *metrics.InmemSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := sink.DisplayMetrics(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(data)
	}
}
