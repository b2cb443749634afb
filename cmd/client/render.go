package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/omochice/toy-tictactoe-client/internal/chat"
	"github.com/omochice/toy-tictactoe-client/internal/session"
)

// senderColors has one terminal color per chat.Palette entry.
var senderColors = []*color.Color{
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgRed),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgHiMagenta),
	color.New(color.FgHiCyan),
}

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	noticeColor = color.New(color.FgYellow)
	winColor    = color.New(color.FgHiGreen, color.Bold)
)

// renderer prints only what changed between two snapshots.
type renderer struct {
	w    io.Writer
	last *session.Snapshot
}

func (r *renderer) render(s session.Snapshot) {
	prev := r.last
	r.last = &s

	if prev == nil || stateChanged(*prev, s) {
		r.screen(s)
	}

	from := 0
	if prev != nil && prev.View == s.View && prev.RoomID == s.RoomID && len(prev.Chat) <= len(s.Chat) {
		from = len(prev.Chat)
	}
	if s.ChatVisible {
		for _, msg := range s.Chat[from:] {
			r.chatLine(msg)
		}
	} else if s.ChatUnread > 0 && (prev == nil || prev.ChatUnread != s.ChatUnread) {
		fmt.Fprintf(r.w, "(%d unread chat messages, type chat)\n", s.ChatUnread)
	}
}

func stateChanged(a, b session.Snapshot) bool {
	if a.View != b.View || a.Error != b.Error || a.Notice != b.Notice || a.Connected != b.Connected {
		return true
	}
	if (a.Room == nil) != (b.Room == nil) || (a.Room != nil && (a.Room.Board != b.Room.Board || a.Room.CurrentPlayerIndex != b.Room.CurrentPlayerIndex)) {
		return true
	}
	if (a.Rematch == nil) != (b.Rematch == nil) {
		return true
	}
	if a.Rematch != nil && (!slices.Equal(a.Rematch.Accepted, b.Rematch.Accepted) || a.Rematch.Votes != b.Rematch.Votes || a.Rematch.Requested != b.Rematch.Requested) {
		return true
	}
	return a.ChatVisible != b.ChatVisible && b.ChatVisible
}

func (r *renderer) screen(s session.Snapshot) {
	fmt.Fprintf(r.w, "\n== %s ==\n", s.View)
	if !s.Connected {
		fmt.Fprintln(r.w, "(offline)")
	}
	if s.Notice != "" {
		noticeColor.Fprintln(r.w, s.Notice)
	}
	if s.Error != "" {
		errorColor.Fprintln(r.w, s.Error)
	}

	switch s.View {
	case session.ViewUsername:
		fmt.Fprintln(r.w, "name <username>, then create or join <code>")
	case session.ViewJoinRoom:
		fmt.Fprintln(r.w, "join <code>")
	case session.ViewWaitingRoom:
		fmt.Fprintf(r.w, "Room %s, waiting for an opponent\n", s.RoomID)
	case session.ViewGame:
		r.board(s)
	case session.ViewGameEnd:
		r.board(s)
		r.result(s)
	}

	if s.ChatVisible {
		for _, msg := range s.Chat {
			r.chatLine(msg)
		}
	}
}

func (r *renderer) board(s session.Snapshot) {
	if s.Room == nil {
		return
	}
	for row := range 3 {
		cells := make([]string, 3)
		for col := range 3 {
			i := row*3 + col
			if mark := s.Room.Board[i]; mark != "" {
				cells[col] = string(mark)
			} else {
				cells[col] = fmt.Sprint(i + 1)
			}
		}
		fmt.Fprintf(r.w, " %s\n", strings.Join(cells, " | "))
	}
	if s.View == session.ViewGame {
		p := s.Room.CurrentPlayer()
		fmt.Fprintf(r.w, "Turn: %s (%s)\n", p.Username, p.Symbol)
	}
}

func (r *renderer) result(s session.Snapshot) {
	if s.Result == nil {
		return
	}
	if s.Result.Draw() {
		fmt.Fprintln(r.w, "Draw!")
	} else if s.Celebrate {
		winColor.Fprintf(r.w, "Winner: %s\n", s.Result.Winner)
	}
	if v := s.Rematch; v != nil {
		fmt.Fprintf(r.w, "Rematch: %d/%d", v.Count(), v.Total)
		if v.HasDeadline {
			fmt.Fprintf(r.w, " (%ds)", int(v.TimeRemaining.Seconds()))
		}
		fmt.Fprintln(r.w)
		if s.CanRequestRematch() {
			fmt.Fprintln(r.w, "type rematch to play again")
		}
	}
}

func (r *renderer) chatLine(msg chat.Message) {
	c := senderColors[chat.ColorIndex(msg.Username, len(senderColors))]
	c.Fprintf(r.w, "%s", msg.Username)
	fmt.Fprintf(r.w, ": %s\n", chat.Render(msg.Message))
}
