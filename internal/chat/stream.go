// Package chat keeps the per-session chat log and the local bookkeeping the
// front end needs around it: unread tracking, emoji substitution and
// per-sender colors.
package chat

import "time"

// Message is one chat line. Immutable once appended.
type Message struct {
	Username  string
	Message   string
	Timestamp time.Time
}

// Stream is an append-only log in arrival order. Timestamps are carried for
// display only and never reorder the log, so clock skew between sender and
// receiver cannot shuffle what the user sees.
type Stream struct {
	log      []Message
	lastRead int
	visible  bool
}

// NewStream creates an empty Stream.
func NewStream() *Stream {
	return &Stream{}
}

// Append adds msg to the end of the log. While the log is visible the new
// message counts as read immediately.
func (s *Stream) Append(msg Message) {
	s.log = append(s.log, msg)
	if s.visible {
		s.MarkRead()
	}
}

// Messages returns a copy of the log.
func (s *Stream) Messages() []Message {
	return append([]Message(nil), s.log...)
}

// Len returns the number of messages in the log.
func (s *Stream) Len() int {
	return len(s.log)
}

// MarkRead moves the unread marker to the end of the log.
func (s *Stream) MarkRead() {
	s.lastRead = len(s.log)
}

// Unread reports whether messages arrived since the last MarkRead.
func (s *Stream) Unread() bool {
	return len(s.log) > s.lastRead
}

// UnreadCount returns how many messages arrived since the last MarkRead.
func (s *Stream) UnreadCount() int {
	return len(s.log) - s.lastRead
}

// SetVisible records whether the chat panel is open. Opening it marks
// everything read.
func (s *Stream) SetVisible(visible bool) {
	s.visible = visible
	if visible {
		s.MarkRead()
	}
}

// Visible reports whether the chat panel is open.
func (s *Stream) Visible() bool {
	return s.visible
}

// Reset clears the log for a new room, game or session context. Panel
// visibility is a UI preference and survives.
func (s *Stream) Reset() {
	s.log = nil
	s.lastRead = 0
}
