// Package transport delivers named events between the session and the game
// server. It owns dialing, framing and reconnection so the session never
// touches a socket.
package transport

import "context"

// Conn abstracts one bidirectional frame connection.
// This interface isolates the WebSocket/NATS drivers from the client logic.
type Conn interface {
	// Read reads a single frame.
	// Returns an error once the connection is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens a Conn to address.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, address string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, address string) (Conn, error) {
	return f(ctx, address)
}

// State is a connection lifecycle signal.
type State struct {
	Connected bool
	// Err is the reason for a lost or failed connection; nil for a
	// requested cycle or a clean shutdown.
	Err error
	// GaveUp is set on the final signal after reconnection attempts ran out.
	GaveUp bool
}
