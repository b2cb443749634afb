// Package ws provides the nhooyr.io/websocket transport driver.
package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"nhooyr.io/websocket"
)

// MaxMessageSize bounds a single inbound frame.
const MaxMessageSize = 1 << 20

// Conn adapts nhooyr.io/websocket to transport.Conn.
type Conn struct {
	conn       *websocket.Conn
	typ        websocket.MessageType
	remoteAddr string
}

// NewConn wraps a websocket.Conn. Frames are written as binary messages
// when binary is set, as text otherwise.
func NewConn(conn *websocket.Conn, addr string, binary bool) *Conn {
	typ := websocket.MessageText
	if binary {
		typ = websocket.MessageBinary
	}
	return &Conn{conn: conn, typ: typ, remoteAddr: addr}
}

// Read implements transport.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, c.typ, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Dialer dials with nhooyr.io/websocket.
type Dialer struct {
	Binary bool
	Header http.Header
}

var _ transport.Dialer = Dialer{}

// Dial implements transport.Dialer.
func (d Dialer) Dial(ctx context.Context, address string) (transport.Conn, error) {
	conn, _, err := websocket.Dial(ctx, address, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	conn.SetReadLimit(MaxMessageSize)
	return NewConn(conn, address, d.Binary), nil
}
