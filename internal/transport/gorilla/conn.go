// Package gorilla provides the gorilla/websocket transport driver.
package gorilla

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
)

// MaxMessageSize bounds a single inbound message.
const MaxMessageSize = 1 << 20

// Conn adapts a gorilla websocket.Conn to transport.Conn. gorilla allows
// one concurrent reader and one concurrent writer, which is exactly how
// transport.Client drives a Conn.
type Conn struct {
	conn *websocket.Conn
	typ  int
}

// NewConn wraps conn and caps inbound messages at MaxMessageSize.
func NewConn(conn *websocket.Conn, binary bool) *Conn {
	conn.SetReadLimit(MaxMessageSize)
	typ := websocket.TextMessage
	if binary {
		typ = websocket.BinaryMessage
	}
	return &Conn{conn: conn, typ: typ}
}

// Read implements transport.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.typ, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer dials with gorilla/websocket.
type Dialer struct {
	Binary bool
	Header http.Header
}

var _ transport.Dialer = Dialer{}

// Dial implements transport.Dialer.
func (d Dialer) Dial(ctx context.Context, address string) (transport.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, d.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return NewConn(conn, d.Binary), nil
}
