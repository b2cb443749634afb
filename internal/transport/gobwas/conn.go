// Package gobwas provides the gobwas/ws transport driver. It is the
// lightest of the WebSocket drivers and works on a bare net.Conn.
package gobwas

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
)

// MaxMessageSize bounds a single inbound message.
const MaxMessageSize = 1 << 20

var ErrMessageTooLarge = errors.New("message too large")

// Conn wraps a client-side net.Conn speaking WebSocket framing.
type Conn struct {
	conn   net.Conn
	reader io.Reader
	op     ws.OpCode

	// wsutil writes are not atomic across frames
	mu sync.Mutex
}

// NewConn wraps conn. br holds any bytes the handshake read past the
// response and may be nil.
func NewConn(conn net.Conn, br *bufio.Reader, binary bool) *Conn {
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
	}
	op := ws.OpText
	if binary {
		op = ws.OpBinary
	}
	return &Conn{conn: conn, reader: r, op: op}
}

// Read implements transport.Conn. Control frames are answered inline and
// messages over MaxMessageSize fail the read.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	rw := &lockedRW{c: c}
	rd := wsutil.Reader{
		Source:         rw,
		State:          ws.StateClientSide,
		MaxFrameSize:   MaxMessageSize,
		OnIntermediate: wsutil.ControlFrameHandler(rw, ws.StateClientSide),
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := rd.OnIntermediate(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		// Continuation frames are each under MaxFrameSize; cap the whole message too.
		data, err := io.ReadAll(io.LimitReader(&rd, MaxMessageSize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > MaxMessageSize {
			return nil, fmt.Errorf("%w: over %d bytes", ErrMessageTooLarge, MaxMessageSize)
		}
		return data, nil
	}
}

// lockedRW routes control-frame replies through the write lock.
type lockedRW struct {
	c *Conn
}

func (rw *lockedRW) Read(p []byte) (int, error) {
	return rw.c.reader.Read(p)
}

func (rw *lockedRW) Write(p []byte) (int, error) {
	rw.c.mu.Lock()
	defer rw.c.mu.Unlock()
	return rw.c.conn.Write(p)
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteClientMessage(c.conn, c.op, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer dials with gobwas/ws.
type Dialer struct {
	Binary bool
}

var _ transport.Dialer = Dialer{}

// Dial implements transport.Dialer.
func (d Dialer) Dial(ctx context.Context, address string) (transport.Conn, error) {
	conn, br, _, err := ws.Dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return NewConn(conn, br, d.Binary), nil
}
