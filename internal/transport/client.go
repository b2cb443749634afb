package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConnected = errors.New("not connected to server")
	ErrQueueFull    = errors.New("outgoing queue is full")
	ErrClosed       = errors.New("client is closed")

	errCycled = errors.New("connection cycled")
)

// ClientIDParam is the query parameter that carries the client identity on
// every dial address.
const ClientIDParam = "clientId"

// Defaults mirror the reference web client's socket options.
const (
	DefaultReconnectAttempts = 10
	DefaultReconnectDelay    = time.Second
	DefaultDialTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultQueueSize         = 16
)

// Options tunes connection handling. Zero fields take the defaults.
type Options struct {
	// ClientID is the identity presented on the first dial; a random UUID
	// when empty. Cycle replaces it.
	ClientID string
	// ReconnectAttempts is the number of consecutive failed dials tolerated
	// before giving up. Negative means retry forever.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration
	WriteTimeout      time.Duration
	QueueSize         int
}

func (o Options) withDefaults() Options {
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	return o
}

// Client keeps one connection to the game server alive, decoding inbound
// frames into events and encoding outbound intents. Emit never waits for an
// acknowledgment.
type Client struct {
	address string
	dialer  Dialer
	codec   protocol.Codec
	opts    Options
	base    *zap.Logger

	events   chan protocol.Event
	states   chan State
	outgoing chan []byte
	cycle    chan struct{}

	mu     sync.RWMutex
	id     string
	logger *zap.Logger
	conn   Conn
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Client. Call Start to begin dialing.
func New(address string, dialer Dialer, codec protocol.Codec, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if codec == nil {
		codec = protocol.JSONCodec{}
	}
	opts = opts.withDefaults()
	id := opts.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	return &Client{
		id:       id,
		address:  address,
		dialer:   dialer,
		codec:    codec,
		opts:     opts,
		base:     logger,
		logger:   logger.With(zap.String("client", id)),
		events:   make(chan protocol.Event, opts.QueueSize),
		states:   make(chan State, 4),
		outgoing: make(chan []byte, opts.QueueSize),
		cycle:    make(chan struct{}, 1),
	}
}

// ID returns the identity presented on the current or next dial.
func (c *Client) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *Client) log() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// rotateID gives the next connection a fresh identity so nothing of the
// previous session carries over.
func (c *Client) rotateID() {
	id := uuid.NewString()
	c.mu.Lock()
	c.id = id
	c.logger = c.base.With(zap.String("client", id))
	c.mu.Unlock()
}

// WithClientID sets the clientId query parameter on address. Addresses
// without a host, such as a bare host:port, are returned unchanged.
func WithClientID(address, id string) string {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return address
	}
	q := u.Query()
	q.Set(ClientIDParam, id)
	u.RawQuery = q.Encode()
	return u.String()
}

// Start launches the connection loop. Both Events and States are closed
// once the loop ends.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Events returns inbound events in arrival order.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// States returns connection lifecycle signals.
func (c *Client) States() <-chan State {
	return c.states
}

// IsConnected returns whether the client currently holds a connection.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Emit encodes and queues an intent for the write loop.
func (c *Client) Emit(ctx context.Context, name protocol.EventName, payload any) error {
	ev, err := protocol.NewEvent(name, payload)
	if err != nil {
		return err
	}
	data, err := c.codec.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.RLock()
	closed, connected := c.closed, c.conn != nil
	c.mu.RUnlock()
	switch {
	case closed:
		return ErrClosed
	case !connected:
		return ErrNotConnected
	}

	select {
	case c.outgoing <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Cycle drops the current connection after flushing queued intents and
// dials again at once under a new identity. Without a live connection it is a no-op since the
// loop is already dialing.
func (c *Client) Cycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	closed, connected := c.closed, c.conn != nil
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !connected {
		return nil
	}
	select {
	case c.cycle <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the connection loop and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.states)
	defer close(c.events)

	failures := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			gaveUp := c.opts.ReconnectAttempts > 0 && failures >= c.opts.ReconnectAttempts
			c.log().Warn("failed to connect",
				zap.String("address", c.address),
				zap.Int("attempt", failures),
				zap.Error(err))
			c.publish(ctx, State{Err: err, GaveUp: gaveUp})
			if gaveUp {
				c.log().Error("giving up reconnecting", zap.Int("attempts", failures))
				return
			}
			if !sleep(ctx, c.opts.ReconnectDelay) {
				return
			}
			continue
		}

		failures = 0
		c.setConn(conn)
		c.log().Info("connected", zap.String("remote", conn.RemoteAddr()))
		c.publish(ctx, State{Connected: true})

		err = c.serve(ctx, conn)
		c.setConn(nil)
		c.drainOutgoing()
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, errCycled) {
			c.log().Debug("connection cycled")
			c.rotateID()
			c.publish(ctx, State{})
			continue
		}
		c.log().Warn("connection lost", zap.Error(err))
		c.publish(ctx, State{Err: err})
		if !sleep(ctx, c.opts.ReconnectDelay) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(dctx, WithClientID(c.address, c.ID()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return conn, nil
}

// serve pumps frames until the connection fails, a cycle is requested or
// ctx ends. The connection is closed on return.
func (c *Client) serve(ctx context.Context, conn Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.readLoop(gctx, conn) })
	g.Go(func() error { return c.writeLoop(gctx, conn) })

	var closeErr error
	g.Go(func() error {
		// Not every driver honors ctx in Read; closing unblocks it.
		<-gctx.Done()
		closeErr = conn.Close()
		return nil
	})

	err := g.Wait()
	if closeErr != nil && !errors.Is(err, errCycled) {
		err = multierr.Append(err, closeErr)
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read from server: %w", err)
		}

		ev, err := c.codec.Decode(data)
		if err != nil {
			c.log().Warn("failed to decode frame", zap.Error(err))
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn Conn) error {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.write(ctx, conn, data); err != nil {
				return err
			}
		case <-c.cycle:
			// Intents queued before the cycle still belong to the old session.
			for {
				select {
				case data := <-c.outgoing:
					if err := c.write(ctx, conn, data); err != nil {
						return err
					}
				default:
					return errCycled
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) write(ctx context.Context, conn Conn, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(wctx, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// drainOutgoing drops intents that never reached a connection; nothing is
// replayed into the next one.
func (c *Client) drainOutgoing() {
	for {
		select {
		case <-c.outgoing:
		case <-c.cycle:
		default:
			return
		}
	}
}

func (c *Client) publish(ctx context.Context, st State) {
	select {
	case c.states <- st:
	case <-ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
