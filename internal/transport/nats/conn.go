// Package nats provides a transport driver that exchanges frames over NATS
// subjects instead of a WebSocket. The server side is expected to publish
// events on EventsSubject(id) and consume intents on IntentsSubject(id).
package nats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"go.uber.org/multierr"
)

// SubjectPrefix namespaces every subject this driver touches.
const SubjectPrefix = "tictactoe"

// EventsSubject is where the server publishes events for one client.
func EventsSubject(clientID string) string {
	return fmt.Sprintf("%s.events.%s", SubjectPrefix, clientID)
}

// IntentsSubject is where one client publishes its intents.
func IntentsSubject(clientID string) string {
	return fmt.Sprintf("%s.intents.%s", SubjectPrefix, clientID)
}

// Conn is one NATS connection with a synchronous subscription on the
// client's events subject.
type Conn struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	intents string
}

// Read implements transport.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	msg, err := c.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// Write implements transport.Conn.
func (c *Conn) Write(_ context.Context, data []byte) error {
	return c.nc.Publish(c.intents, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	var err error
	if c.sub.IsValid() {
		err = multierr.Append(err, c.sub.Unsubscribe())
	}
	c.nc.Close()
	return err
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.nc.ConnectedUrl()
}

// ErrNoClientID is returned when the dial address carries no clientId.
var ErrNoClientID = errors.New("nats driver needs a client id")

// Dialer connects to a NATS server. The address passed to Dial is the
// server URL with the client identity in its clientId query parameter, so
// each dial subscribes under the identity current at that moment.
type Dialer struct{}

var _ transport.Dialer = Dialer{}

// Dial implements transport.Dialer. Reconnection is left to
// transport.Client so every driver behaves the same.
func (Dialer) Dial(ctx context.Context, address string) (transport.Conn, error) {
	server, clientID, err := splitAddress(address)
	if err != nil {
		return nil, err
	}
	opts := []nats.Option{
		nats.Name("tictactoe-client-" + clientID),
		nats.NoReconnect(),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(max(time.Until(deadline), time.Millisecond)))
	}

	nc, err := nats.Connect(server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", server, err)
	}
	sub, err := nc.SubscribeSync(EventsSubject(clientID))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return &Conn{nc: nc, sub: sub, intents: IntentsSubject(clientID)}, nil
}

// splitAddress separates the server URL from the clientId parameter.
func splitAddress(address string) (string, string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("invalid nats url %q: %w", address, err)
	}
	q := u.Query()
	clientID := q.Get(transport.ClientIDParam)
	if clientID == "" {
		return "", "", ErrNoClientID
	}
	q.Del(transport.ClientIDParam)
	u.RawQuery = q.Encode()
	return u.String(), clientID, nil
}
