package testserver

import (
	"sync"

	"github.com/google/uuid"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
)

// Client is one connected player.
type Client struct {
	ID       string
	Username string
	RoomID   string
	Outgoing chan []byte
}

// Hub tracks connected clients and their rooms. Every method takes the
// same lock, so room logic never races with a disconnect.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]*gameRoom
	codec   protocol.Codec
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]*gameRoom),
		codec:   protocol.JSONCodec{},
		logger:  logger,
	}
}

// Register adds a new client.
func (h *Hub) Register() *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &Client{ID: uuid.NewString(), Outgoing: make(chan []byte, 32)}
	h.clients[c] = true
	return c
}

// Unregister removes a client, ending its room for the other player.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	h.leave(c)
	delete(h.clients, c)
	close(c.Outgoing)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RoomCount returns number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) send(c *Client, name protocol.EventName, payload any) {
	ev, err := protocol.NewEvent(name, payload)
	if err != nil {
		h.logger.Error("failed to build event", zap.Error(err))
		return
	}
	data, err := h.codec.Encode(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.Error(err))
		return
	}
	select {
	case c.Outgoing <- data:
	default:
		h.logger.Warn("client channel full, skipping", zap.String("client", c.ID))
	}
}

func (h *Hub) broadcast(r *gameRoom, name protocol.EventName, payload any) {
	for _, p := range r.players {
		h.send(p, name, payload)
	}
}
