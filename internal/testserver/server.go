// Package testserver is a small in-process game server that speaks the
// client's wire protocol over gorilla/websocket. It backs the end-to-end
// tests and local manual runs.
package testserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// Server serves the hub on /ws.
type Server struct {
	hub      *Hub
	listener net.Listener
	server   *http.Server
	logger   *zap.Logger
	wg       sync.WaitGroup

	// Upgraded connections are hijacked, so http.Server.Close does not see them.
	conns map[*websocket.Conn]struct{}
	mu    sync.Mutex
}

// New creates a Server.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: NewHub(logger), logger: logger, conns: make(map[*websocket.Conn]struct{})}
}

// Hub exposes the hub for assertions.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on address and serves in the background.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.server = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("test game server started", zap.String("addr", listener.Addr().String()))
	return nil
}

// URL returns the WebSocket endpoint.
func (s *Server) URL() string {
	return "ws://" + s.listener.Addr().String() + "/ws"
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	client := s.hub.Register()
	s.wg.Add(1)
	go s.handleClient(conn, client)
}

func (s *Server) handleClient(conn *websocket.Conn, client *Client) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	defer s.hub.Unregister(client)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for data := range client.Outgoing {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("failed to send to client", zap.Error(err))
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", zap.Error(err))
			}
			return
		}

		ev, err := s.hub.codec.Decode(data)
		if err != nil {
			s.logger.Warn("failed to decode frame", zap.Error(err))
			continue
		}
		s.hub.handle(client, ev)
	}
}
