package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/omochice/toy-tictactoe-client/internal/transport/ws"
	"nhooyr.io/websocket"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialer_Read(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("failed to accept websocket: %v", err)
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		err = c.Write(context.Background(), websocket.MessageText, []byte(`{"event":"updateGame"}`))
		if err != nil {
			t.Errorf("failed to write: %v", err)
		}
	}))
	defer server.Close()

	conn, err := ws.Dialer{}.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"event":"updateGame"}` {
		t.Errorf("Read() = %q", string(data))
	}
}

func TestDialer_WriteMessageType(t *testing.T) {
	tests := []struct {
		name   string
		binary bool
		want   websocket.MessageType
	}{
		{"text", false, websocket.MessageText},
		{"binary", true, websocket.MessageBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			type frame struct {
				typ  websocket.MessageType
				data []byte
			}
			received := make(chan frame, 1)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c, err := websocket.Accept(w, r, nil)
				if err != nil {
					t.Errorf("failed to accept websocket: %v", err)
					return
				}
				defer c.Close(websocket.StatusNormalClosure, "")

				typ, data, err := c.Read(context.Background())
				if err != nil {
					t.Errorf("failed to read: %v", err)
					return
				}
				received <- frame{typ, data}
			}))
			defer server.Close()

			conn, err := ws.Dialer{Binary: tt.binary}.Dial(context.Background(), wsURL(server))
			if err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			defer conn.Close()

			if err := conn.Write(context.Background(), []byte("hello")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			select {
			case got := <-received:
				if got.typ != tt.want {
					t.Errorf("message type = %v, want %v", got.typ, tt.want)
				}
				if string(got.data) != "hello" {
					t.Errorf("server received %q, want %q", string(got.data), "hello")
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for frame")
			}
		})
	}
}

func TestDialer_RemoteAddr(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		c.Read(context.Background())
	}))
	defer server.Close()

	conn, err := ws.Dialer{}.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if addr := conn.RemoteAddr(); addr != wsURL(server) {
		t.Errorf("RemoteAddr() = %q, want %q", addr, wsURL(server))
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDialer_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := (ws.Dialer{}).Dial(ctx, url); err == nil {
		t.Error("expected error dialing a closed server")
	}
}
