package nats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omochice/toy-tictactoe-client/internal/transport/nats"
)

func TestSubjects(t *testing.T) {
	if got := nats.EventsSubject("c1"); got != "tictactoe.events.c1" {
		t.Errorf("EventsSubject() = %q", got)
	}
	if got := nats.IntentsSubject("c1"); got != "tictactoe.intents.c1" {
		t.Errorf("IntentsSubject() = %q", got)
	}
}

func TestDialer_RequiresClientID(t *testing.T) {
	_, err := nats.Dialer{}.Dial(context.Background(), "nats://127.0.0.1:4222")
	if !errors.Is(err, nats.ErrNoClientID) {
		t.Errorf("Dial() error = %v, want ErrNoClientID", err)
	}
}

func TestDialer_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Port 1 is never a NATS server.
	if _, err := (nats.Dialer{}).Dial(ctx, "nats://127.0.0.1:1?clientId=c1"); err == nil {
		t.Error("expected error dialing an unreachable server")
	}
}
