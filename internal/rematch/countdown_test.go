package rematch_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/omochice/toy-tictactoe-client/internal/rematch"
)

func TestTicker_FiresUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	fired := make(chan struct{}, 16)

	tk := rematch.StartTicker(5*time.Millisecond, func(<-chan struct{}) {
		ticks.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tick")
	}

	tk.Stop()
	after := ticks.Load()

	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Errorf("ticked after Stop: %d -> %d", after, got)
	}
}

func TestTicker_StopUnblocksPendingHandoff(t *testing.T) {
	blocked := make(chan struct{})
	var once atomic.Bool

	tk := rematch.StartTicker(time.Millisecond, func(stop <-chan struct{}) {
		if once.CompareAndSwap(false, true) {
			close(blocked)
		}
		<-stop
	})

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tick")
	}

	done := make(chan struct{})
	go func() {
		tk.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return while a tick was pending")
	}

	// Safe to call twice.
	tk.Stop()
}
