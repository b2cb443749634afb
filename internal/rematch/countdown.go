package rematch

import (
	"sync"
	"time"
)

// TickInterval is how often the countdown advances.
const TickInterval = time.Second

// Ticker calls fn once per interval on its own goroutine until stopped.
// fn receives the stop channel so a blocking hand-off can bail out; after
// Stop returns fn is never called again.
type Ticker struct {
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// StartTicker launches the ticking goroutine.
func StartTicker(interval time.Duration, fn func(stop <-chan struct{})) *Ticker {
	t := &Ticker{done: make(chan struct{})}
	t.wg.Add(1)
	go t.run(interval, fn)
	return t
}

func (t *Ticker) run(interval time.Duration, fn func(stop <-chan struct{})) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn(t.done)
		}
	}
}

// Stop halts the ticker and waits for its goroutine to exit.
func (t *Ticker) Stop() {
	t.once.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
}
