package session

import (
	"context"
	"errors"
	"time"

	metrics "github.com/armon/go-metrics"
	"github.com/omochice/toy-tictactoe-client/internal/rematch"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
)

// ErrStopped is returned by Do and Snapshot once Run has returned.
var ErrStopped = errors.New("session runner stopped")

// Transport is what the runner needs from the connection layer.
type Transport interface {
	Emitter
	Events() <-chan protocol.Event
	States() <-chan transport.State
}

type runnerMsg interface{ isRunnerMsg() }

type intentMsg struct {
	fn    func(ctx context.Context, g *Gateway) error
	reply chan error
}

func (intentMsg) isRunnerMsg() {}

type tickMsg struct{ gen uint64 }

func (tickMsg) isRunnerMsg() {}

type getSnapshot struct {
	reply chan Snapshot
}

func (getSnapshot) isRunnerMsg() {}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics counts events and intents on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTickInterval overrides how often the rematch countdown advances.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// Runner owns the Machine and applies server events, connection changes,
// countdown ticks and user intents one at a time on a single goroutine.
type Runner struct {
	machine *Machine
	gateway *Gateway
	tr      Transport

	inbox   chan runnerMsg
	updates chan Snapshot
	done    chan struct{}

	ticker       *rematch.Ticker
	tickerGen    uint64
	tickInterval time.Duration

	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRunner creates a Runner on top of tr. Call Run to start it.
func NewRunner(tr Transport, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := NewMachine(logger.Named("machine"))
	r := &Runner{
		machine:      m,
		gateway:      NewGateway(m, tr, logger.Named("gateway")),
		tr:           tr,
		inbox:        make(chan runnerMsg, 64),
		updates:      make(chan Snapshot, 1),
		done:         make(chan struct{}),
		tickInterval: rematch.TickInterval,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Updates delivers the latest projection after every change. Readers that
// fall behind only see the most recent one.
func (r *Runner) Updates() <-chan Snapshot {
	return r.updates
}

// Run processes messages until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.stopTicker()

	events, states := r.tr.Events(), r.tr.States()
	r.publish()

	for {
		changed := true
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.handleEvent(ev)

		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			r.handleState(st)

		case m := <-r.inbox:
			switch msg := m.(type) {
			case intentMsg:
				err := msg.fn(ctx, r.gateway)
				r.count("intents", err)
				msg.reply <- err
			case tickMsg:
				changed = r.machine.Tick(msg.gen)
			case getSnapshot:
				msg.reply <- r.machine.Snapshot()
				changed = false
			}
		}

		if changed {
			r.syncCountdown(ctx)
			r.publish()
		}
	}
}

// Do runs fn against the Gateway on the runner goroutine and returns its
// error.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, g *Gateway) error) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- intentMsg{fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

// Snapshot returns the current projection.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case r.inbox <- getSnapshot{reply: reply}:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-r.done:
		return Snapshot{}, ErrStopped
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-r.done:
		return Snapshot{}, ErrStopped
	}
}

func (r *Runner) handleEvent(ev protocol.Event) {
	out := r.machine.Handle(ev)
	if r.metrics != nil {
		r.metrics.IncrCounterWithLabels([]string{"session", "events"}, 1, []metrics.Label{
			{Name: "event", Value: ev.Name.String()},
			{Name: "outcome", Value: out.String()},
		})
	}
}

func (r *Runner) handleState(st transport.State) {
	if st.Connected {
		r.logger.Info("connected to server")
		r.machine.ConnectionRestored()
	} else {
		if st.GaveUp {
			r.logger.Error("connection attempts exhausted", zap.Error(st.Err))
		}
		r.machine.ConnectionLost(st.Err)
	}
	if r.metrics != nil {
		var v float32
		if st.Connected {
			v = 1
		}
		r.metrics.SetGauge([]string{"session", "connected"}, v)
	}
}

func (r *Runner) count(name string, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.IncrCounter([]string{"session", name}, 1)
	if err != nil {
		r.metrics.IncrCounter([]string{"session", name, "errors"}, 1)
	}
}

// syncCountdown keeps exactly one ticker running for the current countdown
// generation.
func (r *Runner) syncCountdown(ctx context.Context) {
	gen, counting := r.machine.Countdown()
	if counting && r.ticker != nil && gen == r.tickerGen {
		return
	}
	r.stopTicker()
	if !counting {
		return
	}

	r.tickerGen = gen
	r.ticker = rematch.StartTicker(r.tickInterval, func(stop <-chan struct{}) {
		select {
		case r.inbox <- tickMsg{gen: gen}:
		case <-stop:
		case <-ctx.Done():
		}
	})
}

func (r *Runner) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Runner) publish() {
	snap := r.machine.Snapshot()
	select {
	case <-r.updates:
	default:
	}
	r.updates <- snap
}
