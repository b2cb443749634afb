package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	metrics "github.com/armon/go-metrics"
	"github.com/google/uuid"
	"github.com/omochice/toy-tictactoe-client/internal/config"
	"github.com/omochice/toy-tictactoe-client/internal/discovery"
	"github.com/omochice/toy-tictactoe-client/internal/session"
	"github.com/omochice/toy-tictactoe-client/internal/status"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"github.com/omochice/toy-tictactoe-client/internal/transport/gobwas"
	"github.com/omochice/toy-tictactoe-client/internal/transport/gorilla"
	"github.com/omochice/toy-tictactoe-client/internal/transport/nats"
	"github.com/omochice/toy-tictactoe-client/internal/transport/tcp"
	"github.com/omochice/toy-tictactoe-client/internal/transport/ws"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "game server URL (e.g., ws://localhost:5000/ws)")
	flag.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport driver: ws, gobwas, gorilla, tcp or nats")
	flag.StringVar(&cfg.Codec, "codec", cfg.Codec, "frame codec: json or proto")
	flag.StringVar(&cfg.StatusAddr, "status", cfg.StatusAddr, "serve session status on this address")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "development logging")
	username := flag.String("username", "", "username to start with")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	codec, err := protocol.NewCodec(cfg.Codec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address, dialer, err := endpoint(ctx, cfg, codec.Binary(), logger)
	if err != nil {
		return err
	}

	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	mcfg := metrics.DefaultConfig("tictactoe")
	mcfg.EnableHostname = false
	mcfg.EnableRuntimeMetrics = false
	m, err := metrics.New(mcfg, sink)
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	conn := transport.New(address, dialer, codec, cfg.TransportOptions(uuid.NewString()), logger.Named("transport"))
	runner := session.NewRunner(conn, logger.Named("session"), session.WithMetrics(m))

	g, gctx := errgroup.WithContext(ctx)
	conn.Start(gctx)
	defer conn.Close()

	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return display(gctx, runner) })
	g.Go(func() error { return prompt(gctx, runner, *username) })
	if cfg.StatusAddr != "" {
		g.Go(func() error { return serveStatus(gctx, cfg.StatusAddr, runner, sink, logger) })
	}

	logger.Info("client started",
		zap.String("client", conn.ID()),
		zap.String("address", address),
		zap.String("transport", cfg.Transport))

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// endpoint picks the dialer for the configured transport and the address
// it should dial, resolving the server through Consul when configured. The
// transport client adds the current clientId on every dial.
func endpoint(ctx context.Context, cfg config.Config, binary bool, logger *zap.Logger) (string, transport.Dialer, error) {
	if cfg.Transport == config.TransportNATS {
		return cfg.NATSURL, nats.Dialer{}, nil
	}

	address := cfg.ServerURL
	if cfg.ConsulAddrs != "" {
		client, err := discovery.NewConsulClient(cfg.ConsulAddrs, logger.Named("consul"))
		if err != nil {
			return "", nil, err
		}
		hostport, err := discovery.NewResolver(client, cfg.ConsulService, logger.Named("consul")).Resolve(ctx)
		if err != nil {
			return "", nil, err
		}
		if address, err = discovery.Endpoint(address, hostport); err != nil {
			return "", nil, err
		}
	}

	if _, err := url.Parse(address); err != nil {
		return "", nil, fmt.Errorf("invalid server url %q: %w", address, err)
	}

	switch cfg.Transport {
	case config.TransportGobwas:
		return address, gobwas.Dialer{Binary: binary}, nil
	case config.TransportGorilla:
		return address, gorilla.Dialer{Binary: binary}, nil
	case config.TransportTCP:
		return address, tcp.Dialer{}, nil
	default:
		return address, ws.Dialer{Binary: binary}, nil
	}
}

func display(ctx context.Context, runner *session.Runner) error {
	r := &renderer{w: os.Stdout}
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-runner.Updates():
			r.render(snap)
		}
	}
}

func prompt(ctx context.Context, runner *session.Runner, username string) error {
	if username != "" {
		err := runner.Do(ctx, func(_ context.Context, g *session.Gateway) error {
			g.SetUsername(username)
			return nil
		})
		if err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println(helpText)
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return leave(runner)
			}
			line = l
		}

		snap, err := runner.Snapshot(ctx)
		if err != nil {
			return err
		}
		fn, err := parseCommand(line, snap.ChatVisible)
		if errors.Is(err, errQuit) {
			return leave(runner)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if fn == nil {
			fmt.Println(helpText)
			continue
		}
		if err := runner.Do(ctx, fn); err != nil {
			// Validation failures are already part of the snapshot.
			if !errors.Is(err, session.ErrUsernameRequired) && !errors.Is(err, session.ErrRoomCodeRequired) {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

// leave tells the server we are gone before the process exits.
func leave(runner *session.Runner) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := runner.Snapshot(ctx)
	if err == nil && snap.RoomID != "" {
		_ = runner.Do(ctx, func(ctx context.Context, g *session.Gateway) error {
			return g.Exit(ctx)
		})
		// Let the write loop flush exitRoom.
		time.Sleep(100 * time.Millisecond)
	}
	return errQuit
}

func serveStatus(ctx context.Context, addr string, runner *session.Runner, sink *metrics.InmemSink, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           status.SetupRoutes(runner, sink),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("status server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}
