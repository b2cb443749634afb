// Command server runs the in-process game server on its own, for trying the
// client locally without the real backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/toy-tictactoe-client/internal/testserver"
	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", "localhost:5000", "listen address")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	var (
		logger *zap.Logger
		err    error
	)
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv := testserver.New(logger)
	if err := srv.Start(*addr); err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	fmt.Printf("Game server listening on %s\n", srv.URL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down server...")
	srv.Stop()
}
