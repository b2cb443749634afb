package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omochice/toy-tictactoe-client/internal/room"
	"github.com/omochice/toy-tictactoe-client/internal/session"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  name <username>   set your username
  create            create a room
  join <code>       join a room by code
  1-9               place your mark on a cell
  say <text>        send a chat message
  chat              show or hide the chat
  rematch           ask for a rematch
  exit              leave the room
  quit              close the client`

type intent func(ctx context.Context, g *session.Gateway) error

// parseCommand turns one input line into an intent for the runner.
func parseCommand(line string, chatVisible bool) (intent, error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if n, err := strconv.Atoi(cmd); err == nil && arg == "" {
		if n < 1 || n > room.BoardSize {
			return nil, fmt.Errorf("cell must be between 1 and %d", room.BoardSize)
		}
		return func(ctx context.Context, g *session.Gateway) error {
			return g.MakeMove(ctx, n-1)
		}, nil
	}

	switch strings.ToLower(cmd) {
	case "name":
		return func(_ context.Context, g *session.Gateway) error {
			g.SetUsername(arg)
			return nil
		}, nil
	case "create":
		return func(ctx context.Context, g *session.Gateway) error {
			return g.CreateRoom(ctx)
		}, nil
	case "join":
		return func(ctx context.Context, g *session.Gateway) error {
			g.OpenJoinForm()
			g.SetRoomCode(arg)
			return g.JoinRoom(ctx)
		}, nil
	case "say":
		return func(ctx context.Context, g *session.Gateway) error {
			g.SetChatInput(arg)
			return g.SendChat(ctx)
		}, nil
	case "chat":
		return func(_ context.Context, g *session.Gateway) error {
			g.SetChatVisible(!chatVisible)
			return nil
		}, nil
	case "rematch":
		return func(ctx context.Context, g *session.Gateway) error {
			return g.RequestRematch(ctx)
		}, nil
	case "exit":
		return func(ctx context.Context, g *session.Gateway) error {
			return g.Exit(ctx)
		}, nil
	case "quit":
		return nil, errQuit
	case "help", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %q, type help", cmd)
	}
}
