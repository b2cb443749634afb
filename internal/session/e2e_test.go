package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/omochice/toy-tictactoe-client/internal/session"
	"github.com/omochice/toy-tictactoe-client/internal/testserver"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"github.com/omochice/toy-tictactoe-client/internal/transport/ws"
	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type player struct {
	name   string
	runner *session.Runner
	client *transport.Client
}

func connectPlayer(t *testing.T, url, name string) *player {
	t.Helper()
	client := transport.New(url, ws.Dialer{}, protocol.JSONCodec{}, transport.Options{ReconnectDelay: 10 * time.Millisecond}, nil)
	client.Start(context.Background())
	t.Cleanup(func() { client.Close() })

	r, _, _ := startRunner(t, client)
	p := &player{name: name, runner: r, client: client}
	p.waitFor(t, "connected", func(s session.Snapshot) bool { return s.Connected })
	return p
}

func (p *player) do(t *testing.T, fn func(ctx context.Context, g *session.Gateway) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.runner.Do(ctx, fn), "%s", p.name)
}

func (p *player) waitFor(t *testing.T, what string, cond func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	var last session.Snapshot
	ok := assert.Eventually(t, func() bool {
		last = snapshotOf(t, p.runner)
		return cond(last)
	}, 3*time.Second, 10*time.Millisecond, "%s: waiting for %s", p.name, what)
	if !ok {
		t.FailNow()
	}
	return last
}

func (p *player) move(t *testing.T, position int) {
	t.Helper()
	p.do(t, func(ctx context.Context, g *session.Gateway) error {
		return g.MakeMove(ctx, position)
	})
}

func marked(position int) func(session.Snapshot) bool {
	return func(s session.Snapshot) bool {
		return s.Room != nil && s.Room.Board[position] != protocol.MarkEmpty
	}
}

// startMatch creates a room for host and joins guest to it.
func startMatch(t *testing.T, host, guest *player) string {
	t.Helper()
	host.do(t, func(ctx context.Context, g *session.Gateway) error {
		g.SetUsername(host.name)
		return g.CreateRoom(ctx)
	})
	waiting := host.waitFor(t, "waiting room", func(s session.Snapshot) bool {
		return s.View == session.ViewWaitingRoom && s.RoomID != ""
	})

	guest.do(t, func(ctx context.Context, g *session.Gateway) error {
		g.OpenJoinForm()
		g.SetUsername(guest.name)
		g.SetRoomCode(waiting.RoomID)
		return g.JoinRoom(ctx)
	})
	for _, p := range []*player{host, guest} {
		p.waitFor(t, "game", func(s session.Snapshot) bool { return s.View == session.ViewGame })
	}
	return waiting.RoomID
}

func TestEndToEnd_FullMatch(t *testing.T) {
	srv := testserver.New(nil)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	ana := connectPlayer(t, srv.URL(), "ana")
	beto := connectPlayer(t, srv.URL(), "beto")
	roomID := startMatch(t, ana, beto)

	snap := snapshotOf(t, beto.runner)
	assert.Equal(t, roomID, snap.RoomID)
	require.NotNil(t, snap.Room)
	assert.Len(t, snap.Room.Players, 2)

	// Out of turn: the server rejects and the board is untouched.
	beto.move(t, 8)
	beto.waitFor(t, "turn error", func(s session.Snapshot) bool { return s.Error == testserver.ErrTextNotYourTurn })

	ana.move(t, 0)
	beto.waitFor(t, "X at 0", marked(0))

	beto.move(t, 0)
	beto.waitFor(t, "cell error", func(s session.Snapshot) bool { return s.Error == testserver.ErrTextCellTaken })

	beto.do(t, func(ctx context.Context, g *session.Gateway) error {
		g.SetChatInput("suerte :)")
		return g.SendChat(ctx)
	})
	ana.waitFor(t, "chat", func(s session.Snapshot) bool {
		return len(s.Chat) == 1 && s.Chat[0].Username == "beto" && s.Chat[0].Message == "suerte :)"
	})

	beto.move(t, 3)
	ana.waitFor(t, "O at 3", marked(3))
	ana.move(t, 1)
	beto.waitFor(t, "X at 1", marked(1))
	beto.move(t, 4)
	ana.waitFor(t, "O at 4", marked(4))
	ana.move(t, 2)

	for _, p := range []*player{ana, beto} {
		end := p.waitFor(t, "game end", func(s session.Snapshot) bool { return s.View == session.ViewGameEnd })
		require.NotNil(t, end.Result)
		assert.Equal(t, "X", end.Result.Winner)
		assert.True(t, end.CanRequestRematch())
	}

	// Rematch: one vote is visible to both, the second restarts the game.
	ana.do(t, func(ctx context.Context, g *session.Gateway) error { return g.RequestRematch(ctx) })
	beto.waitFor(t, "one vote", func(s session.Snapshot) bool { return s.Rematch != nil && s.Rematch.Count() == 1 })
	beto.do(t, func(ctx context.Context, g *session.Gateway) error { return g.RequestRematch(ctx) })
	for _, p := range []*player{ana, beto} {
		again := p.waitFor(t, "new game", func(s session.Snapshot) bool { return s.View == session.ViewGame })
		assert.Nil(t, again.Result)
		for _, cell := range again.Room.Board {
			assert.Equal(t, protocol.MarkEmpty, cell)
		}
	}

	// Exit notifies the other player and leaves both on the username view.
	ana.do(t, func(ctx context.Context, g *session.Gateway) error { return g.Exit(ctx) })
	left := beto.waitFor(t, "player left", func(s session.Snapshot) bool { return s.Notice == session.NoticePlayerLeft })
	assert.Equal(t, session.ViewUsername, left.View)
	assert.Empty(t, left.RoomID)

	exited := ana.waitFor(t, "reconnected", func(s session.Snapshot) bool { return s.Connected })
	assert.Equal(t, session.ViewUsername, exited.View)
	assert.Empty(t, exited.Username)
	assert.Eventually(t, func() bool { return srv.Hub().RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEndToEnd_JoinErrors(t *testing.T) {
	srv := testserver.New(nil)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	ana := connectPlayer(t, srv.URL(), "ana")
	beto := connectPlayer(t, srv.URL(), "beto")
	carla := connectPlayer(t, srv.URL(), "carla")

	carla.do(t, func(ctx context.Context, g *session.Gateway) error {
		g.OpenJoinForm()
		g.SetUsername("carla")
		g.SetRoomCode("NOPE00")
		return g.JoinRoom(ctx)
	})
	missing := carla.waitFor(t, "missing room", func(s session.Snapshot) bool { return s.Error != "" })
	assert.Equal(t, testserver.ErrTextRoomNotFound, missing.Error)
	assert.Equal(t, session.ViewJoinRoom, missing.View)

	roomID := startMatch(t, ana, beto)

	carla.do(t, func(ctx context.Context, g *session.Gateway) error {
		g.SetRoomCode(roomID)
		return g.JoinRoom(ctx)
	})
	full := carla.waitFor(t, "full room", func(s session.Snapshot) bool { return s.Error == testserver.ErrTextRoomFull })
	assert.Equal(t, session.ViewJoinRoom, full.View)
	assert.Equal(t, 3, srv.Hub().ClientCount())
}

func TestEndToEnd_DisconnectEndsRoom(t *testing.T) {
	srv := testserver.New(nil)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	ana := connectPlayer(t, srv.URL(), "ana")
	beto := connectPlayer(t, srv.URL(), "beto")
	startMatch(t, ana, beto)

	require.NoError(t, ana.client.Close())
	left := beto.waitFor(t, "player left", func(s session.Snapshot) bool { return s.View == session.ViewUsername })
	assert.Equal(t, session.NoticePlayerLeft, left.Notice)
	assert.Equal(t, "beto", left.Username, "the username survives a server-side termination")
}
