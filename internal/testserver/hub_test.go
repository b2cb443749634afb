package testserver

import (
	"testing"

	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intent(t *testing.T, name protocol.EventName, payload any) protocol.Event {
	t.Helper()
	ev, err := protocol.NewEvent(name, payload)
	require.NoError(t, err)
	return ev
}

func drain(t *testing.T, c *Client) []protocol.Event {
	t.Helper()
	var out []protocol.Event
	for {
		select {
		case data := <-c.Outgoing:
			ev, err := protocol.JSONCodec{}.Decode(data)
			require.NoError(t, err)
			out = append(out, ev)
		default:
			return out
		}
	}
}

func names(evs []protocol.Event) []protocol.EventName {
	var out []protocol.EventName
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil)

	c1 := hub.Register()
	c2 := hub.Register()
	assert.Equal(t, 2, hub.ClientCount())
	assert.NotEqual(t, c1.ID, c2.ID)

	hub.Unregister(c1)
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_DrawGame(t *testing.T) {
	hub := NewHub(nil)
	x, o := hub.Register(), hub.Register()

	hub.handle(x, intent(t, protocol.IntentCreateRoom, protocol.CreateRoom{Username: "ana"}))
	created := drain(t, x)
	require.Len(t, created, 1)
	var rc protocol.RoomCreated
	require.NoError(t, created[0].Bind(&rc))
	require.Len(t, rc.RoomID, 6)

	hub.handle(o, intent(t, protocol.IntentJoinRoom, protocol.JoinRoom{RoomID: rc.RoomID, Username: "beto"}))
	assert.Equal(t, []protocol.EventName{protocol.EventGameStarted}, names(drain(t, x)))
	assert.Equal(t, []protocol.EventName{protocol.EventGameStarted}, names(drain(t, o)))

	// X O X / X O O / O X X
	moves := []int{0, 1, 2, 4, 3, 5, 7, 6, 8}
	players := []*Client{x, o}
	for i, pos := range moves {
		hub.handle(players[i%2], intent(t, protocol.IntentMakeMove, protocol.MakeMove{RoomID: rc.RoomID, Position: pos}))
	}

	evs := drain(t, o)
	require.Len(t, evs, len(moves)+1)
	last := evs[len(evs)-1]
	assert.Equal(t, protocol.EventGameEnded, last.Name)
	var ended protocol.GameEnded
	require.NoError(t, last.Bind(&ended))
	assert.Equal(t, protocol.WinnerDraw, ended.Winner)
}

func TestHub_UnregisterNotifiesOpponent(t *testing.T) {
	hub := NewHub(nil)
	x, o := hub.Register(), hub.Register()

	hub.handle(x, intent(t, protocol.IntentCreateRoom, protocol.CreateRoom{Username: "ana"}))
	var rc protocol.RoomCreated
	require.NoError(t, drain(t, x)[0].Bind(&rc))
	hub.handle(o, intent(t, protocol.IntentJoinRoom, protocol.JoinRoom{RoomID: rc.RoomID, Username: "beto"}))
	drain(t, o)

	hub.Unregister(x)
	assert.Equal(t, []protocol.EventName{protocol.EventPlayerLeft}, names(drain(t, o)))
	assert.Equal(t, 0, hub.RoomCount())
}
