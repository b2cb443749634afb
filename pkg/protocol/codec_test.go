package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/omochice/toy-tictactoe-client/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name       string
		codec      string
		wantBinary bool
		wantErr    bool
	}{
		{"default is json", "", false, false},
		{"json", "json", false, false},
		{"proto", "proto", true, false},
		{"unknown", "xml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := protocol.NewCodec(tt.codec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBinary, codec.Binary())
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codecs := map[string]protocol.Codec{
		"json":  protocol.JSONCodec{},
		"proto": protocol.ProtoCodec{},
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			ev, err := protocol.NewEvent(protocol.IntentSendChatMessage, protocol.SendChatMessage{
				RoomID:   "ABC123",
				Username: "ana",
				Message:  "hola :)",
			})
			require.NoError(t, err)

			data, err := codec.Encode(ev)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, protocol.IntentSendChatMessage, decoded.Name)

			var got protocol.SendChatMessage
			require.NoError(t, decoded.Bind(&got))
			assert.Equal(t, "ABC123", got.RoomID)
			assert.Equal(t, "ana", got.Username)
			assert.Equal(t, "hola :)", got.Message)
		})
	}
}

func TestProtoCodec_PreservesNullBoardCells(t *testing.T) {
	codec := protocol.ProtoCodec{}
	ev := protocol.Event{
		Name: protocol.EventUpdateGame,
		Data: json.RawMessage(`{"players":[{"id":"a","username":"ana","symbol":"X"}],"board":[null,"X",null,null,"O",null,null,null,null],"currentPlayerIndex":0,"status":"playing"}`),
	}

	data, err := codec.Encode(ev)
	require.NoError(t, err)
	decoded, err := codec.Decode(data)
	require.NoError(t, err)

	details, err := protocol.DecodeRoomDetails(decoded)
	require.NoError(t, err)
	require.Len(t, details.Board, 9)
	assert.Equal(t, protocol.MarkEmpty, details.Board[0])
	assert.Equal(t, protocol.MarkX, details.Board[1])
	assert.Equal(t, protocol.MarkO, details.Board[4])
}

func TestJSONCodec_Decode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    protocol.EventName
		wantErr bool
	}{
		{"named event", `{"event":"playerLeft"}`, protocol.EventPlayerLeft, false},
		{"unknown names still decode", `{"event":"somethingNew","data":{}}`, "somethingNew", false},
		{"missing name", `{"data":{}}`, "", true},
		{"not json", `garbage`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.JSONCodec{}.Decode([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Name != tt.want {
				t.Errorf("Decode() name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}
