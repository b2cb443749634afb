package protocol

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestEvent_toProto(t *testing.T) {
	tests := []struct {
		name     string
		ev       Event
		wantData bool
	}{
		{
			name:     "event with payload carries data field",
			ev:       Event{Name: IntentMakeMove, Data: []byte(`{"roomId":"r1","position":4}`)},
			wantData: true,
		},
		{
			name:     "event without payload omits data field",
			ev:       Event{Name: EventPlayerLeft},
			wantData: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toProto(tt.ev)
			if err != nil {
				t.Fatalf("toProto() error = %v", err)
			}
			if name := got.GetFields()[fieldEvent].GetStringValue(); name != string(tt.ev.Name) {
				t.Errorf("toProto() event = %q, want %q", name, tt.ev.Name)
			}
			if _, ok := got.GetFields()[fieldData]; ok != tt.wantData {
				t.Errorf("toProto() has data = %v, want %v", ok, tt.wantData)
			}
		})
	}
}

func TestEvent_fromProto_MissingName(t *testing.T) {
	pbMsg := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldData: structpb.NewStringValue("orphan"),
	}}

	if _, err := fromProto(pbMsg); err != ErrMissingEventName {
		t.Errorf("fromProto() error = %v, want %v", err, ErrMissingEventName)
	}
}
