package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMissingEventName is returned when a decoded frame has no event name.
var ErrMissingEventName = errors.New("frame has no event name")

// Codec frames events for a transport.
type Codec interface {
	Encode(ev Event) ([]byte, error)
	Decode(data []byte) (Event, error)
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
}

// NewCodec returns the codec registered under name ("json" or "proto").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// JSONCodec frames events as {"event": ..., "data": ...} text messages.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Name == "" {
		return Event{}, ErrMissingEventName
	}
	return ev, nil
}

// Binary implements Codec.
func (JSONCodec) Binary() bool { return false }

// ProtoCodec frames events as a protobuf google.protobuf.Struct with the same
// two fields as the JSON envelope.
type ProtoCodec struct{}

const (
	fieldEvent = "event"
	fieldData  = "data"
)

// Encode implements Codec.
func (ProtoCodec) Encode(ev Event) ([]byte, error) {
	pbMsg, err := toProto(ev)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(pbMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}

// Decode implements Codec.
func (ProtoCodec) Decode(data []byte) (Event, error) {
	pbMsg := &structpb.Struct{}
	if err := proto.Unmarshal(data, pbMsg); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return fromProto(pbMsg)
}

// Binary implements Codec.
func (ProtoCodec) Binary() bool { return true }

// toProto converts the Event to a protobuf Struct.
func toProto(ev Event) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		fieldEvent: structpb.NewStringValue(string(ev.Name)),
	}
	if len(ev.Data) > 0 {
		var payload any
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Name, err)
		}
		value, err := structpb.NewValue(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Name, err)
		}
		fields[fieldData] = value
	}
	return &structpb.Struct{Fields: fields}, nil
}

// fromProto populates an Event from a protobuf Struct.
func fromProto(pbMsg *structpb.Struct) (Event, error) {
	name := pbMsg.GetFields()[fieldEvent].GetStringValue()
	if name == "" {
		return Event{}, ErrMissingEventName
	}
	ev := Event{Name: EventName(name)}
	if value, ok := pbMsg.GetFields()[fieldData]; ok {
		data, err := protojson.Marshal(value)
		if err != nil {
			return Event{}, fmt.Errorf("failed to decode %s payload: %w", name, err)
		}
		ev.Data = data
	}
	return ev, nil
}
