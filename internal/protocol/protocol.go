package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyFrame marks a zero-length stream frame, which the transport
// should never deliver.
var ErrEmptyFrame = errors.New("empty stream frame")

// Version is the sync protocol version spoken over the push stream.
const Version = "1.0"

// Envelope is one domain event as delivered on the wire:
// {"id":"ev_123","tick":42,"event":{"OreMined":{...}}}.
// The event object has exactly one key, the tag; everything under it is
// the tag-specific payload and is decoded lazily by the reducer.
type Envelope struct {
	ID      string
	Tick    uint64
	Tag     string
	Payload json.RawMessage
}

type envelopeWire struct {
	ID    string                     `json:"id"`
	Tick  uint64                     `json:"tick"`
	Event map[string]json.RawMessage `json:"event"`
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if len(w.Event) != 1 {
		return fmt.Errorf("event envelope %q: want exactly one tag, got %d", w.ID, len(w.Event))
	}
	e.ID = w.ID
	e.Tick = w.Tick
	for tag, payload := range w.Event {
		e.Tag = tag
		e.Payload = payload
	}
	return nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire{
		ID:   e.ID,
		Tick: e.Tick,
		Event: map[string]json.RawMessage{
			e.Tag: e.Payload,
		},
	})
}

// Heartbeat is the liveness frame: {"heartbeat":true,"tick":42}.
// It carries no state change, only proof the stream is alive.
type Heartbeat struct {
	Heartbeat bool   `json:"heartbeat"`
	Tick      uint64 `json:"tick"`
}

// StreamMessage is one decoded push-stream frame: either a heartbeat or
// an ordered event batch, never both.
type StreamMessage struct {
	Heartbeat *Heartbeat
	Batch     []Envelope
}

// DecodeStreamMessage routes a raw frame by shape: a JSON array is an
// event batch, an object is a heartbeat. The stream has no side channel,
// so shape is the only discriminator.
func DecodeStreamMessage(b []byte) (StreamMessage, error) {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) == 0 {
		return StreamMessage{}, ErrEmptyFrame
	}
	switch trimmed[0] {
	case '[':
		var batch []Envelope
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return StreamMessage{}, fmt.Errorf("decode event batch: %w", err)
		}
		return StreamMessage{Batch: batch}, nil
	case '{':
		var hb Heartbeat
		if err := json.Unmarshal(trimmed, &hb); err != nil {
			return StreamMessage{}, fmt.Errorf("decode heartbeat: %w", err)
		}
		if !hb.Heartbeat {
			return StreamMessage{}, fmt.Errorf("object frame is not a heartbeat")
		}
		return StreamMessage{Heartbeat: &hb}, nil
	default:
		return StreamMessage{}, fmt.Errorf("unrecognized stream frame starting with %q", trimmed[0])
	}
}

// LatestTick returns the highest tick carried by the frame and whether
// any tick was present at all (an empty batch carries none).
func (m StreamMessage) LatestTick() (uint64, bool) {
	if m.Heartbeat != nil {
		return m.Heartbeat.Tick, true
	}
	var max uint64
	var ok bool
	for _, env := range m.Batch {
		if env.Tick >= max {
			max = env.Tick
			ok = true
		}
	}
	return max, ok
}
