package state

import (
	"encoding/json"
	"fmt"
)

// Task is a ship's active order. Built fresh on TaskStarted, cleared to
// nil on TaskCompleted. EtaTick is a stub default (0) and is never
// reconciled client-side before the next snapshot, so consumers must
// tolerate EtaTick <= StartedTick.
type Task struct {
	Kind        TaskKind
	StartedTick uint64
	EtaTick     uint64
}

// TaskKind is the closed set of task variants.
type TaskKind interface {
	taskKind()
}

type Idle struct{}

type Survey struct {
	Site string `json:"site"`
}

type DeepScan struct {
	Asteroid string `json:"asteroid"`
}

type Mine struct {
	Asteroid      string `json:"asteroid"`
	DurationTicks uint64 `json:"duration_ticks"`
}

type Deposit struct {
	Station string `json:"station"`
	Blocked bool   `json:"blocked"`
}

type Transit struct {
	Destination string   `json:"destination"`
	TotalTicks  uint64   `json:"total_ticks"`
	Then        TaskKind `json:"-"`
}

func (Idle) taskKind()     {}
func (Survey) taskKind()   {}
func (DeepScan) taskKind() {}
func (Mine) taskKind()     {}
func (Deposit) taskKind()  {}
func (Transit) taskKind()  {}

const (
	taskTagIdle     = "Idle"
	taskTagSurvey   = "Survey"
	taskTagDeepScan = "DeepScan"
	taskTagMine     = "Mine"
	taskTagDeposit  = "Deposit"
	taskTagTransit  = "Transit"
)

type taskWire struct {
	Kind        map[string]json.RawMessage `json:"kind"`
	StartedTick uint64                     `json:"started_tick"`
	EtaTick     uint64                     `json:"eta_tick"`
}

type transitWire struct {
	Destination string                     `json:"destination"`
	TotalTicks  uint64                     `json:"total_ticks"`
	Then        map[string]json.RawMessage `json:"then,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	kind, err := encodeTaskKind(t.Kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taskWire{Kind: kind, StartedTick: t.StartedTick, EtaTick: t.EtaTick})
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var w taskWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.StartedTick = w.StartedTick
	t.EtaTick = w.EtaTick
	t.Kind = decodeTaskKind(w.Kind)
	return nil
}

func encodeTaskKind(k TaskKind) (map[string]json.RawMessage, error) {
	var tag string
	var payload any = struct{}{}
	switch v := k.(type) {
	case nil:
		tag = taskTagIdle
	case Idle:
		tag = taskTagIdle
	case Survey:
		tag, payload = taskTagSurvey, v
	case DeepScan:
		tag, payload = taskTagDeepScan, v
	case Mine:
		tag, payload = taskTagMine, v
	case Deposit:
		tag, payload = taskTagDeposit, v
	case Transit:
		then, err := encodeTaskKind(v.Then)
		if err != nil {
			return nil, err
		}
		tag, payload = taskTagTransit, transitWire{Destination: v.Destination, TotalTicks: v.TotalTicks, Then: then}
	default:
		return nil, fmt.Errorf("task kind %T has no wire tag", k)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return map[string]json.RawMessage{tag: raw}, nil
}

// decodeTaskKind resolves the tagged variant; anything unrecognized
// collapses to Idle, matching the reducer's default for unknown kinds.
func decodeTaskKind(kind map[string]json.RawMessage) TaskKind {
	for tag, payload := range kind {
		switch tag {
		case taskTagIdle:
			return Idle{}
		case taskTagSurvey:
			var v Survey
			_ = json.Unmarshal(payload, &v)
			return v
		case taskTagDeepScan:
			var v DeepScan
			_ = json.Unmarshal(payload, &v)
			return v
		case taskTagMine:
			var v Mine
			_ = json.Unmarshal(payload, &v)
			return v
		case taskTagDeposit:
			var v Deposit
			_ = json.Unmarshal(payload, &v)
			return v
		case taskTagTransit:
			var w transitWire
			_ = json.Unmarshal(payload, &w)
			return Transit{Destination: w.Destination, TotalTicks: w.TotalTicks, Then: decodeTaskKind(w.Then)}
		}
	}
	return Idle{}
}
