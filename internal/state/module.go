package state

import (
	"encoding/json"
	"fmt"
)

// ModuleState is one installed station module. Kind is fixed at install
// time and never re-tagged; only the fields inside it change.
type ModuleState struct {
	ID      string     `json:"id"`
	DefID   string     `json:"def_id"`
	Enabled bool       `json:"enabled"`
	Wear    float64    `json:"wear"`
	Kind    ModuleKind `json:"-"`
}

// ModuleKind is the closed set of module behaviors.
type ModuleKind interface {
	moduleKind()
}

type Processor struct {
	Stalled     bool    `json:"stalled"`
	ThresholdKg float64 `json:"threshold_kg"`
}

type Maintenance struct{}

type Assembler struct {
	Stalled bool `json:"stalled"`
	Capped  bool `json:"capped"`
}

type Lab struct {
	TicksSinceLastRun uint64 `json:"ticks_since_last_run"`
	AssignedTech      string `json:"assigned_tech,omitempty"`
	Starved           bool   `json:"starved"`
}

type SensorArray struct{}
type SolarArray struct{}
type Battery struct{}
type Storage struct{}

func (Processor) moduleKind()   {}
func (Maintenance) moduleKind() {}
func (Assembler) moduleKind()   {}
func (Lab) moduleKind()         {}
func (SensorArray) moduleKind() {}
func (SolarArray) moduleKind()  {}
func (Battery) moduleKind()     {}
func (Storage) moduleKind()     {}

const (
	moduleTagProcessor   = "Processor"
	moduleTagMaintenance = "Maintenance"
	moduleTagAssembler   = "Assembler"
	moduleTagLab         = "Lab"
	moduleTagSensorArray = "SensorArray"
	moduleTagSolarArray  = "SolarArray"
	moduleTagBattery     = "Battery"
	moduleTagStorage     = "Storage"
)

// InitialKindState maps a ModuleInstalled behavior-type tag to the
// kind_state a fresh install starts with. Unknown tags report !ok; the
// reducer logs and falls back to Processor's initial state.
func InitialKindState(behaviorType string) (ModuleKind, bool) {
	switch behaviorType {
	case moduleTagProcessor:
		return Processor{}, true
	case moduleTagMaintenance:
		return Maintenance{}, true
	case moduleTagAssembler:
		return Assembler{}, true
	case moduleTagLab:
		return Lab{}, true
	case moduleTagSensorArray:
		return SensorArray{}, true
	case moduleTagSolarArray:
		return SolarArray{}, true
	case moduleTagBattery:
		return Battery{}, true
	case moduleTagStorage:
		return Storage{}, true
	default:
		return Processor{}, false
	}
}

type moduleWire struct {
	ID        string                     `json:"id"`
	DefID     string                     `json:"def_id"`
	Enabled   bool                       `json:"enabled"`
	Wear      float64                    `json:"wear"`
	KindState map[string]json.RawMessage `json:"kind_state"`
}

func (m ModuleState) MarshalJSON() ([]byte, error) {
	tag, payload, err := encodeModuleKind(m.Kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(moduleWire{
		ID:      m.ID,
		DefID:   m.DefID,
		Enabled: m.Enabled,
		Wear:    m.Wear,
		KindState: map[string]json.RawMessage{
			tag: payload,
		},
	})
}

func (m *ModuleState) UnmarshalJSON(b []byte) error {
	var w moduleWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	m.ID = w.ID
	m.DefID = w.DefID
	m.Enabled = w.Enabled
	m.Wear = w.Wear
	m.Kind = decodeModuleKind(w.KindState)
	return nil
}

func encodeModuleKind(k ModuleKind) (string, json.RawMessage, error) {
	var tag string
	var payload any = struct{}{}
	switch v := k.(type) {
	case nil:
		tag = moduleTagProcessor
	case Processor:
		tag, payload = moduleTagProcessor, v
	case Maintenance:
		tag = moduleTagMaintenance
	case Assembler:
		tag, payload = moduleTagAssembler, v
	case Lab:
		tag, payload = moduleTagLab, v
	case SensorArray:
		tag = moduleTagSensorArray
	case SolarArray:
		tag = moduleTagSolarArray
	case Battery:
		tag = moduleTagBattery
	case Storage:
		tag = moduleTagStorage
	default:
		return "", nil, fmt.Errorf("module kind %T has no wire tag", k)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return tag, raw, nil
}

func decodeModuleKind(kind map[string]json.RawMessage) ModuleKind {
	for tag, payload := range kind {
		switch tag {
		case moduleTagProcessor:
			var v Processor
			_ = json.Unmarshal(payload, &v)
			return v
		case moduleTagMaintenance:
			return Maintenance{}
		case moduleTagAssembler:
			var v Assembler
			_ = json.Unmarshal(payload, &v)
			return v
		case moduleTagLab:
			var v Lab
			_ = json.Unmarshal(payload, &v)
			return v
		case moduleTagSensorArray:
			return SensorArray{}
		case moduleTagSolarArray:
			return SolarArray{}
		case moduleTagBattery:
			return Battery{}
		case moduleTagStorage:
			return Storage{}
		}
	}
	return Processor{}
}
