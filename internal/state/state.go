// Package state holds the client read-model of the mining sim and the
// pure reducer that advances it from server event batches. The server is
// authoritative; nothing here is ever written back.
package state

import "encoding/json"

// State is the canonical client-side picture of the sim. It is replaced
// wholesale on snapshot load or connection loss, and advanced only via
// Apply, which copies before writing so a concurrent reader holding an
// old *State never observes a half-applied batch.
type State struct {
	Tick      uint64              `json:"tick"`
	Balance   int64               `json:"balance"`
	Asteroids map[string]*Asteroid `json:"asteroids"`
	Ships     map[string]*Ship     `json:"ships"`
	Stations  map[string]*Station  `json:"stations"`
	Research  Research             `json:"research"`
	ScanSites []ScanSite           `json:"scan_sites"`
}

// Asteroid is created on discovery and removed entirely once mined out.
type Asteroid struct {
	ID           string    `json:"id"`
	LocationNode string    `json:"location_node"`
	Anomalies    []string  `json:"anomalies,omitempty"`
	KnownMassKg  *float64  `json:"known_mass_kg,omitempty"`
	Knowledge    Knowledge `json:"knowledge"`
}

// Knowledge is what surveys and deep scans have established so far.
type Knowledge struct {
	TagBeliefs  []TagBelief        `json:"tag_beliefs,omitempty"`
	Composition map[string]float64 `json:"composition,omitempty"`
}

type TagBelief struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// Ship is never deleted in this model; its inventory and task are
// conceptually mutable but always replaced, never edited in place.
type Ship struct {
	ID              string    `json:"id"`
	LocationNode    string    `json:"location_node"`
	Owner           string    `json:"owner,omitempty"`
	Inventory       Inventory `json:"inventory"`
	CargoCapacityKg float64   `json:"cargo_capacity_kg"`
	Task            *Task     `json:"task,omitempty"`
}

type Station struct {
	ID              string        `json:"id"`
	LocationNode    string        `json:"location_node"`
	PowerBudgetKw   float64       `json:"power_budget_kw"`
	Inventory       Inventory     `json:"inventory"`
	CargoCapacityKg float64       `json:"cargo_capacity_kg"`
	Modules         []ModuleState `json:"modules"`
	Power           PowerMetrics  `json:"power"`
}

// PowerMetrics is replaced wholesale by PowerStateUpdated.
type PowerMetrics struct {
	GeneratedKw float64 `json:"generated_kw"`
	ConsumedKw  float64 `json:"consumed_kw"`
	StoredKwh   float64 `json:"stored_kwh"`
	CapacityKwh float64 `json:"capacity_kwh"`
}

type Research struct {
	Unlocked []string           `json:"unlocked"`
	DataPool map[string]float64 `json:"data_pool"`
	Evidence map[string]float64 `json:"evidence,omitempty"`
}

type ScanSite struct {
	ID           string `json:"id"`
	LocationNode string `json:"location_node"`
}

// Snapshot is the full-state document served by GET /v1/snapshot.
type Snapshot struct {
	Meta      SnapshotMeta         `json:"meta"`
	Balance   int64                `json:"balance"`
	ScanSites []ScanSite           `json:"scan_sites"`
	Asteroids map[string]*Asteroid `json:"asteroids"`
	Ships     map[string]*Ship     `json:"ships"`
	Stations  map[string]*Station  `json:"stations"`
	Research  Research             `json:"research"`
}

type SnapshotMeta struct {
	Tick uint64 `json:"tick"`
}

// DecodeSnapshot parses a snapshot document into a fresh State.
func DecodeSnapshot(b []byte) (*State, error) {
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	st := &State{
		Tick:      snap.Meta.Tick,
		Balance:   snap.Balance,
		Asteroids: snap.Asteroids,
		Ships:     snap.Ships,
		Stations:  snap.Stations,
		Research:  snap.Research,
		ScanSites: snap.ScanSites,
	}
	if st.Asteroids == nil {
		st.Asteroids = map[string]*Asteroid{}
	}
	if st.Ships == nil {
		st.Ships = map[string]*Ship{}
	}
	if st.Stations == nil {
		st.Stations = map[string]*Station{}
	}
	if st.Research.DataPool == nil {
		st.Research.DataPool = map[string]float64{}
	}
	return st, nil
}

// clone copies the top-level maps and slices so handlers can replace
// entries without touching the state a reader may still hold. Entities
// themselves are shared until a handler copies the one it rewrites.
func (s *State) clone() *State {
	out := &State{
		Tick:      s.Tick,
		Balance:   s.Balance,
		Asteroids: make(map[string]*Asteroid, len(s.Asteroids)),
		Ships:     make(map[string]*Ship, len(s.Ships)),
		Stations:  make(map[string]*Station, len(s.Stations)),
		Research: Research{
			Unlocked: append([]string(nil), s.Research.Unlocked...),
			DataPool: make(map[string]float64, len(s.Research.DataPool)),
			Evidence: s.Research.Evidence,
		},
		ScanSites: append([]ScanSite(nil), s.ScanSites...),
	}
	for id, a := range s.Asteroids {
		out.Asteroids[id] = a
	}
	for id, sh := range s.Ships {
		out.Ships[id] = sh
	}
	for id, st := range s.Stations {
		out.Stations[id] = st
	}
	for k, v := range s.Research.DataPool {
		out.Research.DataPool[k] = v
	}
	return out
}

func cloneAsteroid(a *Asteroid) *Asteroid {
	cp := *a
	cp.Anomalies = append([]string(nil), a.Anomalies...)
	cp.Knowledge.TagBeliefs = append([]TagBelief(nil), a.Knowledge.TagBeliefs...)
	if a.Knowledge.Composition != nil {
		cp.Knowledge.Composition = make(map[string]float64, len(a.Knowledge.Composition))
		for k, v := range a.Knowledge.Composition {
			cp.Knowledge.Composition[k] = v
		}
	}
	if a.KnownMassKg != nil {
		m := *a.KnownMassKg
		cp.KnownMassKg = &m
	}
	return &cp
}

func cloneShip(s *Ship) *Ship {
	cp := *s
	cp.Inventory = append(Inventory(nil), s.Inventory...)
	if s.Task != nil {
		t := *s.Task
		cp.Task = &t
	}
	return &cp
}

func cloneStation(s *Station) *Station {
	cp := *s
	cp.Inventory = append(Inventory(nil), s.Inventory...)
	cp.Modules = append([]ModuleState(nil), s.Modules...)
	return &cp
}
