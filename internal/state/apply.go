package state

import (
	"encoding/json"
	"log"

	"driftmine/internal/protocol"
)

// Below this, a lot or stack is considered emptied and removed.
const kgEpsilon = 1e-9

// Reducer applies ordered event batches to the canonical state. Apply is
// pure with respect to its input: the given *State is never mutated, and
// the returned state shares unchanged entities with it.
type Reducer struct {
	log *log.Logger
}

func NewReducer(logger *log.Logger) *Reducer {
	return &Reducer{log: logger}
}

// Apply runs every event in array order against a copy of st. Events
// referencing ids the client has not learned about yet are silent no-ops;
// the server may emit them right after a stream reset, before the next
// snapshot closes the gap.
func (r *Reducer) Apply(st *State, batch []protocol.Envelope) *State {
	if st == nil || len(batch) == 0 {
		return st
	}
	next := st.clone()
	for _, env := range batch {
		r.applyOne(next, env)
		if env.Tick > next.Tick {
			next.Tick = env.Tick
		}
	}
	return next
}

func (r *Reducer) applyOne(next *State, env protocol.Envelope) {
	switch env.Tag {
	case protocol.TagAsteroidDiscovered:
		var p asteroidDiscoveredPayload
		if decode(env.Payload, &p) {
			r.asteroidDiscovered(next, p)
		}
	case protocol.TagOreMined:
		var p oreMinedPayload
		if decode(env.Payload, &p) {
			r.oreMined(next, p)
		}
	case protocol.TagOreDeposited:
		var p oreDepositedPayload
		if decode(env.Payload, &p) {
			r.oreDeposited(next, p)
		}
	case protocol.TagItemImported:
		var p itemMovedPayload
		if decode(env.Payload, &p) {
			r.itemImported(next, p)
		}
	case protocol.TagItemExported:
		var p itemMovedPayload
		if decode(env.Payload, &p) {
			r.itemExported(next, p)
		}
	case protocol.TagRefineryRan:
		var p refineryRanPayload
		if decode(env.Payload, &p) {
			r.refineryRan(next, p)
		}
	case protocol.TagAssemblerRan:
		var p assemblerRanPayload
		if decode(env.Payload, &p) {
			r.assemblerRan(next, p)
		}
	case protocol.TagWearAccumulated:
		var p wearAccumulatedPayload
		if decode(env.Payload, &p) {
			withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
				m.Wear = p.Wear
			})
		}
	case protocol.TagModuleAutoDisabled:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
				m.Enabled = false
			})
		}
	case protocol.TagModuleStalled:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setStalled(next, p, true)
		}
	case protocol.TagModuleResumed:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setStalled(next, p, false)
		}
	case protocol.TagAssemblerCapped:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setCapped(next, p, true)
		}
	case protocol.TagAssemblerUncapped:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setCapped(next, p, false)
		}
	case protocol.TagDepositBlocked:
		var p shipRefPayload
		if decode(env.Payload, &p) {
			setDepositBlocked(next, p.ShipID, true)
		}
	case protocol.TagDepositUnblocked:
		var p shipRefPayload
		if decode(env.Payload, &p) {
			setDepositBlocked(next, p.ShipID, false)
		}
	case protocol.TagMaintenanceRan:
		var p maintenanceRanPayload
		if decode(env.Payload, &p) {
			r.maintenanceRan(next, p)
		}
	case protocol.TagLabRan:
		var p labRanPayload
		if decode(env.Payload, &p) {
			withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
				if lab, ok := m.Kind.(Lab); ok {
					lab.TicksSinceLastRun = 0
					lab.AssignedTech = p.AssignedTech
					lab.Starved = false
					m.Kind = lab
				}
			})
		}
	case protocol.TagLabStarved:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setStarved(next, p, true)
		}
	case protocol.TagLabResumed:
		var p moduleRefPayload
		if decode(env.Payload, &p) {
			setStarved(next, p, false)
		}
	case protocol.TagModuleInstalled:
		var p moduleInstalledPayload
		if decode(env.Payload, &p) {
			r.moduleInstalled(next, p)
		}
	case protocol.TagModuleUninstalled:
		var p moduleUninstalledPayload
		if decode(env.Payload, &p) {
			r.moduleUninstalled(next, p)
		}
	case protocol.TagModuleToggled:
		var p moduleToggledPayload
		if decode(env.Payload, &p) {
			withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
				m.Enabled = p.Enabled
			})
		}
	case protocol.TagModuleThresholdSet:
		var p moduleThresholdSetPayload
		if decode(env.Payload, &p) {
			withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
				if proc, ok := m.Kind.(Processor); ok {
					proc.ThresholdKg = p.ThresholdKg
					m.Kind = proc
				}
			})
		}
	case protocol.TagSlagJettisoned:
		var p slagJettisonedPayload
		if decode(env.Payload, &p) {
			r.slagJettisoned(next, p)
		}
	case protocol.TagPowerStateUpdated:
		var p powerStateUpdatedPayload
		if decode(env.Payload, &p) {
			if station, ok := mutStation(next, p.StationID); ok {
				station.Power = p.Power
			}
		}
	case protocol.TagTaskStarted:
		var p taskStartedPayload
		if decode(env.Payload, &p) {
			r.taskStarted(next, p, env.Tick)
		}
	case protocol.TagTaskCompleted:
		var p shipRefPayload
		if decode(env.Payload, &p) {
			if ship, ok := mutShip(next, p.ShipID); ok {
				ship.Task = nil
			}
		}
	case protocol.TagShipArrived:
		var p shipArrivedPayload
		if decode(env.Payload, &p) {
			if ship, ok := mutShip(next, p.ShipID); ok {
				ship.LocationNode = p.LocationNode
			}
		}
	case protocol.TagDataGenerated:
		var p dataGeneratedPayload
		if decode(env.Payload, &p) {
			next.Research.DataPool[p.Kind] += p.Amount
		}
	case protocol.TagTechUnlocked:
		var p techUnlockedPayload
		if decode(env.Payload, &p) {
			next.Research.Unlocked = append(next.Research.Unlocked, p.TechID)
		}
	case protocol.TagScanSiteSpawned:
		var p scanSiteSpawnedPayload
		if decode(env.Payload, &p) {
			next.ScanSites = append(next.ScanSites, ScanSite{ID: p.SiteID, LocationNode: p.LocationNode})
		}
	case protocol.TagShipConstructed:
		var p shipConstructedPayload
		if decode(env.Payload, &p) {
			next.Ships[p.ShipID] = &Ship{
				ID:              p.ShipID,
				LocationNode:    p.LocationNode,
				Owner:           p.Owner,
				Inventory:       Inventory{},
				CargoCapacityKg: p.CargoCapacityKg,
			}
		}
	case protocol.TagScanResult:
		var p scanResultPayload
		if decode(env.Payload, &p) {
			if ast, ok := mutAsteroid(next, p.AsteroidID); ok {
				ast.Knowledge.TagBeliefs = append([]TagBelief(nil), p.TagBeliefs...)
				if p.MassEstimateKg != nil {
					m := *p.MassEstimateKg
					ast.KnownMassKg = &m
				}
			}
		}
	case protocol.TagCompositionMapped:
		var p compositionMappedPayload
		if decode(env.Payload, &p) {
			if ast, ok := mutAsteroid(next, p.AsteroidID); ok {
				ast.Knowledge.Composition = p.Composition
			}
		}
	case protocol.TagModuleAwaitingTech,
		protocol.TagInsufficientFunds,
		protocol.TagAlertRaised,
		protocol.TagAlertCleared,
		protocol.TagResearchRoll,
		protocol.TagPowerConsumed,
		protocol.TagModuleOverheated,
		protocol.TagModuleCooled:
		// Informational only: registered so they are not reported as
		// unknown, deliberately no state change.
	default:
		// Unknown tags are the schema gate's business; an event that gets
		// this far is simply skipped.
	}
}

func decode(payload []byte, v any) bool {
	return json.Unmarshal(payload, v) == nil
}

// mutShip clones the ship into the working state and returns the copy,
// or reports a lookup miss.
func mutShip(next *State, id string) (*Ship, bool) {
	ship, ok := next.Ships[id]
	if !ok {
		return nil, false
	}
	cp := cloneShip(ship)
	next.Ships[id] = cp
	return cp, true
}

func mutStation(next *State, id string) (*Station, bool) {
	station, ok := next.Stations[id]
	if !ok {
		return nil, false
	}
	cp := cloneStation(station)
	next.Stations[id] = cp
	return cp, true
}

func mutAsteroid(next *State, id string) (*Asteroid, bool) {
	ast, ok := next.Asteroids[id]
	if !ok {
		return nil, false
	}
	cp := cloneAsteroid(ast)
	next.Asteroids[id] = cp
	return cp, true
}

func withModule(next *State, stationID, moduleID string, fn func(*ModuleState)) {
	station, ok := mutStation(next, stationID)
	if !ok {
		return
	}
	for i := range station.Modules {
		if station.Modules[i].ID == moduleID {
			fn(&station.Modules[i])
			return
		}
	}
}

// setStalled flips the stalled flag on Processor or Assembler kinds only.
func setStalled(next *State, p moduleRefPayload, stalled bool) {
	withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
		switch kind := m.Kind.(type) {
		case Processor:
			kind.Stalled = stalled
			m.Kind = kind
		case Assembler:
			kind.Stalled = stalled
			m.Kind = kind
		}
	})
}

func setCapped(next *State, p moduleRefPayload, capped bool) {
	withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
		if asm, ok := m.Kind.(Assembler); ok {
			asm.Capped = capped
			m.Kind = asm
		}
	})
}

func setStarved(next *State, p moduleRefPayload, starved bool) {
	withModule(next, p.StationID, p.ModuleID, func(m *ModuleState) {
		if lab, ok := m.Kind.(Lab); ok {
			lab.Starved = starved
			m.Kind = lab
		}
	})
}

// setDepositBlocked touches the active task only when it is a Deposit.
func setDepositBlocked(next *State, shipID string, blocked bool) {
	ship, ok := next.Ships[shipID]
	if !ok || ship.Task == nil {
		return
	}
	dep, ok := ship.Task.Kind.(Deposit)
	if !ok {
		return
	}
	cp, _ := mutShip(next, shipID)
	dep.Blocked = blocked
	cp.Task.Kind = dep
}

func (r *Reducer) asteroidDiscovered(next *State, p asteroidDiscoveredPayload) {
	if _, exists := next.Asteroids[p.AsteroidID]; exists {
		// Rediscovery is idempotent.
		return
	}
	next.Asteroids[p.AsteroidID] = &Asteroid{
		ID:           p.AsteroidID,
		LocationNode: p.LocationNode,
		Anomalies:    p.Anomalies,
		KnownMassKg:  p.KnownMassKg,
	}
}

func (r *Reducer) oreMined(next *State, p oreMinedPayload) {
	if ship, ok := mutShip(next, p.ShipID); ok {
		ship.Inventory = append(ship.Inventory, Ore{
			LotID:       p.LotID,
			AsteroidID:  p.AsteroidID,
			Kg:          p.Kg,
			Composition: p.Composition,
		})
	}
	// The ship keeps the last lot even when it empties the asteroid.
	if _, ok := next.Asteroids[p.AsteroidID]; !ok {
		return
	}
	if p.AsteroidRemainingKg <= 0 {
		delete(next.Asteroids, p.AsteroidID)
		return
	}
	if ast, ok := mutAsteroid(next, p.AsteroidID); ok {
		remaining := p.AsteroidRemainingKg
		ast.KnownMassKg = &remaining
	}
}

func (r *Reducer) oreDeposited(next *State, p oreDepositedPayload) {
	if ship, ok := mutShip(next, p.ShipID); ok {
		ship.Inventory = Inventory{}
	}
	if station, ok := mutStation(next, p.StationID); ok {
		// Deposited items are appended verbatim; merging happens on
		// later refinery/assembly events, not here.
		station.Inventory = append(station.Inventory, p.Items...)
	}
}

func (r *Reducer) itemImported(next *State, p itemMovedPayload) {
	next.Balance = p.BalanceAfter
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	item, ok := decodeItemPayload(p.Item)
	if !ok {
		return
	}
	switch it := item.(type) {
	case Material:
		station.Inventory = mergeImportedMaterial(station.Inventory, it)
	case Component:
		station.Inventory = mergeImportedComponent(station.Inventory, it)
	default:
		// Module instances (and anything else) never merge.
		station.Inventory = append(station.Inventory, item)
	}
}

func (r *Reducer) itemExported(next *State, p itemMovedPayload) {
	next.Balance = p.BalanceAfter
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	item, ok := decodeItemPayload(p.Item)
	if !ok {
		return
	}
	switch it := item.(type) {
	case Material:
		station.Inventory = drainMaterial(station.Inventory, it.Element, it.Kg)
	case Component:
		station.Inventory = drainComponent(station.Inventory, it.ComponentID, it.Count)
	case ModuleItem:
		station.Inventory = removeOneModuleItem(station.Inventory, it.ModuleDefID)
	case Ore:
		station.Inventory = drainOreLot(station.Inventory, it.LotID, it.Kg)
	case Slag:
		station.Inventory = drainSlag(station.Inventory, it.Kg)
	}
}

func (r *Reducer) refineryRan(next *State, p refineryRanPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	station.Inventory = consumeOreFIFO(station.Inventory, p.OreConsumedKg)
	if p.ProducedKg > kgEpsilon {
		station.Inventory = mergeRefinedMaterial(station.Inventory, Material{
			Element: p.ProducedElement,
			Kg:      p.ProducedKg,
			Quality: p.ProducedQuality,
		})
	}
	if p.SlagKg > kgEpsilon {
		station.Inventory = accumulateSlag(station.Inventory, p.SlagKg)
	}
}

func (r *Reducer) assemblerRan(next *State, p assemblerRanPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	for _, input := range p.Inputs {
		station.Inventory = consumeMaterialFIFO(station.Inventory, input.Element, input.Kg)
	}
	station.Inventory = mergeAssembledComponent(station.Inventory, p.ComponentID, p.CountProduced, p.Quality)
}

func (r *Reducer) maintenanceRan(next *State, p maintenanceRanPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	for i := range station.Modules {
		if station.Modules[i].ID == p.ModuleID {
			station.Modules[i].Wear = p.WearAfter
			break
		}
	}
	station.Inventory = setRepairKitCount(station.Inventory, p.RepairKitsRemaining)
}

func (r *Reducer) moduleInstalled(next *State, p moduleInstalledPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	kind, known := InitialKindState(p.BehaviorType)
	if !known && r.log != nil {
		r.log.Printf("WARN ModuleInstalled: unknown behavior type %q, defaulting to Processor", p.BehaviorType)
	}
	station.Inventory = removeModuleItemByItemID(station.Inventory, p.ItemID)
	station.Modules = append(station.Modules, ModuleState{
		ID:      p.ModuleID,
		DefID:   p.ModuleDefID,
		Enabled: false,
		Kind:    kind,
	})
}

func (r *Reducer) moduleUninstalled(next *State, p moduleUninstalledPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	defID := ""
	kept := station.Modules[:0:0]
	for _, m := range station.Modules {
		if m.ID == p.ModuleID {
			defID = m.DefID
			continue
		}
		kept = append(kept, m)
	}
	if defID == "" {
		return
	}
	station.Modules = kept
	station.Inventory = append(station.Inventory, ModuleItem{ItemID: p.ItemID, ModuleDefID: defID})
}

func (r *Reducer) slagJettisoned(next *State, p slagJettisonedPayload) {
	station, ok := mutStation(next, p.StationID)
	if !ok {
		return
	}
	// Bulk clear: every slag entry goes, regardless of the reported kg.
	kept := station.Inventory[:0:0]
	for _, item := range station.Inventory {
		if _, isSlag := item.(Slag); isSlag {
			continue
		}
		kept = append(kept, item)
	}
	station.Inventory = kept
}

func (r *Reducer) taskStarted(next *State, p taskStartedPayload, tick uint64) {
	ship, ok := mutShip(next, p.ShipID)
	if !ok {
		return
	}
	var kind TaskKind
	switch p.TaskKind {
	case taskTagSurvey:
		kind = Survey{Site: p.Target}
	case taskTagDeepScan:
		kind = DeepScan{Asteroid: p.Target}
	case taskTagMine:
		kind = Mine{Asteroid: p.Target, DurationTicks: 0}
	case taskTagDeposit:
		kind = Deposit{Station: p.Target, Blocked: false}
	case taskTagTransit:
		kind = Transit{Destination: p.Target, TotalTicks: 0, Then: Idle{}}
	default:
		kind = Idle{}
	}
	// EtaTick stays 0 until the next snapshot reconciles it.
	ship.Task = &Task{Kind: kind, StartedTick: tick, EtaTick: 0}
}

func decodeItemPayload(raw json.RawMessage) (InventoryItem, bool) {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	item, ok, err := decodeItem(entry)
	if err != nil || !ok {
		return nil, false
	}
	return item, true
}
