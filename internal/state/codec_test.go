package state

import (
	"encoding/json"
	"testing"
)

func TestDecodeSnapshot_FullDocument(t *testing.T) {
	raw := []byte(`{
		"meta": {"tick": 4200},
		"balance": 12500,
		"scan_sites": [{"id":"site_1","location_node":"belt_b"}],
		"asteroids": {
			"ast_1": {
				"id":"ast_1","location_node":"belt_a",
				"known_mass_kg": 900.5,
				"knowledge": {
					"tag_beliefs":[{"tag":"metallic","confidence":0.7}],
					"composition":{"Fe":0.5,"Ni":0.5}
				}
			}
		},
		"ships": {
			"ship_1": {
				"id":"ship_1","location_node":"belt_a","cargo_capacity_kg":500,
				"inventory":[{"Ore":{"lot_id":"lot_1","asteroid_id":"ast_1","kg":20}}],
				"task":{"kind":{"Transit":{"destination":"hub","total_ticks":30,"then":{"Deposit":{"station":"stn_1"}}}},"started_tick":4100,"eta_tick":4130}
			}
		},
		"stations": {
			"stn_1": {
				"id":"stn_1","location_node":"hub","power_budget_kw":200,
				"inventory":[
					{"Material":{"element":"Fe","kg":75,"quality":0.9}},
					{"ExoticItem":{"mystery":true}},
					{"Component":{"component_id":"repair_kit","count":2,"quality":0.5}}
				],
				"modules":[
					{"id":"mod_1","def_id":"refinery_mk1","enabled":true,"wear":0.25,"kind_state":{"Processor":{"stalled":true,"threshold_kg":50}}},
					{"id":"mod_2","def_id":"lab_mk1","enabled":true,"wear":0,"kind_state":{"Lab":{"ticks_since_last_run":12,"assigned_tech":"t1","starved":false}}}
				],
				"power":{"generated_kw":120,"consumed_kw":90,"stored_kwh":40,"capacity_kwh":100}
			}
		},
		"research": {"unlocked":["tech_base"],"data_pool":{"spectral":3.5}}
	}`)

	st, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Tick != 4200 || st.Balance != 12500 {
		t.Fatalf("meta: tick=%d balance=%d", st.Tick, st.Balance)
	}

	ast := st.Asteroids["ast_1"]
	if ast == nil || ast.KnownMassKg == nil || *ast.KnownMassKg != 900.5 {
		t.Fatalf("asteroid: %+v", ast)
	}
	if ast.Knowledge.Composition["Fe"] != 0.5 {
		t.Fatalf("composition: %+v", ast.Knowledge.Composition)
	}

	ship := st.Ships["ship_1"]
	if ship == nil || ship.Task == nil {
		t.Fatalf("ship: %+v", ship)
	}
	transit, ok := ship.Task.Kind.(Transit)
	if !ok || transit.Destination != "hub" || transit.TotalTicks != 30 {
		t.Fatalf("task kind: %+v", ship.Task.Kind)
	}
	if then, ok := transit.Then.(Deposit); !ok || then.Station != "stn_1" {
		t.Fatalf("nested task kind: %+v", transit.Then)
	}

	stn := st.Stations["stn_1"]
	// The unknown ExoticItem tag is dropped, not an error.
	if len(stn.Inventory) != 2 {
		t.Fatalf("station inventory = %d items, want 2", len(stn.Inventory))
	}
	proc, ok := stn.Modules[0].Kind.(Processor)
	if !ok || !proc.Stalled || proc.ThresholdKg != 50 {
		t.Fatalf("module kind: %+v", stn.Modules[0].Kind)
	}
	lab, ok := stn.Modules[1].Kind.(Lab)
	if !ok || lab.TicksSinceLastRun != 12 || lab.AssignedTech != "t1" {
		t.Fatalf("lab kind: %+v", stn.Modules[1].Kind)
	}
	if st.Research.DataPool["spectral"] != 3.5 {
		t.Fatalf("data pool: %+v", st.Research.DataPool)
	}
}

func TestDecodeSnapshot_EmptyDocumentGetsUsableMaps(t *testing.T) {
	st, err := DecodeSnapshot([]byte(`{"meta":{"tick":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Asteroids == nil || st.Ships == nil || st.Stations == nil || st.Research.DataPool == nil {
		t.Fatalf("nil maps after decode: %+v", st)
	}
	// Reducer paths write into these without further nil checks.
	st.Research.DataPool["x"] = 1
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{"meta":`)); err == nil {
		t.Fatalf("truncated snapshot accepted")
	}
}

func TestTask_UnknownKindDecodesAsIdle(t *testing.T) {
	var task Task
	err := json.Unmarshal([]byte(`{"kind":{"Hibernate":{"until":9}},"started_tick":5,"eta_tick":0}`), &task)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := task.Kind.(Idle); !ok {
		t.Fatalf("kind = %T, want Idle", task.Kind)
	}
}

func TestModuleState_UnknownKindDecodesAsProcessor(t *testing.T) {
	var m ModuleState
	err := json.Unmarshal([]byte(`{"id":"m1","def_id":"d1","enabled":true,"wear":0.1,"kind_state":{"Teleporter":{}}}`), &m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := m.Kind.(Processor); !ok {
		t.Fatalf("kind = %T, want Processor fallback", m.Kind)
	}
}

func TestInventory_MarshalUsesSingleKeyTags(t *testing.T) {
	inv := Inventory{
		Ore{LotID: "lot_1", AsteroidID: "ast_1", Kg: 3},
		ModuleItem{ItemID: "itm_1", ModuleDefID: "lab_mk1"},
	}
	b, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(raw) != 2 || len(raw[0]) != 1 || len(raw[1]) != 1 {
		t.Fatalf("not single-key tagged: %s", b)
	}
	if _, ok := raw[0]["Ore"]; !ok {
		t.Fatalf("missing Ore tag: %s", b)
	}
	if _, ok := raw[1]["Module"]; !ok {
		t.Fatalf("missing Module tag: %s", b)
	}
}
