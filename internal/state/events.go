package state

import "encoding/json"

// Wire payloads for the event tags the reducer acts on. Each payload is
// a flat object scoped to its tag; fields the client does not model are
// simply not decoded.

type asteroidDiscoveredPayload struct {
	AsteroidID   string   `json:"asteroid_id"`
	LocationNode string   `json:"location_node"`
	Anomalies    []string `json:"anomalies,omitempty"`
	KnownMassKg  *float64 `json:"known_mass_kg,omitempty"`
}

type oreMinedPayload struct {
	ShipID              string             `json:"ship_id"`
	AsteroidID          string             `json:"asteroid_id"`
	LotID               string             `json:"lot_id"`
	Kg                  float64            `json:"kg"`
	Composition         map[string]float64 `json:"composition,omitempty"`
	AsteroidRemainingKg float64            `json:"asteroid_remaining_kg"`
}

type oreDepositedPayload struct {
	ShipID    string    `json:"ship_id"`
	StationID string    `json:"station_id"`
	Items     Inventory `json:"items"`
}

type itemMovedPayload struct {
	StationID    string          `json:"station_id"`
	Item         json.RawMessage `json:"item"`
	BalanceAfter int64           `json:"balance_after"`
}

type refineryRanPayload struct {
	StationID       string  `json:"station_id"`
	ModuleID        string  `json:"module_id"`
	OreConsumedKg   float64 `json:"ore_consumed_kg"`
	ProducedElement string  `json:"produced_element"`
	ProducedKg      float64 `json:"produced_kg"`
	ProducedQuality float64 `json:"produced_quality"`
	SlagKg          float64 `json:"slag_kg"`
}

type materialInput struct {
	Element string  `json:"element"`
	Kg      float64 `json:"kg"`
}

type assemblerRanPayload struct {
	StationID     string          `json:"station_id"`
	ModuleID      string          `json:"module_id"`
	ComponentID   string          `json:"component_id"`
	CountProduced int             `json:"count_produced"`
	Quality       float64         `json:"quality"`
	Inputs        []materialInput `json:"inputs"`
}

type moduleRefPayload struct {
	StationID string `json:"station_id"`
	ModuleID  string `json:"module_id"`
}

type wearAccumulatedPayload struct {
	StationID string  `json:"station_id"`
	ModuleID  string  `json:"module_id"`
	Wear      float64 `json:"wear"`
}

type maintenanceRanPayload struct {
	StationID           string  `json:"station_id"`
	ModuleID            string  `json:"module_id"`
	WearAfter           float64 `json:"wear_after"`
	RepairKitsRemaining int     `json:"repair_kits_remaining"`
}

type labRanPayload struct {
	StationID    string `json:"station_id"`
	ModuleID     string `json:"module_id"`
	AssignedTech string `json:"assigned_tech"`
}

type moduleInstalledPayload struct {
	StationID    string `json:"station_id"`
	ModuleID     string `json:"module_id"`
	ModuleDefID  string `json:"module_def_id"`
	BehaviorType string `json:"behavior_type"`
	ItemID       string `json:"item_id"`
}

type moduleUninstalledPayload struct {
	StationID string `json:"station_id"`
	ModuleID  string `json:"module_id"`
	ItemID    string `json:"item_id"`
}

type moduleToggledPayload struct {
	StationID string `json:"station_id"`
	ModuleID  string `json:"module_id"`
	Enabled   bool   `json:"enabled"`
}

type moduleThresholdSetPayload struct {
	StationID   string  `json:"station_id"`
	ModuleID    string  `json:"module_id"`
	ThresholdKg float64 `json:"threshold_kg"`
}

type slagJettisonedPayload struct {
	StationID string  `json:"station_id"`
	Kg        float64 `json:"kg"`
}

type powerStateUpdatedPayload struct {
	StationID string       `json:"station_id"`
	Power     PowerMetrics `json:"power"`
}

type taskStartedPayload struct {
	ShipID   string `json:"ship_id"`
	TaskKind string `json:"task_kind"`
	Target   string `json:"target"`
}

type shipRefPayload struct {
	ShipID string `json:"ship_id"`
}

type shipArrivedPayload struct {
	ShipID       string `json:"ship_id"`
	LocationNode string `json:"location_node"`
}

type dataGeneratedPayload struct {
	Kind   string  `json:"kind"`
	Amount float64 `json:"amount"`
}

type techUnlockedPayload struct {
	TechID string `json:"tech_id"`
}

type scanSiteSpawnedPayload struct {
	SiteID       string `json:"site_id"`
	LocationNode string `json:"location_node"`
}

type shipConstructedPayload struct {
	ShipID          string  `json:"ship_id"`
	LocationNode    string  `json:"location_node"`
	Owner           string  `json:"owner"`
	CargoCapacityKg float64 `json:"cargo_capacity_kg"`
}

type scanResultPayload struct {
	AsteroidID     string      `json:"asteroid_id"`
	TagBeliefs     []TagBelief `json:"tag_beliefs"`
	MassEstimateKg *float64    `json:"mass_estimate_kg,omitempty"`
}

type compositionMappedPayload struct {
	AsteroidID  string             `json:"asteroid_id"`
	Composition map[string]float64 `json:"composition"`
}
