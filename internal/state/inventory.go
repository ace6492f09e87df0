package state

import (
	"encoding/json"
	"fmt"
)

// InventoryItem is the closed set of things a ship or station can hold.
// Items are treated as immutable values: handlers build a replacement
// rather than editing in place. An item whose kg/count reaches zero is
// removed from its list, never kept as a zero entry.
type InventoryItem interface {
	inventoryItem()
}

// Ore is a discrete mined lot, traceable to its asteroid of origin.
type Ore struct {
	LotID       string             `json:"lot_id"`
	AsteroidID  string             `json:"asteroid_id"`
	Kg          float64            `json:"kg"`
	Composition map[string]float64 `json:"composition,omitempty"`
}

// Slag is refinery waste; stations keep at most one aggregate entry.
type Slag struct {
	Kg          float64            `json:"kg"`
	Composition map[string]float64 `json:"composition,omitempty"`
}

// Material is refined elemental stock. Same-element entries merge by
// summing kg with a mass-weighted quality.
type Material struct {
	Element string  `json:"element"`
	Kg      float64 `json:"kg"`
	Quality float64 `json:"quality"`
}

// Component merges by summing count; see the reducer for the quality
// caveat on top-ups.
type Component struct {
	ComponentID string  `json:"component_id"`
	Count       int     `json:"count"`
	Quality     float64 `json:"quality"`
}

// ModuleItem is an uninstalled station module. Instances never merge.
type ModuleItem struct {
	ItemID      string `json:"item_id"`
	ModuleDefID string `json:"module_def_id"`
}

func (Ore) inventoryItem()        {}
func (Slag) inventoryItem()       {}
func (Material) inventoryItem()   {}
func (Component) inventoryItem()  {}
func (ModuleItem) inventoryItem() {}

// Wire tags for the externally tagged item encoding {"Ore":{...}}.
const (
	itemTagOre       = "Ore"
	itemTagSlag      = "Slag"
	itemTagMaterial  = "Material"
	itemTagComponent = "Component"
	itemTagModule    = "Module"
)

// Inventory is an ordered item list with the single-key tagged JSON
// encoding used everywhere on the wire. Unknown item tags are dropped on
// decode so a newer server cannot break this client.
type Inventory []InventoryItem

func (inv Inventory) MarshalJSON() ([]byte, error) {
	out := make([]map[string]InventoryItem, 0, len(inv))
	for _, item := range inv {
		tag, ok := itemTag(item)
		if !ok {
			return nil, fmt.Errorf("inventory item %T has no wire tag", item)
		}
		out = append(out, map[string]InventoryItem{tag: item})
	}
	return json.Marshal(out)
}

func (inv *Inventory) UnmarshalJSON(b []byte) error {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	items := make(Inventory, 0, len(raw))
	for _, entry := range raw {
		item, ok, err := decodeItem(entry)
		if err != nil {
			return err
		}
		if ok {
			items = append(items, item)
		}
	}
	*inv = items
	return nil
}

func itemTag(item InventoryItem) (string, bool) {
	switch item.(type) {
	case Ore:
		return itemTagOre, true
	case Slag:
		return itemTagSlag, true
	case Material:
		return itemTagMaterial, true
	case Component:
		return itemTagComponent, true
	case ModuleItem:
		return itemTagModule, true
	default:
		return "", false
	}
}

func decodeItem(entry map[string]json.RawMessage) (InventoryItem, bool, error) {
	if len(entry) != 1 {
		return nil, false, fmt.Errorf("inventory item: want exactly one tag, got %d", len(entry))
	}
	for tag, payload := range entry {
		switch tag {
		case itemTagOre:
			var v Ore
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, false, err
			}
			return v, true, nil
		case itemTagSlag:
			var v Slag
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, false, err
			}
			return v, true, nil
		case itemTagMaterial:
			var v Material
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, false, err
			}
			return v, true, nil
		case itemTagComponent:
			var v Component
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, false, err
			}
			return v, true, nil
		case itemTagModule:
			var v ModuleItem
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, false, err
			}
			return v, true, nil
		default:
			// Forward compatibility: a new item kind is not an error.
			return nil, false, nil
		}
	}
	return nil, false, nil
}
