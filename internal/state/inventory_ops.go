package state

// Inventory rewrite helpers for the reducer. All of these return a fresh
// slice and leave the input untouched; order is preserved except where a
// rule says an entry is removed.

// consumeOreFIFO removes needKg of ore across lots in list order. A
// partially consumed lot keeps its remainder; an exhausted lot is
// dropped. Composition of a shrunk lot is unchanged (fractions, not kg).
func consumeOreFIFO(inv Inventory, needKg float64) Inventory {
	out := make(Inventory, 0, len(inv))
	remaining := needKg
	for _, item := range inv {
		ore, isOre := item.(Ore)
		if !isOre || remaining <= kgEpsilon {
			out = append(out, item)
			continue
		}
		if ore.Kg <= remaining+kgEpsilon {
			remaining -= ore.Kg
			continue
		}
		ore.Kg -= remaining
		remaining = 0
		out = append(out, ore)
	}
	return out
}

// consumeMaterialFIFO removes needKg from material entries of the given
// element, in list order.
func consumeMaterialFIFO(inv Inventory, element string, needKg float64) Inventory {
	out := make(Inventory, 0, len(inv))
	remaining := needKg
	for _, item := range inv {
		mat, isMat := item.(Material)
		if !isMat || mat.Element != element || remaining <= kgEpsilon {
			out = append(out, item)
			continue
		}
		if mat.Kg <= remaining+kgEpsilon {
			remaining -= mat.Kg
			continue
		}
		mat.Kg -= remaining
		remaining = 0
		out = append(out, mat)
	}
	return out
}

// mergeRefinedMaterial folds produced material into an existing
// same-element entry with a mass-weighted quality, or appends a new one.
func mergeRefinedMaterial(inv Inventory, produced Material) Inventory {
	out := append(Inventory(nil), inv...)
	for i, item := range out {
		mat, isMat := item.(Material)
		if !isMat || mat.Element != produced.Element {
			continue
		}
		total := mat.Kg + produced.Kg
		mat.Quality = (mat.Kg*mat.Quality + produced.Kg*produced.Quality) / total
		mat.Kg = total
		out[i] = mat
		return out
	}
	return append(out, produced)
}

// mergeImportedMaterial sums kg into an existing element entry. Unlike
// the refinery path, import does not reweigh quality.
func mergeImportedMaterial(inv Inventory, imported Material) Inventory {
	out := append(Inventory(nil), inv...)
	for i, item := range out {
		mat, isMat := item.(Material)
		if !isMat || mat.Element != imported.Element {
			continue
		}
		mat.Kg += imported.Kg
		out[i] = mat
		return out
	}
	return append(out, imported)
}

func mergeImportedComponent(inv Inventory, imported Component) Inventory {
	out := append(Inventory(nil), inv...)
	for i, item := range out {
		comp, isComp := item.(Component)
		if !isComp || comp.ComponentID != imported.ComponentID {
			continue
		}
		comp.Count += imported.Count
		out[i] = comp
		return out
	}
	return append(out, imported)
}

// mergeAssembledComponent sums count into an existing entry. The existing
// entry's quality is deliberately left alone on top-up: the first batch's
// quality persists, matching observed server behavior.
func mergeAssembledComponent(inv Inventory, componentID string, count int, quality float64) Inventory {
	out := append(Inventory(nil), inv...)
	for i, item := range out {
		comp, isComp := item.(Component)
		if !isComp || comp.ComponentID != componentID {
			continue
		}
		comp.Count += count
		out[i] = comp
		return out
	}
	return append(out, Component{ComponentID: componentID, Count: count, Quality: quality})
}

// accumulateSlag sums kg into the first slag entry, creating one if none
// exists. Jettison later clears every slag entry in one sweep.
func accumulateSlag(inv Inventory, kg float64) Inventory {
	out := append(Inventory(nil), inv...)
	for i, item := range out {
		slag, isSlag := item.(Slag)
		if !isSlag {
			continue
		}
		slag.Kg += kg
		out[i] = slag
		return out
	}
	return append(out, Slag{Kg: kg})
}

// drainMaterial subtracts kg from the first same-element entry, removing
// it once emptied.
func drainMaterial(inv Inventory, element string, kg float64) Inventory {
	out := make(Inventory, 0, len(inv))
	remaining := kg
	for _, item := range inv {
		mat, isMat := item.(Material)
		if !isMat || mat.Element != element || remaining <= kgEpsilon {
			out = append(out, item)
			continue
		}
		if mat.Kg <= remaining+kgEpsilon {
			remaining -= mat.Kg
			continue
		}
		mat.Kg -= remaining
		remaining = 0
		out = append(out, mat)
	}
	return out
}

func drainComponent(inv Inventory, componentID string, count int) Inventory {
	out := make(Inventory, 0, len(inv))
	remaining := count
	for _, item := range inv {
		comp, isComp := item.(Component)
		if !isComp || comp.ComponentID != componentID || remaining <= 0 {
			out = append(out, item)
			continue
		}
		if comp.Count <= remaining {
			remaining -= comp.Count
			continue
		}
		comp.Count -= remaining
		remaining = 0
		out = append(out, comp)
	}
	return out
}

func drainOreLot(inv Inventory, lotID string, kg float64) Inventory {
	out := make(Inventory, 0, len(inv))
	for _, item := range inv {
		ore, isOre := item.(Ore)
		if !isOre || ore.LotID != lotID {
			out = append(out, item)
			continue
		}
		if ore.Kg <= kg+kgEpsilon {
			continue
		}
		ore.Kg -= kg
		out = append(out, ore)
	}
	return out
}

func drainSlag(inv Inventory, kg float64) Inventory {
	out := make(Inventory, 0, len(inv))
	remaining := kg
	for _, item := range inv {
		slag, isSlag := item.(Slag)
		if !isSlag || remaining <= kgEpsilon {
			out = append(out, item)
			continue
		}
		if slag.Kg <= remaining+kgEpsilon {
			remaining -= slag.Kg
			continue
		}
		slag.Kg -= remaining
		remaining = 0
		out = append(out, slag)
	}
	return out
}

// removeOneModuleItem removes the first module instance matching the
// definition id; module instances are never merged, so one event removes
// exactly one.
func removeOneModuleItem(inv Inventory, moduleDefID string) Inventory {
	out := make(Inventory, 0, len(inv))
	removed := false
	for _, item := range inv {
		mod, isMod := item.(ModuleItem)
		if !removed && isMod && mod.ModuleDefID == moduleDefID {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out
}

func removeModuleItemByItemID(inv Inventory, itemID string) Inventory {
	out := make(Inventory, 0, len(inv))
	removed := false
	for _, item := range inv {
		mod, isMod := item.(ModuleItem)
		if !removed && isMod && mod.ItemID == itemID {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out
}

// setRepairKitCount pins the repair_kit component count to the server's
// authoritative remainder, removing the entry when it hits zero.
func setRepairKitCount(inv Inventory, remaining int) Inventory {
	out := make(Inventory, 0, len(inv))
	for _, item := range inv {
		comp, isComp := item.(Component)
		if !isComp || comp.ComponentID != "repair_kit" {
			out = append(out, item)
			continue
		}
		if remaining <= 0 {
			continue
		}
		comp.Count = remaining
		out = append(out, comp)
	}
	return out
}
