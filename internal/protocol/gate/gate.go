// Package gate validates event payloads against their per-tag schemas
// before they reach the reducer. The stream carries hand-shaped JSON
// from a process with its own evolving representation, so the client is
// deliberately defensive about shape drift: a bad payload costs exactly
// one event, an unknown tag costs nothing.
package gate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"driftmine/internal/protocol"
)

//go:embed events.schema.json
var eventsSchemaSrc string

const schemaName = "events.schema.json"

// Gate holds one compiled schema per known event tag.
type Gate struct {
	schemas map[string]*jsonschema.Schema
	log     *log.Logger
	debug   bool
}

// knownTags lists every tag the gate validates, i.e. every tag the
// reducer dispatches on. Tags outside this list are forward-compatible
// unknowns and pass through the gate into oblivion.
var knownTags = []string{
	protocol.TagAsteroidDiscovered,
	protocol.TagScanSiteSpawned,
	protocol.TagScanResult,
	protocol.TagCompositionMapped,
	protocol.TagOreMined,
	protocol.TagOreDeposited,
	protocol.TagItemImported,
	protocol.TagItemExported,
	protocol.TagRefineryRan,
	protocol.TagAssemblerRan,
	protocol.TagSlagJettisoned,
	protocol.TagModuleInstalled,
	protocol.TagModuleUninstalled,
	protocol.TagModuleToggled,
	protocol.TagModuleThresholdSet,
	protocol.TagWearAccumulated,
	protocol.TagModuleAutoDisabled,
	protocol.TagModuleStalled,
	protocol.TagModuleResumed,
	protocol.TagAssemblerCapped,
	protocol.TagAssemblerUncapped,
	protocol.TagMaintenanceRan,
	protocol.TagPowerStateUpdated,
	protocol.TagLabRan,
	protocol.TagLabStarved,
	protocol.TagLabResumed,
	protocol.TagDataGenerated,
	protocol.TagTechUnlocked,
	protocol.TagShipConstructed,
	protocol.TagShipArrived,
	protocol.TagTaskStarted,
	protocol.TagTaskCompleted,
	protocol.TagDepositBlocked,
	protocol.TagDepositUnblocked,
	protocol.TagModuleAwaitingTech,
	protocol.TagInsufficientFunds,
	protocol.TagAlertRaised,
	protocol.TagAlertCleared,
	protocol.TagResearchRoll,
	protocol.TagPowerConsumed,
	protocol.TagModuleOverheated,
	protocol.TagModuleCooled,
}

// New compiles the embedded schema set, one compiled schema per tag.
func New(logger *log.Logger, debug bool) (*Gate, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaName, strings.NewReader(eventsSchemaSrc)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema, len(knownTags))
	for _, tag := range knownTags {
		s, err := c.Compile(schemaName + "#/$defs/" + tag)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", tag, err)
		}
		schemas[tag] = s
	}
	return &Gate{schemas: schemas, log: logger, debug: debug}, nil
}

// Filter returns the events of batch that survive validation, in their
// original order. Exactly three outcomes per event: known tag and valid
// payload (kept), known tag and invalid payload (logged, dropped),
// unknown tag (dropped, logged only in debug so new server-side event
// kinds stay quiet in production).
func (g *Gate) Filter(batch []protocol.Envelope) []protocol.Envelope {
	out := make([]protocol.Envelope, 0, len(batch))
	for _, env := range batch {
		schema, known := g.schemas[env.Tag]
		if !known {
			if g.debug && g.log != nil {
				g.log.Printf("skip unknown event tag %s (id=%s)", env.Tag, env.ID)
			}
			continue
		}
		var payload any
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			if g.log != nil {
				g.log.Printf("drop event %s (%s): payload is not valid JSON: %v", env.ID, env.Tag, err)
			}
			continue
		}
		if err := schema.Validate(payload); err != nil {
			if g.log != nil {
				g.log.Printf("drop event %s (%s): %v", env.ID, env.Tag, err)
			}
			continue
		}
		out = append(out, env)
	}
	return out
}
