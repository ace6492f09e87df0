package gate

import (
	"encoding/json"
	"testing"

	"driftmine/internal/protocol"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	g, err := New(nil, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func env(tag, payload string) protocol.Envelope {
	return protocol.Envelope{ID: "ev_gate", Tick: 1, Tag: tag, Payload: json.RawMessage(payload)}
}

func TestFilter_KeepsValidPayloads(t *testing.T) {
	g := newGate(t)
	batch := []protocol.Envelope{
		env(protocol.TagOreMined, `{"ship_id":"s1","asteroid_id":"a1","lot_id":"l1","kg":5,"asteroid_remaining_kg":10}`),
		env(protocol.TagTechUnlocked, `{"tech_id":"t1"}`),
		env(protocol.TagAlertRaised, `{"severity":"low","anything":"goes"}`),
	}
	kept := g.Filter(batch)
	if len(kept) != 3 {
		t.Fatalf("kept %d of %d valid events", len(kept), len(batch))
	}
}

func TestFilter_DropsOnlyTheInvalidEvent(t *testing.T) {
	g := newGate(t)
	batch := []protocol.Envelope{
		env(protocol.TagOreMined, `{"ship_id":"s1","asteroid_id":"a1","lot_id":"l1","kg":5,"asteroid_remaining_kg":10}`),
		env(protocol.TagOreMined, `{"ship_id":"s1","asteroid_id":"a1","kg":"not a number"}`),
		env(protocol.TagTechUnlocked, `{"tech_id":"t2"}`),
	}
	kept := g.Filter(batch)
	if len(kept) != 2 {
		t.Fatalf("kept %d, want 2 (one invalid dropped)", len(kept))
	}
	if kept[0].Tag != protocol.TagOreMined || kept[1].Tag != protocol.TagTechUnlocked {
		t.Fatalf("order not preserved: %q, %q", kept[0].Tag, kept[1].Tag)
	}
}

func TestFilter_RequiredFieldEnforced(t *testing.T) {
	g := newGate(t)
	kept := g.Filter([]protocol.Envelope{
		env(protocol.TagMaintenanceRan, `{"station_id":"st1","module_id":"m1","wear_after":0.2}`),
	})
	if len(kept) != 0 {
		t.Fatalf("payload missing repair_kits_remaining passed validation")
	}
}

func TestFilter_UnknownTagSkippedQuietly(t *testing.T) {
	g := newGate(t)
	kept := g.Filter([]protocol.Envelope{
		env("WormholeOpened", `{"whatever":1}`),
		env(protocol.TagTechUnlocked, `{"tech_id":"t3"}`),
	})
	if len(kept) != 1 || kept[0].Tag != protocol.TagTechUnlocked {
		t.Fatalf("unknown tag handling wrong: %+v", kept)
	}
}

func TestFilter_MalformedPayloadJSON(t *testing.T) {
	g := newGate(t)
	kept := g.Filter([]protocol.Envelope{
		env(protocol.TagTechUnlocked, `{"tech_id":`),
	})
	if len(kept) != 0 {
		t.Fatalf("truncated payload passed the gate")
	}
}

func TestNew_CoversEveryReducerTag(t *testing.T) {
	g := newGate(t)
	for _, tag := range knownTags {
		if g.schemas[tag] == nil {
			t.Fatalf("no compiled schema for %s", tag)
		}
	}
}
