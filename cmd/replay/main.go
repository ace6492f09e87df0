// Command replay runs a recorded stream journal through the schema gate
// and reducer offline, starting from a saved snapshot document. Useful
// when chasing a reducer bug against captured traffic.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"driftmine/internal/journal"
	"driftmine/internal/protocol"
	"driftmine/internal/protocol/gate"
	"driftmine/internal/state"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to a saved snapshot JSON document")
		journalDir = flag.String("journal", "", "directory containing stream-*.jsonl.zst")
		debug      = flag.Bool("debug", false, "log unknown event tags")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *snapPath == "" || *journalDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -journal")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*snapPath)
	if err != nil {
		logger.Fatalf("read snapshot: %v", err)
	}
	st, err := state.DecodeSnapshot(raw)
	if err != nil {
		logger.Fatalf("decode snapshot: %v", err)
	}
	fmt.Printf("snapshot tick=%d balance=%d asteroids=%d ships=%d stations=%d\n",
		st.Tick, st.Balance, len(st.Asteroids), len(st.Ships), len(st.Stations))

	g, err := gate.New(logger, *debug)
	if err != nil {
		logger.Fatalf("gate: %v", err)
	}
	reducer := state.NewReducer(logger)

	files, err := journal.ListFiles(*journalDir)
	if err != nil {
		logger.Fatalf("list journal: %v", err)
	}
	if len(files) == 0 {
		logger.Fatalf("no journal files in %s", *journalDir)
	}

	var frames, heartbeats, applied, dropped uint64
	for _, path := range files {
		err := journal.ReadFile(path, func(entry journal.Entry) error {
			frames++
			msg, err := protocol.DecodeStreamMessage(entry.Frame)
			if err != nil {
				logger.Printf("skip frame: %v", err)
				return nil
			}
			if msg.Heartbeat != nil {
				heartbeats++
				return nil
			}
			kept := g.Filter(msg.Batch)
			st = reducer.Apply(st, kept)
			applied += uint64(len(kept))
			dropped += uint64(len(msg.Batch) - len(kept))
			return nil
		})
		if err != nil {
			logger.Fatalf("replay %s: %v", path, err)
		}
	}

	fmt.Printf("replay ok: frames=%d heartbeats=%d applied=%d dropped=%d\n", frames, heartbeats, applied, dropped)
	fmt.Printf("final tick=%d balance=%d asteroids=%d ships=%d stations=%d scan_sites=%d unlocked=%d\n",
		st.Tick, st.Balance, len(st.Asteroids), len(st.Ships), len(st.Stations),
		len(st.ScanSites), len(st.Research.Unlocked))
}
