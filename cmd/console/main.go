package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"driftmine/internal/config"
	"driftmine/internal/journal"
	"driftmine/internal/persistence/indexdb"
	"driftmine/internal/stream"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to console.yaml (optional)")
		baseURL    = flag.String("url", "", "server base url, overrides config")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[console] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("config: %v", err)
		}
	}
	if *baseURL != "" {
		cfg.ServerBaseURL = *baseURL
	}

	opts := stream.Options{
		SnapshotURL:     cfg.ServerBaseURL + "/v1/snapshot",
		StreamURL:       wsURL(cfg.ServerBaseURL) + "/v1/stream",
		WatchdogTimeout: cfg.WatchdogTimeout(),
		ReconnectDelay:  cfg.ReconnectDelay(),
		NominalTickRate: cfg.NominalTickRateHz,
		Logger:          log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lmicroseconds),
		Debug:           cfg.Debug,
	}
	if cfg.JournalDir != "" {
		w := journal.NewWriter(cfg.JournalDir)
		defer w.Close()
		opts.Journal = w
	}
	if cfg.IndexDBPath != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexDBPath)
		if err != nil {
			logger.Fatalf("index db: %v", err)
		}
		defer idx.Close()
		opts.Index = idx
	}

	mgr, err := stream.New(opts)
	if err != nil {
		logger.Fatalf("stream: %v", err)
	}
	mgr.Start()
	defer mgr.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			logger.Printf("shutting down")
			return
		case <-ticker.C:
			printStatus(logger, mgr)
		}
	}
}

func printStatus(logger *log.Logger, mgr *stream.Manager) {
	st := mgr.State()
	if st == nil {
		logger.Printf("disconnected, reconnecting...")
		return
	}
	status := mgr.Status()
	logger.Printf("tick=%.1f rate=%.2f/s balance=%d asteroids=%d ships=%d stations=%d applied=%d dropped=%d",
		mgr.Clock().Sample(time.Now()), mgr.Clock().Rate(),
		st.Balance, len(st.Asteroids), len(st.Ships), len(st.Stations),
		status.EventsApplied, status.EventsDropped)
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
