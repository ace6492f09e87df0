package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server_base_url: http://sim.local:9000
watchdog_timeout_ms: 5000
reconnect_delay_ms: 500
nominal_tick_rate_hz: 4
journal_dir: /tmp/driftmine-journal
debug: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerBaseURL != "http://sim.local:9000" {
		t.Fatalf("server_base_url = %q", cfg.ServerBaseURL)
	}
	if cfg.WatchdogTimeout() != 5*time.Second {
		t.Fatalf("watchdog = %v", cfg.WatchdogTimeout())
	}
	if cfg.ReconnectDelay() != 500*time.Millisecond {
		t.Fatalf("reconnect = %v", cfg.ReconnectDelay())
	}
	if cfg.NominalTickRateHz != 4 || !cfg.Debug || cfg.JournalDir == "" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server_base_url: http://other:8080\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.WatchdogTimeoutMs != def.WatchdogTimeoutMs || cfg.ReconnectDelayMs != def.ReconnectDelayMs {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoad_RejectsNonPositiveTimings(t *testing.T) {
	for _, body := range []string{
		"watchdog_timeout_ms: 0\n",
		"watchdog_timeout_ms: -1\n",
		"reconnect_delay_ms: 0\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("config %q accepted", body)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
