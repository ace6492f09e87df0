package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the console's tuning file. The two timing knobs matter:
// the watchdog timeout must exceed the server's heartbeat interval with
// margin, and the reconnect delay is fixed (no backoff; the server is
// local-first and a tight retry is cheap).
type Config struct {
	ServerBaseURL string `yaml:"server_base_url"`

	WatchdogTimeoutMs int `yaml:"watchdog_timeout_ms"`
	ReconnectDelayMs  int `yaml:"reconnect_delay_ms"`

	NominalTickRateHz float64 `yaml:"nominal_tick_rate_hz"`

	// Optional local recording of inbound traffic (empty = off).
	JournalDir  string `yaml:"journal_dir"`
	IndexDBPath string `yaml:"index_db_path"`

	Debug bool `yaml:"debug"`
}

func Default() Config {
	return Config{
		ServerBaseURL:     "http://localhost:8080",
		WatchdogTimeoutMs: 10000,
		ReconnectDelayMs:  2000,
		NominalTickRateHz: 10,
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.WatchdogTimeoutMs <= 0 {
		return cfg, fmt.Errorf("%s: watchdog_timeout_ms must be positive", path)
	}
	if cfg.ReconnectDelayMs <= 0 {
		return cfg, fmt.Errorf("%s: reconnect_delay_ms must be positive", path)
	}
	return cfg, nil
}

func (c Config) WatchdogTimeout() time.Duration {
	return time.Duration(c.WatchdogTimeoutMs) * time.Millisecond
}

func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}
