package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no_such.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Simulation.TickIntervalMS != 1000 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.TickInterval() != time.Second {
		t.Errorf("TickInterval = %v", cfg.TickInterval())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `[server]
addr = ":9999"

[simulation]
tick_interval_ms = 250
seed = 7
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Simulation.Seed != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Незатронутые секции остаются на дефолтах
	if cfg.Data.Dir != "data" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `[simulation]
tick_interval_ms = -5
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("negative tick interval must be rejected")
	}
}
