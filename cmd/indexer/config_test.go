package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
network: mainnet
database_dir: /var/lib/posindexer
blocks_dir: /data/blocks
log_level: debug
transition_frontier_k: 290
canonical_threshold: 10
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Network != "mainnet" {
		t.Errorf("Network = %q, want mainnet", cfg.Network)
	}
	if cfg.DatabaseDir != "/var/lib/posindexer" {
		t.Errorf("DatabaseDir = %q", cfg.DatabaseDir)
	}
	if cfg.TransitionFrontierK != 290 {
		t.Errorf("TransitionFrontierK = %d, want 290", cfg.TransitionFrontierK)
	}
	if cfg.LedgerCadence != 0 {
		t.Errorf("LedgerCadence = %d, want 0 (unset in file)", cfg.LedgerCadence)
	}
}

func TestCanonicityConfigDefaultsZeroFields(t *testing.T) {
	cfg := Config{TransitionFrontierK: 500}
	cc := cfg.CanonicityConfig()
	if cc.TransitionFrontierK != 500 {
		t.Errorf("TransitionFrontierK = %d, want 500", cc.TransitionFrontierK)
	}
	if cc.PruneInterval == 0 {
		t.Error("PruneInterval should default to the mainnet value, not 0")
	}
	if cc.CanonicalThreshold == 0 {
		t.Error("CanonicalThreshold should default to the mainnet value, not 0")
	}
}
