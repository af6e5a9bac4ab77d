package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/posindexer/posindexer/internal/canonicity"
)

// Config is the full set of knobs a `server` subcommand needs, bindable
// either from CLI flags (server start) or from a YAML file (server
// start-via-config), mirroring IndexerConfiguration in
// original_source/rust/src/server.rs.
type Config struct {
	Network          string `yaml:"network"`
	DatabaseDir      string `yaml:"database_dir"`
	BlocksDir        string `yaml:"blocks_dir"`
	BlockWatchDir    string `yaml:"block_watch_dir"`
	LedgersDir       string `yaml:"ledgers_dir"`
	LedgerWatchDir   string `yaml:"ledger_watch_dir"`
	LogDir           string `yaml:"log_dir"`
	LogLevel         string `yaml:"log_level"`
	SocketPath       string `yaml:"socket_path"`
	HTTPAddr         string `yaml:"http_addr"`
	SnapshotPath     string `yaml:"snapshot_path"`
	GenesisBlockPath string `yaml:"genesis_block_path"`

	PruneInterval            uint32 `yaml:"prune_interval"`
	CanonicalThreshold       uint32 `yaml:"canonical_threshold"`
	CanonicalUpdateThreshold uint32 `yaml:"canonical_update_threshold"`
	LedgerCadence            uint32 `yaml:"ledger_cadence"`
	TransitionFrontierK      uint32 `yaml:"transition_frontier_k"`
}

// LoadConfigFile reads and parses a YAML config file for
// `server start-via-config`.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// CanonicityConfig projects the canonicity-relevant fields into a
// canonicity.Config, defaulting to mainnet values for anything left
// zero.
func (c Config) CanonicityConfig() canonicity.Config {
	def := canonicity.DefaultMainnetConfig()
	cfg := canonicity.Config{
		TransitionFrontierK:      orDefault(c.TransitionFrontierK, def.TransitionFrontierK),
		PruneInterval:            orDefault(c.PruneInterval, def.PruneInterval),
		CanonicalThreshold:       orDefault(c.CanonicalThreshold, def.CanonicalThreshold),
		CanonicalUpdateThreshold: orDefault(c.CanonicalUpdateThreshold, def.CanonicalUpdateThreshold),
		LedgerCadence:            orDefault(c.LedgerCadence, def.LedgerCadence),
	}
	return cfg
}

func orDefault(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}
