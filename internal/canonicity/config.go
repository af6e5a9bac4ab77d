package canonicity

import "github.com/posindexer/posindexer/internal/indexererr"

// Config carries the witness-tree thresholds spec.md §4.6 names.
type Config struct {
	TransitionFrontierK      uint32
	PruneInterval            uint32
	CanonicalThreshold       uint32
	CanonicalUpdateThreshold uint32
	LedgerCadence            uint32
}

// Validate enforces the invariant from spec.md §7: canonical_update_threshold
// must be strictly less than k.
func (c Config) Validate() error {
	if c.CanonicalUpdateThreshold >= c.TransitionFrontierK {
		return indexererr.Wrapf(indexererr.ErrInvariantViolation,
			"canonical_update_threshold (%d) >= transition_frontier_k (%d)",
			c.CanonicalUpdateThreshold, c.TransitionFrontierK)
	}
	if c.CanonicalThreshold >= c.TransitionFrontierK {
		return indexererr.Wrapf(indexererr.ErrInvariantViolation,
			"canonical_threshold (%d) >= transition_frontier_k (%d)",
			c.CanonicalThreshold, c.TransitionFrontierK)
	}
	return nil
}

// DefaultMainnetConfig returns the mainnet-default thresholds (constants.rs).
func DefaultMainnetConfig() Config {
	return Config{
		TransitionFrontierK:      290,
		PruneInterval:            10,
		CanonicalThreshold:       10,
		CanonicalUpdateThreshold: 2,
		LedgerCadence:            100,
	}
}
