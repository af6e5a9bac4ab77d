package watcher

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/posindexer/posindexer/internal/types"
)

// ParsedBlockFilename is the (network, height, state_hash) triple
// recovered from a precomputed-block filename, per spec.md §6's two
// shapes: "NETWORK-HASH.json" and "NETWORK-HEIGHT-HASH.json".
type ParsedBlockFilename struct {
	Network   string
	Height    uint32 // 0 and HasHeight=false when the filename omits it
	HasHeight bool
	StateHash types.BlockHash
}

// ParseBlockFilename recognizes either filename shape named in spec.md
// §6 and validates the state-hash component.
func ParseBlockFilename(path string) (ParsedBlockFilename, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "-")

	var pf ParsedBlockFilename
	switch len(parts) {
	case 2:
		pf.Network = parts[0]
		hash, err := types.NewBlockHash(parts[1])
		if err != nil {
			return pf, err
		}
		pf.StateHash = hash
	case 3:
		pf.Network = parts[0]
		height, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return pf, errors.Wrapf(err, "parsing height from %q", path)
		}
		hash, err := types.NewBlockHash(parts[2])
		if err != nil {
			return pf, err
		}
		pf.Height = uint32(height)
		pf.HasHeight = true
		pf.StateHash = hash
	default:
		return pf, errors.Errorf("malformed precomputed block filename %q", path)
	}
	return pf, nil
}

// IsBlockFilename reports whether path parses as a precomputed-block
// filename without returning the parse error, for use as a watcher
// pre-filter before the staking-ledger check.
func IsBlockFilename(path string) bool {
	_, err := ParseBlockFilename(path)
	return err == nil
}
