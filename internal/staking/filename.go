package staking

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/posindexer/posindexer/internal/types"
)

// ParseFilename splits a staking-ledger filename of the shape
// "{network}-{epoch}-{ledger_hash}.json" into its components, per the
// filename convention spec.md §6 names for staking-ledger ingestion and
// grounded on split_ledger_path in the original.
func ParseFilename(path string) (network string, epoch uint32, ledgerHash types.LedgerHash, err error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "-")
	if len(parts) != 3 {
		return "", 0, "", errors.Errorf("malformed staking ledger filename %q", path)
	}
	n, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, "", errors.Wrapf(err, "parsing epoch from %q", path)
	}
	if !types.IsValidLedgerHash(parts[2]) {
		return "", 0, "", errors.Errorf("invalid ledger hash %q in filename %q", parts[2], path)
	}
	return parts[0], uint32(n), types.LedgerHash(parts[2]), nil
}
