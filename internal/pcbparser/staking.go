package pcbparser

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/posindexer/posindexer/internal/staking"
	"github.com/posindexer/posindexer/internal/types"
)

type wireStakingAccount struct {
	PK       string `json:"pk"`
	Balance  string `json:"balance"`
	Delegate string `json:"delegate"`
}

// ParseStakingLedgerFile reads and decodes a staking-ledger JSON array,
// grounded on StakingLedger::parse_file in
// original_source/rust/src/ledger/staking/mod.rs — balance strings are
// decimal Mina amounts, scaled here by 1e9 to nanomina like the original's
// `Decimal * 1_000_000_000`.
func ParseStakingLedgerFile(path string, genesisStateHash types.BlockHash) (*types.StakingLedger, error) {
	network, epoch, ledgerHash, err := staking.ParseFilename(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var accounts []wireStakingAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, errors.Wrapf(err, "decoding staking ledger %s", path)
	}

	sl := types.NewStakingLedger(epoch, network, ledgerHash, genesisStateHash)
	for _, wa := range accounts {
		pk, err := types.NewPublicKey(wa.PK)
		if err != nil {
			return nil, err
		}
		delegate, err := types.NewPublicKey(wa.Delegate)
		if err != nil {
			return nil, err
		}
		balance, err := parseDecimalNanomina(wa.Balance)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing balance for %s", wa.PK)
		}
		sl.Accounts[pk] = &types.StakingAccount{PublicKey: pk, Balance: balance, Delegate: delegate}
		sl.TotalCurrency += balance
	}
	return sl, nil
}

// parseDecimalNanomina parses a decimal Mina-denominated string (e.g.
// "123.456789012") into nanomina, matching the original's
// `Decimal::parse * 1_000_000_000`.
func parseDecimalNanomina(s string) (types.Amount, error) {
	whole, frac, hasFrac := splitOnce(s, '.')
	w, err := parseUint(whole)
	if err != nil {
		return 0, err
	}
	total := w * 1_000_000_000
	if hasFrac {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		for len(frac) < 9 {
			frac += "0"
		}
		f, err := parseUint(frac)
		if err != nil {
			return 0, err
		}
		total += f
	}
	return types.Amount(total), nil
}

func splitOnce(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid digit in %q", s)
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}
