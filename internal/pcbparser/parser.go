// Package pcbparser decodes precomputed-block JSON files into the core's
// common in-memory types.PrecomputedBlock shape. Two on-disk schema
// versions exist (spec.md §9 design note); both decode into the same
// wire struct here since the fields the core actually consumes are
// version-stable, and the block's VersionTag is carried through
// unchanged for block_version (spec.md §4.1).
package pcbparser

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/posindexer/posindexer/internal/types"
)

// wireBlock mirrors the subset of precomputed-block JSON the core
// consumes — the full mina-indexer wire schema carries many more
// protocol-state fields the diff engine and witness tree never read.
type wireBlock struct {
	StateHash               string            `json:"state_hash"`
	PreviousStateHash       string            `json:"previous_state_hash"`
	GenesisStateHash        string            `json:"genesis_state_hash"`
	BlockchainLength         uint32            `json:"blockchain_length"`
	GlobalSlotSinceGenesis   uint32            `json:"global_slot_since_genesis"`
	EpochCount               uint32            `json:"epoch_count"`
	Creator                  string            `json:"creator"`
	CoinbaseReceiver         string            `json:"coinbase_receiver"`
	CoinbaseReceiverBalance  uint64            `json:"coinbase_receiver_balance"`
	StagedLedgerHash         string            `json:"staged_ledger_hash"`
	TimestampMillis          int64             `json:"timestamp"`
	SuperchargeCoinbase      bool              `json:"supercharge_coinbase"`
	VersionTag               uint8             `json:"version"`
	BlockComparison          uint64            `json:"block_comparison"`
	NewCoinbaseReceiver      bool              `json:"new_coinbase_receiver"`
	AccountsCreated          map[string]uint64 `json:"accounts_created"`
	UserCommands             []wireUserCommand `json:"user_commands"`
	InternalCommandsPreDiff  *wireInternalCmd  `json:"internal_commands_pre_diff"`
	InternalCommandsPostDiff *wireInternalCmd  `json:"internal_commands_post_diff"`
	SnarkWorkPreDiff         []wireSnarkWork   `json:"snark_work_pre_diff"`
	SnarkWorkPostDiff        []wireSnarkWork   `json:"snark_work_post_diff"`
}

type wireUserCommand struct {
	Kind     string `json:"kind"` // "payment" | "delegation"
	Status   string `json:"status"` // "applied" | "failed"
	Hash     string `json:"hash"`
	FeePayer string `json:"fee_payer"`
	Source   string `json:"source"`
	Receiver string `json:"receiver"`
	Delegate string `json:"delegate"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
	Nonce    uint32 `json:"nonce"`
	Memo     string `json:"memo"`
}

type wireFeeTransfer struct {
	Receiver string `json:"receiver"`
	Fee      uint64 `json:"fee"`
}

type wireInternalCmd struct {
	Kind         string           `json:"kind"` // "zero" | "one" | "two"
	Receiver     string           `json:"receiver"`
	Supercharge  bool             `json:"supercharge"`
	FeeTransfer0 *wireFeeTransfer `json:"fee_transfer_0"`
	FeeTransfer1 *wireFeeTransfer `json:"fee_transfer_1"`
}

type wireSnarkWork struct {
	Prover string `json:"prover"`
	Fee    uint64 `json:"fee"`
}

// ParseFile reads and decodes path. The block's VersionTag comes from the
// file's own version field and is 0 when the file has none.
func ParseFile(path string) (*types.PrecomputedBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrapf(err, "decoding precomputed block %s", path)
	}
	return toPrecomputedBlock(&w)
}

func toPrecomputedBlock(w *wireBlock) (*types.PrecomputedBlock, error) {
	stateHash, err := types.NewBlockHash(w.StateHash)
	if err != nil {
		return nil, err
	}
	prevHash, err := types.NewBlockHash(w.PreviousStateHash)
	if err != nil {
		return nil, err
	}
	genesisHash, err := types.NewBlockHash(w.GenesisStateHash)
	if err != nil {
		return nil, err
	}
	creator, err := types.NewPublicKey(w.Creator)
	if err != nil {
		return nil, err
	}
	coinbaseReceiver, err := types.NewPublicKey(w.CoinbaseReceiver)
	if err != nil {
		return nil, err
	}
	stagedLedgerHash, err := types.NewLedgerHash(w.StagedLedgerHash)
	if err != nil {
		return nil, err
	}

	b := &types.PrecomputedBlock{
		StateHash:               stateHash,
		PreviousStateHash:       prevHash,
		BlockchainLength:         w.BlockchainLength,
		GlobalSlotSinceGenesis:   w.GlobalSlotSinceGenesis,
		EpochCount:               w.EpochCount,
		GenesisStateHash:         genesisHash,
		Creator:                  creator,
		CoinbaseReceiver:         coinbaseReceiver,
		CoinbaseReceiverBalance:  types.Amount(w.CoinbaseReceiverBalance),
		StagedLedgerHash:         stagedLedgerHash,
		TimestampMillis:          w.TimestampMillis,
		SuperchargeCoinbase:      w.SuperchargeCoinbase,
		NewCoinbaseReceiver:      w.NewCoinbaseReceiver,
		BlockComparison:          w.BlockComparison,
		VersionTag:               w.VersionTag,
		AccountsCreated:          make(map[types.PublicKey]types.Amount, len(w.AccountsCreated)),
	}

	for pkStr, bal := range w.AccountsCreated {
		pk, err := types.NewPublicKey(pkStr)
		if err != nil {
			return nil, err
		}
		b.AccountsCreated[pk] = types.Amount(bal)
	}

	for _, wc := range w.UserCommands {
		cmd, err := toUserCommand(wc)
		if err != nil {
			return nil, err
		}
		b.UserCommands = append(b.UserCommands, cmd)
	}

	if b.InternalCommandsPreDiff, err = toInternalCommand(w.InternalCommandsPreDiff); err != nil {
		return nil, err
	}
	if b.InternalCommandsPostDiff, err = toInternalCommand(w.InternalCommandsPostDiff); err != nil {
		return nil, err
	}

	for _, sw := range w.SnarkWorkPreDiff {
		entry, err := toSnarkWork(sw)
		if err != nil {
			return nil, err
		}
		b.SnarkWorkPreDiff = append(b.SnarkWorkPreDiff, entry)
	}
	for _, sw := range w.SnarkWorkPostDiff {
		entry, err := toSnarkWork(sw)
		if err != nil {
			return nil, err
		}
		b.SnarkWorkPostDiff = append(b.SnarkWorkPostDiff, entry)
	}

	return b, nil
}

func toUserCommand(w wireUserCommand) (types.UserCommand, error) {
	var cmd types.UserCommand
	switch w.Kind {
	case "payment":
		cmd.Kind = types.CommandPayment
	case "delegation":
		cmd.Kind = types.CommandDelegation
	default:
		return cmd, errors.Errorf("unknown user command kind %q", w.Kind)
	}
	switch w.Status {
	case "applied":
		cmd.Status = types.StatusApplied
	case "failed":
		cmd.Status = types.StatusFailed
	default:
		return cmd, errors.Errorf("unknown user command status %q", w.Status)
	}

	var err error
	if cmd.FeePayer, err = types.NewPublicKey(w.FeePayer); err != nil {
		return cmd, err
	}
	if cmd.Source, err = types.NewPublicKey(w.Source); err != nil {
		return cmd, err
	}
	if cmd.Receiver, err = types.NewPublicKey(w.Receiver); err != nil {
		return cmd, err
	}
	if w.Delegate != "" {
		if cmd.Delegate, err = types.NewPublicKey(w.Delegate); err != nil {
			return cmd, err
		}
	}
	cmd.Hash = w.Hash
	cmd.Amount = types.Amount(w.Amount)
	cmd.Fee = types.Amount(w.Fee)
	cmd.Nonce = types.Nonce(w.Nonce)
	cmd.Memo = w.Memo
	return cmd, nil
}

func toInternalCommand(w *wireInternalCmd) (*types.InternalCommand, error) {
	if w == nil {
		return nil, nil
	}
	ic := &types.InternalCommand{Supercharge: w.Supercharge}
	switch w.Kind {
	case "zero":
		ic.Kind = types.CoinbaseZero
	case "one":
		ic.Kind = types.CoinbaseOne
	case "two":
		ic.Kind = types.CoinbaseTwo
	default:
		return nil, errors.Errorf("unknown coinbase kind %q", w.Kind)
	}
	receiver, err := types.NewPublicKey(w.Receiver)
	if err != nil {
		return nil, err
	}
	ic.Receiver = receiver

	if w.FeeTransfer0 != nil {
		ft, err := toFeeTransfer(w.FeeTransfer0)
		if err != nil {
			return nil, err
		}
		ic.FeeTransfer0 = ft
	}
	if w.FeeTransfer1 != nil {
		ft, err := toFeeTransfer(w.FeeTransfer1)
		if err != nil {
			return nil, err
		}
		ic.FeeTransfer1 = ft
	}
	return ic, nil
}

func toFeeTransfer(w *wireFeeTransfer) (*types.CoinbaseFeeTransfer, error) {
	receiver, err := types.NewPublicKey(w.Receiver)
	if err != nil {
		return nil, err
	}
	return &types.CoinbaseFeeTransfer{Receiver: receiver, Fee: types.Amount(w.Fee)}, nil
}

func toSnarkWork(w wireSnarkWork) (types.SnarkWorkEntry, error) {
	prover, err := types.NewPublicKey(w.Prover)
	if err != nil {
		return types.SnarkWorkEntry{}, err
	}
	return types.SnarkWorkEntry{Prover: prover, Fee: types.Amount(w.Fee)}, nil
}
