package types

import "github.com/pkg/errors"

// BlockHash is an opaque 52-character state-hash identifier.
type BlockHash string

const (
	blockHashLen    = 52
	blockHashPrefix = "3N"
)

// ErrInvalidBlockHash is returned when a string fails the block-hash shape
// invariant.
var ErrInvalidBlockHash = errors.New("invalid block hash")

// NewBlockHash validates s as a BlockHash.
func NewBlockHash(s string) (BlockHash, error) {
	if len(s) != blockHashLen {
		return "", errors.Wrapf(ErrInvalidBlockHash, "length %d, want %d", len(s), blockHashLen)
	}
	if s[:len(blockHashPrefix)] != blockHashPrefix {
		return "", errors.Wrapf(ErrInvalidBlockHash, "missing prefix %q", blockHashPrefix)
	}
	return BlockHash(s), nil
}

func (h BlockHash) Empty() bool  { return h == "" }
func (h BlockHash) String() string { return string(h) }

// LedgerHash is a 51-character identifier whose second character is
// restricted to {w,x,y,z}.
type LedgerHash string

const (
	ledgerHashLen    = 51
	ledgerHashPrefix = "j"
)

var ledgerHashSecondChars = map[byte]bool{'w': true, 'x': true, 'y': true, 'z': true}

// ErrInvalidLedgerHash is returned when a string fails the ledger-hash shape
// invariant.
var ErrInvalidLedgerHash = errors.New("invalid ledger hash")

// NewLedgerHash validates s as a LedgerHash.
func NewLedgerHash(s string) (LedgerHash, error) {
	if len(s) != ledgerHashLen {
		return "", errors.Wrapf(ErrInvalidLedgerHash, "length %d, want %d", len(s), ledgerHashLen)
	}
	if s[0] != ledgerHashPrefix[0] {
		return "", errors.Wrapf(ErrInvalidLedgerHash, "missing prefix %q", ledgerHashPrefix)
	}
	if !ledgerHashSecondChars[s[1]] {
		return "", errors.Wrapf(ErrInvalidLedgerHash, "second char %q not in {w,x,y,z}", s[1])
	}
	return LedgerHash(s), nil
}

// IsValidLedgerHash reports whether s satisfies the LedgerHash invariant
// without allocating an error.
func IsValidLedgerHash(s string) bool {
	_, err := NewLedgerHash(s)
	return err == nil
}

func (h LedgerHash) Empty() bool    { return h == "" }
func (h LedgerHash) String() string { return string(h) }
