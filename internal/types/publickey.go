package types

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// PublicKey is a canonical base58-encoded account address. Equality and
// ordering are byte-lexicographic over the encoded string.
type PublicKey string

const publicKeyLen = 55
const publicKeyPrefix = "B62q"

// ErrInvalidPublicKey is returned when a string fails the address shape
// invariant (length, prefix, base58 alphabet).
var ErrInvalidPublicKey = errors.New("invalid public key")

// NewPublicKey validates s against the address invariants and returns it as
// a PublicKey.
func NewPublicKey(s string) (PublicKey, error) {
	if len(s) != publicKeyLen {
		return "", errors.Wrapf(ErrInvalidPublicKey, "length %d, want %d", len(s), publicKeyLen)
	}
	if s[:len(publicKeyPrefix)] != publicKeyPrefix {
		return "", errors.Wrapf(ErrInvalidPublicKey, "missing prefix %q", publicKeyPrefix)
	}
	if _, err := base58.Decode(s); err != nil {
		return "", errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	return PublicKey(s), nil
}

// Empty reports whether pk is the zero value.
func (pk PublicKey) Empty() bool { return pk == "" }

// Less implements the byte-lexicographic total order used for tie-breaks.
func (pk PublicKey) Less(other PublicKey) bool { return pk < other }

func (pk PublicKey) String() string { return string(pk) }
