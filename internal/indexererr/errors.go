// Package indexererr implements the error taxonomy of spec.md §7: every
// failure the core produces maps onto exactly one of these sentinels, so
// callers can branch with errors.Is/errors.As instead of string matching.
package indexererr

import "github.com/pkg/errors"

var (
	// ErrParse: malformed block file, bad ledger file, unparseable
	// filename. Logged, file skipped, no state change.
	ErrParse = errors.New("parse error")

	// ErrIntegrity: a store row failed to decode, or a required secondary
	// index row was missing. Fatal.
	ErrIntegrity = errors.New("integrity error")

	// ErrInvariantViolation: canonical_update_threshold >= k, best tip
	// outside the root branch, or a diff referenced an unknown account
	// without the coinbase-receiver exception. Fatal.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAccountNotFound: a diff referenced an account that does not
	// exist and is not the coinbase-receiver exception.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidDelegation: a delegation diff's delegator does not match
	// the account it names.
	ErrInvalidDelegation = errors.New("invalid delegation")

	// ErrDuplicate: the block/ledger is already known; an idempotent
	// no-op, not a failure.
	ErrDuplicate = errors.New("duplicate")

	// ErrIO: a filesystem or store I/O failure. Retried once by the
	// caller, then surfaced.
	ErrIO = errors.New("io error")

	// ErrShutdown: not an error; signals cooperative cancellation.
	ErrShutdown = errors.New("shutdown")
)

// Wrap attaches msg as context to err while preserving errors.Is matching
// against the sentinels above.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
