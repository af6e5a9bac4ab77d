// Package chainid derives the mina p2p chain-id: a blake2b-256 double hash
// of the genesis state hash, the constraint-system digests, and a hash of
// the genesis constants. Grounded on
// _examples/original_source/rust/src/constants.rs `chain_id`.
package chainid

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Mainnet wire constants fixing chain-id derivation (spec.md §6).
const (
	MainnetGenesisHash             = "3NKeMoncuHab5ScarV5ViyF16cJPT4taWNSaTLS64Dp67wuXigPZ"
	MainnetGenesisPrevStateHash    = "3NLoKn22eMnyQ7rxh5pxB6vBA3XhSAhhrf7akdqS6HbAKD14Dh1d"
	MainnetGenesisLastVRFOutput    = "NfThG1r1GxQuhaGLSJWGxcpv24SudtXG4etB0TnGqwg="
	MainnetGenesisTimestampMillis  = int64(1615939200000)
	MainnetGenesisLedgerHash       = "jx7buQVWFLsXTtzRgSxbYcT8EYLS8KCZbLrfDcJxMtyy4thw2Ee"
	MainnetTransitionFrontierK     = uint32(290)
	MainnetAccountCreationFee      = uint64(1_000_000_000)
	MainnetCoinbaseReward          = uint64(720_000_000_000)
	MainnetEpochSlotCount          = uint32(7140)
	MainnetSlotsPerSubWindow       = uint32(7)
	MainnetDelta                   = uint32(0)
	MainnetTxpoolMaxSize           = uint32(3000)
	MainnetBlockSlotTimeMillis     = int64(180000)

	MainnetCanonicalThreshold   = uint32(10)
	PruneIntervalDefault        = uint32(10)
	CanonicalUpdateThreshold    = PruneIntervalDefault / 5
	LedgerCadence               = uint32(100)

	digestTxnMerge        = "d0f8e5c3889f0f84acac613f5c1c29b1"
	digestTxnBase         = "922bd415f24f0958d610607fc40ef227"
	digestBlockchainStep  = "06d85d220ad13e03d51ef357d2c9d536"
)

// MainnetGenesisConstants is the ordered list chain_id hashes, matching
// constants.rs's MAINNET_GENESIS_CONSTANTS.
var MainnetGenesisConstants = []uint32{
	MainnetTransitionFrontierK,
	MainnetEpochSlotCount,
	MainnetSlotsPerSubWindow,
	MainnetDelta,
	MainnetTxpoolMaxSize,
}

// MainnetConstraintSystemDigests is the ordered list chain_id concatenates.
var MainnetConstraintSystemDigests = []string{digestTxnMerge, digestTxnBase, digestBlockchainStep}

// TestChainID is the fixed chain-id test vector for mainnet constants
// (spec.md §8 S7).
const TestChainID = "5f704cc0c82e0ed70e873f0893d7e06f148524e3f0bdae2afb02e7819a0c24d1"

func blake2b256Hex(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChainID derives the chain-id per spec.md §6:
//
//	blake2b-256(genesisStateHash || concat(digests) || blake2b-256(concat(genesisConstants as decimal strings || genesisTimestamp formatted)))
func ChainID(genesisStateHash string, genesisConstants []uint32, genesisTimestampMillis int64, constraintSystemDigests []string) string {
	var gcs strings.Builder
	for _, c := range genesisConstants {
		gcs.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	gcs.WriteString(formatGenesisTimestamp(genesisTimestampMillis))
	genesisConstantsHash := blake2b256Hex([]byte(gcs.String()))

	var digest strings.Builder
	digest.WriteString(genesisStateHash)
	for _, d := range constraintSystemDigests {
		digest.WriteString(d)
	}
	digest.WriteString(genesisConstantsHash)

	return blake2b256Hex([]byte(digest.String()))
}

// MainnetChainID returns the chain-id for the mainnet constants above; it
// must equal TestChainID.
func MainnetChainID() string {
	return ChainID(MainnetGenesisHash, MainnetGenesisConstants, MainnetGenesisTimestampMillis, MainnetConstraintSystemDigests)
}
