package store

import "encoding/binary"

// BE32 big-endian encodes v, so lexicographic key order equals numeric
// order (spec.md §4.1).
func BE32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// BE64 is the 64-bit analogue of BE32.
func BE64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeBE32 reverses BE32.
func DecodeBE32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// DecodeBE64 reverses BE64.
func DecodeBE64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// HeightSortKey builds the {height BE}{state_hash} key for BlocksHeightSort.
func HeightSortKey(height uint32, stateHash string) []byte {
	return append(BE32(height), []byte(stateHash)...)
}

// SlotSortKey builds the {slot BE}{state_hash} key for BlocksSlotSort.
func SlotSortKey(slot uint32, stateHash string) []byte {
	return append(BE32(slot), []byte(stateHash)...)
}

// BalanceSortKey builds the {balance BE}{public_key} key for
// AccountBalanceSort.
func BalanceSortKey(balance uint64, pk string) []byte {
	return append(BE64(balance), []byte(pk)...)
}
