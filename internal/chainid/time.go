package chainid

import "time"

// MillisToGlobalSlot converts epoch milliseconds to a mainnet global slot
// number, per constants.rs `millis_to_global_slot`.
func MillisToGlobalSlot(millis int64) uint64 {
	return uint64(millis-MainnetGenesisTimestampMillis) / uint64(MainnetBlockSlotTimeMillis)
}

// MillisToISODateString converts epoch milliseconds to an RFC3339
// millisecond-precision string, per constants.rs `millis_to_iso_date_string`.
func MillisToISODateString(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02T15:04:05.000Z")
}

// formatGenesisTimestamp reproduces chrono's "%Y-%m-%d %H:%M:%S%.6fZ"
// formatting used inside chain_id's genesis-constants hash.
func formatGenesisTimestamp(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04:05.000000") + "Z"
}
