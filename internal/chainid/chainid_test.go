package chainid

import "testing"

func TestMainnetChainID(t *testing.T) {
	got := MainnetChainID()
	if got != TestChainID {
		t.Fatalf("MainnetChainID() = %q, want %q", got, TestChainID)
	}
}

func TestMillisToGlobalSlot(t *testing.T) {
	got := MillisToGlobalSlot(MainnetGenesisTimestampMillis + MainnetBlockSlotTimeMillis*5)
	if got != 5 {
		t.Fatalf("MillisToGlobalSlot() = %d, want 5", got)
	}
}
