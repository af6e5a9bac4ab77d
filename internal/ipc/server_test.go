package ipc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/types"
)

type fakeHandlers struct {
	accounts map[types.PublicKey]*types.Account
	summary  string
}

func (f *fakeHandlers) Account(pk types.PublicKey) (*types.Account, bool) {
	acc, ok := f.accounts[pk]
	return acc, ok
}
func (f *fakeHandlers) BestChain(n int) ([]*types.PrecomputedBlock, error) { return nil, nil }
func (f *fakeHandlers) BestLedgerJSON() (string, error)                   { return `{"ok":true}`, nil }
func (f *fakeHandlers) LedgerByHash(hash string) (string, bool, error)     { return "", false, nil }
func (f *fakeHandlers) LedgerAtHeight(h uint32) (string, bool, error)      { return "", false, nil }
func (f *fakeHandlers) MaxCanonicalHeight() (uint32, bool)                { return 100, true }
func (f *fakeHandlers) Summary(verbose bool) (string, error)               { return f.summary, nil }

func TestAccountCommandRoundTrip(t *testing.T) {
	pk := types.PublicKey("B62qrecVjpoZ4Re3a5arN6gXZ6orhmj1enUtA887XdG5mtZfdUbBUh4")
	handlers := &fakeHandlers{
		accounts: map[types.PublicKey]*types.Account{pk: {PublicKey: pk, Balance: 42}},
		summary:  "(height 10): 3Nhash",
	}

	dir := t.TempDir()
	socketPath := filepath.Join(dir, "control.sock")
	srv := New(socketPath, handlers, zap.NewNop().Sugar())
	go srv.Run()

	waitForSocket(t, socketPath)

	resp, err := Send(socketPath, "account", string(pk))
	require.NoError(t, err)
	require.Contains(t, resp, "42")

	resp, err = Send(socketPath, "summary", "false")
	require.NoError(t, err)
	require.Equal(t, handlers.summary, resp)

	resp, err = Send(socketPath, "best_ledger", "")
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, resp)
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if _, err := Send(path, "summary", "false"); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
