package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/posindexer/posindexer/internal/types"
)

type fakeDataSource struct {
	accounts  map[types.PublicKey]*types.Account
	transfers []Feetransfer
}

func (f *fakeDataSource) Account(pk types.PublicKey) (*types.Account, bool) {
	acc, ok := f.accounts[pk]
	return acc, ok
}
func (f *fakeDataSource) BestChain(n int) ([]*types.PrecomputedBlock, error) { return nil, nil }
func (f *fakeDataSource) BestLedgerJSON() (string, error)                   { return `{}`, nil }
func (f *fakeDataSource) LedgerByHash(hash string) (string, bool, error)     { return "", false, nil }
func (f *fakeDataSource) LedgerAtHeight(h uint32) (string, bool, error)      { return "", false, nil }
func (f *fakeDataSource) MaxCanonicalHeight() (uint32, bool)                { return 10, true }
func (f *fakeDataSource) Summary(verbose bool) (string, error)               { return `"ok"`, nil }
func (f *fakeDataSource) FeeTransfersForBlock(stateHash string) ([]Feetransfer, error) {
	return f.transfers, nil
}

func TestHandleAccountFound(t *testing.T) {
	pk := types.PublicKey("B62qrecVjpoZ4Re3a5arN6gXZ6orhmj1enUtA887XdG5mtZfdUbBUh4")
	ds := &fakeDataSource{accounts: map[types.PublicKey]*types.Account{pk: {PublicKey: pk, Balance: 7}}}
	router := NewRouter(ds)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+string(pk), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Balance":7`)
}

func TestHandleFeeTransfersSortAndLimit(t *testing.T) {
	ds := &fakeDataSource{transfers: []Feetransfer{
		{StateHash: "s", Height: 3},
		{StateHash: "s", Height: 1},
		{StateHash: "s", Height: 2},
	}}
	router := NewRouter(ds)

	req := httptest.NewRequest(http.MethodGet, "/feetransfers/s?sort_by=block_height_asc&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"block_height":1`)
}
