// Package http is a minimal read-only JSON surface mirroring the control
// socket's read commands plus the fee-transfer listing query, serving as
// the interface an external GraphQL façade (async-graphql in the
// original) would sit in front of. Grounded on
// original_source/rust/src/web/graphql/{blocks,feetransfers}/mod.rs's
// query shapes, without generating actual GraphQL schema/resolvers.
package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/posindexer/posindexer/internal/ipc"
	"github.com/posindexer/posindexer/internal/types"
)

// Feetransfer is the flattened view of one internal command returned by
// GET /feetransfers, mirroring the original's Feetransfer SimpleObject.
type Feetransfer struct {
	StateHash string       `json:"state_hash"`
	Fee       types.Amount `json:"fee"`
	Recipient string       `json:"recipient"`
	Kind      string       `json:"type"`
	Canonical bool         `json:"canonicity"`
	Height    uint32       `json:"block_height"`
}

// DataSource is the read surface the HTTP router consults; it is a
// superset of ipc.Handlers with the fee-transfer listing query that the
// control socket has no command for.
type DataSource interface {
	ipc.Handlers
	FeeTransfersForBlock(stateHash string) ([]Feetransfer, error)
}

// NewRouter builds the chi router for the read-only HTTP surface.
func NewRouter(ds DataSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/accounts/{pk}", handleAccount(ds))
	r.Get("/blocks/best_chain/{n}", handleBestChain(ds))
	r.Get("/ledger/best", handleBestLedger(ds))
	r.Get("/ledger/{hash}", handleLedgerByHash(ds))
	r.Get("/ledger/height/{height}", handleLedgerAtHeight(ds))
	r.Get("/summary", handleSummary(ds))
	r.Get("/feetransfers/{state_hash}", handleFeeTransfers(ds))
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}

func handleAccount(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pk, err := types.NewPublicKey(chi.URLParam(r, "pk"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		acc, ok := ds.Account(pk)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, acc)
	}
}

func handleBestChain(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		blocks, err := ds.BestChain(n)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, blocks)
	}
}

func handleBestLedger(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ledger, err := ds.BestLedgerJSON()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ledger))
	}
}

func handleLedgerByHash(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ledger, ok, err := ds.LedgerByHash(chi.URLParam(r, "hash"))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ledger))
	}
}

func handleLedgerAtHeight(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := strconv.ParseUint(chi.URLParam(r, "height"), 10, 32)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		maxHeight, ok := ds.MaxCanonicalHeight()
		if !ok || uint32(height) > maxHeight {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		ledger, ok, err := ds.LedgerAtHeight(uint32(height))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ledger))
	}
}

func handleSummary(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verbose := r.URL.Query().Get("verbose") == "true"
		summary, err := ds.Summary(verbose)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(summary))
	}
}

// handleFeeTransfers mirrors feetransfers(query, sort_by, limit):
// defaults to limit=100, sort_by ∈ {block_height_asc,block_height_desc}.
func handleFeeTransfers(ds DataSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateHash := chi.URLParam(r, "state_hash")
		transfers, err := ds.FeeTransfersForBlock(stateHash)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}

		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		switch r.URL.Query().Get("sort_by") {
		case "block_height_asc":
			sort.Slice(transfers, func(i, j int) bool { return transfers[i].Height < transfers[j].Height })
		case "block_height_desc":
			sort.Slice(transfers, func(i, j int) bool { return transfers[i].Height > transfers[j].Height })
		}
		if limit < len(transfers) {
			transfers = transfers[:limit]
		}
		writeJSON(w, transfers)
	}
}
