package handlers

import (
	"context"
	"net/http"

	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Funder credits lamports on a local ledger.
type Funder interface {
	Airdrop(ctx context.Context, addr sol.PublicKey, lamports uint64) (uint64, error)
	Balance(ctx context.Context, addr sol.PublicKey) (uint64, error)
}

type AirdropHandler struct {
	Ledger     Funder
	Balances   *cache.Cache[uint64]
	AdminToken string
	Log        *zap.Logger
}

func NewAirdropHandler(ledger Funder, balances *cache.Cache[uint64], adminToken string, log *zap.Logger) *AirdropHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AirdropHandler{Ledger: ledger, Balances: balances, AdminToken: adminToken, Log: log}
}

// ServeHTTP handles POST /admin/airdrop.
func (h *AirdropHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !adminAuthorized(r, h.AdminToken) {
		jsonutil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req types.AirdropRequest
	if err := jsonutil.Decode(r, &req, false); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	addr, err := sol.PublicKeyFromBase58(req.Identity)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid identity")
		return
	}
	if req.Lamports == 0 {
		jsonutil.Error(w, http.StatusBadRequest, "lamports required")
		return
	}
	slot, err := h.Ledger.Airdrop(r.Context(), addr, req.Lamports)
	if err != nil {
		h.Log.Error("airdrop failed", zap.String("event", "airdrop"), zap.Error(err))
		writeError(w, err)
		return
	}
	if h.Balances != nil {
		h.Balances.Invalidate(addr.String())
	}
	bal, err := h.Ledger.Balance(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Log.Info("funded", zap.String("event", "airdrop"), zap.String("identity", addr.String()),
		zap.Uint64("lamports", req.Lamports), zap.Uint64("slot", slot))
	jsonutil.JSON(w, http.StatusOK, types.AirdropResponse{
		Identity: addr.String(),
		Lamports: req.Lamports,
		Balance:  bal,
		Slot:     slot,
	})
}
