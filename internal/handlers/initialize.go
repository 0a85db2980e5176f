package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/metrics"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
	sol "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type InitializeDeps struct {
	Program Initializer
	// States is invalidated after a successful initialize.
	States  *cache.Cache[program.GlobalState]
	Timeout time.Duration
	Log     *zap.Logger
}

// InitializeHandler serves POST /api/initialize. The caller is the identity
// attested by the request's API key.
type InitializeHandler struct{ Deps InitializeDeps }

func NewInitializeHandler(deps InitializeDeps) *InitializeHandler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &InitializeHandler{Deps: deps}
}

func (h *InitializeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		jsonutil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var body types.InitializeRequest
	if err := jsonutil.Decode(r, &body, true); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	req := program.InitializeRequest{Caller: caller}
	if body.StateAddress != "" {
		addr, err := sol.PublicKeyFromBase58(body.StateAddress)
		if err != nil {
			jsonutil.Error(w, http.StatusBadRequest, "invalid state_address")
			return
		}
		req.StateAddress = &addr
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
	defer cancel()
	timer := prometheus.NewTimer(metrics.InitializeSeconds)
	rcpt, err := h.Deps.Program.Initialize(ctx, req)
	timer.ObserveDuration()
	metrics.InitializeTotal.WithLabelValues(metrics.Outcome(err)).Inc()

	log := h.Deps.Log.With(
		zap.String("event", "initialize"),
		zap.String("caller", caller.String()),
		zap.String("key_hash_prefix", auth.HashPrefixFromContext(r.Context())),
	)
	if err != nil {
		if errors.Is(err, program.ErrAlreadyInitialized) {
			log.Info("rejected", zap.Error(err))
		} else {
			log.Warn("failed", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	if h.Deps.States != nil {
		h.Deps.States.Invalidate(StateKey)
	}
	log.Info("committed", zap.String("signature", rcpt.Signature.String()), zap.Uint64("slot", rcpt.Slot))
	jsonutil.JSON(w, http.StatusOK, types.NewInitializeResponse(rcpt, caller, h.Deps.Program.Address()))
}
