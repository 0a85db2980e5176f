package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/metrics"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// StateKey is the cache key of the global state record.
const StateKey = "global_state"

// Initializer is implemented by bootstrap.Bootstrapper and solana.Client.
type Initializer interface {
	Address() sol.PublicKey
	Initialize(ctx context.Context, req program.InitializeRequest) (program.Receipt, error)
	State(ctx context.Context) (*program.GlobalState, error)
}

type StateDeps struct {
	Program Initializer
	Cache   *cache.Cache[program.GlobalState]
	Timeout time.Duration
	Log     *zap.Logger
}

// StateHandler serves GET /api/state.
type StateHandler struct{ Deps StateDeps }

func NewStateHandler(deps StateDeps) *StateHandler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &StateHandler{Deps: deps}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
	defer cancel()
	entry, source, err := h.Deps.Cache.GetOrFetch(ctx, StateKey, func(ctx context.Context) (program.GlobalState, error) {
		st, err := h.Deps.Program.State(ctx)
		if err != nil {
			return program.GlobalState{}, err
		}
		return *st, nil
	})
	if err != nil {
		h.Deps.Log.Debug("state read failed", zap.String("event", "state_read"), zap.Error(err))
		writeError(w, err)
		return
	}
	metrics.StateReadsTotal.WithLabelValues(source).Inc()
	jsonutil.JSON(w, http.StatusOK, types.NewStateResponse(h.Deps.Program.Address(), entry.Value, source, entry.FetchedAt))
}
