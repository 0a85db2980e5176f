package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/metrics"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
	sol "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxWallets bounds a single balance request.
const MaxWallets = 100

// BalanceFetcher is implemented by every ledger backend.
type BalanceFetcher interface {
	Balance(ctx context.Context, pubkey sol.PublicKey) (uint64, error)
}

// BalanceDeps bundles dependencies needed by the handler.
type BalanceDeps struct {
	Cache          *cache.Cache[uint64]
	Fetcher        BalanceFetcher
	Timeout        time.Duration
	MaxConcurrency int
	Log            *zap.Logger
}

type BalanceHandler struct{ Deps BalanceDeps }

func NewBalanceHandler(deps BalanceDeps) *BalanceHandler {
	if deps.MaxConcurrency <= 0 {
		deps.MaxConcurrency = 1
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &BalanceHandler{Deps: deps}
}

func dedupe(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		if _, ok := m[w]; ok {
			continue
		}
		m[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func (h *BalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.GetBalanceRequest
	if err := jsonutil.Decode(r, &req, false); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.Wallets) == 0 {
		jsonutil.Error(w, http.StatusBadRequest, "wallets required")
		return
	}
	if len(req.Wallets) > MaxWallets {
		jsonutil.Error(w, http.StatusBadRequest, "too many wallets")
		return
	}

	wallets := dedupe(req.Wallets)
	resp := types.GetBalanceResponse{
		Balances: make([]types.BalanceEntry, 0, len(wallets)),
		Errors:   []types.ErrorEntry{},
	}

	// parse & collect invalids before any fetch starts
	type target struct {
		wallet string
		pk     sol.PublicKey
	}
	valid := make([]target, 0, len(wallets))
	for _, wstr := range wallets {
		pk, err := sol.PublicKeyFromBase58(wstr)
		if err != nil {
			resp.Errors = append(resp.Errors, types.ErrorEntry{Wallet: wstr, Error: "invalid public key"})
			continue
		}
		valid = append(valid, target{wallet: wstr, pk: pk})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(h.Deps.MaxConcurrency)
	for _, tg := range valid {
		wstr, pk := tg.wallet, tg.pk
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
			defer cancel()
			entry, source, err := h.Deps.Cache.GetOrFetch(ctx, wstr, func(ctx context.Context) (uint64, error) {
				timer := prometheus.NewTimer(metrics.BalanceFetchSeconds)
				lamports, err := h.Deps.Fetcher.Balance(ctx, pk)
				d := timer.ObserveDuration()
				if err == nil {
					h.Deps.Log.Debug("fetched", zap.String("event", "ledger_fetch"), zap.String("wallet", wstr), zap.Duration("latency", d))
				}
				return lamports, err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors = append(resp.Errors, types.ErrorEntry{Wallet: wstr, Error: err.Error()})
				return nil
			}
			resp.Balances = append(resp.Balances, types.NewBalanceEntry(wstr, entry.Value, source, entry.FetchedAt))
			return nil
		})
	}
	_ = g.Wait()

	// sort by wallet for deterministic output
	sort.Slice(resp.Balances, func(i, j int) bool { return resp.Balances[i].Wallet < resp.Balances[j].Wallet })
	sort.Slice(resp.Errors, func(i, j int) bool { return resp.Errors[i].Wallet < resp.Errors[j].Wallet })

	jsonutil.JSON(w, http.StatusOK, resp)
}
