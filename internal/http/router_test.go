package apihttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/bootstrap"
	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/handlers"
	apihttp "github.com/example/solyield/internal/http"
	"github.com/example/solyield/internal/ledger"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/rate"
	"github.com/example/solyield/internal/types"
	sol "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const adminToken = "admin-secret"

type env struct {
	ts     *httptest.Server
	ledger *ledger.Memory
	ids    *auth.MemoryIdentityStore
}

type routerOpts struct {
	ipRPM, initRPM int
	health         []apihttp.Pinger
}

func newEnv(t *testing.T, o routerOpts) *env {
	t.Helper()
	if o.ipRPM == 0 {
		o.ipRPM = 1000
	}
	if o.initRPM == 0 {
		o.initRPM = 1000
	}
	log := zaptest.NewLogger(t)
	l := ledger.NewMemory()
	ids := auth.NewMemoryIdentityStore()
	boot, err := bootstrap.New(program.ProgramID, l, log)
	require.NoError(t, err)

	states := cache.New[program.GlobalState](time.Minute)
	balances := cache.New[uint64](time.Minute)
	ipl := rate.New(o.ipRPM, o.ipRPM, time.Minute)
	il := rate.New(o.initRPM, o.initRPM, time.Minute)
	t.Cleanup(ipl.Stop)
	t.Cleanup(il.Stop)

	r := apihttp.NewRouter(apihttp.Deps{
		State:       handlers.NewStateHandler(handlers.StateDeps{Program: boot, Cache: states, Timeout: time.Second, Log: log}),
		Initialize:  handlers.NewInitializeHandler(handlers.InitializeDeps{Program: boot, States: states, Timeout: time.Second, Log: log}),
		Balance:     handlers.NewBalanceHandler(handlers.BalanceDeps{Cache: balances, Fetcher: l, Timeout: time.Second, MaxConcurrency: 4, Log: log}),
		Admin:       handlers.NewAdminHandler(ids, adminToken, log),
		Airdrop:     handlers.NewAirdropHandler(l, balances, adminToken, log),
		Metrics:     promhttp.Handler(),
		Identities:  ids,
		IPLimiter:   ipl,
		InitLimiter: il,
		Health:      o.health,
		Log:         log,
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &env{ts: ts, ledger: l, ids: ids}
}

func (e *env) do(t *testing.T, method, path, key, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	if strings.HasPrefix(path, "/admin") {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

// bind registers a new identity through the admin API and returns its key.
func (e *env) bind(t *testing.T, fund uint64) (string, sol.PublicKey) {
	t.Helper()
	id := sol.NewWallet().PublicKey()
	resp, b := e.do(t, http.MethodPost, "/admin/identities", "", `{"identity":"`+id.String()+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var bound types.BindIdentityResponse
	require.NoError(t, json.Unmarshal(b, &bound))
	if fund > 0 {
		resp, b = e.do(t, http.MethodPost, "/admin/airdrop", "", `{"identity":"`+id.String()+`","lamports":`+jsonNum(fund)+`}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	}
	return bound.Key, id
}

func jsonNum(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	e := newEnv(t, routerOpts{})
	resp, b := e.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(b))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	e = newEnv(t, routerOpts{health: []apihttp.Pinger{fakePinger{}, fakePinger{err: errors.New("down")}}})
	resp, _ = e.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	e := newEnv(t, routerOpts{})
	resp, _ := e.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t, routerOpts{})
	resp, _ := e.do(t, http.MethodOptions, "/api/state", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestAuth(t *testing.T) {
	e := newEnv(t, routerOpts{})
	resp, _ := e.do(t, http.MethodGet, "/api/state", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/state", "unknown", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	key, _ := e.bind(t, 0)
	resp, _ = e.do(t, http.MethodGet, "/api/state", key, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newEnv(t, routerOpts{})
	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+"/admin/airdrop", bytes.NewReader([]byte(`{}`)))
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInitializeFlow(t *testing.T) {
	e := newEnv(t, routerOpts{})
	first, firstID := e.bind(t, 1_000_000_000)
	second, _ := e.bind(t, 1_000_000_000)
	poor, _ := e.bind(t, 1)

	resp, b := e.do(t, http.MethodPost, "/api/initialize", poor, "")
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode, string(b))

	resp, b = e.do(t, http.MethodPost, "/api/initialize", first, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var rcpt types.InitializeResponse
	require.NoError(t, json.Unmarshal(b, &rcpt))
	require.Equal(t, firstID.String(), rcpt.Authority)

	resp, _ = e.do(t, http.MethodPost, "/api/initialize", second, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, b = e.do(t, http.MethodGet, "/api/state", second, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st types.StateResponse
	require.NoError(t, json.Unmarshal(b, &st))
	require.Equal(t, firstID.String(), st.Authority)
	require.Equal(t, rcpt.StateAddress, st.Address)

	// payer was charged rent plus fee
	resp, b = e.do(t, http.MethodPost, "/api/balances", first, `{"wallets":["`+firstID.String()+`"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal types.GetBalanceResponse
	require.NoError(t, json.Unmarshal(b, &bal))
	require.Equal(t, uint64(1_000_000_000)-program.InitializeCost(0), bal.Balances[0].Lamports)
}

func TestRateLimit429(t *testing.T) {
	e := newEnv(t, routerOpts{ipRPM: 5})
	var got429 int
	for i := 0; i < 6; i++ {
		resp, _ := e.do(t, http.MethodGet, "/healthz", "", "")
		if resp.StatusCode == http.StatusTooManyRequests {
			got429++
		}
	}
	require.Equal(t, 1, got429)
}

func TestInitializeCallerLimit(t *testing.T) {
	e := newEnv(t, routerOpts{initRPM: 2})
	key, _ := e.bind(t, 0)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := e.do(t, http.MethodPost, "/api/initialize", key, "")
		codes = append(codes, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusPaymentRequired, http.StatusPaymentRequired, http.StatusTooManyRequests}, codes)
}

func TestBalancesValidation(t *testing.T) {
	e := newEnv(t, routerOpts{})
	key, _ := e.bind(t, 0)
	resp, _ := e.do(t, http.MethodPost, "/api/balances", key, `{"wallets":[]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, b := e.do(t, http.MethodPost, "/api/balances", key, `{"wallets":["not-a-key"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal types.GetBalanceResponse
	require.NoError(t, json.Unmarshal(b, &bal))
	require.Len(t, bal.Errors, 1)
}
