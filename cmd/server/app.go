package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/bootstrap"
	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/config"
	"github.com/example/solyield/internal/handlers"
	apihttp "github.com/example/solyield/internal/http"
	"github.com/example/solyield/internal/ledger"
	"github.com/example/solyield/internal/metrics"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/rate"
	"github.com/example/solyield/internal/solana"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// app is the wired server. close releases limiters and the Mongo client.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// backend is what the HTTP layer needs from a ledger.
type backend struct {
	program  handlers.Initializer
	balances handlers.BalanceFetcher
	funder   handlers.Funder
	health   apihttp.Pinger
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{}
	programID, err := parseProgramID(cfg.ProgramID)
	if err != nil {
		return nil, err
	}

	var (
		be         backend
		identities interface {
			auth.IdentityResolver
			auth.IdentityBinder
		}
	)
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		l := ledger.NewMemory()
		boot, err := bootstrap.New(programID, l, log)
		if err != nil {
			return nil, err
		}
		be = backend{program: boot, balances: l, funder: l, health: l}
		identities = auth.NewMemoryIdentityStore()

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		l, err := ledger.NewMongo(ctx, client, cfg.MongoDB)
		if err != nil {
			a.close()
			return nil, err
		}
		boot, err := bootstrap.New(programID, l, log)
		if err != nil {
			a.close()
			return nil, err
		}
		ids, err := auth.NewMongoIdentityStore(ctx, client, cfg.MongoDB, cfg.KeyCacheTTL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("identity store init: %w", err)
		}
		be = backend{program: boot, balances: l, funder: l, health: l}
		identities = ids

	case config.BackendRPC:
		payer, err := loadPayer(cfg.PayerKeypair)
		if err != nil {
			return nil, err
		}
		opts := []solana.Option{
			solana.WithLogger(log),
			solana.WithRetry(uint(cfg.SendRetryAttempts), cfg.SendRetryDelay),
		}
		if payer != nil {
			opts = append(opts, solana.WithPayer(*payer))
		} else {
			log.Warn("no payer keypair; initialize will be refused", zap.String("event", "startup"))
		}
		cl, err := solana.NewClient(cfg.SolanaRPCURL, chooseCommitment(cfg.SolCommitment), programID, opts...)
		if err != nil {
			return nil, err
		}
		be = backend{program: cl, balances: cl, health: cl}
		identities = auth.NewMemoryIdentityStore()

	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		a.close()
		return nil, err
	}

	states := cache.New[program.GlobalState](cfg.CacheTTL)
	balances := cache.New[uint64](cfg.CacheTTL)
	ipl := rate.New(cfg.RateLimitRPM, cfg.RateLimitRPM, 5*time.Minute)
	il := rate.New(cfg.InitializeRPM, cfg.InitializeRPM, 5*time.Minute)
	a.closers = append(a.closers, ipl.Stop, il.Stop)

	d := apihttp.Deps{
		State: handlers.NewStateHandler(handlers.StateDeps{
			Program: be.program, Cache: states, Timeout: cfg.RPCTimeout, Log: log,
		}),
		Initialize: handlers.NewInitializeHandler(handlers.InitializeDeps{
			Program: be.program, States: states, Timeout: cfg.RPCTimeout, Log: log,
		}),
		Balance: handlers.NewBalanceHandler(handlers.BalanceDeps{
			Cache: balances, Fetcher: be.balances, Timeout: cfg.RPCTimeout, MaxConcurrency: cfg.MaxConcurrency, Log: log,
		}),
		Admin:       handlers.NewAdminHandler(identities, cfg.AdminToken, log),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Identities:  identities,
		IPLimiter:   ipl,
		InitLimiter: il,
		Health:      []apihttp.Pinger{be.health, identities},
		Log:         log,
	}
	if be.funder != nil {
		d.Airdrop = handlers.NewAirdropHandler(be.funder, balances, cfg.AdminToken, log)
	}
	a.handler = apihttp.NewRouter(d)

	log.Info("ready",
		zap.String("event", "startup"),
		zap.String("backend", cfg.LedgerBackend),
		zap.String("program_id", programID.String()),
		zap.String("state_address", be.program.Address().String()),
	)
	return a, nil
}
