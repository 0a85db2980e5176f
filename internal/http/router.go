package apihttp

import (
	"context"
	"net/http"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/handlers"
	"github.com/example/solyield/internal/rate"
	"github.com/example/solyield/pkg/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger is checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything NewRouter mounts. Airdrop and Metrics are
// optional.
type Deps struct {
	State      *handlers.StateHandler
	Initialize *handlers.InitializeHandler
	Balance    *handlers.BalanceHandler
	Admin      *handlers.AdminHandler
	Airdrop    *handlers.AirdropHandler
	Metrics    http.Handler

	Identities  auth.IdentityResolver
	IPLimiter   *rate.Limiter
	InitLimiter *rate.Limiter
	Health      []Pinger
	Log         *zap.Logger
}

// NewRouter wires routes and middlewares.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(d.Log))
	r.Use(CORS)
	r.Use(RateLimit(d.IPLimiter))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range d.Health {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				d.Log.Warn("health check failed", zap.String("event", "healthz"), zap.Error(err))
				jsonutil.JSON(w, http.StatusInternalServerError, map[string]string{"status": "unhealthy"})
				return
			}
		}
		jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(Auth(d.Identities))
		api.Get("/state", d.State.ServeHTTP)
		api.With(CallerLimit(d.InitLimiter)).Post("/initialize", d.Initialize.ServeHTTP)
		api.Post("/balances", d.Balance.ServeHTTP)
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Post("/identities", d.Admin.ServeHTTP)
		if d.Airdrop != nil {
			admin.Post("/airdrop", d.Airdrop.ServeHTTP)
		}
	})

	return r
}
