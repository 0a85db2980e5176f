package apihttp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/rate"
	"github.com/example/solyield/pkg/jsonutil"
	"go.uber.org/zap"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "req_id"

// RequestIDFromContext returns the id set by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// RequestID middleware injects a random request id into context and response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b [8]byte
		_, _ = rand.Read(b[:])
		reqID := hex.EncodeToString(b[:])
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID))
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// Logger logs one line per request. Auth records the key hash prefix on
// the wrapped writer since the inner request context is not visible here.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rlw := &respLogger{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rlw, r)
			fields := []zap.Field{
				zap.String("event", "request"),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rlw.status),
				zap.Duration("dur", time.Since(start)),
				zap.String("ip", rate.IPFromRequest(r)),
				zap.String("req_id", RequestIDFromContext(r.Context())),
			}
			if rlw.keyHash != "" {
				fields = append(fields, zap.String("api", rlw.keyHash))
			}
			log.Info("request", fields...)
		})
	}
}

type respLogger struct {
	http.ResponseWriter
	status  int
	keyHash string
}

func (r *respLogger) WriteHeader(code int) { r.status = code; r.ResponseWriter.WriteHeader(code) }

// CORS middleware allows cross-origin requests from browser clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit middleware enforces per-IP rate limiting.
func RateLimit(lm *rate.Limiter) func(http.Handler) http.Handler {
	return keyedLimit(lm, rate.IPFromRequest)
}

// CallerLimit enforces a per-identity limit. It must run after Auth.
func CallerLimit(lm *rate.Limiter) func(http.Handler) http.Handler {
	return keyedLimit(lm, func(r *http.Request) string {
		id, _ := auth.IdentityFromContext(r.Context())
		return id.String()
	})
}

func keyedLimit(lm *rate.Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if lm == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lm.Allow(key(r)) {
				jsonutil.Error(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Auth resolves the X-API-Key header to the caller identity and stores it
// in the request context.
func Auth(store auth.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				jsonutil.Error(w, http.StatusUnauthorized, "missing api key")
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			identity, ok, err := store.Resolve(ctx, key)
			if err != nil {
				jsonutil.Error(w, http.StatusServiceUnavailable, "identity store unavailable")
				return
			}
			if !ok {
				jsonutil.Error(w, http.StatusForbidden, "invalid or inactive api key")
				return
			}
			hp := auth.HashPrefix(key)
			if rl, isLogger := w.(*respLogger); isLogger {
				rl.keyHash = hp
			}
			r = r.WithContext(auth.WithIdentity(r.Context(), identity, hp))
			next.ServeHTTP(w, r)
		})
	}
}
