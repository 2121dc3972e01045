package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nearaccount/account"
	"nearaccount/core/types"
	"nearaccount/gateway/middleware"
)

// StatusSource reports node health for the readiness probe.
type StatusSource interface {
	Status(ctx context.Context) (*types.NodeStatus, error)
}

type Config struct {
	Provider       account.Provider
	Status         StatusSource
	Logger         *slog.Logger
	RequestTimeout time.Duration
	Authenticator  *middleware.Authenticator
	RateLimiter    *middleware.RateLimiter
	Observability  *middleware.Observability
	CORS           middleware.CORSConfig
}

// New builds the gateway router. Account routes sit behind auth and rate
// limiting; health and metrics do not.
func New(cfg Config) (http.Handler, error) {
	if cfg.Provider == nil {
		return nil, errors.New("routes: provider required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readiness(cfg.Status))

	accounts := &accountRoutes{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		timeout:  cfg.RequestTimeout,
	}
	r.Route("/v1/accounts/{accountID}", func(r chi.Router) {
		r.Use(cfg.Authenticator.Middleware)
		r.Use(cfg.RateLimiter.Middleware)
		r.Get("/state", accounts.state)
		r.Get("/balance", accounts.balance)
		r.Get("/keys", accounts.keys)
		r.Get("/keys/{publicKey}", accounts.key)
	})
	return r, nil
}

func readiness(source StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ready": true})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		status, err := source.Status(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": err.Error()})
			return
		}
		code := http.StatusOK
		if status.SyncInfo.Syncing {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"ready":        !status.SyncInfo.Syncing,
			"chain_id":     status.ChainID,
			"block_height": status.SyncInfo.LatestBlockHeight,
		})
	}
}
