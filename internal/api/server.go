// Package api exposes the ledger operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/tracing"
)

// operatorHeader carries the caller key checked by the authorization
// collaborator on administrative operations.
const operatorHeader = "X-Operator-Key"

type Server struct {
	cfg    *config.ApiConfig
	ledger *ledger.Ledger
	db     db.StoreInterface
	server *http.Server
}

func New(cfg *config.ApiConfig, l *ledger.Ledger, database db.StoreInterface) *Server {
	s := &Server{
		cfg:    cfg,
		ledger: l,
		db:     database,
	}

	router := chi.NewRouter()
	router.Use(traceMiddleware)

	router.Get("/healthcheck", s.healthcheck)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/pools", s.createPool)
		r.Post("/emergency-withdraw", s.emergencyWithdraw)

		r.Route("/pools/{poolID}", func(r chi.Router) {
			r.Get("/", s.getPoolInfo)
			r.Get("/positions", s.getPoolPositions)
			r.Post("/stake", s.stake)
			r.Post("/unstake", s.unstake)
			r.Post("/settle", s.settlePool)
			r.Post("/toggle", s.togglePoolStatus)
			r.Put("/reward-rate", s.updateRewardRate)
			r.Get("/positions/{account}", s.getUserInfo)
			r.Get("/positions/{account}/pending", s.getPendingRewards)
		})
	})

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start serves until Shutdown or a listener failure.
func (s *Server) Start() error {
	log.Info().Str("address", s.server.Addr).Msg("Starting ledger API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// timeOp returns a stop function recording the operation duration.
func timeOp(operation string) func(failed bool) {
	startTime := time.Now()
	return func(failed bool) {
		metrics.RecordLedgerOpDuration(time.Since(startTime), operation, failed)
	}
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
