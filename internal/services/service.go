package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/api"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/queue"
)

const shutdownTimeout = 10 * time.Second

// Service owns the wired-together ledger, its API server and the event
// publisher, and drives their lifecycle.
type Service struct {
	cfg       *config.Config
	db        db.StoreInterface
	ledger    *ledger.Ledger
	apiServer *api.Server
	publisher *queue.Publisher
}

func NewService(
	cfg *config.Config,
	database db.StoreInterface,
	l *ledger.Ledger,
	apiServer *api.Server,
	publisher *queue.Publisher,
) *Service {
	return &Service{
		cfg:       cfg,
		db:        database,
		ledger:    l,
		apiServer: apiServer,
		publisher: publisher,
	}
}

// Run loads the ledger state, serves the API and blocks until ctx is
// cancelled, then shuts everything down in order.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ledger.Bootstrap(ctx); err != nil {
		return err
	}
	metrics.RecordPoolsCount(s.ledger.PoolCount())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).Info().Msg("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to shut down API server")
	}
	if s.publisher != nil {
		s.publisher.Shutdown()
	}
	return nil
}
