package cli

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/api"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/auth"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/bank"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/clock"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db"
	dbmodel "github.com/babylonlabs-io/staking-rewards-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/tracing"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/queue"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the staking rewards ledger server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msgf("error while loading config file: %s", cfgPath)
	}

	if err := dbmodel.Setup(ctx, &cfg.Db); err != nil {
		log.Fatal().Err(err).Msg("error while setting up ledger db model")
	}

	// create new db client
	var dbClient db.StoreInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewStoreWithMetrics(dbClient)

	custodyBank, err := bank.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating custody bank")
	}

	publisher, err := queue.NewPublisher(&cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating queue publisher")
	}

	authorizer := auth.NewStaticAuthorizer(&cfg.Ledger)
	ldgr := ledger.New(custodyBank, authorizer, clock.System(), dbClient, publisher)
	apiServer := api.New(&cfg.Api, ldgr, dbClient)

	service := services.NewService(cfg, dbClient, ldgr, apiServer, publisher)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	return service.Run(ctx)
}
