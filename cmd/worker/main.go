package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"solarforge/internal/adapter/repo"
	"solarforge/internal/infra"
	"solarforge/internal/ledger"
	"solarforge/internal/outbox"
	"solarforge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg, "worker", os.Stdout)
	if err != nil {
		panic(err)
	}
	if cfg.StoreDriver != infra.StoreDriverPostgres {
		logger.Fatal().Str("store", cfg.StoreDriver).Msg("worker: requires STORE_DRIVER=postgres; the api runs the loops itself for the memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, "worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	store := repo.NewLedgerStore(runner, logger)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	var publisher outbox.Publisher = outbox.NewLogPublisher(logger)
	if rdb != nil {
		defer rdb.Close()
		publisher = outbox.NewRedisPublisher(rdb)
	} else {
		logger.Warn().Msg("worker: REDIS_ADDR not set, outbox events are only logged")
	}

	reconciler := ledger.NewReconciler(store, ledger.Options{
		Logger:       logger,
		NewID:        uuid.NewString,
		ExpiryWindow: cfg.DonationExpiryWindow,
	})

	logger.Info().Msg("worker: started")
	if err := worker.RunAll(ctx, worker.Loops(store, reconciler, publisher, cfg, logger)...); err != nil {
		logger.Error().Err(err).Msg("worker: stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("worker: stopped")
}
