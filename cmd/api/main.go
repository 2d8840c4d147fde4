package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"solarforge/internal/adapter/memstore"
	"solarforge/internal/adapter/repo"
	"solarforge/internal/domain"
	"solarforge/internal/http/handlers"
	httpapi "solarforge/internal/http/httpapi"
	"solarforge/internal/infra"
	"solarforge/internal/ledger"
	"solarforge/internal/middleware"
	"solarforge/internal/outbox"
	"solarforge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg, "api", os.Stdout)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store domain.Store
		users domain.UserDirectory
		ping  func(context.Context) error
	)
	switch cfg.StoreDriver {
	case infra.StoreDriverMemory:
		logger.Warn().Msg("api: using in-memory store, state is lost on restart")
		store = memstore.New(uuid.NewString)
		users = memstore.NewDirectory()
	default:
		pool, err := infra.NewDBPool(ctx, cfg, "api")
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to connect database")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		store = repo.NewLedgerStore(runner, logger)
		users = repo.NewUserDirectory(runner)
		ping = pool.Ping
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect redis")
	}
	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
	if rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
	}

	opts := ledger.Options{
		Logger:       logger,
		NewID:        uuid.NewString,
		ExpiryWindow: cfg.DonationExpiryWindow,
	}
	service := ledger.NewService(store, opts)
	app := handlers.NewApp(service, ledger.NewQuery(store, users, logger), logger)
	app.Ping = ping

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		LegsJWTSecret:  cfg.LegsJWTSecret,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	server := infra.NewHTTPServer(cfg, router)

	// The memory store lives in this process, so its background loops must too.
	if cfg.StoreDriver == infra.StoreDriverMemory {
		var publisher outbox.Publisher = outbox.NewLogPublisher(logger)
		if rdb != nil {
			publisher = outbox.NewRedisPublisher(rdb)
		}
		go func() {
			if err := worker.RunAll(ctx, worker.Loops(store, service.Reconciler(), publisher, cfg, logger)...); err != nil {
				logger.Error().Err(err).Msg("api: background loops stopped")
			}
		}()
	}

	if err := server.Run(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}
