package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/cardledger/internal/adapter/http"
	"github.com/iho/cardledger/internal/adapter/http/handler"
	"github.com/iho/cardledger/internal/adapter/http/middleware"
	"github.com/iho/cardledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/cardledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cardledger/internal/adapter/repository/redis"
	"github.com/iho/cardledger/internal/infrastructure/auth"
	"github.com/iho/cardledger/internal/infrastructure/cardgen"
	"github.com/iho/cardledger/internal/infrastructure/config"
	"github.com/iho/cardledger/internal/infrastructure/eventpublisher"
	"github.com/iho/cardledger/internal/infrastructure/logger"
	"github.com/iho/cardledger/internal/infrastructure/metrics"
	"github.com/iho/cardledger/internal/infrastructure/postgres"
	"github.com/iho/cardledger/internal/infrastructure/redis"
	"github.com/iho/cardledger/internal/infrastructure/scheduler"
	"github.com/iho/cardledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// storage bundles the repositories of one storage driver.
type storage struct {
	txManager    usecase.TransactionManager
	cards        usecase.CardRepository
	transactions usecase.TransactionRepository
	summaries    usecase.SummaryRepository
	outbox       usecase.OutboxRepository
	checks       map[string]handler.Check
	close        func()
}

func newMemoryStorage(cfg *config.Config) *storage {
	store := memory.NewStore(cfg.LockTimeout)

	return &storage{
		txManager:    memory.NewTxManager(store),
		cards:        memory.NewCardRepository(store),
		transactions: memory.NewTransactionRepository(store),
		summaries:    memory.NewSummaryRepository(store),
		outbox:       memory.NewOutboxRepository(store),
		checks:       map[string]handler.Check{},
		close:        func() {},
	}
}

func newPostgresStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	log.Info().Int("max_conns", cfg.DatabaseMaxConns).Msg("connected to postgres")

	return &storage{
		txManager:    postgresRepo.NewTxManager(pool, cfg.LockTimeout),
		cards:        postgresRepo.NewCardRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		summaries:    postgresRepo.NewSummaryRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		checks: map[string]handler.Check{
			"postgres": pool.Ping,
		},
		close: pool.Close,
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return newMemoryStorage(cfg), nil
	case config.StorageDriverPostgres:
		return newPostgresStorage(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// services holds the wired use cases.
type services struct {
	cards          *usecase.CardUseCase
	ledger         *usecase.LedgerUseCase
	summaries      *usecase.SummaryUseCase
	reconciliation *usecase.ReconciliationUseCase
}

func newServices(cfg *config.Config, st *storage, cache usecase.Cache, m *metrics.Metrics, log zerolog.Logger) *services {
	clock := usecase.SystemClock()
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	summaryUC := usecase.NewSummaryUseCase(st.txManager, st.summaries, cache, cfg.SummaryCacheTTL, clock, m, log)
	cardUC := usecase.NewCardUseCase(
		st.txManager, st.cards, st.outbox, summaryUC,
		cardgen.NewDefault(), idGen, retrier, clock,
		cfg.CardValidityYears, m, log,
	)
	ledgerUC := usecase.NewLedgerUseCase(
		st.txManager, st.cards, st.transactions, st.outbox,
		cardUC, summaryUC, idGen, postgresRepo.NewReferenceGenerator(),
		retrier, clock, m, log,
	)
	reconcileUC := usecase.NewReconciliationUseCase(st.txManager, st.cards, st.transactions, st.summaries, clock, m, log)

	return &services{
		cards:          cardUC,
		ledger:         ledgerUC,
		summaries:      summaryUC,
		reconciliation: reconcileUC,
	}
}

func authenticator(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) func(http.Handler) http.Handler {
	if !cfg.AuthEnabled {
		log.Warn().Str("header", middleware.OwnerHeader).Msg("authentication disabled, trusting owner header")
		return middleware.HeaderOwner
	}

	return middleware.AuthMiddleware(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), m)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	m := metrics.New()

	var (
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()

		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		st.checks["redis"] = redisCheck(redisClient)
	} else {
		log.Info().Msg("redis not configured, summary cache and idempotency keys disabled")
	}

	svc := newServices(cfg, st, cache, m, log)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CardHandler:        handler.NewCardHandler(svc.cards, svc.ledger),
		TransactionHandler: handler.NewTransactionHandler(svc.ledger),
		SummaryHandler:     handler.NewSummaryHandler(svc.summaries, svc.reconciliation),
		HealthHandler:      handler.NewHealthHandler(st.checks),
		Authenticator:      authenticator(cfg, m, log),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		MetricsHandler:     promhttp.Handler(),
		Logger:             log,
	})

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: st.outbox,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Metrics:    m,
		Logger:     log,
		Interval:   cfg.OutboxPollInterval,
	})
	go func() {
		if err := publisher.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	go cleanupLimiters(bgCtx, rateLimiter, log)

	sched := scheduler.New(log)
	if cfg.ReconcileSchedule != "" {
		if err := sched.AddReconciliation(cfg.ReconcileSchedule, svc.reconciliation); err != nil {
			return err
		}
	}
	sched.Start()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	cancelBackground()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("scheduled jobs did not finish in time")
	}

	log.Info().Msg("server stopped")

	return nil
}

func redisCheck(client *goredis.Client) handler.Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(limiterIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}
