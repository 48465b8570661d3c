package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/goreconcile/internal/adapter/http"
	"github.com/iho/goreconcile/internal/adapter/http/handler"
	"github.com/iho/goreconcile/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/goreconcile/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goreconcile/internal/adapter/repository/redis"
	"github.com/iho/goreconcile/internal/infrastructure/config"
	"github.com/iho/goreconcile/internal/infrastructure/eventpublisher"
	"github.com/iho/goreconcile/internal/infrastructure/logger"
	"github.com/iho/goreconcile/internal/infrastructure/metrics"
	"github.com/iho/goreconcile/internal/infrastructure/postgres"
	"github.com/iho/goreconcile/internal/infrastructure/redis"
	"github.com/iho/goreconcile/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	appMetrics := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	lineRepo := postgresRepo.NewLineRepository(pool)
	reconRepo := postgresRepo.NewReconcileRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	companyRepo := postgresRepo.NewCompanyRepository(pool)
	taxRepo := postgresRepo.NewTaxRepository(pool)
	sequences := postgresRepo.NewSequenceService(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	converter := postgresRepo.NewRateConverter(pool)
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient)
	accountRepo := redisRepo.NewCachedAccountRepository(postgresRepo.NewAccountRepository(pool), cache)
	currencyRepo := redisRepo.NewCachedCurrencyRepository(postgresRepo.NewCurrencyRepository(pool), cache)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	retrier := postgresRepo.NewRetrier(appLogger)

	// Initialize use cases
	entryUC := usecase.NewEntryUseCase(
		txManager, entryRepo, lineRepo, reconRepo, accountRepo, journalRepo,
		companyRepo, currencyRepo, taxRepo, sequences, converter, outboxRepo,
		idGen, appMetrics,
	)
	reconcileUC := usecase.NewReconcileUseCase(
		txManager, entryRepo, lineRepo, reconRepo, accountRepo, companyRepo,
		currencyRepo, taxRepo, sequences, outboxRepo, idGen, entryUC, appMetrics,
	)
	paymentUC := usecase.NewPaymentUseCase(
		txManager, journalRepo, companyRepo, accountRepo, converter, entryUC,
		reconcileUC, appMetrics,
	)

	// Initialize handlers
	entryHandler := handler.NewEntryHandler(entryUC)
	reconcileHandler := handler.NewReconcileHandler(reconcileUC, retrier)
	paymentHandler := handler.NewPaymentHandler(paymentUC, retrier)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler:     entryHandler,
		ReconcileHandler: reconcileHandler,
		PaymentHandler:   paymentHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		RateLimiter:      rateLimiter,
		Metrics:          appMetrics,
		Logger:           appLogger,
	})

	// Start outbox publisher
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewRedisStreamPublisher(redisClient, cfg.EventStream),
		Logger:     appLogger,
		Metrics:    appMetrics,
		BatchSize:  cfg.PublisherBatchSize,
		Interval:   cfg.PublisherInterval,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Run auto-reversals on schedule
	go runScheduledReversals(ctx, entryUC, retrier, appLogger, cfg.ReversalPollInterval)

	// Bound rate limiter memory
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.CleanupLimiters()
			}
		}
	}()

	// Sample the connection pool
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				appMetrics.DBConnections.Set(float64(pool.Stat().TotalConns()))
			}
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}

// runScheduledReversals periodically posts the reversal of every entry whose
// reverse date has passed.
func runScheduledReversals(
	ctx context.Context,
	entryUC *usecase.EntryUseCase,
	retrier *postgresRepo.Retrier,
	logger zerolog.Logger,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := retrier.Retry(ctx, func() error {
				reversed, err := entryUC.RunScheduledReversals(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				if len(reversed) > 0 {
					logger.Info().Int("count", len(reversed)).Msg("posted scheduled reversals")
				}
				return nil
			})
			if err != nil {
				logger.Error().Err(err).Msg("scheduled reversals failed")
			}
		}
	}
}
