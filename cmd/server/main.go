package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/chainledger/internal/adapter/http"
	"github.com/iho/chainledger/internal/adapter/http/handler"
	"github.com/iho/chainledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/chainledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/chainledger/internal/adapter/repository/redis"
	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/infrastructure/auth"
	"github.com/iho/chainledger/internal/infrastructure/config"
	"github.com/iho/chainledger/internal/infrastructure/logger"
	"github.com/iho/chainledger/internal/infrastructure/metrics"
	"github.com/iho/chainledger/internal/infrastructure/postgres"
	"github.com/iho/chainledger/internal/infrastructure/redis"
	"github.com/iho/chainledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, resolveMigrationsPath()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Hash chain engine. Refusing to start without a key beats silently
	// producing an unverifiable chain.
	engine, err := domain.NewChainEngine([]byte(cfg.LedgerHashKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chain engine")
	}

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	verifyCache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen, entryRepo)
	entryUC := usecase.NewEntryUseCase(txManager, entryRepo, accountRepo, auditRepo, engine, idGen, verifyCache, m)
	verifyUC := usecase.NewVerifyUseCase(entryRepo, engine, verifyCache, m)
	userUC := usecase.NewUserUseCase(userRepo, idGen)

	// An empty JWT secret would let anyone mint valid tokens, so auth
	// is either wired with a real secret or not wired at all.
	if err := validateAuthConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}
	var jwtManager *auth.JWTManager
	var authHandler *handler.AuthHandler
	if cfg.AuthEnabled {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountUC)
	entryHandler := handler.NewEntryHandler(entryUC)
	verifyHandler := handler.NewVerifyHandler(verifyUC)
	if jwtManager != nil {
		authHandler = handler.NewAuthHandler(userUC, jwtManager)
	}
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	var signingSecret []byte
	if cfg.SigningSecret != "" {
		signingSecret = []byte(cfg.SigningSecret)
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler:     entryHandler,
		AccountHandler:   accountHandler,
		VerifyHandler:    verifyHandler,
		AuthHandler:      authHandler,
		HealthHandler:    healthHandler,
		JWTManager:       jwtManager,
		IdempotencyStore: idempotencyStore,
		SigningSecret:    signingSecret,
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

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
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func resolveMigrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}
	return "migrations"
}

func validateAuthConfig(cfg *config.Config) error {
	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return fmt.Errorf("AUTH_ENABLED requires JWT_SECRET to be set")
	}
	return nil
}
