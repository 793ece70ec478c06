package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/api"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/config"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/handlers"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/replay"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize data store: postgres when configured, sqlite otherwise
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Initialize redis (optional) and the replay guard. Without redis
	// the nonce set is process-local and does not survive restarts;
	// that is fine for a single instance, required reading for anyone
	// scaling horizontally.
	var redisClient *redis.Client
	var guard replay.Guard
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
		guard = replay.NewRedisGuard(redisClient, replay.DefaultNonceTTL)
		logger.Info().Msg("connected to Redis, using shared replay guard")
	} else {
		guard = replay.NewMemoryGuard(cfg.NonceMaxEntries, cfg.NonceEvictBatch)
		logger.Info().
			Int("max_entries", cfg.NonceMaxEntries).
			Msg("using in-memory replay guard")
	}

	// Create handler and router
	h := handlers.NewHandler(dataStore, guard, redisClient, logger)
	h.SetDefaultProject(cfg.DefaultProjectID)
	h.SetFreshnessWindow(cfg.FreshnessWindow)
	router := api.NewRouter(logger, h, redisClient)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting swarm relay")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
