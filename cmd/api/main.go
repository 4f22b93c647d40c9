package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/tosinxt/lendsqr/internal/auth"
	"github.com/tosinxt/lendsqr/internal/config"
	"github.com/tosinxt/lendsqr/internal/database"
	httpServer "github.com/tosinxt/lendsqr/internal/http"
	"github.com/tosinxt/lendsqr/internal/logging"
	"github.com/tosinxt/lendsqr/internal/password"
	"github.com/tosinxt/lendsqr/internal/ratelimit"
	"github.com/tosinxt/lendsqr/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Provision the database: create it if absent, open the pool, verify
	// liveness and apply migrations. Any failure here is fatal; the process
	// cannot serve without a live handle.
	ctx := context.Background()
	autoMigrate := !cfg.Server.IsTest() && !cfg.Database.SkipMigrations
	db, err := database.Provision(ctx, cfg.Database, autoMigrate, logger)
	if err != nil {
		return fmt.Errorf("failed to provision database: %w", err)
	}
	defer func() {
		if err := database.CloseWithTimeout(db, cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("failed to close database", "error", err.Error())
		}
	}()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories and services
	hasher := password.NewBcryptHasher()
	userRepo := user.NewRepository(db, hasher)
	rateLimiter := ratelimit.NewLimiter(redisClient)
	authService := auth.NewService(userRepo, logger)
	authHandler := auth.NewHandler(authService, rateLimiter, logger)

	router := httpServer.NewRouter(cfg, db, authHandler, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Stop accepting new work, then drain within the deadline. If the
		// deadline elapses the error propagates and the process exits
		// instead of hanging.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
