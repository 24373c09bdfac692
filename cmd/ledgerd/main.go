package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// ledgerd is the consistency daemon: it owns the finalization timers that
// close each transaction's reversal window, re-arming them across restarts,
// and watches dependency health. Ledger operations themselves are invoked
// through the service layer by whatever surface embeds it.
func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Dur("finalize_after", cfg.Ledger.FinalizeAfter).
		Int64("daily_limit", cfg.Ledger.DailyLimit).
		Msg("Starting wallet ledger daemon")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize the finalizer and re-arm timers for transactions still
	// inside their reversal window when the previous process stopped.
	txRepo := pgStorage.NewTransactionRepo(pool)
	finalizer := service.NewFinalizer(txRepo, log)
	defer finalizer.Stop()

	if err := finalizer.Rehydrate(ctx, cfg.Ledger.FinalizeAfter, cfg.Ledger.RehydrateBatchSize); err != nil {
		log.Fatal().Err(err).Msg("Failed to rehydrate finalization timers")
	}

	// Health checkers
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go watchHealth(watchCtx, []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}, log)

	// Wait for termination
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	log.Info().Msg("Ledger daemon exited")
}

// watchHealth pings dependencies periodically and logs failures so an
// operator sees connectivity loss before transfers start erroring.
func watchHealth(ctx context.Context, checkers []ports.HealthChecker, log zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range checkers {
				pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := c.Ping(pingCtx); err != nil {
					log.Error().Err(err).Str("dependency", c.Name()).Msg("health check failed")
				}
				cancel()
			}
		}
	}
}
