// Package main is the entry point for the lotus-ge dashboard server.
// The server mirrors pre-computed trading opportunity summaries from a
// remote data repository and serves them to dashboard clients through a
// small JSON API with a short-lived in-memory cache in front.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slippax/lotus-ge/internal/clients/relay"
	"github.com/slippax/lotus-ge/internal/config"
	"github.com/slippax/lotus-ge/internal/database"
	"github.com/slippax/lotus-ge/internal/events"
	"github.com/slippax/lotus-ge/internal/scheduler"
	"github.com/slippax/lotus-ge/internal/server"
	"github.com/slippax/lotus-ge/internal/summaries"
	"github.com/slippax/lotus-ge/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes structured logging
// 3. Opens the snapshot database and seeds the cache from it
// 4. Builds the two-tier summary fetcher and the per-category feed service
// 5. Connects to the refresh relay (when configured)
// 6. Schedules the periodic cache warm job
// 7. Starts the HTTP server and waits for a shutdown signal
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting lotus-ge dashboard server")

	bus := events.NewBus(log)

	// Snapshot database. Losing it is harmless: the cache re-fills from the
	// remote source on the first request. A failed open only disables the
	// warm-start path.
	var snapshotsDB *database.DB
	var store *summaries.SnapshotStore
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "snapshots.db"),
		Name:    "snapshots",
		Profile: database.ProfileCache,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot database unavailable, starting with a cold cache")
	} else {
		snapshotsDB = db
		defer snapshotsDB.Close()

		store, err = summaries.NewSnapshotStore(snapshotsDB.Conn(), log)
		if err != nil {
			log.Warn().Err(err).Msg("Snapshot store initialization failed")
			store = nil
		}
	}

	fetcher := summaries.NewFetcher(summaries.FetcherConfig{
		Repo:    cfg.SummaryRepo,
		Branch:  cfg.SummaryBranch,
		Token:   cfg.GitHubToken,
		Timeout: cfg.FetchTimeout,
	}, log)

	service := summaries.NewService(summaries.ServiceConfig{
		Fetch: fetcher.Fetch,
		TTL:   cfg.CacheTTL,
		Bus:   bus,
		Store: store,
	}, log)

	if store != nil {
		service.PrimeFromSnapshots(context.Background(), store)
	}

	// Refresh relay subscription. When the offline pipeline announces new
	// data, warm every feed immediately instead of waiting for the TTL.
	var listener *relay.Listener
	if cfg.RelayURL != "" {
		listener = relay.NewListener(cfg.RelayURL, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			service.WarmAll(ctx)
		}, bus, log)

		if err := listener.Start(); err != nil {
			log.Warn().Err(err).Msg("Relay unavailable, continuing with TTL-based refresh only")
		}
		defer func() {
			if err := listener.Stop(); err != nil {
				log.Error().Err(err).Msg("Error stopping relay listener")
			}
		}()
	} else {
		log.Info().Msg("No relay URL configured, push refresh disabled")
	}

	sched := scheduler.New(log)
	if cfg.WarmSchedule != "" {
		warmJob := scheduler.NewWarmJob(service, bus, time.Minute)
		if err := sched.AddJob(cfg.WarmSchedule, warmJob); err != nil {
			log.Error().Err(err).Str("schedule", cfg.WarmSchedule).Msg("Failed to schedule cache warm job")
		}
	}
	sched.Start()
	defer sched.Stop()

	var relayStatus server.ConnectionStatus
	if listener != nil {
		relayStatus = listener
	}

	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Summaries:   service,
		EventBus:    bus,
		SnapshotsDB: snapshotsDB,
		Relay:       relayStatus,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
