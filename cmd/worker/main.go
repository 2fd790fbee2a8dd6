// The worker runs scheduled transaction syncs against the connected Xero
// organisation. It shares the SQLite database with the API server; manual
// syncs triggered over the API are handled by the API's embedded consumer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smbcash/cashflow-dashboard/internal/config"
	"github.com/smbcash/cashflow-dashboard/internal/logger"
	"github.com/smbcash/cashflow-dashboard/internal/store"
	"github.com/smbcash/cashflow-dashboard/internal/xero"
)

func main() {
	// Initialize logger
	log := logger.NewService("worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	defer st.Close()

	var fetcher xero.Fetcher
	if cfg.Xero.Configured() {
		fetcher = xero.NewClient(cfg.Xero)
	} else {
		log.Warn().Msg("Xero credentials not configured - scheduled syncs use demo data")
	}
	syncService := xero.NewSyncService(st, fetcher, log)

	log.Info().Dur("interval", cfg.SyncInterval).Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runSync := func() {
		syncCtx, syncCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer syncCancel()

		result, err := syncService.Sync(syncCtx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled sync failed")
			return
		}
		log.Info().
			Int("imported", result.Imported).
			Int("skipped", result.Skipped).
			Bool("demo", result.Demo).
			Msg("Scheduled sync completed")
	}

	// One sync on startup, then on every tick
	go func() {
		runSync()

		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSync()
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")
	cancel()
	log.Info().Msg("Worker service exited")
}
