// Seed loads the demo dataset into the database so the dashboard has data
// to show before any Xero organisation is connected. Running it twice is
// harmless: already-imported rows are skipped.
package main

import (
	"context"
	"time"

	"github.com/smbcash/cashflow-dashboard/internal/config"
	"github.com/smbcash/cashflow-dashboard/internal/logger"
	"github.com/smbcash/cashflow-dashboard/internal/store"
	"github.com/smbcash/cashflow-dashboard/internal/xero"
)

func main() {
	log := logger.NewService("seed")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// With no stored connection the sync service imports the demo dataset.
	result, err := xero.NewSyncService(st, nil, log).Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	log.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Str("db_path", cfg.DBPath).
		Msg("Demo data seeded")
}
