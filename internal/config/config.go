// Package config loads runtime configuration from the environment, with a
// .env file picked up in development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/smbcash/cashflow-dashboard/internal/xero"
)

// Config is the runtime configuration shared by the api and worker
// binaries.
type Config struct {
	// Port is the HTTP listen port of the API server.
	Port string

	// DBPath is the SQLite database file. The containing directory is
	// created on open.
	DBPath string

	// StartingBalance seeds the running balance before the first
	// transaction.
	StartingBalance decimal.Decimal

	// SyncInterval is how often the worker runs a scheduled sync.
	SyncInterval time.Duration

	// Xero holds the OAuth application credentials. Empty credentials put
	// the dashboard in demo mode.
	Xero xero.Config
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		DBPath:       getenv("DB_PATH", "data/cashflow.db"),
		SyncInterval: 6 * time.Hour,
		Xero: xero.Config{
			ClientID:     os.Getenv("XERO_CLIENT_ID"),
			ClientSecret: os.Getenv("XERO_CLIENT_SECRET"),
			RedirectURI:  getenv("XERO_REDIRECT_URI", "http://localhost:8080/api/xero/callback"),
		},
	}

	if raw := os.Getenv("STARTING_BALANCE"); raw != "" {
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STARTING_BALANCE %q: %w", raw, err)
		}
		cfg.StartingBalance = balance
	}

	if raw := os.Getenv("SYNC_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_INTERVAL %q: %w", raw, err)
		}
		if interval < time.Minute {
			return nil, fmt.Errorf("SYNC_INTERVAL %s is below the 1m minimum", interval)
		}
		cfg.SyncInterval = interval
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
