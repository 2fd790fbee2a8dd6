package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "STARTING_BALANCE", "SYNC_INTERVAL", "XERO_CLIENT_ID", "XERO_CLIENT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/cashflow.db" {
		t.Errorf("DBPath = %q, want data/cashflow.db", cfg.DBPath)
	}
	if !cfg.StartingBalance.IsZero() {
		t.Errorf("StartingBalance = %s, want 0", cfg.StartingBalance)
	}
	if cfg.SyncInterval != 6*time.Hour {
		t.Errorf("SyncInterval = %s, want 6h", cfg.SyncInterval)
	}
	if cfg.Xero.Configured() {
		t.Error("Xero reported configured without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STARTING_BALANCE", "2500.75")
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("XERO_CLIENT_ID", "id")
	t.Setenv("XERO_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if !cfg.StartingBalance.Equal(decimal.RequireFromString("2500.75")) {
		t.Errorf("StartingBalance = %s, want 2500.75", cfg.StartingBalance)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf("SyncInterval = %s, want 30m", cfg.SyncInterval)
	}
	if !cfg.Xero.Configured() {
		t.Error("Xero not reported configured with credentials set")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "lots")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted invalid STARTING_BALANCE")
	}
	t.Setenv("STARTING_BALANCE", "")

	t.Setenv("SYNC_INTERVAL", "5s")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted sub-minute SYNC_INTERVAL")
	}
}
