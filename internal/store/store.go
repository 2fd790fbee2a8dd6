// Package store persists transactions, forecast points and the Xero
// connection. Two implementations exist: a SQLite-backed store for normal
// use and an in-memory store for tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/smbcash/cashflow-dashboard/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSyncedImmutable is returned when deleting a transaction that was
	// imported from the accounting provider. Synced transactions are
	// immutable through this API.
	ErrSyncedImmutable = errors.New("synced transactions cannot be deleted")
)

// TransactionFilter narrows ListTransactions. Zero values mean "no
// constraint". Type matches the sign of the amount: "income" or "expense".
type TransactionFilter struct {
	From   time.Time
	To     time.Time
	Type   string
	Limit  int
	Offset int
}

// Forecast is one persisted forecast point.
type Forecast struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	PredictedBalance  float64   `json:"predicted_balance"`
	PredictedIncome   float64   `json:"predicted_income"`
	PredictedExpenses float64   `json:"predicted_expenses"`
	ConfidenceLower   *float64  `json:"confidence_lower,omitempty"`
	ConfidenceUpper   *float64  `json:"confidence_upper,omitempty"`
	ModelVersion      string    `json:"model_version"`
	CreatedAt         time.Time `json:"created_at"`
}

// forecastWindow returns the earliest and latest dates in a batch of
// forecast points. SaveForecasts replaces everything inside that window.
func forecastWindow(rows []*Forecast) (first, last time.Time) {
	first, last = rows[0].Date, rows[0].Date
	for _, f := range rows[1:] {
		if f.Date.Before(first) {
			first = f.Date
		}
		if f.Date.After(last) {
			last = f.Date
		}
	}
	return first, last
}

// Store is the persistence boundary for the dashboard.
type Store interface {
	// InsertTransaction stores a new transaction.
	InsertTransaction(ctx context.Context, tx *model.Transaction) error

	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)

	// ListTransactions retrieves transactions newest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error)

	// AllTransactions retrieves every transaction ordered by date
	// ascending, as the forecasting engine consumes them.
	AllTransactions(ctx context.Context) ([]*model.Transaction, error)

	// DeleteTransaction removes a manual transaction. It returns
	// ErrSyncedImmutable for transactions with source external-sync.
	DeleteTransaction(ctx context.Context, id string) error

	// FindTransactionByExternalID looks a transaction up by its
	// provider-side identifier. Used for idempotent sync.
	FindTransactionByExternalID(ctx context.Context, externalID string) (*model.Transaction, error)

	// SaveForecasts persists a batch of forecast points, replacing any
	// previously stored points dated inside the batch's window.
	SaveForecasts(ctx context.Context, rows []*Forecast) error

	// ListForecasts retrieves forecasts within the date window ordered by
	// date ascending. Zero bounds are open; limit <= 0 means no limit.
	ListForecasts(ctx context.Context, from, to time.Time, limit int) ([]*Forecast, error)

	// DeleteForecastsBefore removes forecast points dated before the
	// cutoff and reports how many were deleted.
	DeleteForecastsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// SaveConnection stores the Xero connection, replacing any existing
	// one. The dashboard links at most one organisation.
	SaveConnection(ctx context.Context, conn *model.XeroConnection) error

	// GetConnection retrieves the Xero connection or ErrNotFound.
	GetConnection(ctx context.Context) (*model.XeroConnection, error)

	// DeleteConnection removes the Xero connection if present.
	DeleteConnection(ctx context.Context) error

	// TouchLastSync records when the last sync completed.
	TouchLastSync(ctx context.Context, at time.Time) error

	// Close releases underlying resources.
	Close() error
}
