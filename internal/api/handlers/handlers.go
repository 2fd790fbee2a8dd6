// Package handlers contains the HTTP handlers of the dashboard API. Each
// handler struct owns its dependencies and exposes methods wired onto the
// router in cmd/api.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/engine"
	"github.com/smbcash/cashflow-dashboard/internal/model"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

const dateLayout = "2006-01-02"

// parseDateParam parses an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero time and ok=true.
func parseDateParam(w http.ResponseWriter, raw, name string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name+" format, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return t.UTC(), true
}

// loadHistory builds the dense daily series the engine consumes from every
// stored transaction. With no transactions but a configured starting
// balance, a single synthetic day anchors the series so forecasts project
// from that balance instead of zero.
func loadHistory(ctx context.Context, st store.Store, startingBalance decimal.Decimal) (engine.DailySeries, error) {
	txs, err := st.AllTransactions(ctx)
	if err != nil {
		return nil, err
	}

	if len(txs) == 0 {
		if startingBalance.IsZero() {
			return nil, nil
		}
		balance, _ := startingBalance.Float64()
		today := time.Now().UTC().Truncate(24 * time.Hour)
		return engine.DailySeries{{Date: today, Net: 0, Balance: balance}}, nil
	}

	values := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		values = append(values, *tx)
	}
	return engine.Aggregate(values, startingBalance).Dense(), nil
}
