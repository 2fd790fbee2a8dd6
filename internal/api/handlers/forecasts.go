package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/engine"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

// ForecastsHandler handles forecast-related endpoints.
type ForecastsHandler struct {
	store           store.Store
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewForecastsHandler creates a new forecasts handler.
func NewForecastsHandler(st store.Store, startingBalance decimal.Decimal, log zerolog.Logger) *ForecastsHandler {
	return &ForecastsHandler{
		store:           st,
		startingBalance: startingBalance,
		log:             log,
	}
}

// Generate handles POST /api/forecasts/generate
// It builds a fresh forecast from the full history, persists the points and
// returns them.
func (h *ForecastsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DaysAhead      int   `json:"days_ahead"`
		WithConfidence *bool `json:"include_confidence_interval"`
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.DaysAhead == 0 {
		req.DaysAhead = 90
	}
	withConfidence := true
	if req.WithConfidence != nil {
		withConfidence = *req.WithConfidence
	}

	ctx := r.Context()
	history, err := loadHistory(ctx, h.store, h.startingBalance)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate forecast")
		return
	}

	result, err := engine.Generate(history, req.DaysAhead, withConfidence)
	if errors.Is(err, engine.ErrInvalidParameter) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate forecast")
		return
	}

	now := time.Now().UTC()
	rows := make([]*store.Forecast, len(result.Points))
	for i, p := range result.Points {
		rows[i] = &store.Forecast{
			ID:                uuid.NewString(),
			Date:              p.Date,
			PredictedBalance:  p.Balance,
			PredictedIncome:   p.Income,
			PredictedExpenses: p.Expenses,
			ConfidenceLower:   p.Lower,
			ConfidenceUpper:   p.Upper,
			ModelVersion:      result.Model,
			CreatedAt:         now,
		}
	}
	if err := h.store.SaveForecasts(ctx, rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to persist forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to persist forecast")
		return
	}

	h.log.Info().
		Int("points", len(result.Points)).
		Str("model", result.Model).
		Bool("low_data", result.LowData).
		Msg("Forecast generated")

	middleware.WriteJSON(w, http.StatusOK, result)
}

// ListForecasts handles GET /api/forecasts
func (h *ForecastsHandler) ListForecasts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, ok := parseDateParam(w, query.Get("start_date"), "start_date")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, query.Get("end_date"), "end_date")
	if !ok {
		return
	}
	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	forecasts, err := h.store.ListForecasts(r.Context(), from, to, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list forecasts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list forecasts")
		return
	}

	if forecasts == nil {
		forecasts = []*store.Forecast{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forecasts": forecasts,
		"count":     len(forecasts),
	})
}

// Latest handles GET /api/forecasts/latest
// It returns the stored forecast points from today onward plus the overall
// trend direction.
func (h *ForecastsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	forecasts, err := h.store.ListForecasts(r.Context(), today, time.Time{}, 0)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load latest forecast")
		return
	}

	if len(forecasts) == 0 {
		middleware.WriteError(w, http.StatusNotFound, "No forecast available, generate one first")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forecasts": forecasts,
		"count":     len(forecasts),
		"trend":     trend(forecasts),
	})
}

// DeleteOld handles DELETE /api/forecasts/old
// Forecast points dated before the cutoff (default: today) are removed.
func (h *ForecastsHandler) DeleteOld(w http.ResponseWriter, r *http.Request) {
	cutoff, ok := parseDateParam(w, r.URL.Query().Get("before"), "before")
	if !ok {
		return
	}
	if cutoff.IsZero() {
		cutoff = time.Now().UTC().Truncate(24 * time.Hour)
	}

	deleted, err := h.store.DeleteForecastsBefore(r.Context(), cutoff)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to delete old forecasts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete old forecasts")
		return
	}

	h.log.Info().Int("deleted", deleted).Time("before", cutoff).Msg("Old forecasts deleted")
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func trend(forecasts []*store.Forecast) string {
	first := forecasts[0].PredictedBalance
	last := forecasts[len(forecasts)-1].PredictedBalance
	switch {
	case last > first:
		return "improving"
	case last < first:
		return "declining"
	default:
		return "flat"
	}
}
