package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/engine"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

// SimulationsHandler handles what-if scenario endpoints.
type SimulationsHandler struct {
	store           store.Store
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewSimulationsHandler creates a new simulations handler.
func NewSimulationsHandler(st store.Store, startingBalance decimal.Decimal, log zerolog.Logger) *SimulationsHandler {
	return &SimulationsHandler{
		store:           st,
		startingBalance: startingBalance,
		log:             log,
	}
}

// Preset is a predefined scenario the frontend offers as a starting point.
type Preset struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  engine.ScenarioParams `json:"parameters"`
}

var presets = []Preset{
	{
		Name:        "Optimistic Growth",
		Description: "15% revenue increase, 5% expense increase",
		Parameters:  engine.ScenarioParams{Name: "Optimistic Growth", RevenueChangePct: 15, ExpenseChangePct: 5, DaysAhead: 90},
	},
	{
		Name:        "Conservative Growth",
		Description: "5% revenue increase, 3% expense increase",
		Parameters:  engine.ScenarioParams{Name: "Conservative Growth", RevenueChangePct: 5, ExpenseChangePct: 3, DaysAhead: 90},
	},
	{
		Name:        "Economic Downturn",
		Description: "20% revenue decrease, 10% expense decrease",
		Parameters:  engine.ScenarioParams{Name: "Economic Downturn", RevenueChangePct: -20, ExpenseChangePct: -10, DaysAhead: 90},
	},
	{
		Name:        "Cost Optimization",
		Description: "Same revenue, 15% expense reduction",
		Parameters:  engine.ScenarioParams{Name: "Cost Optimization", ExpenseChangePct: -15, DaysAhead: 90},
	},
	{
		Name:        "Major Investment",
		Description: "Large one-time expense with gradual revenue increase",
		Parameters:  engine.ScenarioParams{Name: "Major Investment", RevenueChangePct: 10, ExpenseChangePct: 5, OneTimeExpense: 50000, DaysAhead: 90},
	},
}

// Simulate handles POST /api/simulations
func (h *SimulationsHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var params engine.ScenarioParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if params.DaysAhead == 0 {
		params.DaysAhead = 90
	}

	ctx := r.Context()
	history, err := loadHistory(ctx, h.store, h.startingBalance)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulation")
		return
	}

	baseline, err := h.baseline(history, params.DaysAhead)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulation")
		return
	}

	result, err := engine.Simulate(history, params, baseline)
	if errors.Is(err, engine.ErrInvalidParameter) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Simulation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulation")
		return
	}

	h.log.Info().Str("scenario", params.Name).Int("days_ahead", params.DaysAhead).Msg("Simulation run")
	middleware.WriteJSON(w, http.StatusOK, result)
}

// SimulateBatch handles POST /api/simulations/batch
func (h *SimulationsHandler) SimulateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scenarios []engine.ScenarioParams `json:"scenarios"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Scenarios) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "scenarios is required")
		return
	}
	daysAhead := 0
	for i := range req.Scenarios {
		if req.Scenarios[i].DaysAhead == 0 {
			req.Scenarios[i].DaysAhead = 90
		}
		if req.Scenarios[i].DaysAhead > daysAhead {
			daysAhead = req.Scenarios[i].DaysAhead
		}
	}

	ctx := r.Context()
	history, err := loadHistory(ctx, h.store, h.startingBalance)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulations")
		return
	}

	baseline, err := h.baseline(history, daysAhead)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulations")
		return
	}

	results, err := engine.SimulateBatch(history, req.Scenarios, baseline)
	if errors.Is(err, engine.ErrInvalidParameter) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Batch simulation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run simulations")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":         results,
		"total_scenarios": len(results),
	})
}

// Presets handles GET /api/simulations/presets
func (h *SimulationsHandler) Presets(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"presets": presets})
}

// baseline produces the unmodified projection scenarios are compared
// against. A neutral scenario run keeps it on the exact same mechanism as
// the simulations themselves.
func (h *SimulationsHandler) baseline(history engine.DailySeries, daysAhead int) ([]engine.ForecastPoint, error) {
	neutral, err := engine.Simulate(history, engine.ScenarioParams{Name: "baseline", DaysAhead: daysAhead}, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Baseline projection failed")
		return nil, err
	}
	return neutral.Points, nil
}
