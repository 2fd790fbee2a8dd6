package engine

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// MaxDaysAhead bounds the forecast horizon.
	MaxDaysAhead = 365

	// minSeasonalPoints is the smallest dense history the seasonal model
	// accepts; below it the weekday means are too noisy to be useful.
	minSeasonalPoints = 14

	// confidenceZ is the multiplier applied to the residual standard
	// deviation when building confidence bounds (roughly a 95% band).
	// The bands widen with sqrt of the horizon step; this is an explicit
	// heuristic, not a statistical guarantee.
	confidenceZ = 1.96
)

// ForecastPoint is one projected day.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Balance  float64   `json:"predicted_balance"`
	Income   float64   `json:"predicted_income"`
	Expenses float64   `json:"predicted_expenses"`

	Lower *float64 `json:"confidence_lower,omitempty"`
	Upper *float64 `json:"confidence_upper,omitempty"`
}

// Result is a generated forecast plus how it was produced.
type Result struct {
	Points []ForecastPoint `json:"points"`
	Model  string          `json:"model"`

	// LowData is set when the history had fewer than two points and the
	// projection degraded to a flat line. It is informational, not an
	// error.
	LowData bool `json:"low_data,omitempty"`
}

// Forecaster projects daysAhead daily balances from a dense history.
// Implementations never fail: degenerate inputs produce flat or
// near-flat projections.
type Forecaster interface {
	Name() string
	Forecast(history DailySeries, daysAhead int, withConfidence bool) []ForecastPoint
}

// Choose picks a forecaster from the size and quality of the history.
// The decision is made up front so no strategy can fail at fit time:
// short, constant or non-finite series are routed to the strategies that
// handle them deterministically.
func Choose(history DailySeries) Forecaster {
	if len(history) < 2 {
		return FlatForecaster{Base: history.lastBalance(), Start: history.nextDate()}
	}
	if len(history) < minSeasonalPoints || !finite(history) || balanceVariance(history) == 0 {
		return LinearForecaster{}
	}
	return SeasonalForecaster{}
}

// Generate validates the horizon, selects a strategy and runs it.
func Generate(history DailySeries, daysAhead int, withConfidence bool) (*Result, error) {
	if daysAhead <= 0 || daysAhead > MaxDaysAhead {
		return nil, fmt.Errorf("%w: days_ahead must be between 1 and %d, got %d", ErrInvalidParameter, MaxDaysAhead, daysAhead)
	}
	f := Choose(history)
	return &Result{
		Points:  f.Forecast(history, daysAhead, withConfidence),
		Model:   f.Name(),
		LowData: len(history) < 2,
	}, nil
}

// FlatForecaster projects the last known balance unchanged. It is the
// low-data degradation path: confidence bounds collapse onto the point
// estimate and projected income/expenses are zero.
type FlatForecaster struct {
	Base  float64
	Start time.Time
}

// Name implements Forecaster.
func (FlatForecaster) Name() string { return "flat" }

// Forecast implements Forecaster.
func (f FlatForecaster) Forecast(history DailySeries, daysAhead int, withConfidence bool) []ForecastPoint {
	base := f.Base
	start := f.Start
	if len(history) > 0 {
		base = history.lastBalance()
		start = history.nextDate()
	} else if start.IsZero() {
		start = history.nextDate()
	}

	points := make([]ForecastPoint, daysAhead)
	for i := range points {
		p := ForecastPoint{Date: start.AddDate(0, 0, i), Balance: base}
		if withConfidence {
			lo, hi := base, base
			p.Lower, p.Upper = &lo, &hi
		}
		points[i] = p
	}
	return points
}

// RunwayDays returns the index of the first projected day whose balance is
// at or below zero, or len(points) when the balance stays positive across
// the whole horizon.
func RunwayDays(points []ForecastPoint) int {
	for i, p := range points {
		if p.Balance <= 0 {
			return i
		}
	}
	return len(points)
}

func finite(s DailySeries) bool {
	for _, p := range s {
		if math.IsNaN(p.Net) || math.IsInf(p.Net, 0) || math.IsNaN(p.Balance) || math.IsInf(p.Balance, 0) {
			return false
		}
	}
	return true
}

func balanceVariance(s DailySeries) float64 {
	ys := make([]float64, len(s))
	for i, p := range s {
		ys[i] = p.Balance
	}
	return stat.Variance(ys, nil)
}
