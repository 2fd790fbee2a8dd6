package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LinearForecaster is the deterministic fallback strategy: ordinary least
// squares of the cumulative balance against the day index, extrapolated
// forward. Confidence bounds are estimate ± z·residualStd·sqrt(step),
// widening with distance into the future.
//
// It is also the projection mechanism the scenario simulator uses, so it
// must stay free of any randomness or hidden state.
type LinearForecaster struct{}

// Name implements Forecaster.
func (LinearForecaster) Name() string { return "linear" }

// Forecast implements Forecaster. The history must have at least two
// points; Choose guarantees that.
func (LinearForecaster) Forecast(history DailySeries, daysAhead int, withConfidence bool) []ForecastPoint {
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Balance
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	residStd := 0.0
	if withConfidence {
		resid := make([]float64, len(history))
		for i := range xs {
			resid[i] = ys[i] - (alpha + beta*xs[i])
		}
		residStd = stat.StdDev(resid, nil)
		if math.IsNaN(residStd) {
			residStd = 0
		}
	}

	lastX := float64(len(history) - 1)
	start := history.nextDate()
	prev := history.lastBalance()

	points := make([]ForecastPoint, daysAhead)
	for i := range points {
		balance := alpha + beta*(lastX+float64(i+1))
		net := balance - prev
		prev = balance

		p := ForecastPoint{
			Date:     start.AddDate(0, 0, i),
			Balance:  balance,
			Income:   math.Max(net, 0),
			Expenses: math.Max(-net, 0),
		}
		if withConfidence {
			margin := confidenceZ * residStd * math.Sqrt(float64(i+1))
			lo, hi := balance-margin, balance+margin
			p.Lower, p.Upper = &lo, &hi
		}
		points[i] = p
	}
	return points
}
