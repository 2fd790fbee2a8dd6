package engine

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SeasonalForecaster is the primary strategy: a linear trend fitted to the
// cumulative balance plus a weekly seasonality term taken from per-weekday
// mean deviations of the daily net flow. Future balances are derived by
// cumulative summation of the projected nets starting from the last known
// balance.
type SeasonalForecaster struct{}

// Name implements Forecaster.
func (SeasonalForecaster) Name() string { return "seasonal" }

// Forecast implements Forecaster. Choose routes histories shorter than
// minSeasonalPoints, non-finite series and constant balances elsewhere.
func (SeasonalForecaster) Forecast(history DailySeries, daysAhead int, withConfidence bool) []ForecastPoint {
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	nets := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Balance
		nets[i] = p.Net
	}

	_, trend := stat.LinearRegression(xs, ys, nil, false)
	meanNet := stat.Mean(nets, nil)
	netStd := stat.StdDev(nets, nil)
	if math.IsNaN(netStd) {
		netStd = 0
	}

	season := weekdayStats(history, meanNet)

	start := history.nextDate()
	balance := history.lastBalance()

	points := make([]ForecastPoint, daysAhead)
	for i := range points {
		date := start.AddDate(0, 0, i)
		wd := season[date.Weekday()]

		net := trend + wd.effect
		balance += net

		p := ForecastPoint{
			Date:     date,
			Balance:  balance,
			Income:   wd.meanIncome,
			Expenses: wd.meanExpense,
		}
		if withConfidence {
			margin := confidenceZ * netStd * math.Sqrt(float64(i+1))
			lo, hi := balance-margin, balance+margin
			p.Lower, p.Upper = &lo, &hi
		}
		points[i] = p
	}
	return points
}

// weekdayStat carries the seasonal adjustment for one day of the week.
type weekdayStat struct {
	effect      float64 // mean net deviation from the overall mean
	meanIncome  float64
	meanExpense float64 // magnitude
}

func weekdayStats(history DailySeries, meanNet float64) [7]weekdayStat {
	var sumNet, sumIncome, sumExpense [7]float64
	var count [7]float64

	for _, p := range history {
		wd := p.Date.Weekday()
		count[wd]++
		sumNet[wd] += p.Net
		if p.Net > 0 {
			sumIncome[wd] += p.Net
		} else {
			sumExpense[wd] += -p.Net
		}
	}

	var out [7]weekdayStat
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if count[wd] == 0 {
			continue
		}
		out[wd] = weekdayStat{
			effect:      sumNet[wd]/count[wd] - meanNet,
			meanIncome:  sumIncome[wd] / count[wd],
			meanExpense: sumExpense[wd] / count[wd],
		}
	}
	return out
}
