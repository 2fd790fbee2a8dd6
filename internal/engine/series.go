// Package engine turns a transaction history into daily cash series,
// balance forecasts, what-if simulations and summary metrics. Every entry
// point is a pure function of its inputs: the engine holds no state and
// never touches the transaction store.
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smbcash/cashflow-dashboard/internal/model"
)

// DailyPoint is one day of net cash movement and the running balance at
// the end of that day.
type DailyPoint struct {
	Date    time.Time `json:"date"`
	Net     float64   `json:"net_amount"`
	Balance float64   `json:"cumulative_balance"`
}

// DailySeries is an ordered sequence of daily points with strictly
// increasing unique dates.
type DailySeries []DailyPoint

// Aggregate groups transactions by calendar date (UTC), sums the amounts
// per day exactly in decimal, and computes running balances seeded by
// startingBalance. Input order does not matter; duplicate dates are
// merged. An empty input yields an empty series.
//
// The returned series is sparse: days with no transactions are absent.
// Forecasting needs the dense view, see Dense.
func Aggregate(txs []model.Transaction, startingBalance decimal.Decimal) DailySeries {
	if len(txs) == 0 {
		return nil
	}

	byDay := make(map[time.Time]decimal.Decimal, len(txs))
	for _, t := range txs {
		day := t.Date.UTC().Truncate(24 * time.Hour)
		byDay[day] = byDay[day].Add(t.Amount)
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make(DailySeries, 0, len(days))
	balance, _ := startingBalance.Float64()
	for _, d := range days {
		net, _ := byDay[d].Float64()
		balance += net
		series = append(series, DailyPoint{Date: d, Net: net, Balance: balance})
	}
	return series
}

// Dense fills date gaps between the first and last point with zero-net
// days carrying the previous balance forward. The dense view of an empty
// series is empty.
func (s DailySeries) Dense() DailySeries {
	if len(s) == 0 {
		return nil
	}

	first := s[0].Date
	last := s[len(s)-1].Date
	out := make(DailySeries, 0, int(last.Sub(first).Hours()/24)+1)

	next := 0
	balance := s[0].Balance - s[0].Net
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if next < len(s) && s[next].Date.Equal(d) {
			out = append(out, s[next])
			balance = s[next].Balance
			next++
			continue
		}
		out = append(out, DailyPoint{Date: d, Net: 0, Balance: balance})
	}
	return out
}

// Total returns the sum of all net amounts in the series.
func (s DailySeries) Total() float64 {
	var total float64
	for _, p := range s {
		total += p.Net
	}
	return total
}

// lastBalance returns the closing balance, or 0 for an empty series.
func (s DailySeries) lastBalance() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Balance
}

// nextDate returns the first calendar day after the series, or tomorrow
// (UTC) when the series is empty.
func (s DailySeries) nextDate() time.Time {
	if len(s) == 0 {
		return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	}
	return s[len(s)-1].Date.AddDate(0, 0, 1)
}

// rebase returns a series over the same dates with the given per-day nets
// and balances recomputed from the original opening balance. The summation
// loop matches Aggregate's, so rebasing with unchanged nets reproduces the
// input balances bit for bit.
func (s DailySeries) rebase(nets []float64) DailySeries {
	out := make(DailySeries, len(s))
	balance := s[0].Balance - s[0].Net
	for i := range s {
		balance += nets[i]
		out[i] = DailyPoint{Date: s[i].Date, Net: nets[i], Balance: balance}
	}
	return out
}
