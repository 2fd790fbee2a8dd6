package engine

import "math"

// Summary is the scalar KPI set shown on the dashboard. TotalExpenses is
// kept negative, as stored; MonthlyBurnRate is its magnitude averaged over
// the whole months spanned.
type Summary struct {
	TotalIncome     float64 `json:"total_income"`
	TotalExpenses   float64 `json:"total_expenses"`
	NetCashFlow     float64 `json:"net_cash_flow"`
	MonthlyBurnRate float64 `json:"monthly_burn_rate"`
	CashRunwayDays  int     `json:"cash_runway_days"`
}

// Summarize derives KPIs from the historical series and, for the runway,
// the forecasted points. The burn-rate denominator never drops below one
// month so short histories cannot divide by zero.
func Summarize(history DailySeries, forecast []ForecastPoint) Summary {
	var income, expenses float64
	for _, p := range history {
		if p.Net > 0 {
			income += p.Net
		} else {
			expenses += p.Net
		}
	}

	months := 1.0
	if len(history) > 1 {
		days := history[len(history)-1].Date.Sub(history[0].Date).Hours() / 24
		if m := math.Floor(days / 30); m > 1 {
			months = m
		}
	}

	return Summary{
		TotalIncome:     income,
		TotalExpenses:   expenses,
		NetCashFlow:     income + expenses,
		MonthlyBurnRate: math.Abs(expenses) / months,
		CashRunwayDays:  RunwayDays(forecast),
	}
}
