package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidParameter marks a hard validation failure: the request is
// rejected before any computation runs.
var ErrInvalidParameter = errors.New("invalid parameter")

// MaxBatchScenarios bounds a single batch simulation request.
const MaxBatchScenarios = 10

// ScenarioParams is an immutable description of one what-if run.
type ScenarioParams struct {
	Name             string  `json:"scenario_name"`
	RevenueChangePct float64 `json:"revenue_change_percent"`
	ExpenseChangePct float64 `json:"expense_change_percent"`
	OneTimeIncome    float64 `json:"one_time_income"`
	OneTimeExpense   float64 `json:"one_time_expense"`
	DaysAhead        int     `json:"days_ahead"`
}

// Validate rejects parameters that cannot produce a meaningful scenario.
// A percentage below -100 would invert the sign of the scaled flows.
func (p ScenarioParams) Validate() error {
	if p.DaysAhead <= 0 || p.DaysAhead > MaxDaysAhead {
		return fmt.Errorf("%w: days_ahead must be between 1 and %d, got %d", ErrInvalidParameter, MaxDaysAhead, p.DaysAhead)
	}
	if p.RevenueChangePct < -100 {
		return fmt.Errorf("%w: revenue_change_percent must be >= -100, got %v", ErrInvalidParameter, p.RevenueChangePct)
	}
	if p.ExpenseChangePct < -100 {
		return fmt.Errorf("%w: expense_change_percent must be >= -100, got %v", ErrInvalidParameter, p.ExpenseChangePct)
	}
	if p.OneTimeIncome < 0 {
		return fmt.Errorf("%w: one_time_income must not be negative, got %v", ErrInvalidParameter, p.OneTimeIncome)
	}
	if p.OneTimeExpense < 0 {
		return fmt.Errorf("%w: one_time_expense must not be negative, got %v", ErrInvalidParameter, p.OneTimeExpense)
	}
	return nil
}

// ScenarioSummary are the headline numbers of one simulated projection.
type ScenarioSummary struct {
	FinalBalance float64 `json:"final_balance"`
	NetCashFlow  float64 `json:"net_cash_flow"`
	RunwayDays   int     `json:"runway_days"`
}

// BaselineComparison relates a scenario to the unmodified forecast.
type BaselineComparison struct {
	ImprovementPct float64 `json:"improvement_percentage"`
}

// SimulationResult is the outcome of one scenario run.
type SimulationResult struct {
	Name     string              `json:"scenario_name"`
	Params   ScenarioParams      `json:"parameters"`
	Points   []ForecastPoint     `json:"forecast"`
	Summary  ScenarioSummary     `json:"summary"`
	Baseline *BaselineComparison `json:"baseline_comparison,omitempty"`
}

// Simulate applies the scenario parameters to the dense history and
// projects the result with the deterministic linear mechanism. It does not
// need a fitted statistical model and is runnable standalone with only
// history and parameters. With neutral parameters the output matches the
// linear fallback forecast exactly.
//
// baseline, when supplied, is the unmodified forecast to compare against.
func Simulate(history DailySeries, params ScenarioParams, baseline []ForecastPoint) (*SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	adjusted := applyScenario(history, params)

	var points []ForecastPoint
	if len(adjusted) < 2 {
		points = Choose(adjusted).Forecast(adjusted, params.DaysAhead, true)
	} else {
		points = LinearForecaster{}.Forecast(adjusted, params.DaysAhead, true)
	}

	// One-time cash events land on day 0 of the projection and shift
	// every later balance by the same amount.
	delta := params.OneTimeIncome - params.OneTimeExpense
	if delta != 0 {
		for i := range points {
			points[i].Balance += delta
			if points[i].Lower != nil {
				*points[i].Lower += delta
				*points[i].Upper += delta
			}
		}
	}
	if params.OneTimeIncome > 0 {
		points[0].Income += params.OneTimeIncome
	}
	if params.OneTimeExpense > 0 {
		points[0].Expenses += params.OneTimeExpense
	}

	final := points[len(points)-1].Balance
	result := &SimulationResult{
		Name:   params.Name,
		Params: params,
		Points: points,
		Summary: ScenarioSummary{
			FinalBalance: final,
			NetCashFlow:  final - adjusted.lastBalance(),
			RunwayDays:   RunwayDays(points),
		},
	}

	if len(baseline) > 0 {
		result.Baseline = &BaselineComparison{
			ImprovementPct: improvementPct(final, baseline[len(baseline)-1].Balance),
		}
	}
	return result, nil
}

// SimulateBatch runs the same history against several parameter sets. Runs
// are independent and execute in parallel; results are returned in input
// order regardless of completion order.
//
// baseline covers the longest horizon in the batch; each scenario is
// compared against the baseline truncated to its own days_ahead, so the
// final balances line up on the same day.
func SimulateBatch(history DailySeries, scenarios []ScenarioParams, baseline []ForecastPoint) ([]*SimulationResult, error) {
	if len(scenarios) > MaxBatchScenarios {
		return nil, fmt.Errorf("%w: at most %d scenarios per batch, got %d", ErrInvalidParameter, MaxBatchScenarios, len(scenarios))
	}

	// Validate everything up front so a bad scenario aborts the batch
	// before any work starts.
	for i, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
	}

	results := make([]*SimulationResult, len(scenarios))
	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(i int, sc ScenarioParams) {
			defer wg.Done()
			b := baseline
			if len(b) > sc.DaysAhead {
				b = b[:sc.DaysAhead]
			}
			// Validation already passed, Simulate cannot fail here.
			results[i], _ = Simulate(history, sc, b)
		}(i, sc)
	}
	wg.Wait()
	return results, nil
}

// applyScenario scales each day's income and expense component
// independently and rebuilds the running balances from the same opening
// balance.
func applyScenario(history DailySeries, p ScenarioParams) DailySeries {
	if len(history) == 0 {
		return history
	}
	revScale := 1 + p.RevenueChangePct/100
	expScale := 1 + p.ExpenseChangePct/100

	nets := make([]float64, len(history))
	for i, pt := range history {
		if pt.Net > 0 {
			nets[i] = pt.Net * revScale
		} else {
			nets[i] = pt.Net * expScale
		}
	}
	return history.rebase(nets)
}

// improvementPct is (scenario-baseline)/|baseline| in percent, defined as
// 0 when the baseline final balance is 0.
func improvementPct(scenario, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (scenario - baseline) / math.Abs(baseline) * 100
}
