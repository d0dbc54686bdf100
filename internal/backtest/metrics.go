// metrics.go
package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// Metrics summarizes one backtest run.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedSharpe float64 `json:"annualized_sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	AvgTurnover      float64 `json:"avg_turnover"`
	AvgConcentration float64 `json:"avg_concentration"`
	FinalValue       float64 `json:"final_value"`
	Steps            int     `json:"steps"`
}

func ComputeMetrics(values, returns, turnovers, concentrations []float64) Metrics {
	m := Metrics{Steps: len(returns)}
	if len(values) == 0 {
		return m
	}
	m.FinalValue = values[len(values)-1]
	if values[0] != 0 {
		m.TotalReturn = m.FinalValue/values[0] - 1
	}
	m.AnnualizedSharpe = annualizedSharpe(returns)
	m.MaxDrawdown = maxDrawdown(values)
	m.AvgTurnover = mean(turnovers)
	m.AvgConcentration = mean(concentrations)
	return m
}

func annualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := stat.Mean(returns, nil)
	sd := math.Sqrt(stat.Variance(returns, nil))
	if sd == 0 {
		return 0
	}
	return avg / sd * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the largest peak-to-trough loss relative to the running peak.
func maxDrawdown(values []float64) float64 {
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
