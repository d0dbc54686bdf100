// rsi.go
package indicator

import (
	"swarmbt/internal"
)

type RSIConfig struct {
	Window     int     `json:"window" yaml:"window"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
}

func DefaultRSIConfig() RSIConfig {
	return RSIConfig{Window: 14, Overbought: 70, Oversold: 30}
}

func (c *RSIConfig) Validate() error {
	if c.Window <= 0 {
		return internal.InputErrorf("rsi: window must be positive")
	}
	if c.Oversold >= c.Overbought {
		return internal.InputErrorf("rsi: oversold must be below overbought")
	}
	return nil
}

// ComputeRSI derives overbought/oversold signals from a price series using
// Wilder-style smoothed average gain/loss. Buy fires when RSI crosses below
// the oversold level, sell when it crosses above the overbought level.
// Fewer than window+1 observations yields all-zero signals.
func ComputeRSI(prices []float64, cfg RSIConfig) ([]internal.SignalType, []float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n := len(prices)
	signals := make([]internal.SignalType, n)
	rsi := make([]float64, n)
	if n < cfg.Window+1 {
		return signals, rsi, nil
	}

	w := float64(cfg.Window)
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= cfg.Window; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= w
	avgLoss /= w
	rsi[cfg.Window] = rsiValue(avgGain, avgLoss)

	for i := cfg.Window + 1; i < n; i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(w-1) + gain) / w
		avgLoss = (avgLoss*(w-1) + loss) / w
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	for i := cfg.Window + 1; i < n; i++ {
		if rsi[i-1] >= cfg.Oversold && rsi[i] < cfg.Oversold {
			signals[i] = internal.BUY
		} else if rsi[i-1] <= cfg.Overbought && rsi[i] > cfg.Overbought {
			signals[i] = internal.SELL
		}
	}
	return signals, rsi, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
