// macd.go
package indicator

import (
	"math"

	"swarmbt/internal"
)

type MACDConfig struct {
	FastPeriod   int `json:"fast_period" yaml:"fast_period"`
	SlowPeriod   int `json:"slow_period" yaml:"slow_period"`
	SignalPeriod int `json:"signal_period" yaml:"signal_period"`
}

func DefaultMACDConfig() MACDConfig {
	return MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
}

func (c *MACDConfig) Validate() error {
	if c.FastPeriod <= 0 {
		return internal.InputErrorf("macd: fast period must be positive")
	}
	if c.SlowPeriod <= 0 {
		return internal.InputErrorf("macd: slow period must be positive")
	}
	if c.SignalPeriod <= 0 {
		return internal.InputErrorf("macd: signal period must be positive")
	}
	if c.FastPeriod >= c.SlowPeriod {
		return internal.InputErrorf("macd: fast period must be less than slow period")
	}
	return nil
}

// MACDResult carries the full per-step output of one MACD computation.
// Immutable once computed; recomputed wholesale when inputs change.
type MACDResult struct {
	Signals    []internal.SignalType
	MACDLine   []float64
	SignalLine []float64
	Histogram  []float64
	Strength   []float64 // in [0, 1], per step
}

// ComputeMACD derives crossover signals from a price series.
//
// Buy fires exactly on the step where the MACD line crosses from <= to >
// the signal line, sell on the reverse crossing. An independent zero-line
// crossover may also set a signal, but never overwrites an opposite signal
// from the primary crossover rule.
func ComputeMACD(prices []float64, cfg MACDConfig) (*MACDResult, error) {
	return computeMACD(prices, cfg, defaultHistogramThreshold)
}

const defaultHistogramThreshold = 0.001

func computeMACD(prices []float64, cfg MACDConfig, histThreshold float64) (*MACDResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(prices)
	res := &MACDResult{
		Signals:    make([]internal.SignalType, n),
		MACDLine:   make([]float64, n),
		SignalLine: make([]float64, n),
		Histogram:  make([]float64, n),
		Strength:   make([]float64, n),
	}
	if n == 0 {
		return res, nil
	}

	fastEMA := EMA(prices, cfg.FastPeriod)
	slowEMA := EMA(prices, cfg.SlowPeriod)
	for i := 0; i < n; i++ {
		res.MACDLine[i] = fastEMA[i] - slowEMA[i]
	}
	res.SignalLine = EMA(res.MACDLine, cfg.SignalPeriod)
	for i := 0; i < n; i++ {
		res.Histogram[i] = res.MACDLine[i] - res.SignalLine[i]
		res.Strength[i] = math.Min(1, math.Abs(res.Histogram[i])/histThreshold)
	}

	// Not enough observations: all-zero signals, not an error.
	if n < cfg.SlowPeriod+1 {
		return res, nil
	}

	for i := 1; i < n; i++ {
		macd, sig := res.MACDLine[i], res.SignalLine[i]
		macdPrev, sigPrev := res.MACDLine[i-1], res.SignalLine[i-1]

		primary := internal.HOLD
		if macdPrev <= sigPrev && macd > sig {
			primary = internal.BUY
		} else if macdPrev >= sigPrev && macd < sig {
			primary = internal.SELL
		}
		res.Signals[i] = primary

		// Zero-line crossover, primary crossover takes precedence.
		if macdPrev <= 0 && macd > 0 && primary != internal.SELL {
			res.Signals[i] = internal.BUY
		} else if macdPrev >= 0 && macd < 0 && primary != internal.BUY {
			res.Signals[i] = internal.SELL
		}
	}
	return res, nil
}

type EnhancedMACDConfig struct {
	MACDConfig         `yaml:",inline"`
	HistogramThreshold float64 `json:"histogram_threshold" yaml:"histogram_threshold"`
	SignalThreshold    float64 `json:"signal_threshold" yaml:"signal_threshold"`
	VolumePeriod       int     `json:"volume_period" yaml:"volume_period"`
	VolumeThreshold    float64 `json:"volume_threshold" yaml:"volume_threshold"`
	TrendPeriod        int     `json:"trend_period" yaml:"trend_period"`
	TrendConfirmation  bool    `json:"trend_confirmation" yaml:"trend_confirmation"`
}

func DefaultEnhancedMACDConfig() EnhancedMACDConfig {
	return EnhancedMACDConfig{
		MACDConfig:         DefaultMACDConfig(),
		HistogramThreshold: defaultHistogramThreshold,
		SignalThreshold:    0.1,
		VolumePeriod:       20,
		VolumeThreshold:    1.2,
		TrendPeriod:        50,
		TrendConfirmation:  true,
	}
}

func (c *EnhancedMACDConfig) Validate() error {
	if err := c.MACDConfig.Validate(); err != nil {
		return err
	}
	if c.HistogramThreshold <= 0 {
		return internal.InputErrorf("macd: histogram threshold must be positive")
	}
	if c.SignalThreshold < 0 || c.SignalThreshold > 1 {
		return internal.InputErrorf("macd: signal threshold must be in [0, 1]")
	}
	return nil
}

// ComputeEnhancedMACD is ComputeMACD plus three signal filters: minimum
// histogram strength, volume confirmation (when a volume series is supplied),
// and a price-vs-own-MA trend filter suppressing counter-trend signals.
func ComputeEnhancedMACD(prices, volumes []float64, cfg EnhancedMACDConfig) (*MACDResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res, err := computeMACD(prices, cfg.MACDConfig, cfg.HistogramThreshold)
	if err != nil {
		return nil, err
	}

	var volMA, trendMA []float64
	if len(volumes) == len(prices) && cfg.VolumePeriod > 0 {
		volMA = SMA(volumes, cfg.VolumePeriod)
	}
	if cfg.TrendConfirmation && cfg.TrendPeriod > 0 {
		trendMA = SMA(prices, cfg.TrendPeriod)
	}

	for i, sig := range res.Signals {
		if sig == internal.HOLD {
			continue
		}
		if res.Strength[i] < cfg.SignalThreshold {
			res.Signals[i] = internal.HOLD
			continue
		}
		if volMA != nil && volMA[i] > 0 && volumes[i] <= volMA[i]*cfg.VolumeThreshold {
			res.Signals[i] = internal.HOLD
			continue
		}
		if trendMA != nil && trendMA[i] > 0 {
			if sig == internal.BUY && prices[i] < trendMA[i] {
				res.Signals[i] = internal.HOLD
			} else if sig == internal.SELL && prices[i] > trendMA[i] {
				res.Signals[i] = internal.HOLD
			}
		}
	}
	return res, nil
}
