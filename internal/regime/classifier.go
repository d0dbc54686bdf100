// classifier.go
package regime

import (
	"math"

	"github.com/rs/zerolog"
	"swarmbt/internal"
)

type Label int

const (
	HighVolStrongTrend Label = iota + 1
	HighVolWeakTrend
	LowVolStrongTrend
	LowVolWeakTrend
)

func (l Label) String() string {
	switch l {
	case HighVolStrongTrend:
		return "high_vol_strong_trend"
	case HighVolWeakTrend:
		return "high_vol_weak_trend"
	case LowVolStrongTrend:
		return "low_vol_strong_trend"
	case LowVolWeakTrend:
		return "low_vol_weak_trend"
	default:
		return "unknown"
	}
}

type VolatilityMethod string

const (
	VolStdDev       VolatilityMethod = "stddev"
	VolRange        VolatilityMethod = "range"
	VolMeanAbsDelta VolatilityMethod = "mean_abs_delta"
)

type TrendMethod string

const (
	TrendCorrelation  TrendMethod = "correlation"
	TrendSlope        TrendMethod = "slope"
	TrendMADivergence TrendMethod = "ma_divergence"
)

type Config struct {
	Window           int              `yaml:"window"`
	VolatilityMethod VolatilityMethod `yaml:"volatility_method"`
	TrendMethod      TrendMethod      `yaml:"trend_method"`

	// Fixed thresholds, used until adaptive history is available (or always,
	// when Adaptive is false).
	VolThreshold   float64 `yaml:"vol_threshold"`
	TrendThreshold float64 `yaml:"trend_threshold"`

	// Adaptive thresholds: once at least 2*Window classified values exist,
	// thresholds become rolling percentiles of the classifier's own history,
	// self-calibrating to the asset universe.
	Adaptive      bool    `yaml:"adaptive"`
	VolQuantile   float64 `yaml:"vol_quantile"`
	TrendQuantile float64 `yaml:"trend_quantile"`
}

func DefaultConfig() Config {
	return Config{
		Window:           20,
		VolatilityMethod: VolStdDev,
		TrendMethod:      TrendCorrelation,
		VolThreshold:     0.015,
		TrendThreshold:   0.5,
		Adaptive:         true,
		VolQuantile:      0.65,
		TrendQuantile:    0.75,
	}
}

func (c *Config) Validate() error {
	if c.Window <= 1 {
		return internal.InputErrorf("regime: window must be greater than 1")
	}
	if c.VolThreshold <= 0 || c.TrendThreshold <= 0 {
		return internal.InputErrorf("regime: thresholds must be positive")
	}
	if c.VolQuantile <= 0 || c.VolQuantile >= 1 || c.TrendQuantile <= 0 || c.TrendQuantile >= 1 {
		return internal.InputErrorf("regime: quantiles must be in (0, 1)")
	}
	return nil
}

// Weights is the recommended sleeve split for a regime; always sums to 1.
type Weights struct {
	MACD      float64
	Predictor float64
	Cash      float64
}

func (w Weights) normalize() Weights {
	sum := w.MACD + w.Predictor + w.Cash
	if sum <= 0 {
		return Weights{MACD: 0.9, Predictor: 0.1}
	}
	return Weights{MACD: w.MACD / sum, Predictor: w.Predictor / sum, Cash: w.Cash / sum}
}

type Result struct {
	Label      Label
	Volatility float64
	Trend      float64
	Weights    Weights
}

// Classifier labels the prevailing market regime from a trailing window of
// multi-asset returns. With Adaptive enabled it keeps a rolling history of
// its own volatility/trend readings to derive percentile thresholds.
type Classifier struct {
	cfg          Config
	volHistory   []float64
	trendHistory []float64
	adaptiveOn   bool
	logger       zerolog.Logger
}

const maxHistory = 512

func NewClassifier(cfg Config, logger zerolog.Logger) *Classifier {
	return &Classifier{cfg: cfg, logger: logger}
}

// Classify consumes a [assets][window] return slice. Windows shorter than
// the configured size produce the fixed default Regime 1 profile.
func (c *Classifier) Classify(window [][]float64) Result {
	if len(window) == 0 || len(window[0]) < c.cfg.Window {
		return Result{
			Label:   HighVolStrongTrend,
			Weights: Weights{MACD: 0.9, Predictor: 0.1},
		}
	}

	vol := c.volatility(window)
	trend := c.trend(window)

	volThr, trendThr := c.thresholds()
	c.record(vol, trend)

	highVol := vol > volThr
	strongTrend := trend > trendThr

	var label Label
	switch {
	case highVol && strongTrend:
		label = HighVolStrongTrend
	case highVol:
		label = HighVolWeakTrend
	case strongTrend:
		label = LowVolStrongTrend
	default:
		label = LowVolWeakTrend
	}

	w := c.blendedWeights(label, vol, trend, volThr, trendThr)
	return Result{Label: label, Volatility: vol, Trend: trend, Weights: w}
}

func (c *Classifier) volatility(window [][]float64) float64 {
	sum := 0.0
	for _, returns := range window {
		sum += assetVolatility(returns, c.cfg.VolatilityMethod)
	}
	return sum / float64(len(window))
}

func assetVolatility(returns []float64, method VolatilityMethod) float64 {
	switch method {
	case VolRange:
		lo, hi := returns[0], returns[0]
		for _, r := range returns {
			lo = math.Min(lo, r)
			hi = math.Max(hi, r)
		}
		// Range rule of thumb: std ~ range/4.
		return (hi - lo) / 4
	case VolMeanAbsDelta:
		sum := 0.0
		for _, r := range returns {
			sum += math.Abs(r)
		}
		// E|X| = std*sqrt(2/pi) for centered normal returns.
		return sum / float64(len(returns)) * math.Sqrt(math.Pi/2)
	default:
		return internal.StdDev(returns)
	}
}

func (c *Classifier) trend(window [][]float64) float64 {
	sum := 0.0
	for _, returns := range window {
		sum += assetTrend(returns, c.cfg.TrendMethod)
	}
	return sum / float64(len(window))
}

func assetTrend(returns []float64, method TrendMethod) float64 {
	prices := make([]float64, len(returns)+1)
	prices[0] = 1.0
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}
	switch method {
	case TrendSlope:
		slope := regressionSlope(prices)
		mean := internal.Mean(prices)
		if mean == 0 {
			return 0
		}
		return internal.Clamp(math.Abs(slope)*float64(len(prices))/mean, 0, 1)
	case TrendMADivergence:
		half := len(prices) / 2
		if half == 0 {
			return 0
		}
		fast := internal.Mean(prices[len(prices)-half:])
		slow := internal.Mean(prices)
		if slow == 0 {
			return 0
		}
		return internal.Clamp(math.Abs(fast-slow)/slow*20, 0, 1)
	default:
		t := make([]float64, len(prices))
		for i := range t {
			t[i] = float64(i)
		}
		return math.Abs(internal.Correlation(t, prices))
	}
}

func regressionSlope(y []float64) float64 {
	n := float64(len(y))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	den := n*sumX2 - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}

func (c *Classifier) thresholds() (float64, float64) {
	volThr, trendThr := c.cfg.VolThreshold, c.cfg.TrendThreshold
	if c.cfg.Adaptive && len(c.volHistory) >= 2*c.cfg.Window {
		volThr = internal.Quantile(c.cfg.VolQuantile, c.volHistory)
		trendThr = internal.Quantile(c.cfg.TrendQuantile, c.trendHistory)
		if volThr <= 0 {
			volThr = c.cfg.VolThreshold
		}
		if trendThr <= 0 {
			trendThr = c.cfg.TrendThreshold
		}
		if !c.adaptiveOn {
			c.adaptiveOn = true
			c.logger.Debug().
				Float64("vol_threshold", volThr).
				Float64("trend_threshold", trendThr).
				Msg("adaptive regime thresholds active")
		}
	}
	return volThr, trendThr
}

func (c *Classifier) record(vol, trend float64) {
	c.volHistory = append(c.volHistory, vol)
	c.trendHistory = append(c.trendHistory, trend)
	if len(c.volHistory) > maxHistory {
		c.volHistory = c.volHistory[len(c.volHistory)-maxHistory:]
		c.trendHistory = c.trendHistory[len(c.trendHistory)-maxHistory:]
	}
}

// profile returns the base sleeve split for a regime. The Regime 2 cash
// reserve scales up with volatility overshoot, capped at 0.5.
func profile(label Label, vol, volThr float64) Weights {
	switch label {
	case HighVolStrongTrend:
		return Weights{MACD: 0.9, Predictor: 0.1}
	case HighVolWeakTrend:
		cash := 0.2
		if volThr > 0 {
			overshoot := internal.Clamp(vol/volThr-1, 0, 1)
			cash = math.Min(0.5, 0.2+0.3*overshoot)
		}
		invested := 1 - cash
		// Keep the 0.6:0.2 sleeve ratio inside the invested mass.
		return Weights{MACD: invested * 0.75, Predictor: invested * 0.25, Cash: cash}
	case LowVolStrongTrend:
		return Weights{MACD: 0.7, Predictor: 0.3}
	default:
		return Weights{MACD: 0.4, Predictor: 0.6}
	}
}

// blendedWeights interpolates toward the nearest neighboring regime's
// profile when volatility or trend sits close to its threshold, so weights
// move continuously across regime boundaries.
func (c *Classifier) blendedWeights(label Label, vol, trend, volThr, trendThr float64) Weights {
	primary := profile(label, vol, volThr)

	volConf := boundaryConfidence(vol, volThr)
	trendConf := boundaryConfidence(trend, trendThr)

	// Neighbor differs on the least-confident axis.
	neighbor := label
	conf := volConf
	if trendConf < volConf {
		neighbor = flipTrend(label)
		conf = trendConf
	} else {
		neighbor = flipVol(label)
	}
	secondary := profile(neighbor, vol, volThr)

	// conf=0 on the boundary (50/50 split), conf=1 deep inside the regime.
	f := 0.5 + 0.5*conf
	w := Weights{
		MACD:      f*primary.MACD + (1-f)*secondary.MACD,
		Predictor: f*primary.Predictor + (1-f)*secondary.Predictor,
		Cash:      f*primary.Cash + (1-f)*secondary.Cash,
	}
	return w.normalize()
}

func boundaryConfidence(x, thr float64) float64 {
	if thr <= 0 {
		return 1
	}
	return internal.Clamp(math.Abs(x-thr)/(0.5*thr), 0, 1)
}

func flipVol(l Label) Label {
	switch l {
	case HighVolStrongTrend:
		return LowVolStrongTrend
	case HighVolWeakTrend:
		return LowVolWeakTrend
	case LowVolStrongTrend:
		return HighVolStrongTrend
	default:
		return HighVolWeakTrend
	}
}

func flipTrend(l Label) Label {
	switch l {
	case HighVolStrongTrend:
		return HighVolWeakTrend
	case HighVolWeakTrend:
		return HighVolStrongTrend
	case LowVolStrongTrend:
		return LowVolWeakTrend
	default:
		return LowVolStrongTrend
	}
}
