// combiner.go
package combiner

import (
	"github.com/rs/zerolog"

	"swarmbt/internal"
	"swarmbt/internal/regime"
)

// Config carries the empirically tuned blending constants. They have no
// documented derivation; callers may override any of them.
type Config struct {
	MaxPosition float64 `yaml:"max_position"`

	AgreementBoost float64 `yaml:"agreement_boost"` // consensus multiplier
	ConflictDamp   float64 `yaml:"conflict_damp"`   // disagreement multiplier
	AgreeHigh      float64 `yaml:"agree_high"`      // both sleeves above: consensus
	AgreeLow       float64 `yaml:"agree_low"`       // both sleeves below: consensus
	ConflictHigh   float64 `yaml:"conflict_high"`   // one sleeve above...
	ConflictLow    float64 `yaml:"conflict_low"`    // ...the other below: conflict

	PerfWindow int     `yaml:"perf_window"` // sleeve-return lookback
	PerfBlend  float64 `yaml:"perf_blend"`  // regime vs performance weight mix
}

func DefaultConfig() Config {
	return Config{
		MaxPosition:    0.20,
		AgreementBoost: 1.2,
		ConflictDamp:   0.7,
		AgreeHigh:      0.05,
		AgreeLow:       0.01,
		ConflictHigh:   0.10,
		ConflictLow:    0.02,
		PerfWindow:     10,
		PerfBlend:      0.5,
	}
}

func (c *Config) Validate() error {
	if c.MaxPosition <= 0 || c.MaxPosition > 1 {
		return internal.InputErrorf("combiner: max position must be in (0, 1]")
	}
	if c.PerfWindow <= 0 {
		return internal.InputErrorf("combiner: perf window must be positive")
	}
	if c.PerfBlend < 0 || c.PerfBlend > 1 {
		return internal.InputErrorf("combiner: perf blend must be in [0, 1]")
	}
	return nil
}

// PerformanceHistory is a pair of ring buffers of recent per-step sleeve
// returns, owned by the backtest state and passed in by reference.
type PerformanceHistory struct {
	macd *ring
	pred *ring
}

func NewPerformanceHistory(capacity int) *PerformanceHistory {
	return &PerformanceHistory{macd: newRing(capacity), pred: newRing(capacity)}
}

func (h *PerformanceHistory) Record(macdReturn, predReturn float64) {
	h.macd.push(macdReturn)
	h.pred.push(predReturn)
}

// Averages reports the mean recent return of each sleeve; ok is false until
// at least one step has been recorded.
func (h *PerformanceHistory) Averages() (macdAvg, predAvg float64, ok bool) {
	if h == nil || h.macd.len() == 0 {
		return 0, 0, false
	}
	return h.macd.mean(), h.pred.mean(), true
}

type ring struct {
	buf  []float64
	n    int
	next int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *ring) len() int {
	return r.n
}

func (r *ring) mean() float64 {
	if r.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r.n; i++ {
		sum += r.buf[i]
	}
	return sum / float64(r.n)
}

// Combiner merges the technical sleeve and the predictor sleeve into one
// allocation under the regime-recommended split.
type Combiner struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) (*Combiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Combiner{cfg: cfg, logger: logger}, nil
}

// NewHistory allocates a performance history sized to this combiner's
// lookback window.
func (c *Combiner) NewHistory() *PerformanceHistory {
	return NewPerformanceHistory(c.cfg.PerfWindow)
}

// Combine blends the sleeve allocations, applies the consensus boost and
// conflict damp per asset, caps positions, and renormalizes the non-cash
// mass to exactly 1 - cashWeight.
func (c *Combiner) Combine(macdAlloc, predAlloc internal.Allocation, rw regime.Weights, hist *PerformanceHistory) internal.Allocation {
	n := len(macdAlloc)
	if len(predAlloc) != n {
		// Programming error upstream; degrade to the safer sleeve.
		c.logger.Warn().Int("macd", n).Int("pred", len(predAlloc)).
			Msg("sleeve length mismatch, using equal weights")
		return internal.EqualWeights(n).Scale(1 - rw.Cash).Cap(c.cfg.MaxPosition)
	}

	macdW, predW, cashW := rw.MACD, rw.Predictor, rw.Cash
	if mAvg, pAvg, ok := hist.Averages(); ok {
		perfW := performanceWeight(mAvg, pAvg)
		macdW = (1-c.cfg.PerfBlend)*macdW + c.cfg.PerfBlend*perfW
		macdW = internal.Clamp(macdW, 0, 1-cashW)
		predW = 1 - macdW - cashW
	}

	combined := make(internal.Allocation, n)
	for i := 0; i < n; i++ {
		w := macdW*macdAlloc[i] + predW*predAlloc[i]
		m, p := macdAlloc[i], predAlloc[i]
		switch {
		case (m > c.cfg.AgreeHigh && p > c.cfg.AgreeHigh) || (m < c.cfg.AgreeLow && p < c.cfg.AgreeLow):
			w *= c.cfg.AgreementBoost
		case (m > c.cfg.ConflictHigh && p < c.cfg.ConflictLow) || (p > c.cfg.ConflictHigh && m < c.cfg.ConflictLow):
			w *= c.cfg.ConflictDamp
		}
		combined[i] = w
	}

	target := 1 - cashW
	if combined.Sum() <= 0 {
		c.logger.Warn().Msg("combined allocation degenerate, using equal weights")
		return internal.EqualWeights(n).Scale(target).Cap(c.cfg.MaxPosition)
	}
	return combined.NormalizeTo(target, c.cfg.MaxPosition)
}

// performanceWeight maps recent sleeve performance to a MACD-sleeve weight.
func performanceWeight(macdAvg, predAvg float64) float64 {
	switch {
	case macdAvg > 0 && predAvg > 0:
		return macdAvg / (macdAvg + predAvg)
	case macdAvg > 0:
		return 0.8
	case predAvg > 0:
		return 0.2
	default:
		return 0.5
	}
}
