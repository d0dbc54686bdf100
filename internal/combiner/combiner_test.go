package combiner

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmbt/internal"
	"swarmbt/internal/regime"
)

func newTestCombiner(t *testing.T, cfg Config) *Combiner {
	t.Helper()
	c, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func uncappedConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxPosition = 1.0
	return cfg
}

func TestCombinePassThroughSingleSleeve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPosition = 0.7
	c := newTestCombiner(t, cfg)

	// Regime hands everything to the predictor sleeve, no history yet.
	rw := regime.Weights{MACD: 0, Predictor: 1, Cash: 0}
	macd := internal.Allocation{0.02, 0.03}
	pred := internal.Allocation{0.6, 0.4}

	out := c.Combine(macd, pred, rw, nil)
	assert.InDelta(t, 0.6, out[0], 1e-9)
	assert.InDelta(t, 0.4, out[1], 1e-9)
}

func TestCombinePerformanceAdaptation(t *testing.T) {
	c := newTestCombiner(t, uncappedConfig())

	hist := c.NewHistory()
	hist.Record(0.013, 0.007)

	rw := regime.Weights{MACD: 0.5, Predictor: 0.5, Cash: 0}
	macd := internal.Allocation{1, 0}
	pred := internal.Allocation{0, 1}

	// perfW = 0.013/0.020 = 0.65, blended 50/50 with the regime split:
	// macdW = 0.575. Both assets take the same conflict damp, so the final
	// allocation reflects the sleeve split directly.
	out := c.Combine(macd, pred, rw, hist)
	assert.InDelta(t, 0.575, out[0], 1e-9)
	assert.InDelta(t, 0.425, out[1], 1e-9)
}

func TestCombineAgreementBoost(t *testing.T) {
	c := newTestCombiner(t, uncappedConfig())

	rw := regime.Weights{MACD: 0.5, Predictor: 0.5, Cash: 0}
	macd := internal.Allocation{0.06, 0.02}
	pred := internal.Allocation{0.06, 0.02}

	// Asset 0 clears the consensus bar on both sleeves and gets the 1.2x
	// boost; asset 1 sits in the neutral band.
	out := c.Combine(macd, pred, rw, nil)
	assert.InDelta(t, 3.6, out[0]/out[1], 1e-9)
	assert.InDelta(t, 1.0, out.Sum(), 1e-9)
}

func TestCombineConflictDamp(t *testing.T) {
	c := newTestCombiner(t, uncappedConfig())

	rw := regime.Weights{MACD: 0.5, Predictor: 0.5, Cash: 0}
	macd := internal.Allocation{0.2, 0.03}
	pred := internal.Allocation{0.0, 0.03}

	// Asset 0: sleeves disagree hard, 0.5*0.2*0.7 = 0.07 pre-normalization.
	// Asset 1: neutral, 0.03. Final split is 7:3.
	out := c.Combine(macd, pred, rw, nil)
	assert.InDelta(t, 0.7, out[0], 1e-9)
	assert.InDelta(t, 0.3, out[1], 1e-9)
}

func TestCombineRespectsCashAndCap(t *testing.T) {
	c := newTestCombiner(t, DefaultConfig())

	rw := regime.Weights{MACD: 0.5, Predictor: 0.2, Cash: 0.3}
	macd := internal.Allocation{0.3, 0.3, 0.2, 0.1, 0.1}
	pred := internal.Allocation{0.2, 0.2, 0.2, 0.2, 0.2}

	out := c.Combine(macd, pred, rw, nil)
	assert.InDelta(t, 0.7, out.Sum(), 1e-9)
	for _, w := range out {
		assert.LessOrEqual(t, w, 0.20+1e-9)
		assert.GreaterOrEqual(t, w, 0.0)
	}
}

func TestCombineDegenerateFallsBackToEqual(t *testing.T) {
	c := newTestCombiner(t, DefaultConfig())

	rw := regime.Weights{MACD: 0.6, Predictor: 0.3, Cash: 0.1}
	out := c.Combine(internal.Allocation{0, 0, 0, 0, 0}, internal.Allocation{0, 0, 0, 0, 0}, rw, nil)
	for _, w := range out {
		assert.InDelta(t, 0.18, w, 1e-9)
	}
}

func TestCombineLengthMismatch(t *testing.T) {
	c := newTestCombiner(t, DefaultConfig())

	rw := regime.Weights{MACD: 0.5, Predictor: 0.5, Cash: 0}
	out := c.Combine(internal.Allocation{0.5, 0.5}, internal.Allocation{1}, rw, nil)
	require.Len(t, []float64(out), 2)
	assert.LessOrEqual(t, out.Sum(), 1.0+1e-9)
}

func TestPerformanceWeightBranches(t *testing.T) {
	assert.InDelta(t, 0.6, performanceWeight(0.03, 0.02), 1e-12)
	assert.Equal(t, 0.8, performanceWeight(0.01, -0.01))
	assert.Equal(t, 0.2, performanceWeight(-0.01, 0.01))
	assert.Equal(t, 0.5, performanceWeight(-0.01, -0.01))
}

func TestPerformanceHistoryRing(t *testing.T) {
	h := NewPerformanceHistory(3)

	_, _, ok := h.Averages()
	assert.False(t, ok)

	var nilHist *PerformanceHistory
	_, _, ok = nilHist.Averages()
	assert.False(t, ok)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Record(v, -v)
	}
	mAvg, pAvg, ok := h.Averages()
	require.True(t, ok)
	assert.InDelta(t, 4.0, mAvg, 1e-12) // last three: 3, 4, 5
	assert.InDelta(t, -4.0, pAvg, 1e-12)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxPosition = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PerfBlend = 1.5
	require.Error(t, cfg.Validate())
}
