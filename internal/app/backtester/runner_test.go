package backtester

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmbt/internal/backtest"
	"swarmbt/internal/indicator"
)

type nopPrinter struct{}

func (nopPrinter) PrintComparison([]VariantResult) {}

func newTestRunner() *VariantRunner {
	return NewVariantRunner(DefaultAppConfig(), nopPrinter{}, zerolog.Nop())
}

func TestRunVariantAll(t *testing.T) {
	matrix := SyntheticReturns(4, 120, 42)
	r := newTestRunner()

	for _, name := range DefaultAppConfig().Variants {
		res, err := r.RunVariant(matrix, backtest.Variant(name))
		require.NoError(t, err, name)
		assert.Equal(t, name, res.Name)
		assert.Equal(t, 100, res.Metrics.Steps)
		assert.Greater(t, res.Metrics.FinalValue, 0.0)
	}
}

func TestRunVariantDeterministic(t *testing.T) {
	matrix := SyntheticReturns(4, 120, 42)

	a, err := newTestRunner().RunVariant(matrix, backtest.VariantHybrid)
	require.NoError(t, err)
	b, err := newTestRunner().RunVariant(matrix, backtest.VariantHybrid)
	require.NoError(t, err)
	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestRunAllVariants(t *testing.T) {
	matrix := SyntheticReturns(4, 120, 42)
	results, err := newTestRunner().RunAllVariants(matrix)
	require.NoError(t, err)
	require.Len(t, results, 5)

	seen := make(map[string]bool)
	for _, res := range results {
		seen[res.Name] = true
	}
	for _, name := range DefaultAppConfig().Variants {
		assert.True(t, seen[name], name)
	}
}

func TestRunnerUsesConfiguredIndicatorParameters(t *testing.T) {
	matrix := SyntheticReturns(4, 120, 42)

	base, err := newTestRunner().RunVariant(matrix, backtest.VariantMACDOnly)
	require.NoError(t, err)

	// A much faster MACD produces different signals, so the run must differ.
	cfg := DefaultAppConfig()
	cfg.MACD = indicator.MACDConfig{FastPeriod: 3, SlowPeriod: 5, SignalPeriod: 2}
	fast, err := NewVariantRunner(cfg, nopPrinter{}, zerolog.Nop()).RunVariant(matrix, backtest.VariantMACDOnly)
	require.NoError(t, err)
	assert.NotEqual(t, base.Metrics, fast.Metrics)

	// Invalid indicator parameters surface instead of being swapped for defaults.
	cfg.MACD = indicator.MACDConfig{FastPeriod: 26, SlowPeriod: 12, SignalPeriod: 9}
	_, err = NewVariantRunner(cfg, nopPrinter{}, zerolog.Nop()).RunVariant(matrix, backtest.VariantMACDOnly)
	require.Error(t, err)

	// The RSI block feeds the rsi source the same way.
	cfg = DefaultAppConfig()
	cfg.SignalSource = "rsi"
	rsiBase, err := NewVariantRunner(cfg, nopPrinter{}, zerolog.Nop()).RunVariant(matrix, backtest.VariantMACDOnly)
	require.NoError(t, err)
	cfg.RSI = indicator.RSIConfig{Window: 5, Overbought: 60, Oversold: 40}
	rsiFast, err := NewVariantRunner(cfg, nopPrinter{}, zerolog.Nop()).RunVariant(matrix, backtest.VariantMACDOnly)
	require.NoError(t, err)
	assert.NotEqual(t, rsiBase.Metrics, rsiFast.Metrics)
}

func TestRunnerRejectsUnknownSignalSource(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.SignalSource = "astrology"
	r := NewVariantRunner(cfg, nopPrinter{}, zerolog.Nop())

	_, err := r.RunVariant(SyntheticReturns(3, 60, 1), backtest.VariantMACDOnly)
	require.Error(t, err)
}

func TestRunTracesAndSave(t *testing.T) {
	matrix := SyntheticReturns(3, 80, 7)
	traces, err := newTestRunner().RunTraces(matrix)
	require.NoError(t, err)
	require.Len(t, traces, 5)

	out := filepath.Join(t.TempDir(), "traces.json")
	require.NoError(t, NewFileSaver().SaveResults(traces, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]savedTrace
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 5)

	hybrid := decoded[string(backtest.VariantHybrid)]
	assert.Equal(t, string(backtest.VariantHybrid), hybrid.Variant)
	assert.Len(t, hybrid.Values, 61) // 80 steps minus the 20-step warmup, plus start
	assert.Len(t, hybrid.Returns, 60)
}
