// engine.go
package backtest

import (
	"github.com/rs/zerolog"

	"swarmbt/internal"
	"swarmbt/internal/combiner"
	"swarmbt/internal/indicator"
	"swarmbt/internal/optimizer"
	"swarmbt/internal/predictor"
	"swarmbt/internal/regime"
)

// Variant selects which sleeves drive the allocation, so the same engine
// supports comparative backtests.
type Variant string

const (
	VariantHybrid        Variant = "hybrid"
	VariantMACDOnly      Variant = "macd_only"
	VariantPredictorOnly Variant = "predictor_only"
	VariantOptimizer     Variant = "optimizer"
	VariantEqualWeight   Variant = "equal_weight"
)

type Config struct {
	Variant             Variant `yaml:"variant"`
	WindowSize          int     `yaml:"window_size"`
	MaxPosition         float64 `yaml:"max_position"`
	CashAllocation      float64 `yaml:"cash_allocation"` // baseline cash when regime detection is off
	TransactionCostRate float64 `yaml:"transaction_cost_rate"`
	ReturnClamp         float64 `yaml:"return_clamp"` // circuit breaker on per-step returns
	RiskAversion        float64 `yaml:"risk_aversion"`
	UseRegimeDetection  bool    `yaml:"use_regime_detection"`
}

func DefaultConfig() Config {
	return Config{
		Variant:             VariantHybrid,
		WindowSize:          20,
		MaxPosition:         0.20,
		CashAllocation:      0.05,
		TransactionCostRate: 0.001,
		ReturnClamp:         0.10,
		RiskAversion:        0.1,
		UseRegimeDetection:  true,
	}
}

func (c *Config) Validate() error {
	if c.WindowSize < 2 {
		return internal.InputErrorf("backtest: window size must be at least 2")
	}
	if c.MaxPosition <= 0 || c.MaxPosition > 1 {
		return internal.InputErrorf("backtest: max position must be in (0, 1]")
	}
	if c.CashAllocation < 0 || c.CashAllocation >= 1 {
		return internal.InputErrorf("backtest: cash allocation must be in [0, 1)")
	}
	if c.TransactionCostRate < 0 {
		return internal.InputErrorf("backtest: transaction cost rate must be non-negative")
	}
	if c.ReturnClamp <= 0 {
		return internal.InputErrorf("backtest: return clamp must be positive")
	}
	return nil
}

// Result is the complete trace of one backtest: the equity curve, per-step
// allocations and statistics, and summary metrics. The curve is always
// complete; degraded steps are counted, never fatal.
type Result struct {
	Variant        Variant
	Values         []float64 // portfolio value, length steps+1
	Returns        []float64 // realized per-step returns, post cost and clamp
	Allocations    []internal.Allocation
	Turnovers      []float64
	Concentrations []float64
	DegradedSteps  int
	Metrics        Metrics
}

// Engine owns all mutable simulation state and drives the walk-forward loop.
// Sleeves it does not need for the selected variant may be nil.
type Engine struct {
	cfg        Config
	matrix     *internal.ReturnMatrix
	source     indicator.SignalSource
	pred       predictor.WeightPredictor
	swarm      *optimizer.Swarm
	classifier *regime.Classifier
	comb       *combiner.Combiner
	logger     zerolog.Logger
}

func NewEngine(
	cfg Config,
	matrix *internal.ReturnMatrix,
	source indicator.SignalSource,
	pred predictor.WeightPredictor,
	swarm *optimizer.Swarm,
	classifier *regime.Classifier,
	comb *combiner.Combiner,
	logger zerolog.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if matrix == nil {
		return nil, internal.InputErrorf("backtest: return matrix is required")
	}
	if cfg.WindowSize >= matrix.Steps() {
		return nil, internal.InputErrorf("backtest: window size %d >= steps %d", cfg.WindowSize, matrix.Steps())
	}
	switch cfg.Variant {
	case VariantHybrid:
		if source == nil || pred == nil || comb == nil {
			return nil, internal.InputErrorf("backtest: hybrid variant needs signal source, predictor, and combiner")
		}
	case VariantMACDOnly:
		if source == nil {
			return nil, internal.InputErrorf("backtest: macd_only variant needs a signal source")
		}
	case VariantPredictorOnly:
		if pred == nil {
			return nil, internal.InputErrorf("backtest: predictor_only variant needs a predictor")
		}
	case VariantOptimizer:
		if swarm == nil {
			return nil, internal.InputErrorf("backtest: optimizer variant needs a swarm optimizer")
		}
	case VariantEqualWeight:
	default:
		return nil, internal.InputErrorf("backtest: unknown variant %q", cfg.Variant)
	}
	return &Engine{
		cfg:        cfg,
		matrix:     matrix,
		source:     source,
		pred:       pred,
		swarm:      swarm,
		classifier: classifier,
		comb:       comb,
		logger:     logger.With().Str("variant", string(cfg.Variant)).Logger(),
	}, nil
}

// Run replays the allocation sequence over the return matrix. The loop is
// strictly sequential: each step's cost depends on the previous allocation.
func (e *Engine) Run() (*Result, error) {
	steps := e.matrix.Steps()
	n := e.matrix.Assets()
	iterations := steps - e.cfg.WindowSize

	res := &Result{
		Variant:        e.cfg.Variant,
		Values:         make([]float64, 0, iterations+1),
		Returns:        make([]float64, 0, iterations),
		Allocations:    make([]internal.Allocation, 0, iterations),
		Turnovers:      make([]float64, 0, iterations),
		Concentrations: make([]float64, 0, iterations),
	}

	value := 1.0
	res.Values = append(res.Values, value)
	prev := make(internal.Allocation, n)
	var hist *combiner.PerformanceHistory
	if e.comb != nil {
		hist = e.comb.NewHistory()
	}

	for t := e.cfg.WindowSize; t < steps; t++ {
		alloc, macdAlloc, predAlloc, degraded := e.stepAllocation(t, hist)
		alloc = internal.Reproject(alloc, e.cfg.MaxPosition)

		next := e.matrix.Column(t)
		gross := dot(alloc, next)

		turnover := internal.Turnover(prev, alloc)
		cost := turnover * e.cfg.TransactionCostRate
		if degraded {
			// Safest fallback: no rebalancing cost charged on degraded steps.
			cost = 0
			res.DegradedSteps++
		}

		realized := internal.Clamp(gross-cost, -e.cfg.ReturnClamp, e.cfg.ReturnClamp)
		value *= 1 + realized

		if hist != nil && macdAlloc != nil && predAlloc != nil {
			hist.Record(dot(macdAlloc, next), dot(predAlloc, next))
		}

		res.Values = append(res.Values, value)
		res.Returns = append(res.Returns, realized)
		res.Allocations = append(res.Allocations, alloc)
		res.Turnovers = append(res.Turnovers, turnover)
		res.Concentrations = append(res.Concentrations, alloc.Concentration())
		prev = alloc
	}

	res.Metrics = ComputeMetrics(res.Values, res.Returns, res.Turnovers, res.Concentrations)
	if res.DegradedSteps > 0 {
		e.logger.Warn().Int("degraded_steps", res.DegradedSteps).Msg("backtest completed with degraded steps")
	}
	return res, nil
}

// stepAllocation produces the allocation for step t from data before t only.
// Any panic inside a step degrades it to scaled equal weights; the backtest
// always produces a complete equity curve.
func (e *Engine) stepAllocation(t int, hist *combiner.PerformanceHistory) (alloc, macdAlloc, predAlloc internal.Allocation, degraded bool) {
	invested := 1 - e.cfg.CashAllocation
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Interface("panic", r).Int("step", t).Msg("step failed, degrading to equal weights")
			alloc = internal.EqualWeights(e.matrix.Assets()).Scale(invested).Cap(e.cfg.MaxPosition)
			macdAlloc, predAlloc = nil, nil
			degraded = true
		}
	}()

	switch e.cfg.Variant {
	case VariantEqualWeight:
		alloc = internal.EqualWeights(e.matrix.Assets()).Scale(invested).Cap(e.cfg.MaxPosition)
		return alloc, nil, nil, false

	case VariantOptimizer:
		alloc = e.optimizerAllocation(t, invested)
		return alloc, nil, nil, false

	case VariantMACDOnly:
		macdAlloc = e.macdSleeve(t)
		alloc = macdAlloc.NormalizeTo(invested, e.cfg.MaxPosition)
		return alloc, macdAlloc, nil, false

	case VariantPredictorOnly:
		predAlloc = e.predictorSleeve(t)
		alloc = predAlloc.NormalizeTo(invested, e.cfg.MaxPosition)
		return alloc, nil, predAlloc, false
	}

	// Hybrid: technical sleeve + predictor sleeve under the regime split.
	macdAlloc = e.macdSleeve(t)
	predAlloc = e.predictorSleeve(t)
	rw := e.regimeWeights(t)
	alloc = e.comb.Combine(macdAlloc, predAlloc, rw, hist)
	return alloc, macdAlloc, predAlloc, false
}

// macdSleeve reads the signal source at step t. Signal arrays are computed
// wholesale but causally, so indexing at t never sees future data. A
// degenerate sleeve falls back to a 90% equal-weight book; an
// over-concentrated one is scaled down to 95%, so a cash buffer remains.
func (e *Engine) macdSleeve(t int) internal.Allocation {
	w := e.source.WeightsAt(t, e.cfg.MaxPosition)
	sum := w.Sum()
	switch {
	case sum < 0.1:
		return internal.EqualWeights(len(w)).Scale(0.9).Cap(e.cfg.MaxPosition)
	case sum > 0.95:
		return w.Scale(0.95 / sum)
	default:
		return w
	}
}

// predictorSleeve queries the external weight predictor on the normalized
// feature window. Failures and degenerate outputs substitute equal weights,
// never propagate.
func (e *Engine) predictorSleeve(t int) internal.Allocation {
	n := e.matrix.Assets()
	window := e.matrix.Window(t, e.cfg.WindowSize)
	features := predictor.FeatureWindow(window)
	raw, err := e.pred.Predict(features)
	if err != nil {
		e.logger.Warn().Err(err).Int("step", t).Msg("predictor unavailable, using equal weights")
		return internal.EqualWeights(n)
	}
	alloc, ok := predictor.Sanitize(raw)
	if !ok {
		e.logger.Warn().Int("step", t).Msg("predictor returned non-positive weights, using equal weights")
		return internal.EqualWeights(n)
	}
	return alloc
}

func (e *Engine) regimeWeights(t int) regime.Weights {
	if e.cfg.UseRegimeDetection && e.classifier != nil {
		return e.classifier.Classify(e.matrix.Window(t, e.cfg.WindowSize)).Weights
	}
	invested := 1 - e.cfg.CashAllocation
	return regime.Weights{
		MACD:      invested / 2,
		Predictor: invested / 2,
		Cash:      e.cfg.CashAllocation,
	}
}

// optimizerAllocation runs the swarm on trailing mean/variance estimates.
func (e *Engine) optimizerAllocation(t int, invested float64) internal.Allocation {
	window := e.matrix.Window(t, e.cfg.WindowSize)
	mu := make([]float64, len(window))
	variance := make([]float64, len(window))
	for i, row := range window {
		mean, std := internal.MeanStd(row)
		mu[i] = mean
		variance[i] = std * std
	}
	w, err := e.swarm.Optimize(mu, variance, e.cfg.RiskAversion)
	if err != nil {
		e.logger.Warn().Err(err).Int("step", t).Msg("optimizer failed, using inverse variance")
		w = optimizer.InverseVariance(variance)
	}
	return w.NormalizeTo(invested, e.cfg.MaxPosition)
}

func dot(a internal.Allocation, returns []float64) float64 {
	sum := 0.0
	for i, w := range a {
		sum += w * returns[i]
	}
	return sum
}
