package backtester

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swarmbt/internal"
	"swarmbt/internal/backtest"
	"swarmbt/internal/combiner"
	"swarmbt/internal/indicator"
	"swarmbt/internal/optimizer"
	"swarmbt/internal/predictor"
	"swarmbt/internal/regime"
)

// VariantRunner builds a fresh engine per variant and runs the configured
// variants in parallel. Each engine owns its own RNG and classifier, so
// concurrent variants never share mutable state and results stay
// reproducible for a fixed seed.
type VariantRunner struct {
	cfg     Config
	printer ResultPrinter
	logger  zerolog.Logger
}

func NewVariantRunner(cfg Config, printer ResultPrinter, logger zerolog.Logger) *VariantRunner {
	if printer == nil {
		printer = NewConsolePrinter()
	}
	return &VariantRunner{cfg: cfg, printer: printer, logger: logger}
}

// RunVariant runs a single backtest variant over the matrix.
func (r *VariantRunner) RunVariant(matrix *internal.ReturnMatrix, variant backtest.Variant) (*VariantResult, error) {
	result, err := r.runTrace(matrix, variant)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunAllVariants fans the configured variants out over goroutines and
// returns one comparison row per variant.
func (r *VariantRunner) RunAllVariants(matrix *internal.ReturnMatrix) ([]VariantResult, error) {
	variants := r.cfg.Variants
	resultsChan := make(chan VariantResult, len(variants))
	var wg sync.WaitGroup

	for _, name := range variants {
		wg.Add(1)
		go func(variant backtest.Variant) {
			defer wg.Done()
			res, err := r.runTrace(matrix, variant)
			if err != nil {
				r.logger.Error().Err(err).Str("variant", string(variant)).Msg("variant failed")
				return
			}
			resultsChan <- *res
		}(backtest.Variant(name))
	}
	wg.Wait()
	close(resultsChan)

	results := make([]VariantResult, 0, len(variants))
	for res := range resultsChan {
		results = append(results, res)
	}
	if r.printer != nil {
		r.printer.PrintComparison(results)
	}
	return results, nil
}

// RunTraces runs every configured variant and keeps the full per-step
// traces, for saving.
func (r *VariantRunner) RunTraces(matrix *internal.ReturnMatrix) (map[string]*backtest.Result, error) {
	traces := make(map[string]*backtest.Result, len(r.cfg.Variants))
	for _, name := range r.cfg.Variants {
		engine, err := r.buildEngine(matrix, backtest.Variant(name))
		if err != nil {
			return nil, err
		}
		res, err := engine.Run()
		if err != nil {
			return nil, err
		}
		traces[name] = res
	}
	return traces, nil
}

func (r *VariantRunner) runTrace(matrix *internal.ReturnMatrix, variant backtest.Variant) (*VariantResult, error) {
	start := time.Now()
	engine, err := r.buildEngine(matrix, variant)
	if err != nil {
		return nil, err
	}
	res, err := engine.Run()
	if err != nil {
		return nil, err
	}
	return &VariantResult{
		Name:          string(variant),
		Metrics:       res.Metrics,
		DegradedSteps: res.DegradedSteps,
		ExecutionTime: time.Since(start),
	}, nil
}

func (r *VariantRunner) buildEngine(matrix *internal.ReturnMatrix, variant backtest.Variant) (*backtest.Engine, error) {
	btCfg := r.cfg.Backtest
	btCfg.Variant = variant

	source, err := r.buildSource(matrix)
	if err != nil {
		return nil, err
	}

	pred, err := r.buildPredictor(matrix)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(r.cfg.Seed))
	swarm, err := optimizer.New(r.cfg.Optimizer, rng, r.logger)
	if err != nil {
		return nil, err
	}

	classifier := regime.NewClassifier(r.cfg.Regime, r.logger)
	comb, err := combiner.New(r.cfg.Combiner, r.logger)
	if err != nil {
		return nil, err
	}

	return backtest.NewEngine(btCfg, matrix, source, pred, swarm, classifier, comb, r.logger)
}

// buildSource constructs the signal source from the loaded config blocks.
// The built-in sources take their configured parameters; anything else is
// resolved through the registry with its registered defaults.
func (r *VariantRunner) buildSource(matrix *internal.ReturnMatrix) (indicator.SignalSource, error) {
	prices := matrix.Prices()
	switch r.cfg.SignalSource {
	case "macd":
		return indicator.NewMACDSource(prices, r.cfg.MACD)
	case "enhanced_macd":
		return indicator.NewEnhancedMACDSource(prices, nil, r.cfg.Enhanced)
	case "rsi":
		return indicator.NewRSISource(prices, r.cfg.RSI)
	default:
		factory, ok := indicator.Get(r.cfg.SignalSource)
		if !ok {
			return nil, internal.InputErrorf("unknown signal source %q (have %v)", r.cfg.SignalSource, indicator.Names())
		}
		return factory(prices)
	}
}

func (r *VariantRunner) buildPredictor(matrix *internal.ReturnMatrix) (predictor.WeightPredictor, error) {
	if r.cfg.ModelPath == "" {
		return &predictor.EqualWeight{Assets: matrix.Assets()}, nil
	}
	return predictor.NewXGB(r.cfg.ModelPath, matrix.Assets(), r.cfg.Backtest.WindowSize)
}
