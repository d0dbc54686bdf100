// source.go
package indicator

import (
	"sort"

	"swarmbt/internal"
)

// SignalSource exposes per-asset signals and a derived sleeve allocation for
// a fixed multi-asset price history. Implementations precompute signals
// wholesale at construction; SignalsAt/WeightsAt are read-only lookups.
type SignalSource interface {
	Name() string
	SignalsAt(step int) []internal.SignalType
	WeightsAt(step int, maxPosition float64) internal.Allocation
}

// Factory builds a SignalSource from per-asset price paths.
type Factory func(prices [][]float64) (SignalSource, error)

var sources = make(map[string]Factory)

func Register(name string, f Factory) {
	sources[name] = f
}

func Get(name string) (Factory, bool) {
	f, ok := sources[name]
	return f, ok
}

func Names() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// matrixSource holds wholesale-computed signals for every asset. Position
// state per asset runs from a BUY step until the next SELL step.
type matrixSource struct {
	name     string
	signals  [][]internal.SignalType // [asset][step]
	strength [][]float64             // optional, [asset][step]
	active   [][]bool                // [asset][step]
	steps    int
}

func newMatrixSource(name string, signals [][]internal.SignalType, strength [][]float64) *matrixSource {
	s := &matrixSource{name: name, signals: signals, strength: strength}
	if len(signals) > 0 {
		s.steps = len(signals[0])
	}
	s.active = make([][]bool, len(signals))
	for a, sigs := range signals {
		held := make([]bool, len(sigs))
		in := false
		for t, sig := range sigs {
			switch sig {
			case internal.BUY:
				in = true
			case internal.SELL:
				in = false
			}
			held[t] = in
		}
		s.active[a] = held
	}
	return s
}

func (s *matrixSource) Name() string {
	return s.name
}

func (s *matrixSource) SignalsAt(step int) []internal.SignalType {
	out := make([]internal.SignalType, len(s.signals))
	if step < 0 || step >= s.steps {
		return out
	}
	for a := range s.signals {
		out[a] = s.signals[a][step]
	}
	return out
}

// WeightsAt splits the sleeve across assets currently held, proportional to
// signal strength when available, then caps each position. The cap is not
// re-filled: capped overflow stays in cash.
func (s *matrixSource) WeightsAt(step int, maxPosition float64) internal.Allocation {
	n := len(s.signals)
	w := make(internal.Allocation, n)
	if step < 0 || step >= s.steps {
		return w
	}
	sum := 0.0
	for a := 0; a < n; a++ {
		if !s.active[a][step] {
			continue
		}
		v := 1.0
		if s.strength != nil && s.strength[a][step] > 0 {
			v = s.strength[a][step]
		}
		w[a] = v
		sum += v
	}
	if sum <= 0 {
		return w
	}
	for a := range w {
		w[a] /= sum
	}
	return w.Cap(maxPosition)
}

// NewMACDSource computes plain MACD crossover signals for every asset.
func NewMACDSource(prices [][]float64, cfg MACDConfig) (SignalSource, error) {
	signals := make([][]internal.SignalType, len(prices))
	strength := make([][]float64, len(prices))
	for a, series := range prices {
		res, err := ComputeMACD(series, cfg)
		if err != nil {
			return nil, err
		}
		signals[a] = res.Signals
		strength[a] = res.Strength
	}
	return newMatrixSource("macd", signals, strength), nil
}

// NewEnhancedMACDSource computes filtered MACD signals; volumes may be nil,
// in which case volume confirmation is skipped.
func NewEnhancedMACDSource(prices, volumes [][]float64, cfg EnhancedMACDConfig) (SignalSource, error) {
	signals := make([][]internal.SignalType, len(prices))
	strength := make([][]float64, len(prices))
	for a, series := range prices {
		var vol []float64
		if volumes != nil {
			vol = volumes[a]
		}
		res, err := ComputeEnhancedMACD(series, vol, cfg)
		if err != nil {
			return nil, err
		}
		signals[a] = res.Signals
		strength[a] = res.Strength
	}
	return newMatrixSource("enhanced_macd", signals, strength), nil
}

// NewRSISource computes RSI overbought/oversold signals for every asset.
func NewRSISource(prices [][]float64, cfg RSIConfig) (SignalSource, error) {
	signals := make([][]internal.SignalType, len(prices))
	for a, series := range prices {
		sigs, _, err := ComputeRSI(series, cfg)
		if err != nil {
			return nil, err
		}
		signals[a] = sigs
	}
	return newMatrixSource("rsi", signals, nil), nil
}

func init() {
	Register("macd", func(prices [][]float64) (SignalSource, error) {
		return NewMACDSource(prices, DefaultMACDConfig())
	})
	Register("enhanced_macd", func(prices [][]float64) (SignalSource, error) {
		return NewEnhancedMACDSource(prices, nil, DefaultEnhancedMACDConfig())
	})
	Register("rsi", func(prices [][]float64) (SignalSource, error) {
		return NewRSISource(prices, DefaultRSIConfig())
	})
}
