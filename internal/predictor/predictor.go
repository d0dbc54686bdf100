// predictor.go
package predictor

import (
	"swarmbt/internal"
)

// WeightPredictor maps a normalized feature window to raw per-asset scores.
// Scores may be negative or non-normalized; the consumer clips and
// renormalizes. Implementations live outside the core engine; the engine
// only consumes this interface.
type WeightPredictor interface {
	Predict(features []float64) ([]float64, error)
}

const normEps = 1e-10

// FeatureWindow flattens an [assets][window] return slice asset-major and
// z-scores it over the whole vector: (x - mean) / (std + 1e-10).
func FeatureWindow(window [][]float64) []float64 {
	if len(window) == 0 {
		return nil
	}
	size := len(window[0])
	flat := make([]float64, 0, len(window)*size)
	for _, row := range window {
		flat = append(flat, row...)
	}
	mean, std := internal.MeanStd(flat)
	for i := range flat {
		flat[i] = (flat[i] - mean) / (std + normEps)
	}
	return flat
}

// Sanitize clips raw scores to non-negative and renormalizes to sum 1.
// ok is false when the clipped sum is not positive (a degenerate result the
// caller must substitute).
func Sanitize(raw []float64) (internal.Allocation, bool) {
	w := make(internal.Allocation, len(raw))
	sum := 0.0
	for i, v := range raw {
		if v > 0 && isFinite(v) {
			w[i] = v
			sum += v
		}
	}
	if sum <= 0 {
		return w, false
	}
	return w.Scale(1 / sum), true
}

func isFinite(x float64) bool {
	return x == x && x < 1e308 && x > -1e308
}

// EqualWeight is the baseline predictor: equal scores regardless of input.
type EqualWeight struct {
	Assets int
}

func (p *EqualWeight) Predict([]float64) ([]float64, error) {
	return internal.EqualWeights(p.Assets), nil
}

// Static always returns a fixed score vector; used for tests and for
// pinning a sleeve in comparative runs.
type Static struct {
	Scores []float64
}

func (p *Static) Predict([]float64) ([]float64, error) {
	return append([]float64(nil), p.Scores...), nil
}
