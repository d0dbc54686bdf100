package predictor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureWindowZScore(t *testing.T) {
	window := [][]float64{
		{0.01, 0.02, 0.03},
		{-0.01, 0.0, 0.01},
	}
	flat := FeatureWindow(window)
	require.Len(t, flat, 6)

	// Asset-major flattening preserves row order.
	assert.Greater(t, flat[2], flat[0]) // 0.03 vs 0.01
	assert.Less(t, flat[3], flat[4])    // -0.01 vs 0.0

	// Global z-score: mean ~0, population std ~1.
	mean, std := 0.0, 0.0
	for _, v := range flat {
		mean += v
	}
	mean /= float64(len(flat))
	for _, v := range flat {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(flat)))
	assert.InDelta(t, 0.0, mean, 1e-9)
	assert.InDelta(t, 1.0, std, 1e-6)
}

func TestFeatureWindowConstantInput(t *testing.T) {
	// Zero variance must not divide by zero.
	flat := FeatureWindow([][]float64{{0.01, 0.01}, {0.01, 0.01}})
	for _, v := range flat {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
	assert.Nil(t, FeatureWindow(nil))
}

func TestSanitize(t *testing.T) {
	w, ok := Sanitize([]float64{2, -1, 1, math.NaN()})
	require.True(t, ok)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.InDelta(t, 2.0/3.0, w[0], 1e-12)
	assert.Equal(t, 0.0, w[1])
	assert.InDelta(t, 1.0/3.0, w[2], 1e-12)
	assert.Equal(t, 0.0, w[3])
}

func TestSanitizeDegenerate(t *testing.T) {
	_, ok := Sanitize([]float64{-1, 0, math.Inf(1)})
	assert.False(t, ok)

	_, ok = Sanitize(nil)
	assert.False(t, ok)
}

func TestEqualWeightPredictor(t *testing.T) {
	p := &EqualWeight{Assets: 4}
	scores, err := p.Predict(nil)
	require.NoError(t, err)
	require.Len(t, scores, 4)
	for _, s := range scores {
		assert.InDelta(t, 0.25, s, 1e-12)
	}
}

func TestStaticPredictorCopies(t *testing.T) {
	p := &Static{Scores: []float64{0.7, 0.3}}
	a, err := p.Predict(nil)
	require.NoError(t, err)
	a[0] = 99
	b, err := p.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.7, 0.3}, b)
}
