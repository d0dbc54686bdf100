package optimizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmbt/internal"
)

func newTestSwarm(t *testing.T, seed int64) *Swarm {
	t.Helper()
	s, err := New(DefaultConfig(), rand.New(rand.NewSource(seed)), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewRequiresRNG(t *testing.T) {
	_, err := New(DefaultConfig(), nil, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, internal.IsInputError(err))

	cfg := DefaultConfig()
	cfg.Particles = 0
	_, err = New(cfg, rand.New(rand.NewSource(1)), zerolog.Nop())
	require.Error(t, err)
}

func TestOptimizeInputValidation(t *testing.T) {
	s := newTestSwarm(t, 1)

	_, err := s.Optimize(nil, nil, 0.1)
	assert.True(t, internal.IsInputError(err))

	_, err = s.Optimize([]float64{0.01, 0.02}, []float64{0.001}, 0.1)
	assert.True(t, internal.IsInputError(err))

	_, err = s.Optimize([]float64{math.NaN()}, []float64{0.001}, 0.1)
	assert.True(t, internal.IsInputError(err))

	_, err = s.Optimize([]float64{0.01}, []float64{-0.001}, 0.1)
	assert.True(t, internal.IsInputError(err))
}

func TestOptimizeSingleAsset(t *testing.T) {
	s := newTestSwarm(t, 1)
	w, err := s.Optimize([]float64{0.01}, []float64{0.001}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, internal.Allocation{1}, w)
}

func TestOptimizePairPrefersLowVariance(t *testing.T) {
	s := newTestSwarm(t, 1)
	// Equal drift: the exact grid search lands on w0 = v1/(v0+v1) ~ 0.99,
	// and the dust cutoff then pushes the residual to zero.
	w, err := s.Optimize([]float64{0.01, 0.01}, []float64{0.0001, 0.01}, 0.1)
	require.NoError(t, err)
	assert.Greater(t, w[0], 0.9)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestOptimizeSmallUniverseTilt(t *testing.T) {
	s := newTestSwarm(t, 1)
	mu := []float64{0.002, 0, 0, 0, 0}
	variance := []float64{1e-4, 1e-4, 1e-4, 1e-4, 1e-4}

	w, err := s.Optimize(mu, variance, 0.1)
	require.NoError(t, err)

	// Equal base weights, tilt 1 + 0.1*0.002/1e-4 = 3 on the drift asset.
	assert.InDelta(t, 3.0/7.0, w[0], 1e-3)
	for i := 1; i < 5; i++ {
		assert.InDelta(t, 1.0/7.0, w[i], 1e-3)
	}
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestOptimizeSwarmConstraints(t *testing.T) {
	s := newTestSwarm(t, 42)
	n := 8
	mu := make([]float64, n)
	variance := make([]float64, n)
	for i := range mu {
		mu[i] = 0.001 * float64(i%3)
		variance[i] = 1e-4 * float64(i+1)
	}

	w, err := s.Optimize(mu, variance, 0.1)
	require.NoError(t, err)
	require.Len(t, []float64(w), n)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	for _, v := range w {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0+1e-9)
	}
}

func TestOptimizeDeterministicWithFixedSeed(t *testing.T) {
	n := 10
	mu := make([]float64, n)
	variance := make([]float64, n)
	for i := range mu {
		mu[i] = 0.0005 * float64(i)
		variance[i] = 2e-4
	}

	a, err := newTestSwarm(t, 7).Optimize(mu, variance, 0.1)
	require.NoError(t, err)
	b, err := newTestSwarm(t, 7).Optimize(mu, variance, 0.1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCostPenalizesInfeasible(t *testing.T) {
	mu := []float64{0.01, 0.01}
	variance := []float64{0.001, 0.001}

	assert.True(t, math.IsInf(Cost([]float64{-0.1, 0.5}, mu, variance, 0.1), 1))
	assert.True(t, math.IsInf(Cost([]float64{1.2, 0}, mu, variance, 0.1), 1))
	assert.True(t, math.IsInf(Cost([]float64{0.6, 0.6}, mu, variance, 0.1), 1))
	assert.False(t, math.IsInf(Cost([]float64{0.5, 0.5}, mu, variance, 0.1), 1))
}

func TestInverseVariance(t *testing.T) {
	w := InverseVariance([]float64{1e-4, 1e-2})
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Greater(t, w[0], 0.98)

	// Garbage variances degrade to near-equal weights instead of NaN.
	w = InverseVariance([]float64{math.NaN(), math.Inf(1)})
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.InDelta(t, 0.5, w[0], 1e-6)
}
