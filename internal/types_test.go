package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnoverBounds(t *testing.T) {
	cases := []struct {
		name string
		prev Allocation
		cur  Allocation
		want float64
	}{
		{"no change", Allocation{0.5, 0.5}, Allocation{0.5, 0.5}, 0},
		{"full rotation", Allocation{1, 0}, Allocation{0, 1}, 1},
		{"from empty", Allocation{0, 0}, Allocation{0.5, 0.5}, 0.5},
		{"partial", Allocation{0.6, 0.4}, Allocation{0.4, 0.6}, 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Turnover(tc.prev, tc.cur)
			assert.InDelta(t, tc.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestNormalizeToRespectsCap(t *testing.T) {
	a := Allocation{0.3, 0.3, 0.2, 0.1, 0.1}
	out := a.NormalizeTo(1.0, 0.2)
	assert.InDelta(t, 1.0, out.Sum(), 1e-9)
	for _, w := range out {
		assert.LessOrEqual(t, w, 0.2+1e-9)
		assert.GreaterOrEqual(t, w, 0.0)
	}
}

func TestNormalizeToAllCapped(t *testing.T) {
	// Cap binds everywhere: the target cannot be reached, remainder is cash.
	a := Allocation{1, 0, 0}
	out := a.NormalizeTo(1.0, 0.2)
	assert.InDelta(t, 0.2, out[0], 1e-9)
	assert.LessOrEqual(t, out.Sum(), 1.0+1e-9)
}

func TestNormalizeToZeroSumFallsBackToEqual(t *testing.T) {
	a := Allocation{0, 0, 0, 0}
	out := a.NormalizeTo(0.9, 0.5)
	for _, w := range out {
		assert.InDelta(t, 0.225, w, 1e-9)
	}
}

func TestReproject(t *testing.T) {
	a := Allocation{0.5, 0.7, -0.1}
	out := Reproject(a, 0.4)
	assert.LessOrEqual(t, out.Sum(), 1.0+1e-9)
	for _, w := range out {
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 0.4+1e-9)
	}
}

func TestNewReturnMatrixValidation(t *testing.T) {
	_, err := NewReturnMatrix(nil)
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	_, err = NewReturnMatrix([][]float64{{0.01, 0.02}, {0.01}})
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	bad := [][]float64{{0.01, math.NaN()}}
	_, err = NewReturnMatrix(bad)
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	m, err := NewReturnMatrix([][]float64{{0.01, 0.02}, {-0.01, 0.0}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Assets())
	assert.Equal(t, 2, m.Steps())
	assert.Equal(t, []float64{0.01, -0.01}, m.Column(0))
}

func TestReturnMatrixPrices(t *testing.T) {
	m, err := NewReturnMatrix([][]float64{{0.1, -0.5}})
	require.NoError(t, err)
	p := m.Prices()[0]
	assert.InDelta(t, 1.0, p[0], 1e-12)
	assert.InDelta(t, 1.1, p[1], 1e-12)
	assert.InDelta(t, 0.55, p[2], 1e-12)
}
