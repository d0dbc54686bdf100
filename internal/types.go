// types.go
package internal

import "math"

type SignalType int

const (
	HOLD SignalType = iota
	BUY
	SELL
)

func (s SignalType) String() string {
	return [...]string{"HOLD", "BUY", "SELL"}[s]
}

// Allocation is a non-negative weight vector over assets. The mass not
// allocated (1 - Sum) is implicit cash. Allocations are never mutated in
// place; every transformation returns a fresh vector.
type Allocation []float64

func (a Allocation) Sum() float64 {
	sum := 0.0
	for _, w := range a {
		sum += w
	}
	return sum
}

func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	copy(out, a)
	return out
}

// Concentration is the Herfindahl index sum(w_i^2).
func (a Allocation) Concentration() float64 {
	c := 0.0
	for _, w := range a {
		c += w * w
	}
	return c
}

// Scale returns a copy with every weight multiplied by f.
func (a Allocation) Scale(f float64) Allocation {
	out := make(Allocation, len(a))
	for i, w := range a {
		out[i] = w * f
	}
	return out
}

// Cap returns a copy with every weight clamped to [0, maxPosition].
func (a Allocation) Cap(maxPosition float64) Allocation {
	out := make(Allocation, len(a))
	for i, w := range a {
		switch {
		case w < 0:
			out[i] = 0
		case w > maxPosition:
			out[i] = maxPosition
		default:
			out[i] = w
		}
	}
	return out
}

// NormalizeTo rescales the allocation so it sums to target, respecting the
// per-asset cap. Overflow above the cap is redistributed among uncapped
// assets; when every asset is capped the remainder stays in cash. A zero-sum
// input falls back to capped equal weights.
func (a Allocation) NormalizeTo(target, maxPosition float64) Allocation {
	n := len(a)
	if n == 0 || target <= 0 {
		return make(Allocation, n)
	}
	out := a.Cap(maxPosition)
	if out.Sum() <= 0 {
		eq := math.Min(target/float64(n), maxPosition)
		for i := range out {
			out[i] = eq
		}
		return out
	}
	for round := 0; round < n; round++ {
		sum := out.Sum()
		if sum <= 0 || math.Abs(sum-target) < 1e-12 {
			break
		}
		if sum > target {
			out = out.Scale(target / sum)
			break
		}
		// Scale up only the uncapped assets, then re-cap.
		free := 0.0
		for _, w := range out {
			if w < maxPosition-1e-12 {
				free += w
			}
		}
		if free <= 0 {
			break
		}
		factor := 1 + (target-sum)/free
		next := make(Allocation, n)
		for i, w := range out {
			if w < maxPosition-1e-12 {
				next[i] = math.Min(w*factor, maxPosition)
			} else {
				next[i] = w
			}
		}
		out = next
	}
	return out
}

// EqualWeights returns 1/n for each of n assets.
func EqualWeights(n int) Allocation {
	a := make(Allocation, n)
	if n == 0 {
		return a
	}
	w := 1.0 / float64(n)
	for i := range a {
		a[i] = w
	}
	return a
}

// Turnover is half the L1 distance between consecutive allocations, always
// in [0, 1] for simplex-bounded vectors.
func Turnover(prev, cur Allocation) float64 {
	n := len(cur)
	l1 := 0.0
	for i := 0; i < n; i++ {
		p := 0.0
		if i < len(prev) {
			p = prev[i]
		}
		l1 += math.Abs(cur[i] - p)
	}
	for i := n; i < len(prev); i++ {
		l1 += math.Abs(prev[i])
	}
	return l1 / 2
}

// Reproject defensively restores the simplex/cap invariant on an allocation
// that should already satisfy it. Production code calls this instead of
// letting a constraint violation reach a caller.
func Reproject(a Allocation, maxPosition float64) Allocation {
	out := a.Cap(maxPosition)
	if sum := out.Sum(); sum > 1 {
		out = out.Scale(1 / sum)
	}
	return out
}
