// fallback.go
package optimizer

import (
	"math"

	"swarmbt/internal"
)

const varEps = 1e-10

// InverseVariance weights assets by 1/variance, the stability fallback when
// the swarm search misbehaves.
func InverseVariance(variance []float64) internal.Allocation {
	w := make(internal.Allocation, len(variance))
	sum := 0.0
	for i, v := range variance {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		w[i] = 1 / (v + varEps)
		sum += w[i]
	}
	if sum <= 0 {
		return internal.EqualWeights(len(variance))
	}
	return w.Scale(1 / sum)
}

// enumeratePair grid-searches the two-asset simplex slice exactly.
func enumeratePair(mu, variance []float64, alpha float64) internal.Allocation {
	const step = 0.001
	best := internal.Allocation{0.5, 0.5}
	bestCost := Cost(best, mu, variance, alpha)
	for w0 := 0.0; w0 <= 1.0+1e-12; w0 += step {
		cand := internal.Allocation{w0, 1 - w0}
		if c := Cost(cand, mu, variance, alpha); c < bestCost {
			bestCost = c
			best = cand
		}
	}
	return best
}

// inverseVarianceTilt handles 3-5 assets: inverse-variance base weights with
// a multiplicative expected-return tilt, bounded below so a negative drift
// never zeroes an asset outright.
func inverseVarianceTilt(mu, variance []float64, alpha float64) internal.Allocation {
	w := make(internal.Allocation, len(mu))
	sum := 0.0
	for i := range mu {
		base := 1 / (variance[i] + varEps)
		tilt := 1 + alpha*mu[i]/(variance[i]+varEps)
		if tilt < 0.1 {
			tilt = 0.1
		}
		w[i] = base * tilt
		sum += w[i]
	}
	if sum <= 0 {
		return internal.EqualWeights(len(mu))
	}
	return w.Scale(1 / sum)
}
