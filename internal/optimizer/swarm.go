// swarm.go
package optimizer

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"swarmbt/internal"
)

type Config struct {
	Particles  int     `yaml:"particles"`   // swarm size, 100-500
	Iterations int     `yaml:"iterations"`  // velocity/position updates
	Inertia    float64 `yaml:"inertia"`     // velocity damping
	Phi1Max    float64 `yaml:"phi1_max"`    // personal-best pull, U[0, max]
	Phi2Max    float64 `yaml:"phi2_max"`    // global-best pull, U[0, max]
	MinWeight  float64 `yaml:"min_weight"`  // positions below this are zeroed
}

func DefaultConfig() Config {
	return Config{
		Particles:  200,
		Iterations: 50,
		Inertia:    0.1,
		Phi1Max:    0.2,
		Phi2Max:    0.2,
		MinWeight:  0.01,
	}
}

func (c *Config) Validate() error {
	if c.Particles <= 0 {
		return internal.InputErrorf("optimizer: particle count must be positive")
	}
	if c.Iterations <= 0 {
		return internal.InputErrorf("optimizer: iteration count must be positive")
	}
	if c.Inertia < 0 || c.Phi1Max < 0 || c.Phi2Max < 0 {
		return internal.InputErrorf("optimizer: coefficients must be non-negative")
	}
	return nil
}

// Swarm searches for a simplex-constrained weight vector minimizing
// sum(w_i^2 var_i) - alpha*dot(w, mu). All randomness flows from the
// injected generator; a fixed seed gives bit-identical results.
type Swarm struct {
	cfg    Config
	rng    *rand.Rand
	logger zerolog.Logger
}

func New(cfg Config, rng *rand.Rand, logger zerolog.Logger) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, internal.InputErrorf("optimizer: rng is required")
	}
	return &Swarm{cfg: cfg, rng: rng, logger: logger}, nil
}

// Optimize returns weights >= 0 summing to at most 1. Dimensions of 5 and
// below bypass the swarm: PSO convergence is unreliable there, so small
// universes use exact enumeration or an inverse-variance tilt instead.
func (s *Swarm) Optimize(expectedReturn, variance []float64, riskAversion float64) (internal.Allocation, error) {
	n := len(expectedReturn)
	if n == 0 {
		return nil, internal.InputErrorf("optimizer: empty expected-return vector")
	}
	if len(variance) != n {
		return nil, internal.InputErrorf("optimizer: variance length %d != expected-return length %d", len(variance), n)
	}
	for i := 0; i < n; i++ {
		if !isFinite(expectedReturn[i]) || !isFinite(variance[i]) || variance[i] < 0 {
			return nil, internal.InputErrorf("optimizer: non-finite or negative input at asset %d", i)
		}
	}

	var w internal.Allocation
	switch {
	case n == 1:
		w = internal.Allocation{1}
	case n == 2:
		w = enumeratePair(expectedReturn, variance, riskAversion)
	case n <= 5:
		w = inverseVarianceTilt(expectedReturn, variance, riskAversion)
	default:
		w = s.swarmSearch(expectedReturn, variance, riskAversion)
	}
	return s.finalize(w, variance), nil
}

// Cost ranks candidates: hard constraint violations get +Inf instead of a
// projection, so infeasible particles can never become a best position.
func Cost(w, mu, variance []float64, alpha float64) float64 {
	sum := 0.0
	cost := 0.0
	for i := range w {
		if w[i] < 0 || w[i] > 1 {
			return math.Inf(1)
		}
		sum += w[i]
		cost += w[i]*w[i]*variance[i] - alpha*w[i]*mu[i]
	}
	if sum > 1.01 {
		return math.Inf(1)
	}
	return cost
}

func (s *Swarm) swarmSearch(mu, variance []float64, alpha float64) internal.Allocation {
	n := len(mu)
	particles := s.cfg.Particles

	pos := make([][]float64, particles)
	vel := make([][]float64, particles)
	pbest := make([][]float64, particles)
	pbestCost := make([]float64, particles)
	gbest := make([]float64, n)
	gbestCost := math.Inf(1)

	for p := 0; p < particles; p++ {
		pos[p] = s.randomSimplex(n)
		vel[p] = make([]float64, n)
		pbest[p] = append([]float64(nil), pos[p]...)
		pbestCost[p] = Cost(pos[p], mu, variance, alpha)
		if pbestCost[p] < gbestCost {
			gbestCost = pbestCost[p]
			copy(gbest, pos[p])
		}
	}

	for it := 0; it < s.cfg.Iterations; it++ {
		for p := 0; p < particles; p++ {
			phi1 := s.rng.Float64() * s.cfg.Phi1Max
			phi2 := s.rng.Float64() * s.cfg.Phi2Max
			x, v := pos[p], vel[p]
			for i := 0; i < n; i++ {
				v[i] = s.cfg.Inertia*v[i] + phi1*(pbest[p][i]-x[i]) + phi2*(gbest[i]-x[i])
				x[i] += v[i]
			}
			// Projection during the search: clamp and renormalize onto the
			// simplex; the penalty above only ranks candidates.
			projectSimplex(x)

			c := Cost(x, mu, variance, alpha)
			if c < pbestCost[p] {
				pbestCost[p] = c
				copy(pbest[p], x)
			}
			if c < gbestCost {
				gbestCost = c
				copy(gbest, x)
			}
		}
	}

	if !isFinite(gbestCost) || !allFinite(gbest) {
		s.logger.Warn().Float64("gbest_cost", gbestCost).
			Msg("swarm search unstable, falling back to inverse variance")
		return InverseVariance(variance)
	}
	return gbest
}

// finalize zeroes dust positions and renormalizes; a degenerate all-zero
// vector falls back to equal weights.
func (s *Swarm) finalize(w internal.Allocation, variance []float64) internal.Allocation {
	out := w.Clone()
	for i, v := range out {
		if !isFinite(v) {
			s.logger.Warn().Msg("optimizer produced non-finite weight, falling back to inverse variance")
			return InverseVariance(variance)
		}
		if v < s.cfg.MinWeight {
			out[i] = 0
		}
	}
	sum := out.Sum()
	if sum <= 0 {
		s.logger.Warn().Msg("optimizer converged to zero allocation, falling back to equal weights")
		return internal.EqualWeights(len(out))
	}
	return out.Scale(1 / sum)
}

func (s *Swarm) randomSimplex(n int) []float64 {
	x := make([]float64, n)
	sum := 0.0
	for i := range x {
		x[i] = s.rng.Float64()
		sum += x[i]
	}
	if sum <= 0 {
		return equalPoint(n)
	}
	for i := range x {
		x[i] /= sum
	}
	return x
}

func projectSimplex(x []float64) {
	sum := 0.0
	for i, v := range x {
		if v < 0 || math.IsNaN(v) {
			x[i] = 0
		} else {
			sum += x[i]
		}
	}
	if sum <= 0 {
		copy(x, equalPoint(len(x)))
		return
	}
	for i := range x {
		x[i] /= sum
	}
}

func equalPoint(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
