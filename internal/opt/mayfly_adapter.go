package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter drives the external mayfly library. The library only
// supports one scalar bound pair for all dimensions, so the adapter
// optimizes in the unit cube and maps positions into the caller's
// per-dimension ranges on every evaluation.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly returns a seeded mayfly optimizer. The library needs a
// population of at least 20 to behave; smaller values are raised.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	if maxIters < 1 {
		maxIters = 1
	}
	if popSize < 20 {
		popSize = 20
	}
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run minimizes eval over the given box. Results are deterministic per
// seed.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	denorm := func(unit []float64) []float64 {
		out := make([]float64, dim)
		for i := 0; i < dim; i++ {
			u := unit[i]
			if u < 0 {
				u = 0
			} else if u > 1 {
				u = 1
			}
			out[i] = lower[i] + u*(upper[i]-lower[i])
		}
		return out
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(unit []float64) float64 {
		return eval(denorm(unit))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Degenerate fallback: the box midpoint.
		mid := make([]float64, dim)
		for i := range mid {
			mid[i] = 0.5
		}
		pos := denorm(mid)
		return pos, eval(pos)
	}
	return denorm(result.GlobalBest.Position), result.GlobalBest.Cost
}
