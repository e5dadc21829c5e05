// Package opt abstracts the continuous optimizer used for refining
// hyperparameter knobs, keeping the external metaheuristic library
// behind a small interface.
package opt

// Optimizer minimizes a black-box objective over a box-constrained
// continuous domain.
type Optimizer interface {
	// Run minimizes eval over the box [lower[i], upper[i]] per
	// dimension and returns the best position and its cost. eval is
	// called sequentially; implementations decide the evaluation
	// budget.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
