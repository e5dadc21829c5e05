// Package noise generates class-conditional label noise: row-stochastic
// confusion matrices with a prescribed trace and sparsity, and the
// corruption of clean labels through them.
//
// Convention: a noise matrix M is K×K with M[i][j] = P(observed=j |
// true=i). Rows sum to 1; the trace is the total self-consistency mass,
// so trace == K means labels pass through untouched.
package noise

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatrixOptions configures noise matrix generation.
type MatrixOptions struct {
	// Classes is the matrix dimension K.
	Classes int

	// Trace is the required diagonal sum, in (0, K]. Values above K-1
	// of the way toward K leave little room for noise; a trace of K
	// yields the identity.
	Trace float64

	// Sparsity is the fraction of off-diagonal entries forced to zero,
	// in [0, 1).
	Sparsity float64

	// Priors are the true-class probabilities used to keep the matrix
	// learnable; uniform when nil.
	Priors []float64

	// Seed drives all sampling.
	Seed int64

	// MaxTries bounds rejection sampling; defaults to 1000.
	MaxTries int
}

// GenerateMatrix samples a row-stochastic noise matrix whose diagonal
// sums to Trace and whose off-diagonal has the requested share of hard
// zeros. Candidates are rejected until, under Priors, every observed
// label is most likely to come from its own class, so a classifier can
// still learn from the corrupted labels. Generation is deterministic
// per seed.
func GenerateMatrix(opts MatrixOptions) (*mat.Dense, error) {
	k := opts.Classes
	if k < 2 {
		return nil, fmt.Errorf("noise matrix needs at least 2 classes, got %d", k)
	}
	if opts.Trace <= 0 || opts.Trace > float64(k) {
		return nil, fmt.Errorf("trace must be in (0, %d], got %v", k, opts.Trace)
	}
	if opts.Sparsity < 0 || opts.Sparsity >= 1 {
		return nil, fmt.Errorf("sparsity must be in [0, 1), got %v", opts.Sparsity)
	}
	priors := opts.Priors
	if priors == nil {
		priors = make([]float64, k)
		for i := range priors {
			priors[i] = 1 / float64(k)
		}
	}
	if len(priors) != k {
		return nil, fmt.Errorf("got %d priors for %d classes", len(priors), k)
	}
	for i, p := range priors {
		if p <= 0 {
			return nil, fmt.Errorf("prior for class %d must be positive, got %v", i, p)
		}
	}

	// Identity is the only matrix with a full trace.
	if opts.Trace > float64(k)-1e-12 {
		eye := mat.NewDense(k, k, nil)
		for i := 0; i < k; i++ {
			eye.Set(i, i, 1)
		}
		return eye, nil
	}

	zeroTarget := int(float64(k*(k-1))*opts.Sparsity + 0.5)
	if maxZeros := k * (k - 2); zeroTarget > maxZeros {
		return nil, fmt.Errorf("sparsity %v would leave a row with no off-diagonal mass (max %d zeros, need %d)",
			opts.Sparsity, maxZeros, zeroTarget)
	}

	maxTries := opts.MaxTries
	if maxTries <= 0 {
		maxTries = 1000
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	for try := 0; try < maxTries; try++ {
		m := sampleCandidate(rng, k, opts.Trace, zeroTarget)
		if m == nil {
			continue
		}
		if isLearnable(m, priors) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no learnable matrix with trace %v and sparsity %v after %d tries", opts.Trace, opts.Sparsity, maxTries)
}

// sampleCandidate draws one row-stochastic matrix with the exact trace
// and zero count, or nil when the draw cannot be repaired.
func sampleCandidate(rng *rand.Rand, k int, trace float64, zeroTarget int) *mat.Dense {
	// Diagonal: random split of the trace, repaired so every entry
	// stays below 1 and the sum is preserved.
	diag := make([]float64, k)
	for i := range diag {
		diag[i] = rng.Float64() + 0.01
	}
	floats.Scale(trace/floats.Sum(diag), diag)
	const lid = 0.999
	for pass := 0; pass < k; pass++ {
		excess := 0.0
		room := 0.0
		for i := range diag {
			if diag[i] > lid {
				excess += diag[i] - lid
				diag[i] = lid
			} else {
				room += lid - diag[i]
			}
		}
		if excess == 0 {
			break
		}
		if room <= 0 {
			return nil
		}
		for i := range diag {
			if diag[i] < lid {
				diag[i] += excess * (lid - diag[i]) / room
			}
		}
	}

	// Zero mask: spread the zeros over shuffled off-diagonal cells,
	// never stranding a row's residual mass.
	type cell struct{ i, j int }
	cells := make([]cell, 0, k*(k-1))
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i != j {
				cells = append(cells, cell{i, j})
			}
		}
	}
	rng.Shuffle(len(cells), func(a, b int) { cells[a], cells[b] = cells[b], cells[a] })

	zeroed := make(map[cell]bool, zeroTarget)
	openPerRow := make([]int, k)
	for i := range openPerRow {
		openPerRow[i] = k - 1
	}
	remaining := zeroTarget
	for _, c := range cells {
		if remaining == 0 {
			break
		}
		if openPerRow[c.i] <= 1 {
			continue
		}
		zeroed[c] = true
		openPerRow[c.i]--
		remaining--
	}
	if remaining > 0 {
		return nil
	}

	m := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		m.Set(i, i, diag[i])
		residual := 1 - diag[i]
		weights := make([]float64, 0, k-1)
		open := make([]int, 0, k-1)
		for j := 0; j < k; j++ {
			if j == i || zeroed[cell{i, j}] {
				continue
			}
			open = append(open, j)
			weights = append(weights, rng.Float64()+0.05)
		}
		total := floats.Sum(weights)
		for idx, j := range open {
			m.Set(i, j, residual*weights[idx]/total)
		}
	}
	return m
}

// isLearnable checks that each observed label's most probable source is
// its own class: M[j][j]*p[j] > M[i][j]*p[i] for every i != j.
func isLearnable(m *mat.Dense, priors []float64) bool {
	k := len(priors)
	for j := 0; j < k; j++ {
		own := m.At(j, j) * priors[j]
		for i := 0; i < k; i++ {
			if i != j && m.At(i, j)*priors[i] >= own {
				return false
			}
		}
	}
	return true
}

// Trace returns the diagonal sum.
func Trace(m *mat.Dense) float64 {
	return mat.Trace(m)
}

// RowSums returns the per-row sums.
func RowSums(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = floats.Sum(m.RawRowView(i))
	}
	return out
}

// Sparsity returns the fraction of off-diagonal entries that are zero.
func Sparsity(m *mat.Dense) float64 {
	k, _ := m.Dims()
	if k < 2 {
		return 0
	}
	zeros := 0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i != j && m.At(i, j) == 0 {
				zeros++
			}
		}
	}
	return float64(zeros) / float64(k*(k-1))
}

// Validate checks that m is square, non-negative and row-stochastic
// within tolerance.
func Validate(m *mat.Dense) error {
	r, c := m.Dims()
	if r != c {
		return fmt.Errorf("noise matrix must be square, got %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v < 0 {
				return fmt.Errorf("negative entry %v at (%d,%d)", v, i, j)
			}
			sum += v
		}
		if sum < 1-1e-9 || sum > 1+1e-9 {
			return fmt.Errorf("row %d sums to %v, want 1", i, sum)
		}
	}
	return nil
}

// EstimatePriors returns the empirical class distribution of y over k
// classes.
func EstimatePriors(y []int, k int) ([]float64, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("no labels to estimate priors from")
	}
	out := make([]float64, k)
	for i, label := range y {
		if label < 0 || label >= k {
			return nil, fmt.Errorf("label %d at index %d outside [0, %d)", label, i, k)
		}
		out[label] += 1 / float64(len(y))
	}
	return out, nil
}
