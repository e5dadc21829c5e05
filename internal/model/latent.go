package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// latentStats bundles the quantities estimated from out-of-sample
// predicted probabilities psx and observed labels s.
//
// Matrix conventions, shared with the noise package:
//   - joint[i][j]   = P(s=i, y=j), row-indexed by observed label
//   - noiseRates    = P(s|y) with rows indexed by TRUE class, so
//     noiseRates[j][i] = P(s=i | y=j); rows sum to 1
//   - inverseRates  = P(y|s) with rows indexed by OBSERVED label, so
//     inverseRates[i][j] = P(y=j | s=i); rows sum to 1
type latentStats struct {
	joint        *mat.Dense
	priors       []float64 // p(y=j)
	observed     []float64 // empirical p(s=i)
	noiseRates   *mat.Dense
	inverseRates *mat.Dense
}

// classThresholds returns, per class j, the mean self-probability
// psx[i][j] over examples observed as class j. Classes absent from s get
// a threshold above 1 so no example can clear them.
func classThresholds(psx *mat.Dense, s []int, k int) []float64 {
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, label := range s {
		sums[label] += psx.At(i, label)
		counts[label]++
	}
	t := make([]float64, k)
	for j := 0; j < k; j++ {
		if counts[j] == 0 {
			t[j] = 1.1
			continue
		}
		t[j] = sums[j] / float64(counts[j])
	}
	return t
}

// confidentJoint counts, per (observed, latent) class pair, the examples
// whose predicted probability for some class clears that class's
// threshold. An example lands in the cell of its most probable clearing
// class; examples clearing no threshold are left out.
func confidentJoint(psx *mat.Dense, s []int, thresholds []float64) *mat.Dense {
	k := len(thresholds)
	counts := mat.NewDense(k, k, nil)
	for i, label := range s {
		best := -1
		bestProb := math.Inf(-1)
		for j := 0; j < k; j++ {
			p := psx.At(i, j)
			if p >= thresholds[j] && p > bestProb {
				best = j
				bestProb = p
			}
		}
		if best >= 0 {
			counts.Set(label, best, counts.At(label, best)+1)
		}
	}
	return counts
}

// calibrateJoint rescales confident-joint counts so each observed-label
// row carries that label's empirical count, then normalizes the whole
// matrix to sum to 1. Rows that caught no confident example fall back to
// a diagonal placement.
func calibrateJoint(counts *mat.Dense, s []int, k int) *mat.Dense {
	labelCounts := make([]float64, k)
	for _, label := range s {
		labelCounts[label]++
	}
	joint := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		rowSum := 0.0
		for j := 0; j < k; j++ {
			rowSum += counts.At(i, j)
		}
		if rowSum == 0 {
			joint.Set(i, i, labelCounts[i])
			continue
		}
		for j := 0; j < k; j++ {
			joint.Set(i, j, counts.At(i, j)/rowSum*labelCounts[i])
		}
	}
	total := float64(len(s))
	joint.Scale(1/total, joint)
	return joint
}

// estimateLatent derives priors, noise rates and inverse noise rates
// from a calibrated joint. With converge set, the three estimates are
// reconciled iteratively until they satisfy their closed-form relations
// against the empirical observed-label distribution.
func estimateLatent(joint *mat.Dense, s []int, k int, converge bool) *latentStats {
	ps := make([]float64, k)
	for _, label := range s {
		ps[label] += 1 / float64(len(s))
	}

	py := make([]float64, k)
	for j := 0; j < k; j++ {
		for i := 0; i < k; i++ {
			py[j] += joint.At(i, j)
		}
	}

	noiseRates := mat.NewDense(k, k, nil)   // [true][observed]
	inverseRates := mat.NewDense(k, k, nil) // [observed][true]
	for j := 0; j < k; j++ {
		for i := 0; i < k; i++ {
			if py[j] > 0 {
				noiseRates.Set(j, i, joint.At(i, j)/py[j])
			} else if i == j {
				noiseRates.Set(j, i, 1)
			}
			rowMass := rowSum(joint, i)
			if rowMass > 0 {
				inverseRates.Set(i, j, joint.At(i, j)/rowMass)
			} else if i == j {
				inverseRates.Set(i, j, 1)
			}
		}
	}

	stats := &latentStats{
		joint:        joint,
		priors:       py,
		observed:     ps,
		noiseRates:   noiseRates,
		inverseRates: inverseRates,
	}
	if converge {
		stats.converge(20, 1e-6)
	}
	return stats
}

// converge runs a fixed-point reconciliation: the priors, noise rates
// and inverse rates were each normalized independently, so they violate
// the identities p(y) = Σ_s P(y|s) p(s), P(y|s) ∝ P(s|y) p(y) and
// P(s|y) ∝ P(y|s) p(s). Each pass recomputes the three from one another
// until the priors stop moving, then the joint is rebuilt from the
// reconciled inverse rates.
func (ls *latentStats) converge(maxIters int, tol float64) {
	k := len(ls.priors)
	for iter := 0; iter < maxIters; iter++ {
		prev := append([]float64(nil), ls.priors...)

		// P(y=j|s=i) ∝ P(s=i|y=j) p(y=j)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				ls.inverseRates.Set(i, j, ls.noiseRates.At(j, i)*ls.priors[j])
			}
			normalizeRow(ls.inverseRates, i)
		}

		// P(s=i|y=j) ∝ P(y=j|s=i) p(s=i)
		for j := 0; j < k; j++ {
			for i := 0; i < k; i++ {
				ls.noiseRates.Set(j, i, ls.inverseRates.At(i, j)*ls.observed[i])
			}
			normalizeRow(ls.noiseRates, j)
		}

		// p(y=j) = Σ_i P(y=j|s=i) p(s=i). Updating the priors last keeps
		// the marginal identity p(s) = Σ_y P(s|y) p(y) exact at exit.
		for j := 0; j < k; j++ {
			v := 0.0
			for i := 0; i < k; i++ {
				v += ls.inverseRates.At(i, j) * ls.observed[i]
			}
			ls.priors[j] = v
		}
		normalize(ls.priors)

		delta := 0.0
		for j := 0; j < k; j++ {
			delta = math.Max(delta, math.Abs(ls.priors[j]-prev[j]))
		}
		if delta < tol {
			break
		}
	}

	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			ls.joint.Set(i, j, ls.inverseRates.At(i, j)*ls.observed[i])
		}
	}
}

func rowSum(m *mat.Dense, i int) float64 {
	return floats.Sum(m.RawRowView(i))
}

func normalize(v []float64) {
	total := floats.Sum(v)
	if total <= 0 {
		return
	}
	floats.Scale(1/total, v)
}

func normalizeRow(m *mat.Dense, i int) {
	row := m.RawRowView(i)
	total := floats.Sum(row)
	if total <= 0 {
		return
	}
	floats.Scale(1/total, row)
}
