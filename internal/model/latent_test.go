package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestClassThresholds_MeanSelfProbability(t *testing.T) {
	// Class 0 self-probabilities: 0.9, 0.8 -> threshold 0.85.
	// Class 1 self-probabilities: 0.8, 0.7 -> threshold 0.75.
	psx := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
		0.2, 0.8,
		0.3, 0.7,
	})
	s := []int{0, 0, 1, 1}

	got := classThresholds(psx, s, 2)
	want := []float64{0.85, 0.75}
	for j := range want {
		if math.Abs(got[j]-want[j]) > 1e-12 {
			t.Errorf("threshold[%d] = %v, want %v", j, got[j], want[j])
		}
	}
}

func TestClassThresholds_AbsentClassUnreachable(t *testing.T) {
	psx := mat.NewDense(2, 3, []float64{
		0.9, 0.05, 0.05,
		0.8, 0.1, 0.1,
	})
	got := classThresholds(psx, []int{0, 0}, 3)
	if got[1] <= 1 || got[2] <= 1 {
		t.Errorf("absent-class thresholds = %v, want > 1", got[1:])
	}
}

func TestConfidentJoint_HandCase(t *testing.T) {
	// Thresholds are 0.85 and 0.75 (see above). Only row 0 clears its
	// own class threshold and only row 2 clears class 1, so the counts
	// are exactly one on each diagonal cell.
	psx := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
		0.2, 0.8,
		0.3, 0.7,
	})
	s := []int{0, 0, 1, 1}

	counts := confidentJoint(psx, s, classThresholds(psx, s, 2))
	want := [][]float64{{1, 0}, {0, 1}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if counts.At(i, j) != want[i][j] {
				t.Errorf("counts[%d][%d] = %v, want %v", i, j, counts.At(i, j), want[i][j])
			}
		}
	}
}

func TestCalibrateJoint_RowMassMatchesLabelCounts(t *testing.T) {
	counts := mat.NewDense(2, 2, []float64{3, 1, 2, 6})
	s := []int{0, 0, 0, 0, 1, 1, 1, 1} // 4 of each class, n=8

	joint := calibrateJoint(counts, s, 2)

	// Every row must carry its label's share of the mass: 4/8 each.
	for i := 0; i < 2; i++ {
		sum := joint.At(i, 0) + joint.At(i, 1)
		if math.Abs(sum-0.5) > 1e-12 {
			t.Errorf("row %d mass = %v, want 0.5", i, sum)
		}
	}
	total := mat.Sum(joint)
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("joint total = %v, want 1", total)
	}
	// Row 0 distributes 0.5 as 3:1 -> 0.375, 0.125.
	if math.Abs(joint.At(0, 0)-0.375) > 1e-12 {
		t.Errorf("joint[0][0] = %v, want 0.375", joint.At(0, 0))
	}
}

func TestEstimateLatent_StochasticRows(t *testing.T) {
	joint := mat.NewDense(2, 2, []float64{0.4, 0.1, 0.05, 0.45})
	s := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}

	stats := estimateLatent(joint, s, 2, false)

	// Priors are the joint column sums.
	if math.Abs(stats.priors[0]-0.45) > 1e-12 || math.Abs(stats.priors[1]-0.55) > 1e-12 {
		t.Errorf("priors = %v, want [0.45 0.55]", stats.priors)
	}
	for i := 0; i < 2; i++ {
		if got := rowSum(stats.noiseRates, i); math.Abs(got-1) > 1e-9 {
			t.Errorf("noise rate row %d sums to %v", i, got)
		}
		if got := rowSum(stats.inverseRates, i); math.Abs(got-1) > 1e-9 {
			t.Errorf("inverse rate row %d sums to %v", i, got)
		}
	}
}

func TestEstimateLatent_ConvergeReconciles(t *testing.T) {
	// Deliberately skewed joint: calibration kept row mass at the
	// observed frequencies but the independently normalized estimates
	// disagree with each other. After convergence the identity
	// p(s=i) = sum_j P(s=i|y=j) p(y=j) must hold against the
	// empirical observed distribution.
	joint := mat.NewDense(2, 2, []float64{0.35, 0.15, 0.1, 0.4})
	s := make([]int, 10)
	for i := 5; i < 10; i++ {
		s[i] = 1
	}

	stats := estimateLatent(joint, s, 2, true)

	for i := 0; i < 2; i++ {
		predicted := 0.0
		for j := 0; j < 2; j++ {
			predicted += stats.noiseRates.At(j, i) * stats.priors[j]
		}
		if math.Abs(predicted-stats.observed[i]) > 1e-4 {
			t.Errorf("p(s=%d): predicted %v, observed %v", i, predicted, stats.observed[i])
		}
	}
}
