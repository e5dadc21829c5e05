package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/noisesweep/internal/model"
)

// Fractions fixes the share of samples per split. Train and Val must be
// positive; Test may be zero. The three must sum to 1.
type Fractions struct {
	Train float64 `json:"train" yaml:"train"`
	Val   float64 `json:"val" yaml:"val"`
	Test  float64 `json:"test" yaml:"test"`
}

// DefaultFractions is the 70/15/15 split the CLI uses.
func DefaultFractions() Fractions {
	return Fractions{Train: 0.7, Val: 0.15, Test: 0.15}
}

// Validate checks the fractions are usable.
func (f Fractions) Validate() error {
	if f.Train <= 0 {
		return fmt.Errorf("train fraction must be positive, got %v", f.Train)
	}
	if f.Val <= 0 {
		return fmt.Errorf("val fraction must be positive, got %v", f.Val)
	}
	if f.Test < 0 {
		return fmt.Errorf("test fraction must not be negative, got %v", f.Test)
	}
	if sum := f.Train + f.Val + f.Test; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("fractions must sum to 1, got %v", sum)
	}
	return nil
}

// Splits holds the disjoint partitions of one dataset.
type Splits struct {
	XTrain *mat.Dense
	YTrain []int
	XVal   *mat.Dense
	YVal   []int
	XTest  *mat.Dense
	YTest  []int
}

// Split partitions X and y into train/val/test by a seeded permutation.
// The same seed and fractions always produce the same partition. Splits
// are disjoint and cover every row; rounding residue lands in the test
// split (or the validation split when the test fraction is zero). With
// a zero test fraction XTest is nil and YTest is empty.
func Split(X *mat.Dense, y []int, f Fractions, seed int64) (*Splits, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("split fractions: %w", err)
	}
	n, _ := X.Dims()
	if n != len(y) {
		return nil, &model.ShapeError{What: "label count", Got: len(y), Want: n}
	}

	nTrain := int(math.Round(f.Train * float64(n)))
	nVal := int(math.Round(f.Val * float64(n)))
	if nTrain < 1 || nVal < 1 {
		return nil, fmt.Errorf("split of %d samples leaves train=%d val=%d", n, nTrain, nVal)
	}
	for nTrain+nVal > n {
		if nVal > 1 {
			nVal--
		} else {
			nTrain--
		}
	}
	nTest := n - nTrain - nVal
	if f.Test == 0 && nTest > 0 {
		nVal += nTest
		nTest = 0
	}
	if f.Test > 0 && nTest == 0 {
		return nil, fmt.Errorf("test fraction %v rounds to zero samples of %d", f.Test, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return &Splits{
		XTrain: takeRows(X, perm[:nTrain]),
		YTrain: takeInts(y, perm[:nTrain]),
		XVal:   takeRows(X, perm[nTrain:nTrain+nVal]),
		YVal:   takeInts(y, perm[nTrain:nTrain+nVal]),
		XTest:  takeRows(X, perm[nTrain+nVal:]),
		YTest:  takeInts(y, perm[nTrain+nVal:]),
	}, nil
}

// takeRows copies the given rows into a new matrix, or returns nil for
// an empty selection (a zero test split).
func takeRows(X *mat.Dense, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	_, d := X.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for row, i := range idx {
		for j := 0; j < d; j++ {
			out.Set(row, j, X.At(i, j))
		}
	}
	return out
}

func takeInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for row, i := range idx {
		out[row] = y[i]
	}
	return out
}
