package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// stratifiedFolds partitions example indexes into fold test sets,
// dealing each class's shuffled indexes round-robin so folds keep the
// class mix and no fold swallows a whole class unless it only has one
// member.
func stratifiedFolds(y []int, k, folds int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	byClass := indexesByClass(y, k)
	out := make([][]int, folds)
	for _, members := range byClass {
		shuffled := append([]int(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		for i, idx := range shuffled {
			f := i % folds
			out[f] = append(out[f], idx)
		}
	}
	return out
}

// crossValProbs computes out-of-sample class probabilities: every
// example's row comes from a clone of base fitted on the folds that
// exclude it. The returned matrix is n×k in dataset order.
func crossValProbs(base Classifier, X *mat.Dense, y []int, k, folds int, seed int64) (*mat.Dense, error) {
	n, _ := X.Dims()
	if folds < 2 {
		return nil, &ConfigError{Key: ParamCVFolds, Value: folds, Reason: "must be at least 2"}
	}
	if folds > n {
		return nil, &ConfigError{Key: ParamCVFolds, Value: folds, Reason: fmt.Sprintf("exceeds sample count %d", n)}
	}

	psx := mat.NewDense(n, k, nil)
	inFold := make([]bool, n)
	for f, testIdx := range stratifiedFolds(y, k, folds, seed) {
		if len(testIdx) == 0 {
			continue
		}
		for i := range inFold {
			inFold[i] = false
		}
		for _, idx := range testIdx {
			inFold[idx] = true
		}
		trainIdx := make([]int, 0, n-len(testIdx))
		for i := 0; i < n; i++ {
			if !inFold[i] {
				trainIdx = append(trainIdx, i)
			}
		}

		clone := base.Clone()
		if err := clone.Fit(takeRows(X, trainIdx), takeInts(y, trainIdx)); err != nil {
			return nil, fmt.Errorf("cross-validation fold %d: %w", f, err)
		}
		probs, err := clone.PredictProba(takeRows(X, testIdx))
		if err != nil {
			return nil, fmt.Errorf("cross-validation fold %d: %w", f, err)
		}
		if _, cols := probs.Dims(); cols != k {
			return nil, fmt.Errorf("cross-validation fold %d: base classifier saw %d classes, want %d (fold too small?)", f, cols, k)
		}
		for row, idx := range testIdx {
			for j := 0; j < k; j++ {
				psx.Set(idx, j, probs.At(row, j))
			}
		}
	}
	return psx, nil
}

// takeRows copies the given rows of X into a new matrix.
func takeRows(X *mat.Dense, idx []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for row, i := range idx {
		for j := 0; j < d; j++ {
			out.Set(row, j, X.At(i, j))
		}
	}
	return out
}

// takeInts copies the given positions of y into a new slice.
func takeInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for row, i := range idx {
		out[row] = y[i]
	}
	return out
}
