package model

import (
	"math"
	"testing"
)

func TestStratifiedFolds_Partition(t *testing.T) {
	y := make([]int, 30)
	for i := range y {
		y[i] = i % 3
	}

	folds := stratifiedFolds(y, 3, 5, 42)
	if len(folds) != 5 {
		t.Fatalf("fold count = %d, want 5", len(folds))
	}

	seen := make(map[int]int)
	for f, fold := range folds {
		if len(fold) == 0 {
			t.Errorf("fold %d is empty", f)
		}
		for _, idx := range fold {
			seen[idx]++
		}
	}
	for i := 0; i < 30; i++ {
		if seen[i] != 1 {
			t.Errorf("index %d assigned %d times, want exactly once", i, seen[i])
		}
	}
}

func TestStratifiedFolds_Deterministic(t *testing.T) {
	y := make([]int, 24)
	for i := range y {
		y[i] = i % 2
	}
	a := stratifiedFolds(y, 2, 4, 7)
	b := stratifiedFolds(y, 2, 4, 7)
	for f := range a {
		if len(a[f]) != len(b[f]) {
			t.Fatalf("fold %d sizes differ: %d vs %d", f, len(a[f]), len(b[f]))
		}
		for i := range a[f] {
			if a[f][i] != b[f][i] {
				t.Fatalf("fold %d diverges at position %d", f, i)
			}
		}
	}
}

func TestCrossValProbs_RowsSumToOne(t *testing.T) {
	X, y := makeTestBlobs(t, 3, 20, 19)
	base := NewSoftmaxRegression(DefaultSoftmaxOptions())

	psx, err := crossValProbs(base, X, y, 3, 5, 19)
	if err != nil {
		t.Fatalf("crossValProbs failed: %v", err)
	}
	n, k := psx.Dims()
	if n != 60 || k != 3 {
		t.Fatalf("psx dims = %dx%d, want 60x3", n, k)
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < k; j++ {
			sum += psx.At(i, j)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v", i, sum)
		}
	}
}

func TestCrossValProbs_FoldValidation(t *testing.T) {
	X, y := makeTestBlobs(t, 2, 5, 23)
	base := NewSoftmaxRegression(DefaultSoftmaxOptions())

	if _, err := crossValProbs(base, X, y, 2, 1, 1); err == nil {
		t.Error("accepted a single fold")
	}
	if _, err := crossValProbs(base, X, y, 2, 11, 1); err == nil {
		t.Error("accepted more folds than samples")
	}
}
