package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// makeTestBlobs builds well-separated Gaussian clusters, one per class,
// with perClass examples each. Centers sit on the corners of a scaled
// simplex so any linear model can tell them apart.
func makeTestBlobs(t *testing.T, classes, perClass int, seed int64) (*mat.Dense, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	n := classes * perClass
	X := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for c := 0; c < classes; c++ {
		angle := 2 * math.Pi * float64(c) / float64(classes)
		cx, cy := 4*math.Cos(angle), 4*math.Sin(angle)
		for i := 0; i < perClass; i++ {
			row := c*perClass + i
			X.Set(row, 0, cx+rng.NormFloat64()*0.5)
			X.Set(row, 1, cy+rng.NormFloat64()*0.5)
			y[row] = c
		}
	}
	return X, y
}

func TestSoftmaxRegression_FitSeparable(t *testing.T) {
	X, y := makeTestBlobs(t, 3, 40, 7)
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc < 0.9 {
		t.Errorf("training accuracy = %v, want >= 0.9 on separable blobs", acc)
	}
	if clf.NumClasses() != 3 {
		t.Errorf("NumClasses = %d, want 3", clf.NumClasses())
	}
}

func TestSoftmaxRegression_Deterministic(t *testing.T) {
	X, y := makeTestBlobs(t, 3, 30, 11)

	opts := DefaultSoftmaxOptions()
	opts.Seed = 42

	a := NewSoftmaxRegression(opts)
	b := NewSoftmaxRegression(opts)
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("first Fit failed: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("second Fit failed: %v", err)
	}

	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("predictions diverge at row %d: %d vs %d", i, pa[i], pb[i])
		}
	}

	sa, _ := a.Score(X, y)
	sb, _ := b.Score(X, y)
	if sa != sb {
		t.Errorf("scores diverge: %v vs %v", sa, sb)
	}
}

func TestSoftmaxRegression_ScoreIdempotent(t *testing.T) {
	X, y := makeTestBlobs(t, 2, 25, 3)
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	first, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("first Score failed: %v", err)
	}
	second, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("second Score failed: %v", err)
	}
	if first != second {
		t.Errorf("Score not idempotent: %v then %v", first, second)
	}
}

func TestSoftmaxRegression_PredictProbaRowsSumToOne(t *testing.T) {
	X, y := makeTestBlobs(t, 3, 20, 5)
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	probs, err := clf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	n, k := probs.Dims()
	if k != 3 {
		t.Fatalf("probability columns = %d, want 3", k)
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < k; j++ {
			p := probs.At(i, j)
			if p < 0 || p > 1 {
				t.Fatalf("probability out of range at (%d,%d): %v", i, j, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v, want 1", i, sum)
		}
	}
}

func TestSoftmaxRegression_SetParams(t *testing.T) {
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())

	if err := clf.SetParams(Params{"learning_rate": 0.1, "epochs": 50, "l2": 0.01, "seed": 9}); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if clf.Options().LearningRate != 0.1 || clf.Options().Epochs != 50 {
		t.Errorf("options not applied: %+v", clf.Options())
	}

	cases := []struct {
		name   string
		params Params
	}{
		{"unknown key", Params{"max_depth": 3}},
		{"bad type", Params{"epochs": "ten"}},
		{"zero learning rate", Params{"learning_rate": 0.0}},
		{"negative l2", Params{"l2": -1.0}},
	}
	for _, tc := range cases {
		err := clf.SetParams(tc.params)
		if err == nil {
			t.Errorf("%s: SetParams accepted %v", tc.name, tc.params)
			continue
		}
		if !errors.Is(err, &ConfigError{}) {
			t.Errorf("%s: error type %T, want *ConfigError", tc.name, err)
		}
	}
}

func TestSoftmaxRegression_ShapeErrors(t *testing.T) {
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())

	X := mat.NewDense(4, 2, nil)
	if err := clf.Fit(X, []int{0, 1}); !errors.Is(err, &ShapeError{}) {
		t.Errorf("mismatched labels: error %v, want *ShapeError", err)
	}

	if _, err := clf.Predict(X); !errors.Is(err, ErrNotFitted) {
		t.Errorf("predict before fit: error %v, want ErrNotFitted", err)
	}
}

func TestSoftmaxRegression_FitWeighted(t *testing.T) {
	X, y := makeTestBlobs(t, 2, 20, 13)
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())

	if err := clf.FitWeighted(X, y, []float64{1, 2}); !errors.Is(err, &ShapeError{}) {
		t.Fatalf("short weight slice: error %v, want *ShapeError", err)
	}

	weights := make([]float64, len(y))
	for i := range weights {
		weights[i] = 1
	}
	weights[0] = -1
	if err := clf.FitWeighted(X, y, weights); err == nil {
		t.Fatal("negative weight accepted")
	}

	weights[0] = 1
	if err := clf.FitWeighted(X, y, weights); err != nil {
		t.Fatalf("uniform weighted fit failed: %v", err)
	}
	acc, _ := clf.Score(X, y)
	if acc < 0.9 {
		t.Errorf("weighted training accuracy = %v, want >= 0.9", acc)
	}
}

func TestSoftmaxRegression_CloneIsUnfitted(t *testing.T) {
	X, y := makeTestBlobs(t, 2, 15, 17)
	clf := NewSoftmaxRegression(DefaultSoftmaxOptions())
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	clone := clf.Clone()
	if _, err := clone.Predict(X); !errors.Is(err, ErrNotFitted) {
		t.Errorf("clone should be unfitted, got err %v", err)
	}
	if clone.(*SoftmaxRegression).Options() != clf.Options() {
		t.Errorf("clone options differ: %+v vs %+v", clone.(*SoftmaxRegression).Options(), clf.Options())
	}
}
