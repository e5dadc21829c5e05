package model

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// makeNoisyBlobs corrupts every fifth label of a blob dataset by
// rotating it to the next class, giving a deterministic 20% noise rate.
func makeNoisyBlobs(t *testing.T, classes, perClass int, seed int64) (*mat.Dense, []int, []int) {
	t.Helper()
	X, clean := makeTestBlobs(t, classes, perClass, seed)
	noisy := append([]int(nil), clean...)
	for i := 0; i < len(noisy); i += 5 {
		noisy[i] = (noisy[i] + 1) % classes
	}
	return X, clean, noisy
}

func newRobustForTest(method string, converge bool) *RobustClassifier {
	opts := DefaultRobustOptions()
	opts.PruneMethod = method
	opts.ConvergeLatentEstimates = converge
	opts.Seed = 42
	return NewRobustClassifier(nil, opts)
}

func TestRobustClassifier_FitAndScore(t *testing.T) {
	X, clean, noisy := makeNoisyBlobs(t, 3, 40, 29)

	clf := newRobustForTest(PruneByNoiseRate, false)
	if err := clf.Fit(X, noisy); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	acc, err := clf.Score(X, clean)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc < 0.8 {
		t.Errorf("clean-label accuracy = %v, want >= 0.8 on separable blobs", acc)
	}
	if clf.NumClasses() != 3 {
		t.Errorf("NumClasses = %d, want 3", clf.NumClasses())
	}
}

func TestRobustClassifier_EstimatesAreDistributions(t *testing.T) {
	X, _, noisy := makeNoisyBlobs(t, 3, 40, 31)

	clf := newRobustForTest(PruneByClass, true)
	if err := clf.Fit(X, noisy); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	nm := clf.NoiseMatrix()
	if nm == nil {
		t.Fatal("NoiseMatrix is nil after fit")
	}
	for i := 0; i < 3; i++ {
		if got := rowSum(nm, i); math.Abs(got-1) > 1e-9 {
			t.Errorf("noise matrix row %d sums to %v, want 1", i, got)
		}
	}

	priors := clf.Priors()
	total := 0.0
	for _, p := range priors {
		if p < 0 {
			t.Errorf("negative prior: %v", priors)
		}
		total += p
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("priors sum to %v, want 1", total)
	}
}

func TestRobustClassifier_BothIsIntersection(t *testing.T) {
	X, _, noisy := makeNoisyBlobs(t, 3, 40, 37)

	removed := make(map[string][]int, 3)
	for _, method := range []string{PruneByClass, PruneByNoiseRate, PruneBoth} {
		clf := newRobustForTest(method, false)
		if err := clf.Fit(X, noisy); err != nil {
			t.Fatalf("%s: Fit failed: %v", method, err)
		}
		removed[method] = clf.RemovedIndices()
	}

	inClass := make(map[int]bool)
	for _, idx := range removed[PruneByClass] {
		inClass[idx] = true
	}
	var want []int
	for _, idx := range removed[PruneByNoiseRate] {
		if inClass[idx] {
			want = append(want, idx)
		}
	}
	if !reflect.DeepEqual(removed[PruneBoth], want) {
		t.Errorf("both removed %v, want intersection %v", removed[PruneBoth], want)
	}
}

func TestRobustClassifier_Deterministic(t *testing.T) {
	X, clean, noisy := makeNoisyBlobs(t, 3, 30, 41)

	a := newRobustForTest(PruneByNoiseRate, true)
	b := newRobustForTest(PruneByNoiseRate, true)
	if err := a.Fit(X, noisy); err != nil {
		t.Fatalf("first Fit failed: %v", err)
	}
	if err := b.Fit(X, noisy); err != nil {
		t.Fatalf("second Fit failed: %v", err)
	}

	if !reflect.DeepEqual(a.RemovedIndices(), b.RemovedIndices()) {
		t.Errorf("pruned sets diverge:\n  %v\n  %v", a.RemovedIndices(), b.RemovedIndices())
	}
	sa, _ := a.Score(X, clean)
	sb, _ := b.Score(X, clean)
	if sa != sb {
		t.Errorf("scores diverge: %v vs %v", sa, sb)
	}
}

func TestRobustClassifier_ScoreIdempotent(t *testing.T) {
	X, _, noisy := makeNoisyBlobs(t, 3, 30, 43)
	clf := newRobustForTest(PruneBoth, false)
	if err := clf.Fit(X, noisy); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	first, _ := clf.Score(X, noisy)
	second, _ := clf.Score(X, noisy)
	if first != second {
		t.Errorf("Score not idempotent: %v then %v", first, second)
	}
}

func TestRobustClassifier_SetParams(t *testing.T) {
	clf := NewRobustClassifier(nil, DefaultRobustOptions())

	valid := Params{
		"prune_method":              "both",
		"converge_latent_estimates": true,
		"frac_noise":                0.5,
		"cv_folds":                  3,
		"seed":                      7,
	}
	if err := clf.SetParams(valid); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	opts := clf.Options()
	if opts.PruneMethod != PruneBoth || !opts.ConvergeLatentEstimates || opts.FracNoise != 0.5 || opts.CVFolds != 3 {
		t.Errorf("options not applied: %+v", opts)
	}

	cases := []struct {
		name   string
		params Params
	}{
		{"unknown key", Params{"pruning": "both"}},
		{"bad method", Params{"prune_method": "prune_by_rank"}},
		{"method wrong type", Params{"prune_method": true}},
		{"converge wrong type", Params{"converge_latent_estimates": "yes"}},
		{"frac_noise zero", Params{"frac_noise": 0.0}},
		{"frac_noise above one", Params{"frac_noise": 1.5}},
		{"cv_folds too small", Params{"cv_folds": 1}},
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

func TestRobustClassifier_NotFitted(t *testing.T) {
	clf := NewRobustClassifier(nil, DefaultRobustOptions())
	X := mat.NewDense(2, 2, nil)

	if _, err := clf.Predict(X); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict error = %v, want ErrNotFitted", err)
	}
	if _, err := clf.Score(X, []int{0, 1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Score error = %v, want ErrNotFitted", err)
	}
	if clf.NoiseMatrix() != nil || clf.Priors() != nil {
		t.Error("latent estimates available before fit")
	}
}

func TestRobustClassifier_CloneIsIndependent(t *testing.T) {
	X, _, noisy := makeNoisyBlobs(t, 3, 30, 47)

	clf := newRobustForTest(PruneByClass, false)
	clone := clf.Clone().(*RobustClassifier)

	if err := clf.Fit(X, noisy); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := clone.Predict(X); !errors.Is(err, ErrNotFitted) {
		t.Error("clone inherited fitted state")
	}
	if clone.Options() != clf.Options() {
		t.Errorf("clone options differ: %+v vs %+v", clone.Options(), clf.Options())
	}
}
