package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/opt"
)

// stubOptimizer probes a fixed set of unit positions in the search box
// and returns the cheapest, standing in for real optimizers in tests.
type stubOptimizer struct {
	points [][]float64
}

func (s stubOptimizer) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	bestCost := math.Inf(1)
	var best []float64
	for _, unit := range s.points {
		x := make([]float64, dim)
		for i := 0; i < dim; i++ {
			x[i] = lower[i] + unit[i]*(upper[i]-lower[i])
		}
		if c := eval(x); c < bestCost {
			bestCost = c
			best = x
		}
	}
	return best, bestCost
}

func TestKnobDecode_Linear(t *testing.T) {
	k := Knob{Name: "alpha", Min: 2, Max: 6}

	cases := []struct {
		unit float64
		want float64
	}{
		{0, 2},
		{0.5, 4},
		{1, 6},
		{-0.2, 2}, // clamped
		{1.5, 6},  // clamped
	}
	for _, c := range cases {
		if got := k.decode(c.unit); got != c.want {
			t.Errorf("decode(%v) = %v, want %v", c.unit, got, c.want)
		}
	}
}

func TestKnobDecode_LogScale(t *testing.T) {
	k := Knob{Name: "l2", Min: 1e-4, Max: 1e-2, Log: true}

	cases := []struct {
		unit float64
		want float64
	}{
		{0, 1e-4},
		{0.5, 1e-3}, // geometric midpoint, not arithmetic
		{1, 1e-2},
	}
	for _, c := range cases {
		got := k.decode(c.unit)
		if math.Abs(got-c.want) > 1e-9*c.want {
			t.Errorf("decode(%v) = %v, want %v", c.unit, got, c.want)
		}
	}
}

func TestKnobValidate(t *testing.T) {
	cases := []struct {
		name    string
		knob    Knob
		wantErr bool
	}{
		{"valid linear", Knob{Name: "alpha", Min: 0, Max: 1}, false},
		{"valid log", Knob{Name: "l2", Min: 1e-4, Max: 1, Log: true}, false},
		{"missing name", Knob{Min: 0, Max: 1}, true},
		{"min equals max", Knob{Name: "alpha", Min: 1, Max: 1}, true},
		{"min above max", Knob{Name: "alpha", Min: 2, Max: 1}, true},
		{"log with zero min", Knob{Name: "l2", Min: 0, Max: 1, Log: true}, true},
		{"log with negative min", Knob{Name: "l2", Min: -1, Max: 1, Log: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.knob.validate()
			if c.wantErr && err == nil {
				t.Error("validate accepted an invalid knob")
			}
			if !c.wantErr && err != nil {
				t.Errorf("validate rejected a valid knob: %v", err)
			}
		})
	}
}

func TestTune_FindsBestKnobValue(t *testing.T) {
	knobs := []Knob{{Name: "alpha", Min: 0, Max: 1}}
	base := model.Params{"beta": 2.0}
	optimizer := stubOptimizer{points: [][]float64{{0}, {0.25}, {0.5}, {0.75}, {1}}}

	res, err := Tune(context.Background(), newFakeClassifier(), knobs, base, testData(t), optimizer, 0)
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}

	// The fake scores alpha itself, so the top of the range wins.
	if got := res.Params.GetFloat64("alpha", -1); got != 1 {
		t.Errorf("tuned alpha = %v, want 1", got)
	}
	if got := res.Params.GetFloat64("beta", -1); got != 2 {
		t.Errorf("base parameter beta = %v, want 2 carried through", got)
	}
	if res.Score != 1 {
		t.Errorf("Score = %v, want 1", res.Score)
	}
	if res.Estimator == nil {
		t.Error("Estimator is nil after refit")
	}
	if res.Evals != 5 {
		t.Errorf("Evals = %d, want 5", res.Evals)
	}
}

func TestTune_LogKnobDecodesIntoParams(t *testing.T) {
	knobs := []Knob{{Name: "alpha", Min: 1e-3, Max: 1e-1, Log: true}}
	optimizer := stubOptimizer{points: [][]float64{{0}, {0.5}, {1}}}

	res, err := Tune(context.Background(), newFakeClassifier(), knobs, model.Params{}, testData(t), optimizer, 0)
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}
	got := res.Params.GetFloat64("alpha", -1)
	if math.Abs(got-1e-1) > 1e-9 {
		t.Errorf("tuned alpha = %v, want 0.1 (top of the log range)", got)
	}
}

func TestTune_ValidatesBeforeSpendingBudget(t *testing.T) {
	data := testData(t)
	good := []Knob{{Name: "alpha", Min: 0, Max: 1}}
	optimizer := stubOptimizer{points: [][]float64{{0.5}}}

	if _, err := Tune(context.Background(), nil, good, nil, data, optimizer, 0); err == nil {
		t.Error("nil prototype accepted")
	}
	if _, err := Tune(context.Background(), newFakeClassifier(), good, nil, data, nil, 0); err == nil {
		t.Error("nil optimizer accepted")
	}
	if _, err := Tune(context.Background(), newFakeClassifier(), nil, nil, data, optimizer, 0); err == nil {
		t.Error("empty knob list accepted")
	}
	bad := []Knob{{Name: "alpha", Min: 1, Max: 0}}
	if _, err := Tune(context.Background(), newFakeClassifier(), bad, nil, data, optimizer, 0); err == nil {
		t.Error("inverted knob range accepted")
	}

	proto := newFakeClassifier()
	unknown := []Knob{{Name: "gamma", Min: 0, Max: 1}}
	_, err := Tune(context.Background(), proto, unknown, nil, data, optimizer, 0)
	if !errors.Is(err, &model.ConfigError{}) {
		t.Errorf("unknown knob name: error %v, want *model.ConfigError", err)
	}
	_, err = Tune(context.Background(), proto, good, model.Params{"delta": 1}, data, optimizer, 0)
	if !errors.Is(err, &model.ConfigError{}) {
		t.Errorf("invalid base parameter: error %v, want *model.ConfigError", err)
	}
	if got := proto.fits.Load(); got != 0 {
		t.Errorf("%d fits ran despite eager validation failures", got)
	}
}

// flakyClassifier fails to fit whenever alpha falls below 0.5, driving
// the candidate-penalty path.
type flakyClassifier struct {
	*fakeClassifier
}

func (f *flakyClassifier) Fit(X *mat.Dense, y []int) error {
	f.fits.Add(1)
	if f.alpha < 0.5 {
		return fmt.Errorf("alpha %v under threshold", f.alpha)
	}
	f.fitted = true
	return nil
}

func (f *flakyClassifier) Clone() model.Classifier {
	inner := f.fakeClassifier.Clone().(*fakeClassifier)
	return &flakyClassifier{inner}
}

func TestTune_PenalizesFailingCandidates(t *testing.T) {
	proto := &flakyClassifier{newFakeClassifier()}
	knobs := []Knob{{Name: "alpha", Min: 0, Max: 1}}
	optimizer := stubOptimizer{points: [][]float64{{0.2}, {0.4}, {0.6}, {0.8}}}

	res, err := Tune(context.Background(), proto, knobs, nil, testData(t), optimizer, 0)
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}
	// 0.2 and 0.4 cannot fit; 0.8 beats 0.6 on score.
	if got := res.Params.GetFloat64("alpha", -1); got != 0.8 {
		t.Errorf("tuned alpha = %v, want 0.8", got)
	}
	if res.Score != 0.8 {
		t.Errorf("Score = %v, want 0.8", res.Score)
	}
}

func TestTune_AllCandidatesFail(t *testing.T) {
	proto := &flakyClassifier{newFakeClassifier()}
	knobs := []Knob{{Name: "alpha", Min: 0, Max: 0.4}}
	optimizer := stubOptimizer{points: [][]float64{{0}, {0.5}, {1}}}

	if _, err := Tune(context.Background(), proto, knobs, nil, testData(t), optimizer, 0); err == nil {
		t.Fatal("Tune succeeded with no fittable candidate")
	}
}

func TestTune_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	knobs := []Knob{{Name: "alpha", Min: 0, Max: 1}}
	optimizer := stubOptimizer{points: [][]float64{{0.5}}}

	_, err := Tune(ctx, newFakeClassifier(), knobs, nil, testData(t), optimizer, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTune_WithMayflyOnRealEstimator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mayfly refinement in short mode")
	}
	data := blobData(t, 73)
	knobs := []Knob{
		{Name: "learning_rate", Min: 0.01, Max: 1, Log: true},
		{Name: "l2", Min: 1e-5, Max: 1e-1, Log: true},
	}
	base := model.Params{"epochs": 100}
	proto := model.NewSoftmaxRegression(model.DefaultSoftmaxOptions())

	res, err := Tune(context.Background(), proto, knobs, base, data, opt.NewMayfly(8, 20, 3), 7)
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}
	if res.Score < 0.9 {
		t.Errorf("refined validation accuracy = %v, want >= 0.9", res.Score)
	}
	lr := res.Params.GetFloat64("learning_rate", -1)
	if lr < 0.01 || lr > 1 {
		t.Errorf("learning_rate %v strayed outside [0.01, 1]", lr)
	}
	l2 := res.Params.GetFloat64("l2", -1)
	if l2 < 1e-5 || l2 > 1e-1 {
		t.Errorf("l2 %v strayed outside [1e-5, 1e-1]", l2)
	}
	if res.Evals == 0 {
		t.Error("optimizer reported zero evaluations")
	}
}
