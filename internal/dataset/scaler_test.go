package dataset

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/noisesweep/internal/model"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X, _, err := Generate(Options{Classes: 2, Samples: 80, Features: 3, ClusterStd: 2, Separation: 6, Seed: 5})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var scaler StandardScaler
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	n, d := scaled.Dims()
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, scaled)
		mean, std := stat.MeanStdDev(col, nil)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}
}

func TestStandardScaler_TransformUsesFittedStats(t *testing.T) {
	train := mat.NewDense(4, 1, []float64{0, 2, 4, 6}) // mean 3
	other := mat.NewDense(2, 1, []float64{3, 3})

	var scaler StandardScaler
	if err := scaler.Fit(train); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	got, err := scaler.Transform(other)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	// Rows equal to the training mean must land exactly at zero.
	for i := 0; i < 2; i++ {
		if got.At(i, 0) != 0 {
			t.Errorf("row %d = %v, want 0", i, got.At(i, 0))
		}
	}
}

func TestStandardScaler_ConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
	})
	var scaler StandardScaler
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	// Constant column centers to zero without dividing by zero.
	for i := 0; i < 3; i++ {
		if v := scaled.At(i, 0); v != 0 || math.IsNaN(v) {
			t.Errorf("constant column row %d = %v, want 0", i, v)
		}
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	var scaler StandardScaler
	if _, err := scaler.Transform(mat.NewDense(1, 1, nil)); !errors.Is(err, model.ErrNotFitted) {
		t.Errorf("Transform before Fit: error %v, want ErrNotFitted", err)
	}

	if err := scaler.Fit(mat.NewDense(3, 2, nil)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := scaler.Transform(mat.NewDense(2, 5, nil)); !errors.Is(err, &model.ShapeError{}) {
		t.Errorf("column mismatch: error %v, want *ShapeError", err)
	}
}
