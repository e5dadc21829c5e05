package dataset

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/noisesweep/internal/model"
)

// StandardScaler centers each feature at zero mean and scales it to unit
// variance using statistics learned on a reference split, so validation
// and test data transform with the training statistics.
type StandardScaler struct {
	means []float64
	stds  []float64
}

// Fit learns per-column mean and standard deviation. Columns with zero
// variance keep a scale of 1 so they pass through centered but unscaled.
func (s *StandardScaler) Fit(X *mat.Dense) error {
	if X == nil {
		return &model.ShapeError{What: "feature matrix rows", Got: 0, Want: 1}
	}
	n, d := X.Dims()
	if n == 0 {
		return &model.ShapeError{What: "feature matrix rows", Got: 0, Want: 1}
	}
	s.means = make([]float64, d)
	s.stds = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		mean, std := stat.MeanStdDev(col, nil)
		s.means[j] = mean
		if std == 0 || n == 1 {
			std = 1
		}
		s.stds[j] = std
	}
	return nil
}

// Transform returns a standardized copy of X using the fitted statistics.
func (s *StandardScaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	if s.means == nil {
		return nil, model.ErrNotFitted
	}
	n, d := X.Dims()
	if d != len(s.means) {
		return nil, &model.ShapeError{What: "feature count", Got: d, Want: len(s.means)}
	}
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, (X.At(i, j)-s.means[j])/s.stds[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and returns its standardized copy.
func (s *StandardScaler) FitTransform(X *mat.Dense) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Means returns the fitted per-column means, or nil before Fit.
func (s *StandardScaler) Means() []float64 {
	return append([]float64(nil), s.means...)
}

// Stds returns the fitted per-column standard deviations, or nil before
// Fit.
func (s *StandardScaler) Stds() []float64 {
	return append([]float64(nil), s.stds...)
}
