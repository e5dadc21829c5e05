// Package model provides the classifiers evaluated by the sweep: a
// softmax-regression base learner and a noise-robust wrapper that prunes
// suspect labels before refitting. Estimators are configured through
// Params, cloned per trial, and score with plain accuracy.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Classifier is the estimator surface the sweep evaluator works against.
// Implementations must be cheap to Clone: a clone shares configuration
// but no fitted state, so clones can fit concurrently.
type Classifier interface {
	// SetParams applies hyperparameters, rejecting unknown names or
	// ill-typed values with a *ConfigError.
	SetParams(p Params) error

	// Fit trains on X (n×d) and labels y (len n, classes 0..K-1).
	Fit(X *mat.Dense, y []int) error

	// Predict returns the predicted class per row of X.
	Predict(X *mat.Dense) ([]int, error)

	// PredictProba returns an n×K matrix of class probabilities.
	PredictProba(X *mat.Dense) (*mat.Dense, error)

	// Score returns accuracy on X against y.
	Score(X *mat.Dense, y []int) (float64, error)

	// Clone returns a fresh unfitted estimator with the same configuration.
	Clone() Classifier
}

// Seeder is implemented by estimators whose randomness can be re-seeded,
// letting a sweep pin every trial to one reproducible stream.
type Seeder interface {
	SetSeed(seed int64)
}

// WeightedFitter is implemented by estimators that accept per-sample
// weights. The robust wrapper uses it to reweight kept examples by
// their inverse noise rate when refitting.
type WeightedFitter interface {
	FitWeighted(X *mat.Dense, y []int, weights []float64) error
}

// checkXY validates that X and y agree on the sample count.
func checkXY(X *mat.Dense, y []int) error {
	if X == nil {
		return &ShapeError{What: "feature matrix rows", Got: 0, Want: len(y)}
	}
	n, _ := X.Dims()
	if n != len(y) {
		return &ShapeError{What: "label count", Got: len(y), Want: n}
	}
	if n == 0 {
		return &ShapeError{What: "sample count", Got: 0, Want: 1}
	}
	return nil
}

// numClasses returns 1 + max(y), validating labels are non-negative.
func numClasses(y []int) (int, error) {
	maxLabel := -1
	for i, label := range y {
		if label < 0 {
			return 0, fmt.Errorf("negative class label %d at index %d", label, i)
		}
		if label > maxLabel {
			maxLabel = label
		}
	}
	return maxLabel + 1, nil
}
