package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxOptions configures the multinomial logistic regression learner.
type SoftmaxOptions struct {
	LearningRate float64
	Epochs       int
	L2           float64
	Seed         int64
	Convergence  ConvergenceConfig
}

// DefaultSoftmaxOptions returns the training defaults used by the CLI.
func DefaultSoftmaxOptions() SoftmaxOptions {
	return SoftmaxOptions{
		LearningRate: 0.5,
		Epochs:       200,
		L2:           1e-3,
		Seed:         1,
		Convergence:  DefaultConvergenceConfig(),
	}
}

// SoftmaxRegression is a multinomial logistic regression classifier
// trained by full-batch gradient descent on the cross-entropy loss with
// L2 regularization and early stopping. It supports per-sample weights,
// which the noise-robust wrapper uses when refitting on pruned data.
type SoftmaxRegression struct {
	opts SoftmaxOptions

	weights *mat.Dense // (d+1)×K, first row is the bias
	classes int
	fitted  bool
}

// NewSoftmaxRegression returns an unfitted learner with the given options.
func NewSoftmaxRegression(opts SoftmaxOptions) *SoftmaxRegression {
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.5
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 200
	}
	return &SoftmaxRegression{opts: opts}
}

// SetParams accepts learning_rate, epochs, l2 and seed.
func (s *SoftmaxRegression) SetParams(p Params) error {
	for key, val := range p {
		switch key {
		case ParamLearningRate:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected a number"}
			}
			lr := p.GetFloat64(key, 0)
			if lr <= 0 {
				return &ConfigError{Key: key, Value: val, Reason: "must be positive"}
			}
			s.opts.LearningRate = lr
		case ParamEpochs:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected an integer"}
			}
			n := p.GetInt(key, 0)
			if n < 1 {
				return &ConfigError{Key: key, Value: val, Reason: "must be at least 1"}
			}
			s.opts.Epochs = n
		case ParamL2:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected a number"}
			}
			l2 := p.GetFloat64(key, 0)
			if l2 < 0 {
				return &ConfigError{Key: key, Value: val, Reason: "must not be negative"}
			}
			s.opts.L2 = l2
		case ParamSeed:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected an integer"}
			}
			s.opts.Seed = int64(p.GetInt(key, 0))
		default:
			return &ConfigError{Key: key, Value: val, Reason: "unknown parameter"}
		}
	}
	return nil
}

// SetSeed implements Seeder.
func (s *SoftmaxRegression) SetSeed(seed int64) {
	s.opts.Seed = seed
}

// Options returns the current training options.
func (s *SoftmaxRegression) Options() SoftmaxOptions {
	return s.opts
}

// Clone returns an unfitted copy with the same options.
func (s *SoftmaxRegression) Clone() Classifier {
	return NewSoftmaxRegression(s.opts)
}

// Fit trains on X and y with uniform sample weights.
func (s *SoftmaxRegression) Fit(X *mat.Dense, y []int) error {
	return s.FitWeighted(X, y, nil)
}

// FitWeighted trains with one non-negative weight per sample. A nil
// weights slice means uniform weighting.
func (s *SoftmaxRegression) FitWeighted(X *mat.Dense, y []int, weights []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	k, err := numClasses(y)
	if err != nil {
		return err
	}
	if k < 2 {
		return fmt.Errorf("softmax: need at least 2 classes, got %d", k)
	}
	n, d := X.Dims()
	if weights != nil && len(weights) != n {
		return &ShapeError{What: "sample weight count", Got: len(weights), Want: n}
	}

	totalWeight := float64(n)
	if weights != nil {
		totalWeight = 0
		for i, w := range weights {
			if w < 0 {
				return fmt.Errorf("softmax: negative sample weight at index %d", i)
			}
			totalWeight += w
		}
		if totalWeight <= 0 {
			return fmt.Errorf("softmax: sample weights sum to zero")
		}
	}

	aug := augment(X)

	// Small seeded init keeps runs reproducible per seed.
	rng := rand.New(rand.NewSource(s.opts.Seed))
	w := mat.NewDense(d+1, k, nil)
	for i := 0; i < d+1; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, rng.NormFloat64()*0.01)
		}
	}

	tracker := NewConvergenceTracker(s.opts.Convergence)
	probs := mat.NewDense(n, k, nil)
	grad := mat.NewDense(d+1, k, nil)

	for epoch := 0; epoch < s.opts.Epochs; epoch++ {
		probs.Mul(aug, w)
		softmaxRows(probs)

		// diff = (probs - onehot(y)) scaled per row by weight/totalWeight.
		loss := 0.0
		for i := 0; i < n; i++ {
			wi := 1.0
			if weights != nil {
				wi = weights[i]
			}
			p := math.Max(probs.At(i, y[i]), 1e-12)
			loss -= wi * math.Log(p)
			scale := wi / totalWeight
			for j := 0; j < k; j++ {
				v := probs.At(i, j)
				if j == y[i] {
					v -= 1
				}
				probs.Set(i, j, v*scale)
			}
		}
		loss /= totalWeight

		grad.Mul(aug.T(), probs)
		for i := 1; i < d+1; i++ { // bias row stays unregularized
			for j := 0; j < k; j++ {
				wij := w.At(i, j)
				grad.Set(i, j, grad.At(i, j)+s.opts.L2*wij)
				loss += 0.5 * s.opts.L2 * wij * wij / totalWeight
			}
		}

		grad.Scale(s.opts.LearningRate, grad)
		w.Sub(w, grad)

		if tracker.Update(loss) {
			break
		}
	}

	s.weights = w
	s.classes = k
	s.fitted = true
	return nil
}

// PredictProba returns an n×K matrix of class probabilities.
func (s *SoftmaxRegression) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	_, d := X.Dims()
	wd, _ := s.weights.Dims()
	if d != wd-1 {
		return nil, &ShapeError{What: "feature count", Got: d, Want: wd - 1}
	}
	n, _ := X.Dims()
	probs := mat.NewDense(n, s.classes, nil)
	probs.Mul(augment(X), s.weights)
	softmaxRows(probs)
	return probs, nil
}

// Predict returns the most probable class per row.
func (s *SoftmaxRegression) Predict(X *mat.Dense) ([]int, error) {
	probs, err := s.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probs.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = floats.MaxIdx(probs.RawRowView(i))
	}
	return out, nil
}

// Score returns accuracy on X against y.
func (s *SoftmaxRegression) Score(X *mat.Dense, y []int) (float64, error) {
	if err := checkXY(X, y); err != nil {
		return 0, err
	}
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range pred {
		if p == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

// NumClasses returns the class count seen during fit, or 0 when unfitted.
func (s *SoftmaxRegression) NumClasses() int {
	return s.classes
}

// augment prepends a column of ones for the bias term.
func augment(X *mat.Dense) *mat.Dense {
	n, d := X.Dims()
	aug := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		aug.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			aug.Set(i, j+1, X.At(i, j))
		}
	}
	return aug
}

// softmaxRows turns each row of logits into a probability distribution,
// shifting by the row max for numeric stability.
func softmaxRows(m *mat.Dense) {
	n, k := m.Dims()
	for i := 0; i < n; i++ {
		row := m.RawRowView(i)
		max := floats.Max(row)
		sum := 0.0
		for j := 0; j < k; j++ {
			row[j] = math.Exp(row[j] - max)
			sum += row[j]
		}
		for j := 0; j < k; j++ {
			row[j] /= sum
		}
	}
}
