package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RobustOptions configures the noise-robust wrapper.
type RobustOptions struct {
	// PruneMethod selects how suspect examples are flagged:
	// PruneByClass, PruneByNoiseRate or PruneBoth (the intersection
	// of the other two).
	PruneMethod string

	// ConvergeLatentEstimates reconciles the independently estimated
	// latent statistics against their closed-form relations before
	// pruning.
	ConvergeLatentEstimates bool

	// FracNoise scales how much of the estimated label noise is
	// pruned, in (0, 1].
	FracNoise float64

	// CVFolds is the fold count for out-of-sample probabilities.
	CVFolds int

	// Seed drives fold assignment.
	Seed int64
}

// DefaultRobustOptions prunes by noise rate over 5 folds, removing the
// full estimated noise mass.
func DefaultRobustOptions() RobustOptions {
	return RobustOptions{
		PruneMethod: PruneByNoiseRate,
		FracNoise:   1.0,
		CVFolds:     5,
		Seed:        1,
	}
}

// RobustClassifier learns from labels with class-conditional noise. Fit
// estimates the latent joint between observed and true labels from
// cross-validated probabilities, prunes the examples most likely
// mislabeled, and refits the base classifier on the survivors weighted
// by inverse noise rate. Prediction delegates to the refit model.
type RobustClassifier struct {
	opts RobustOptions
	base Classifier

	model      Classifier
	noiseRates *mat.Dense // P(s|y), rows indexed by true class
	priors     []float64
	removed    []int
	classes    int
}

// NewRobustClassifier wraps base, which defaults to softmax regression
// when nil.
func NewRobustClassifier(base Classifier, opts RobustOptions) *RobustClassifier {
	if base == nil {
		base = NewSoftmaxRegression(DefaultSoftmaxOptions())
	}
	if opts.PruneMethod == "" {
		opts.PruneMethod = PruneByNoiseRate
	}
	if opts.FracNoise == 0 {
		opts.FracNoise = 1.0
	}
	if opts.CVFolds == 0 {
		opts.CVFolds = 5
	}
	return &RobustClassifier{opts: opts, base: base}
}

// SetParams accepts prune_method, converge_latent_estimates, frac_noise,
// cv_folds and seed. Unknown names are rejected so a mistyped grid key
// fails before any fitting starts.
func (r *RobustClassifier) SetParams(p Params) error {
	for key, val := range p {
		switch key {
		case ParamPruneMethod:
			if !isString(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected a string"}
			}
			m := p.GetString(key, "")
			if !validPruneMethod(m) {
				return &ConfigError{Key: key, Value: val, Reason: fmt.Sprintf("must be one of %q, %q, %q", PruneByClass, PruneByNoiseRate, PruneBoth)}
			}
			r.opts.PruneMethod = m
		case ParamConvergeLatentEstimates:
			if !isBool(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected a bool"}
			}
			r.opts.ConvergeLatentEstimates = p.GetBool(key, false)
		case ParamFracNoise:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected a number"}
			}
			f := p.GetFloat64(key, 0)
			if f <= 0 || f > 1 {
				return &ConfigError{Key: key, Value: val, Reason: "must be in (0, 1]"}
			}
			r.opts.FracNoise = f
		case ParamCVFolds:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected an integer"}
			}
			n := p.GetInt(key, 0)
			if n < 2 {
				return &ConfigError{Key: key, Value: val, Reason: "must be at least 2"}
			}
			r.opts.CVFolds = n
		case ParamSeed:
			if !isNumber(val) {
				return &ConfigError{Key: key, Value: val, Reason: "expected an integer"}
			}
			r.SetSeed(int64(p.GetInt(key, 0)))
		default:
			return &ConfigError{Key: key, Value: val, Reason: "unknown parameter"}
		}
	}
	return nil
}

// SetSeed implements Seeder, reseeding both the fold assignment and the
// base classifier when it supports seeding.
func (r *RobustClassifier) SetSeed(seed int64) {
	r.opts.Seed = seed
	if s, ok := r.base.(Seeder); ok {
		s.SetSeed(seed)
	}
}

// Options returns the current wrapper options.
func (r *RobustClassifier) Options() RobustOptions {
	return r.opts
}

// Clone returns an unfitted wrapper around a clone of the base.
func (r *RobustClassifier) Clone() Classifier {
	return NewRobustClassifier(r.base.Clone(), r.opts)
}

// Fit trains on features X and observed labels s, which may be noisy.
func (r *RobustClassifier) Fit(X *mat.Dense, s []int) error {
	if err := checkXY(X, s); err != nil {
		return err
	}
	k, err := numClasses(s)
	if err != nil {
		return err
	}
	if k < 2 {
		return fmt.Errorf("robust: need at least 2 classes, got %d", k)
	}

	psx, err := crossValProbs(r.base, X, s, k, r.opts.CVFolds, r.opts.Seed)
	if err != nil {
		return fmt.Errorf("robust: %w", err)
	}

	thresholds := classThresholds(psx, s, k)
	counts := confidentJoint(psx, s, thresholds)
	joint := calibrateJoint(counts, s, k)
	stats := estimateLatent(joint, s, k, r.opts.ConvergeLatentEstimates)

	var mask []bool
	switch r.opts.PruneMethod {
	case PruneByClass:
		mask = pruneByClassMask(psx, s, stats.joint, k, r.opts.FracNoise)
	case PruneByNoiseRate:
		mask = pruneByNoiseRateMask(psx, s, stats.joint, k, r.opts.FracNoise)
	case PruneBoth:
		mask = intersectMasks(
			pruneByClassMask(psx, s, stats.joint, k, r.opts.FracNoise),
			pruneByNoiseRateMask(psx, s, stats.joint, k, r.opts.FracNoise),
		)
	default:
		return &ConfigError{Key: ParamPruneMethod, Value: r.opts.PruneMethod, Reason: "unknown method"}
	}
	ensureClassCoverage(mask, psx, s, k)

	kept := make([]int, 0, len(s))
	for i := range s {
		if !mask[i] {
			kept = append(kept, i)
		}
	}
	keptX := takeRows(X, kept)
	keptY := takeInts(s, kept)

	// Reweight survivors by inverse noise rate so downweighted classes
	// keep their influence after pruning.
	weights := make([]float64, len(kept))
	for i, idx := range kept {
		c := s[idx]
		weights[i] = 1 / math.Max(stats.noiseRates.At(c, c), 1e-6)
	}

	refit := r.base.Clone()
	if wf, ok := refit.(WeightedFitter); ok {
		err = wf.FitWeighted(keptX, keptY, weights)
	} else {
		err = refit.Fit(keptX, keptY)
	}
	if err != nil {
		return fmt.Errorf("robust: refit on %d kept examples: %w", len(kept), err)
	}

	r.model = refit
	r.noiseRates = stats.noiseRates
	r.priors = stats.priors
	r.removed = maskToIndexes(mask)
	r.classes = k
	return nil
}

// Predict returns the refit model's class predictions.
func (r *RobustClassifier) Predict(X *mat.Dense) ([]int, error) {
	if r.model == nil {
		return nil, ErrNotFitted
	}
	return r.model.Predict(X)
}

// PredictProba returns the refit model's class probabilities.
func (r *RobustClassifier) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if r.model == nil {
		return nil, ErrNotFitted
	}
	return r.model.PredictProba(X)
}

// Score returns the refit model's accuracy on X against y.
func (r *RobustClassifier) Score(X *mat.Dense, y []int) (float64, error) {
	if r.model == nil {
		return 0, ErrNotFitted
	}
	return r.model.Score(X, y)
}

// NoiseMatrix returns the estimated P(s|y), rows indexed by true class,
// or nil when unfitted.
func (r *RobustClassifier) NoiseMatrix() *mat.Dense {
	if r.noiseRates == nil {
		return nil
	}
	return mat.DenseCopyOf(r.noiseRates)
}

// Priors returns the estimated latent class priors, or nil when unfitted.
func (r *RobustClassifier) Priors() []float64 {
	if r.priors == nil {
		return nil
	}
	return append([]float64(nil), r.priors...)
}

// RemovedIndices returns the pruned example indexes in ascending order.
func (r *RobustClassifier) RemovedIndices() []int {
	return append([]int(nil), r.removed...)
}

// NumClasses returns the class count seen during fit, or 0 when unfitted.
func (r *RobustClassifier) NumClasses() int {
	return r.classes
}
