package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/opt"
)

// Knob declares one continuous hyperparameter for refinement.
type Knob struct {
	// Name is the parameter name the estimator accepts.
	Name string

	// Min and Max bound the knob, inclusive.
	Min float64
	Max float64

	// Log searches the knob on a log10 scale, for ranges spanning
	// orders of magnitude such as regularization strengths.
	Log bool
}

// decode maps a unit-interval position into the knob's range.
func (k Knob) decode(u float64) float64 {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	if k.Log {
		lo, hi := math.Log10(k.Min), math.Log10(k.Max)
		return math.Pow(10, lo+u*(hi-lo))
	}
	return k.Min + u*(k.Max-k.Min)
}

func (k Knob) validate() error {
	if k.Name == "" {
		return fmt.Errorf("knob without a name")
	}
	if !(k.Min < k.Max) {
		return fmt.Errorf("knob %q: min %v must be below max %v", k.Name, k.Min, k.Max)
	}
	if k.Log && k.Min <= 0 {
		return fmt.Errorf("knob %q: log scale needs a positive min, got %v", k.Name, k.Min)
	}
	return nil
}

// TuneResult is the refined configuration found by the optimizer.
type TuneResult struct {
	Params    model.Params     // base params plus the tuned knob values
	Score     float64          // validation accuracy of the refit estimator
	Estimator model.Classifier // refit on the training split with Params
	Evals     int              // objective evaluations spent
}

// Tune refines continuous knobs around a fixed base configuration by
// minimizing 1 - validation accuracy with the given optimizer. Failing
// candidates are penalized rather than aborting the run. The best knob
// values are refit once more to produce the returned estimator.
func Tune(ctx context.Context, prototype model.Classifier, knobs []Knob, base model.Params, data Data, optimizer opt.Optimizer, seed int64) (*TuneResult, error) {
	if prototype == nil {
		return nil, fmt.Errorf("no prototype estimator")
	}
	if optimizer == nil {
		return nil, fmt.Errorf("no optimizer")
	}
	if len(knobs) == 0 {
		return nil, fmt.Errorf("no knobs to tune")
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	for _, k := range knobs {
		if err := k.validate(); err != nil {
			return nil, err
		}
	}

	// Validate the base configuration and knob names before spending
	// any optimizer budget.
	probe := prototype.Clone()
	if err := probe.SetParams(base.Copy()); err != nil {
		return nil, fmt.Errorf("base configuration: %w", err)
	}
	midpoint := make(model.Params, len(knobs))
	for _, k := range knobs {
		midpoint[k.Name] = k.decode(0.5)
	}
	if err := probe.SetParams(midpoint); err != nil {
		return nil, fmt.Errorf("knob configuration: %w", err)
	}

	assemble := func(unit []float64) model.Params {
		p := base.Copy()
		for i, k := range knobs {
			p[k.Name] = k.decode(unit[i])
		}
		return p
	}

	evals := 0
	objective := func(unit []float64) float64 {
		evals++
		if ctx.Err() != nil {
			return 2 // worst-dominating penalty, accuracy loss is in [0,1]
		}
		tr := runTrial(evals-1, assemble(unit), prototype, data, seed)
		if tr.Err != nil {
			slog.Debug("Tune candidate failed", "eval", evals, "error", tr.Err)
			return 2
		}
		return 1 - tr.Score
	}

	// The optimizer works in the unit cube; knobs decode positions
	// themselves so log-scaled ranges stay uniform to the search.
	lower := make([]float64, len(knobs))
	upper := make([]float64, len(knobs))
	for i := range knobs {
		upper[i] = 1
	}

	slog.Info("Starting knob refinement", "knobs", len(knobs), "base", base)
	bestUnit, bestCost := optimizer.Run(objective, lower, upper, len(knobs))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tune aborted: %w", err)
	}
	if bestCost > 1 {
		return nil, fmt.Errorf("no tune candidate fit successfully after %d evaluations", evals)
	}

	bestParams := assemble(bestUnit)
	final := runTrial(0, bestParams, prototype, data, seed)
	if final.Err != nil {
		return nil, fmt.Errorf("refit of tuned configuration: %w", final.Err)
	}

	slog.Info("Knob refinement finished",
		"params", bestParams,
		"score", final.Score,
		"evals", evals,
	)
	return &TuneResult{
		Params:    bestParams,
		Score:     final.Score,
		Estimator: final.Estimator,
		Evals:     evals,
	}, nil
}
