package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/noisesweep/internal/model"
)

// Data holds the fixed train and validation splits every trial uses.
type Data struct {
	XTrain *mat.Dense
	YTrain []int
	XVal   *mat.Dense
	YVal   []int
}

// validate checks the split shapes once, before any trial runs.
func (d Data) validate() error {
	if d.XTrain == nil {
		return &model.ShapeError{What: "training rows", Got: 0, Want: 1}
	}
	if d.XVal == nil {
		return &model.ShapeError{What: "validation rows", Got: 0, Want: 1}
	}
	nTrain, dTrain := d.XTrain.Dims()
	nVal, dVal := d.XVal.Dims()
	if nTrain != len(d.YTrain) {
		return &model.ShapeError{What: "training label count", Got: len(d.YTrain), Want: nTrain}
	}
	if nVal != len(d.YVal) {
		return &model.ShapeError{What: "validation label count", Got: len(d.YVal), Want: nVal}
	}
	if dTrain != dVal {
		return &model.ShapeError{What: "validation feature count", Got: dVal, Want: dTrain}
	}
	return nil
}

// Options tunes how the sweep executes.
type Options struct {
	// Workers bounds concurrent trials; non-positive means NumCPU.
	Workers int

	// Seed, when non-zero, is applied to every trial's clone so
	// repeated sweeps are reproducible.
	Seed int64

	// OnTrial, when set, observes each completed trial. Calls are
	// serialized; done counts completions, not enumeration order.
	OnTrial func(done, total int, tr Trial)
}

// Trial is the outcome of one configuration. Either Estimator is the
// fitted clone with its validation Score, or Err holds the *FitError
// that sank the trial.
type Trial struct {
	Index     int
	Params    model.Params
	Score     float64
	Estimator model.Classifier
	Err       error
}

// Outcome is a completed sweep. Trials holds every trial in enumeration
// order; Failed is the subset with errors. Best* describe the highest
// validation score, with ties going to the earliest enumeration index.
type Outcome struct {
	BestIndex  int
	BestParams model.Params
	BestScore  float64
	Best       model.Classifier
	Trials     []Trial
	Failed     []Trial
}

// Run evaluates every configuration of the grid against the prototype:
// clone, configure, fit on the training split, score on the validation
// split. Configurations are validated up front, so an unknown key or
// ill-typed value aborts before any fitting starts. Individual fit
// failures are recorded and skipped; Run fails only when the grid or
// data is unusable, the context is canceled, or every trial failed.
func Run(ctx context.Context, prototype model.Classifier, grid *Grid, data Data, opts Options) (*Outcome, error) {
	if prototype == nil {
		return nil, fmt.Errorf("no prototype estimator")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := data.validate(); err != nil {
		return nil, err
	}

	configs := grid.Configurations()
	for i, cfg := range configs {
		probe := prototype.Clone()
		if err := probe.SetParams(cfg.Copy()); err != nil {
			return nil, fmt.Errorf("configuration %d: %w", i, err)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	slog.Info("Starting grid sweep",
		"configurations", len(configs),
		"workers", workers,
		"grid_keys", grid.Keys(),
	)

	results := make([]Trial, len(configs))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cfg := range configs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr := runTrial(i, cfg, prototype, data, opts.Seed)
			results[i] = tr

			mu.Lock()
			done++
			count := done
			if opts.OnTrial != nil {
				opts.OnTrial(count, len(configs), tr)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep aborted: %w", err)
	}

	outcome := &Outcome{BestIndex: -1, Trials: results}
	for i := range results {
		tr := results[i]
		if tr.Err != nil {
			outcome.Failed = append(outcome.Failed, tr)
			slog.Warn("Trial failed", "trial", tr.Index, "error", tr.Err)
			continue
		}
		if outcome.BestIndex < 0 || tr.Score > outcome.BestScore {
			outcome.BestIndex = tr.Index
			outcome.BestParams = tr.Params
			outcome.BestScore = tr.Score
			outcome.Best = tr.Estimator
		}
	}
	if outcome.BestIndex < 0 {
		return nil, fmt.Errorf("all %d trials failed, first: %w", len(results), outcome.Failed[0].Err)
	}

	slog.Info("Grid sweep finished",
		"best_index", outcome.BestIndex,
		"best_score", outcome.BestScore,
		"failed", len(outcome.Failed),
	)
	return outcome, nil
}

// runTrial executes one configuration on its own clone.
func runTrial(index int, cfg model.Params, prototype model.Classifier, data Data, seed int64) Trial {
	tr := Trial{Index: index, Params: cfg}

	clone := prototype.Clone()
	if seed != 0 {
		if s, ok := clone.(model.Seeder); ok {
			s.SetSeed(seed)
		}
	}
	if err := clone.SetParams(cfg.Copy()); err != nil {
		tr.Err = &FitError{Index: index, Params: cfg, Err: err}
		return tr
	}
	if err := clone.Fit(data.XTrain, data.YTrain); err != nil {
		tr.Err = &FitError{Index: index, Params: cfg, Err: err}
		return tr
	}
	score, err := clone.Score(data.XVal, data.YVal)
	if err != nil {
		tr.Err = &FitError{Index: index, Params: cfg, Err: err}
		return tr
	}
	tr.Score = score
	tr.Estimator = clone
	return tr
}
