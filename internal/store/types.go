package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/noisesweep/internal/dataset"
	"github.com/cwbudde/noisesweep/internal/model"
)

// NoiseConfig describes the label corruption applied to the training
// and validation splits.
type NoiseConfig struct {
	// Trace is the target sum of the noise matrix diagonal. Lower
	// values mean noisier labels.
	Trace float64 `json:"trace" yaml:"trace"`

	// Sparsity is the fraction of off-diagonal noise rates forced to
	// zero, in [0, 1).
	Sparsity float64 `json:"sparsity" yaml:"sparsity"`
}

// GridParam is one hyperparameter axis of the sweep grid. The slice
// order in SweepConfig.Grid fixes the trial enumeration order, which a
// plain JSON object could not preserve.
type GridParam struct {
	Name   string `json:"name" yaml:"name"`
	Values []any  `json:"values" yaml:"values"`
}

// SweepConfig is the full recipe for a sweep job. It lives here rather
// than in the server package so both the HTTP API and the persisted
// results share one schema without import cycles.
type SweepConfig struct {
	Dataset dataset.Options   `json:"dataset" yaml:"dataset"`
	Split   dataset.Fractions `json:"split" yaml:"split"`
	Noise   NoiseConfig       `json:"noise" yaml:"noise"`
	Grid    []GridParam       `json:"grid" yaml:"grid"`

	// Workers bounds concurrent trials; 0 lets the sweep pick.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Seed drives dataset generation, splitting, noise sampling and
	// trial fitting, making the whole job reproducible.
	Seed int64 `json:"seed" yaml:"seed"`
}

// ApplyDefaults fills unset fields with the standard demo values. The
// grid is the one thing a config must always carry.
func (c *SweepConfig) ApplyDefaults() {
	if c.Seed == 0 {
		c.Seed = 1
	}
	defaults := dataset.DefaultOptions()
	if c.Dataset.Classes == 0 {
		c.Dataset.Classes = defaults.Classes
	}
	if c.Dataset.Samples == 0 {
		c.Dataset.Samples = defaults.Samples
	}
	if c.Dataset.Features == 0 {
		c.Dataset.Features = defaults.Features
	}
	if c.Dataset.ClusterStd == 0 {
		c.Dataset.ClusterStd = defaults.ClusterStd
	}
	if c.Dataset.Separation == 0 {
		c.Dataset.Separation = defaults.Separation
	}
	if c.Dataset.Seed == 0 {
		c.Dataset.Seed = c.Seed
	}
	if c.Split == (dataset.Fractions{}) {
		c.Split = dataset.DefaultFractions()
	}
	if c.Noise.Trace == 0 {
		// Keep 65% of labels intact per class by default.
		c.Noise.Trace = 0.65 * float64(c.Dataset.Classes)
	}
}

// Validate checks the config is structurally runnable.
func (c *SweepConfig) Validate() error {
	if err := c.Dataset.Validate(); err != nil {
		return &ValidationError{Field: "Dataset", Reason: err.Error()}
	}
	if err := c.Split.Validate(); err != nil {
		return &ValidationError{Field: "Split", Reason: err.Error()}
	}
	if c.Noise.Trace <= 0 || c.Noise.Trace > float64(c.Dataset.Classes) {
		return &ValidationError{
			Field:  "Noise.Trace",
			Reason: fmt.Sprintf("must be in (0, %d], got %v", c.Dataset.Classes, c.Noise.Trace),
		}
	}
	if c.Noise.Sparsity < 0 || c.Noise.Sparsity >= 1 {
		return &ValidationError{
			Field:  "Noise.Sparsity",
			Reason: fmt.Sprintf("must be in [0, 1), got %v", c.Noise.Sparsity),
		}
	}
	if len(c.Grid) == 0 {
		return &ValidationError{Field: "Grid", Reason: "cannot be empty"}
	}
	for i, p := range c.Grid {
		if p.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("Grid[%d]", i), Reason: "parameter name cannot be empty"}
		}
		if len(p.Values) == 0 {
			return &ValidationError{Field: fmt.Sprintf("Grid[%d]", i), Reason: "parameter needs at least one value"}
		}
	}
	if c.Workers < 0 {
		return &ValidationError{Field: "Workers", Reason: "cannot be negative"}
	}
	return nil
}

// TrialRecord is one completed trial, as persisted. Error is the
// failure message for skipped trials and empty for scored ones.
type TrialRecord struct {
	Index  int          `json:"index"`
	Params model.Params `json:"params"`
	Score  float64      `json:"score,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// SweepResult is the persisted outcome of a finished sweep job.
type SweepResult struct {
	// JobID is the unique identifier of the job that produced this
	// result.
	JobID string `json:"jobId"`

	// Config is the recipe the job ran with, kept alongside the
	// result so a sweep can be reproduced from its result file alone.
	Config SweepConfig `json:"config"`

	// BestIndex is the enumeration index of the winning trial.
	BestIndex int `json:"bestIndex"`

	// BestParams is the winning hyperparameter configuration.
	BestParams model.Params `json:"bestParams"`

	// BestScore is the validation accuracy of the winning trial.
	BestScore float64 `json:"bestScore"`

	// TestScore is the accuracy of the winning estimator on the
	// held-out clean test split, -1 when the job ran without one.
	TestScore float64 `json:"testScore"`

	// Trials holds every trial in enumeration order, including the
	// failed ones.
	Trials []TrialRecord `json:"trials"`

	// Failed counts the trials whose records carry an error.
	Failed int `json:"failed"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// SweepInfo is result metadata for listings, without the per-trial
// records.
type SweepInfo struct {
	JobID     string    `json:"jobId"`
	BestScore float64   `json:"bestScore"`
	TestScore float64   `json:"testScore"`
	Trials    int       `json:"trials"`
	Failed    int       `json:"failed"`
	Classes   int       `json:"classes"`
	Samples   int       `json:"samples"`
	StartedAt time.Time `json:"startedAt"`
}

// ToInfo strips a result down to listing metadata.
func (r *SweepResult) ToInfo() SweepInfo {
	return SweepInfo{
		JobID:     r.JobID,
		BestScore: r.BestScore,
		TestScore: r.TestScore,
		Trials:    len(r.Trials),
		Failed:    r.Failed,
		Classes:   r.Config.Dataset.Classes,
		Samples:   r.Config.Dataset.Samples,
		StartedAt: r.StartedAt,
	}
}

// Validate checks the result for structural consistency before it is
// persisted or served.
func (r *SweepResult) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if len(r.Trials) == 0 {
		return &ValidationError{Field: "Trials", Reason: "cannot be empty"}
	}
	if r.BestIndex < 0 || r.BestIndex >= len(r.Trials) {
		return &ValidationError{
			Field:  "BestIndex",
			Reason: fmt.Sprintf("out of range: %d with %d trials", r.BestIndex, len(r.Trials)),
		}
	}
	if len(r.BestParams) == 0 {
		return &ValidationError{Field: "BestParams", Reason: "cannot be empty"}
	}
	if r.BestScore < 0 || r.BestScore > 1 {
		return &ValidationError{Field: "BestScore", Reason: "accuracy must be in [0, 1]"}
	}
	if r.TestScore != -1 && (r.TestScore < 0 || r.TestScore > 1) {
		return &ValidationError{Field: "TestScore", Reason: "accuracy must be in [0, 1] or -1 when absent"}
	}
	failed := 0
	for _, tr := range r.Trials {
		if tr.Error != "" {
			failed++
		}
	}
	if failed != r.Failed {
		return &ValidationError{
			Field:  "Failed",
			Reason: fmt.Sprintf("count %d does not match %d trial records with errors", r.Failed, failed),
		}
	}
	if r.StartedAt.IsZero() {
		return &ValidationError{Field: "StartedAt", Reason: "cannot be zero"}
	}
	if r.Duration < 0 {
		return &ValidationError{Field: "Duration", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError represents a config or result validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
