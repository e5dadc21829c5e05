package server

import (
	"time"

	"github.com/cwbudde/noisesweep/internal/search"
	"github.com/cwbudde/noisesweep/internal/store"
)

// gridFromConfig rebuilds the search grid, preserving the declared
// parameter order.
func gridFromConfig(params []store.GridParam) *search.Grid {
	grid := search.NewGrid()
	for _, p := range params {
		grid.Add(p.Name, p.Values...)
	}
	return grid
}

// buildResult assembles the persistable record of a finished sweep.
func buildResult(jobID string, cfg store.SweepConfig, out *search.Outcome, testScore float64, startedAt time.Time, elapsed time.Duration) *store.SweepResult {
	trials := make([]store.TrialRecord, len(out.Trials))
	for i, tr := range out.Trials {
		trials[i] = trialRecord(tr)
	}

	return &store.SweepResult{
		JobID:      jobID,
		Config:     cfg,
		BestIndex:  out.BestIndex,
		BestParams: out.BestParams.Copy(),
		BestScore:  out.BestScore,
		TestScore:  testScore,
		Trials:     trials,
		Failed:     len(out.Failed),
		StartedAt:  startedAt,
		Duration:   elapsed,
	}
}

// trialRecord converts a completed trial into its persisted form.
func trialRecord(tr search.Trial) store.TrialRecord {
	rec := store.TrialRecord{
		Index:  tr.Index,
		Params: tr.Params.Copy(),
	}
	if tr.Err != nil {
		rec.Error = tr.Err.Error()
	} else {
		rec.Score = tr.Score
	}
	return rec
}
