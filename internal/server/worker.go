package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/noisesweep/internal/dataset"
	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/noise"
	"github.com/cwbudde/noisesweep/internal/search"
	"github.com/cwbudde/noisesweep/internal/store"
)

// runJob executes a sweep job in the background: generate the dataset,
// corrupt the labels, fit the grid, score the winner on the clean test
// split. If resultStore is not nil the full result is persisted when
// the sweep finishes.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting sweep",
		"job_id", jobID,
		"classes", cfg.Dataset.Classes,
		"samples", cfg.Dataset.Samples,
		"grid_params", len(cfg.Grid),
	)

	// Build the data: clusters, standardization, split, label noise.
	X, y, err := dataset.Generate(cfg.Dataset)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to generate dataset: %w", err))
		return err
	}

	var scaler dataset.StandardScaler
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to standardize features: %w", err))
		return err
	}

	splits, err := dataset.Split(Xs, y, cfg.Split, cfg.Seed)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to split dataset: %w", err))
		return err
	}

	priors, err := noise.EstimatePriors(y, cfg.Dataset.Classes)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to estimate priors: %w", err))
		return err
	}

	m, err := noise.GenerateMatrix(noise.MatrixOptions{
		Classes:  cfg.Dataset.Classes,
		Trace:    cfg.Noise.Trace,
		Sparsity: cfg.Noise.Sparsity,
		Priors:   priors,
		Seed:     cfg.Seed,
	})
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to generate noise matrix: %w", err))
		return err
	}

	// Train and validation labels are corrupted with distinct streams;
	// the test labels stay clean so the final score is honest.
	yTrainNoisy, err := noise.Corrupt(splits.YTrain, m, cfg.Seed)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to corrupt training labels: %w", err))
		return err
	}
	yValNoisy, err := noise.Corrupt(splits.YVal, m, cfg.Seed+1)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to corrupt validation labels: %w", err))
		return err
	}

	grid := gridFromConfig(cfg.Grid)
	total := grid.Size()
	jm.UpdateJob(jobID, func(j *Job) {
		j.TrialsTotal = total
	})

	// Trial records stream to a JSONL log next to the result when the
	// store is filesystem-backed.
	var trialLog *store.TrialWriter
	if fsStore, ok := resultStore.(*store.FSStore); ok {
		trialLog, err = store.NewTrialWriter(fsStore.BaseDir(), jobID, false)
		if err != nil {
			slog.Warn("Failed to open trial log", "job_id", jobID, "error", err)
		} else {
			defer trialLog.Close()
		}
	}

	prototype := model.NewRobustClassifier(nil, model.DefaultRobustOptions())

	data := search.Data{
		XTrain: splits.XTrain,
		YTrain: yTrainNoisy,
		XVal:   splits.XVal,
		YVal:   yValNoisy,
	}

	// Check for cancellation before starting the expensive part.
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()
	out, err := search.Run(ctx, prototype, grid, data, search.Options{
		Workers: cfg.Workers,
		Seed:    cfg.Seed,
		OnTrial: func(done, total int, tr search.Trial) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.TrialsDone = done
				if tr.Err == nil && betterTrial(j, tr) {
					j.BestIndex = tr.Index
					j.BestParams = tr.Params.Copy()
					j.BestScore = tr.Score
				}
			})
			if trialLog != nil {
				if werr := trialLog.Write(trialRecord(tr)); werr != nil {
					slog.Warn("Failed to log trial", "job_id", jobID, "trial", tr.Index, "error", werr)
				}
			}
			cur, ok := jm.GetJob(jobID)
			if !ok {
				return
			}
			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:       jobID,
				State:       cur.State,
				TrialsDone:  done,
				TrialsTotal: total,
				BestScore:   cur.BestScore,
				Timestamp:   time.Now(),
			})
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			markJobCancelled(jm, jobID)
			return ctx.Err()
		}
		markJobFailed(jm, jobID, err)
		return err
	}
	elapsed := time.Since(start)

	if trialLog != nil {
		if ferr := trialLog.Flush(); ferr != nil {
			slog.Warn("Failed to flush trial log", "job_id", jobID, "error", ferr)
		}
	}

	// Score the winning estimator on the untouched test split.
	testScore := -1.0
	if splits.XTest != nil {
		testScore, err = out.Best.Score(splits.XTest, splits.YTest)
		if err != nil {
			markJobFailed(jm, jobID, fmt.Errorf("failed to score test split: %w", err))
			return err
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.TrialsDone = len(out.Trials)
		j.BestIndex = out.BestIndex
		j.BestParams = out.BestParams.Copy()
		j.BestScore = out.BestScore
		j.TestScore = testScore
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	result := buildResult(jobID, cfg, out, testScore, job.StartTime, elapsed)
	jm.SetResult(jobID, result)
	if resultStore != nil {
		if serr := resultStore.SaveResult(jobID, result); serr != nil {
			slog.Warn("Failed to persist result", "job_id", jobID, "error", serr)
		}
	}

	slog.Info("Sweep completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"best_index", out.BestIndex,
		"best_score", out.BestScore,
		"test_score", testScore,
		"failed", len(out.Failed),
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       StateCompleted,
		TrialsDone:  len(out.Trials),
		TrialsTotal: len(out.Trials),
		BestScore:   out.BestScore,
		Timestamp:   time.Now(),
	})

	return nil
}

// betterTrial reports whether tr should replace the job's running best.
// Completion order is arbitrary under concurrency, so equal scores fall
// back to the smaller enumeration index to keep updates deterministic.
func betterTrial(j *Job, tr search.Trial) bool {
	if j.BestIndex < 0 {
		return true
	}
	if tr.Score != j.BestScore {
		return tr.Score > j.BestScore
	}
	return tr.Index < j.BestIndex
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Sweep failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Sweep cancelled", "job_id", jobID)
}
