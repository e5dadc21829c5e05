package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/noisesweep/internal/dataset"
	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/noise"
	"github.com/cwbudde/noisesweep/internal/opt"
	"github.com/cwbudde/noisesweep/internal/search"
)

var (
	tuneClasses int
	tuneSamples int
	tuneTrace   float64
	tuneIters   int
	tunePop     int
	tuneSeed    int64
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Refine continuous hyperparameters with the mayfly optimizer",
	Long: `Searches the continuous knobs of the noise-robust classifier with the
mayfly algorithm instead of a fixed grid: the pruning aggressiveness and
the fold count are varied to maximize validation accuracy on corrupted
labels.`,
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().IntVar(&tuneClasses, "classes", 3, "Number of classes")
	tuneCmd.Flags().IntVar(&tuneSamples, "samples", 600, "Number of samples")
	tuneCmd.Flags().Float64Var(&tuneTrace, "trace", 0, "Noise matrix diagonal sum (0 = 65% label retention)")
	tuneCmd.Flags().IntVar(&tuneIters, "iters", 20, "Optimizer iterations")
	tuneCmd.Flags().IntVar(&tunePop, "pop", 20, "Optimizer population size")
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", 42, "Random seed")

	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	if tuneTrace == 0 {
		tuneTrace = 0.65 * float64(tuneClasses)
	}

	slog.Info("Starting tune",
		"classes", tuneClasses,
		"samples", tuneSamples,
		"trace", tuneTrace,
		"iters", tuneIters,
		"pop", tunePop,
	)

	opts := dataset.DefaultOptions()
	opts.Classes = tuneClasses
	opts.Samples = tuneSamples
	opts.Seed = tuneSeed

	X, y, err := dataset.Generate(opts)
	if err != nil {
		return fmt.Errorf("failed to generate dataset: %w", err)
	}

	var scaler dataset.StandardScaler
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return fmt.Errorf("failed to standardize features: %w", err)
	}

	splits, err := dataset.Split(Xs, y, dataset.DefaultFractions(), tuneSeed)
	if err != nil {
		return fmt.Errorf("failed to split dataset: %w", err)
	}

	priors, err := noise.EstimatePriors(y, tuneClasses)
	if err != nil {
		return fmt.Errorf("failed to estimate priors: %w", err)
	}

	m, err := noise.GenerateMatrix(noise.MatrixOptions{
		Classes: tuneClasses,
		Trace:   tuneTrace,
		Priors:  priors,
		Seed:    tuneSeed,
	})
	if err != nil {
		return fmt.Errorf("failed to generate noise matrix: %w", err)
	}

	yTrainNoisy, err := noise.Corrupt(splits.YTrain, m, tuneSeed)
	if err != nil {
		return fmt.Errorf("failed to corrupt training labels: %w", err)
	}
	yValNoisy, err := noise.Corrupt(splits.YVal, m, tuneSeed+1)
	if err != nil {
		return fmt.Errorf("failed to corrupt validation labels: %w", err)
	}

	prototype := model.NewRobustClassifier(nil, model.DefaultRobustOptions())
	data := search.Data{
		XTrain: splits.XTrain,
		YTrain: yTrainNoisy,
		XVal:   splits.XVal,
		YVal:   yValNoisy,
	}

	knobs := []search.Knob{
		{Name: "frac_noise", Min: 0.2, Max: 1.0},
		{Name: "cv_folds", Min: 2, Max: 10},
	}
	base := model.Params{"prune_method": model.PruneByNoiseRate}

	optimizer := opt.NewMayfly(tuneIters, tunePop, tuneSeed)

	start := time.Now()
	result, err := search.Tune(context.Background(), prototype, knobs, base, data, optimizer, tuneSeed)
	if err != nil {
		return fmt.Errorf("tune failed: %w", err)
	}
	elapsed := time.Since(start)

	fmt.Printf("Tuned parameters: %v\n", result.Params)
	fmt.Printf("Validation accuracy: %.4f (%d evaluations, %s)\n", result.Score, result.Evals, elapsed.Round(time.Millisecond))

	if splits.XTest != nil {
		testScore, err := result.Estimator.Score(splits.XTest, splits.YTest)
		if err != nil {
			return fmt.Errorf("failed to score test split: %w", err)
		}
		fmt.Printf("Test accuracy: %.4f (clean labels)\n", testScore)
	}

	slog.Info("Tune complete",
		"elapsed", elapsed,
		"score", result.Score,
		"evals", result.Evals,
	)

	return nil
}
