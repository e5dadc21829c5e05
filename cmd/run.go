package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/noisesweep/internal/dataset"
	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/noise"
	"github.com/cwbudde/noisesweep/internal/search"
	"github.com/cwbudde/noisesweep/internal/store"
)

var (
	classes    int
	samples    int
	features   int
	clusterStd float64
	separation float64
	trace      float64
	sparsity   float64
	gridPath   string
	configPath string
	workers    int
	seed       int64
	dataDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single hyperparameter sweep",
	Long: `Generates a synthetic dataset, corrupts the training and validation
labels with a sampled noise matrix, sweeps the noise-robust classifier
over a hyperparameter grid, and reports accuracy on the clean test split.`,
	RunE: runSweep,
}

func init() {
	runCmd.Flags().IntVar(&classes, "classes", 3, "Number of classes")
	runCmd.Flags().IntVar(&samples, "samples", 600, "Number of samples")
	runCmd.Flags().IntVar(&features, "features", 2, "Number of features")
	runCmd.Flags().Float64Var(&clusterStd, "cluster-std", 1.0, "Cluster standard deviation")
	runCmd.Flags().Float64Var(&separation, "separation", 5.0, "Cluster center spread")
	runCmd.Flags().Float64Var(&trace, "trace", 0, "Noise matrix diagonal sum (0 = 65% label retention)")
	runCmd.Flags().Float64Var(&sparsity, "sparsity", 0, "Fraction of off-diagonal noise entries forced to zero")
	runCmd.Flags().StringVar(&gridPath, "grid", "", "YAML file with the parameter grid (empty = built-in grid)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML sweep config file (replaces the dataset, noise, and seed flags)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent trials (0 = number of CPUs)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "Persist the result under this directory")

	rootCmd.AddCommand(runCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := &store.SweepConfig{
		Dataset: dataset.Options{
			Classes:    classes,
			Samples:    samples,
			Features:   features,
			ClusterStd: clusterStd,
			Separation: separation,
			Seed:       seed,
		},
		Noise:   store.NoiseConfig{Trace: trace, Sparsity: sparsity},
		Workers: workers,
		Seed:    seed,
	}
	if configPath != "" {
		loaded, err := store.LoadSweepConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()

	grid, err := resolveGrid(cfg)
	if err != nil {
		return err
	}
	cfg.Grid = gridParams(grid)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid sweep config: %w", err)
	}

	slog.Info("Starting sweep",
		"classes", cfg.Dataset.Classes,
		"samples", cfg.Dataset.Samples,
		"trace", cfg.Noise.Trace,
		"sparsity", cfg.Noise.Sparsity,
		"seed", cfg.Seed,
	)

	X, y, err := dataset.Generate(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("failed to generate dataset: %w", err)
	}

	var scaler dataset.StandardScaler
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return fmt.Errorf("failed to standardize features: %w", err)
	}

	splits, err := dataset.Split(Xs, y, cfg.Split, cfg.Seed)
	if err != nil {
		return fmt.Errorf("failed to split dataset: %w", err)
	}

	priors, err := noise.EstimatePriors(y, cfg.Dataset.Classes)
	if err != nil {
		return fmt.Errorf("failed to estimate priors: %w", err)
	}

	m, err := noise.GenerateMatrix(noise.MatrixOptions{
		Classes:  cfg.Dataset.Classes,
		Trace:    cfg.Noise.Trace,
		Sparsity: cfg.Noise.Sparsity,
		Priors:   priors,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("failed to generate noise matrix: %w", err)
	}

	fmt.Printf("Noise matrix (rows: true class, columns: observed label):\n%v\n\n",
		mat.Formatted(m, mat.Prefix(""), mat.Squeeze()))

	yTrainNoisy, err := noise.Corrupt(splits.YTrain, m, cfg.Seed)
	if err != nil {
		return fmt.Errorf("failed to corrupt training labels: %w", err)
	}
	yValNoisy, err := noise.Corrupt(splits.YVal, m, cfg.Seed+1)
	if err != nil {
		return fmt.Errorf("failed to corrupt validation labels: %w", err)
	}

	flipped := 0
	for i, v := range yTrainNoisy {
		if v != splits.YTrain[i] {
			flipped++
		}
	}
	slog.Info("Corrupted labels",
		"flipped", flipped,
		"train_samples", len(yTrainNoisy),
		"flip_rate", float64(flipped)/float64(len(yTrainNoisy)),
	)

	prototype := model.NewRobustClassifier(nil, model.DefaultRobustOptions())
	data := search.Data{
		XTrain: splits.XTrain,
		YTrain: yTrainNoisy,
		XVal:   splits.XVal,
		YVal:   yValNoisy,
	}

	start := time.Now()
	out, err := search.Run(context.Background(), prototype, grid, data, search.Options{
		Workers: cfg.Workers,
		Seed:    cfg.Seed,
		OnTrial: func(done, total int, tr search.Trial) {
			slog.Debug("Trial finished", "done", done, "total", total, "index", tr.Index)
		},
	})
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	elapsed := time.Since(start)

	printTrials(out.Trials)

	fmt.Printf("\nBest trial %d: %v (validation accuracy %.4f)\n", out.BestIndex, out.BestParams, out.BestScore)

	// Compare the winner against an unwrapped baseline on the clean
	// test labels.
	testScore := -1.0
	if splits.XTest != nil {
		testScore, err = out.Best.Score(splits.XTest, splits.YTest)
		if err != nil {
			return fmt.Errorf("failed to score test split: %w", err)
		}

		baseline := model.NewSoftmaxRegression(model.DefaultSoftmaxOptions())
		if err := baseline.Fit(splits.XTrain, yTrainNoisy); err != nil {
			return fmt.Errorf("failed to fit baseline: %w", err)
		}
		baselineScore, err := baseline.Score(splits.XTest, splits.YTest)
		if err != nil {
			return fmt.Errorf("failed to score baseline: %w", err)
		}

		fmt.Printf("Test accuracy: robust %.4f, noisy baseline %.4f\n", testScore, baselineScore)
	}

	slog.Info("Sweep complete",
		"elapsed", elapsed,
		"best_index", out.BestIndex,
		"best_score", out.BestScore,
		"failed", len(out.Failed),
	)

	if dataDir != "" {
		if err := persistResult(dataDir, cfg, out, testScore, elapsed); err != nil {
			return err
		}
	}

	return nil
}

// resolveGrid picks the parameter grid. An explicit --grid file wins
// over a grid from --config, which wins over the built-in default.
func resolveGrid(cfg *store.SweepConfig) (*search.Grid, error) {
	if gridPath != "" {
		grid, err := search.LoadGrid(gridPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load grid: %w", err)
		}
		return grid, nil
	}
	if len(cfg.Grid) > 0 {
		return gridFromParams(cfg.Grid), nil
	}
	return defaultGrid(), nil
}

// defaultGrid is the built-in grid when neither --grid nor --config
// supplies one.
func defaultGrid() *search.Grid {
	return search.NewGrid().
		Add("prune_method", model.PruneByClass, model.PruneByNoiseRate, model.PruneBoth).
		Add("converge_latent_estimates", false, true).
		Add("frac_noise", 0.5, 1.0)
}

// gridFromParams rebuilds the search grid, preserving the declared
// parameter order.
func gridFromParams(params []store.GridParam) *search.Grid {
	grid := search.NewGrid()
	for _, p := range params {
		grid.Add(p.Name, p.Values...)
	}
	return grid
}

// printTrials renders the per-trial table.
func printTrials(trials []search.Trial) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tVAL ACC\tPARAMS\tERROR")
	fmt.Fprintln(w, "-----\t-------\t------\t-----")
	for _, tr := range trials {
		score := "-"
		errMsg := "-"
		if tr.Err != nil {
			errMsg = tr.Err.Error()
		} else {
			score = fmt.Sprintf("%.4f", tr.Score)
		}
		fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", tr.Index, score, tr.Params, errMsg)
	}
	w.Flush()
}

// persistResult writes the sweep outcome through the filesystem store.
func persistResult(dir string, cfg *store.SweepConfig, out *search.Outcome, testScore float64, elapsed time.Duration) error {
	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	trials := make([]store.TrialRecord, len(out.Trials))
	for i, tr := range out.Trials {
		rec := store.TrialRecord{Index: tr.Index, Params: tr.Params.Copy()}
		if tr.Err != nil {
			rec.Error = tr.Err.Error()
		} else {
			rec.Score = tr.Score
		}
		trials[i] = rec
	}

	result := &store.SweepResult{
		JobID:      uuid.New().String(),
		Config:     *cfg,
		BestIndex:  out.BestIndex,
		BestParams: out.BestParams.Copy(),
		BestScore:  out.BestScore,
		TestScore:  testScore,
		Trials:     trials,
		Failed:     len(out.Failed),
		StartedAt:  time.Now().Add(-elapsed),
		Duration:   elapsed,
	}

	if err := fsStore.SaveResult(result.JobID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	fmt.Printf("Saved result %s under %s\n", result.JobID, dir)
	return nil
}

// gridParams converts a grid back to its configuration form, keeping
// the declaration order.
func gridParams(g *search.Grid) []store.GridParam {
	keys := g.Keys()
	params := make([]store.GridParam, len(keys))
	for i, key := range keys {
		params[i] = store.GridParam{Name: key, Values: g.Values(key)}
	}
	return params
}
