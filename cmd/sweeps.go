package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/noisesweep/internal/store"
)

var (
	sweepDataDir  string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var sweepsCmd = &cobra.Command{
	Use:   "sweeps",
	Short: "Manage stored sweep results",
	Long: `Manage sweep results persisted by the server or the run command,
including listing, inspecting and cleaning old results.`,
}

var listSweepsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sweep results",
	RunE:  runListSweepResults,
}

var showSweepCmd = &cobra.Command{
	Use:   "show [sweep-id]",
	Short: "Show one stored sweep result in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowSweepResult,
}

var cleanSweepsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old sweep results",
	Long: `Delete old sweep results based on a retention policy. You can keep the
most recent N results or delete results older than N days.`,
	RunE: runCleanSweepResults,
}

func init() {
	rootCmd.AddCommand(sweepsCmd)

	sweepsCmd.AddCommand(listSweepsCmd)
	sweepsCmd.AddCommand(showSweepCmd)
	sweepsCmd.AddCommand(cleanSweepsCmd)

	sweepsCmd.PersistentFlags().StringVar(&sweepDataDir, "data-dir", "./data", "Base directory for sweep results")

	cleanSweepsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the most recent N results (0 = keep all)")
	cleanSweepsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (0 = no age limit)")
	cleanSweepsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListSweepResults(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(sweepDataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No sweep results found.")
		return nil
	}

	// Newest first.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.After(infos[j].StartedAt)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SWEEP ID\tSTARTED\tDATASET\tTRIALS\tFAILED\tBEST ACC\tTEST ACC\tSIZE")
	fmt.Fprintln(w, "--------\t-------\t-------\t------\t------\t--------\t--------\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(sweepDataDir, "sweeps", info.JobID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		displayID := info.JobID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		testStr := "-"
		if info.TestScore >= 0 {
			testStr = fmt.Sprintf("%.4f", info.TestScore)
		}

		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%d\t%.4f\t%s\t%s\n",
			displayID,
			info.StartedAt.Format("2006-01-02 15:04:05"),
			info.Classes,
			info.Samples,
			info.Trials,
			info.Failed,
			info.BestScore,
			testStr,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal results: %d\n", len(infos))
	return nil
}

func runShowSweepResult(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(sweepDataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	result, err := resultStore.LoadResult(args[0])
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}

	fmt.Printf("Sweep: %s\n", result.JobID)
	fmt.Printf("Started: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Println()

	cfg := result.Config
	fmt.Println("Configuration:")
	fmt.Printf("  Dataset: %d classes, %d samples, %d features\n",
		cfg.Dataset.Classes, cfg.Dataset.Samples, cfg.Dataset.Features)
	fmt.Printf("  Split: %.2f/%.2f/%.2f\n", cfg.Split.Train, cfg.Split.Val, cfg.Split.Test)
	fmt.Printf("  Noise: trace %.2f, sparsity %.2f\n", cfg.Noise.Trace, cfg.Noise.Sparsity)
	fmt.Printf("  Seed: %d\n", cfg.Seed)
	fmt.Println()

	fmt.Println("Trials:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  INDEX\tVAL ACC\tPARAMS\tERROR")
	for _, tr := range result.Trials {
		score := "-"
		errMsg := "-"
		if tr.Error != "" {
			errMsg = tr.Error
		} else {
			score = fmt.Sprintf("%.4f", tr.Score)
		}
		fmt.Fprintf(w, "  %d\t%s\t%v\t%s\n", tr.Index, score, tr.Params, errMsg)
	}
	w.Flush()

	fmt.Printf("\nBest trial %d: %v\n", result.BestIndex, result.BestParams)
	fmt.Printf("Validation accuracy: %.4f\n", result.BestScore)
	if result.TestScore >= 0 {
		fmt.Printf("Test accuracy: %.4f\n", result.TestScore)
	}

	return nil
}

func runCleanSweepResults(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	resultStore, err := store.NewFSStore(sweepDataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No sweep results to clean.")
		return nil
	}

	toDelete := selectResultsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No results match the deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		displayID := info.JobID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Printf("  - %s (%d trials, started %s)\n",
			displayID,
			info.Trials,
			info.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := resultStore.DeleteResult(info.JobID); err != nil {
			slog.Error("Failed to delete result", "job_id", info.JobID, "error", err)
			failed++
		} else {
			slog.Info("Deleted result", "job_id", info.JobID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}

// selectResultsForDeletion applies the retention policy: results older
// than the age cutoff go, and beyond that the oldest go until at most
// keepLast remain.
func selectResultsForDeletion(infos []store.SweepInfo, keepLast, olderThanDays int) []store.SweepInfo {
	var toDelete []store.SweepInfo
	marked := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.StartedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
				marked[info.JobID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.SweepInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].StartedAt.Before(sorted[j].StartedAt)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !marked[info.JobID] {
				toDelete = append(toDelete, info)
				marked[info.JobID] = true
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
