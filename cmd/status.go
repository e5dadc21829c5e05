package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [sweep-id]",
	Short: "Query server status or a specific sweep",
	Long: `Queries the server for sweep status information.
If no sweep-id is provided, lists all sweeps.
If sweep-id is provided, shows detailed status for that sweep.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		// List all sweeps
		url := fmt.Sprintf("%s/api/v1/sweeps", serverURL)
		return listSweeps(url)
	}
	// Get specific sweep status
	jobID := args[0]
	url := fmt.Sprintf("%s/api/v1/sweeps/%s/status", serverURL, jobID)
	return getSweepStatus(url, jobID)
}

func listSweeps(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No sweeps found")
		return nil
	}

	fmt.Printf("Found %d sweep(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Sweep ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config, ok := job["config"].(map[string]interface{}); ok {
			if ds, ok := config["dataset"].(map[string]interface{}); ok {
				fmt.Printf("  Dataset: %v classes, %v samples\n", ds["classes"], ds["samples"])
			}
		}
		fmt.Printf("  Trials: %v/%v\n", job["trialsDone"], job["trialsTotal"])
		if score, ok := job["bestScore"].(float64); ok && score > 0 {
			fmt.Printf("  Best validation accuracy: %.4f\n", score)
		}
		fmt.Println()
	}

	return nil
}

func getSweepStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("sweep not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Sweep: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		if ds, ok := config["dataset"].(map[string]interface{}); ok {
			fmt.Printf("  Classes: %v\n", ds["classes"])
			fmt.Printf("  Samples: %v\n", ds["samples"])
			fmt.Printf("  Features: %v\n", ds["features"])
		}
		if nc, ok := config["noise"].(map[string]interface{}); ok {
			fmt.Printf("  Noise trace: %v\n", nc["trace"])
			fmt.Printf("  Noise sparsity: %v\n", nc["sparsity"])
		}
		fmt.Printf("  Seed: %v\n", config["seed"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Trials: %v/%v\n", status["trialsDone"], status["trialsTotal"])

	if score, ok := status["bestScore"].(float64); ok && score > 0 {
		fmt.Printf("  Best validation accuracy: %.4f\n", score)
		if idx, ok := status["bestIndex"].(float64); ok && idx >= 0 {
			fmt.Printf("  Best trial index: %.0f\n", idx)
		}
	}
	if score, ok := status["testScore"].(float64); ok && score > 0 {
		fmt.Printf("  Test accuracy: %.4f\n", score)
	}

	if elapsed, ok := status["elapsed"].(float64); ok {
		fmt.Printf("  Elapsed: %s\n", time.Duration(elapsed*float64(time.Second)).Round(time.Millisecond))
	}

	if tps, ok := status["trialsPerSec"].(float64); ok && tps > 0 {
		fmt.Printf("  Throughput: %.1f trials/sec\n", tps)
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
