package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Results are stored under <baseDir>/sweeps/<jobID>/.
//
// Thread-safety: atomic file operations (rename) only, no locks.
// Multiple goroutines can safely call methods concurrently.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory backing the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// jobDir returns the directory path for a given job ID.
func (fs *FSStore) jobDir(jobID string) string {
	return filepath.Join(fs.baseDir, "sweeps", jobID)
}

// resultPath returns the path to the result.json file for a job.
func (fs *FSStore) resultPath(jobID string) string {
	return filepath.Join(fs.jobDir(jobID), "result.json")
}

// SaveResult atomically persists a sweep result.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveResult(jobID string, result *SweepResult) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	jobDir := fs.jobDir(jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	tempPath := fs.resultPath(jobID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	finalPath := fs.resultPath(jobID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Sweep result saved", "jobID", jobID, "path", finalPath)
	return nil
}

// LoadResult retrieves the persisted result for the given job.
func (fs *FSStore) LoadResult(jobID string) (*SweepResult, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID cannot be empty")
	}

	path := fs.resultPath(jobID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat result file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result SweepResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize result: %w", err)
	}

	slog.Debug("Sweep result loaded", "jobID", jobID, "path", path)
	return &result, nil
}

// ListResults returns metadata for all persisted sweeps.
func (fs *FSStore) ListResults() ([]SweepInfo, error) {
	sweepsDir := filepath.Join(fs.baseDir, "sweeps")

	if _, err := os.Stat(sweepsDir); os.IsNotExist(err) {
		// Nothing stored yet, return empty slice
		return []SweepInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat sweeps directory: %w", err)
	}

	entries, err := os.ReadDir(sweepsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweeps directory: %w", err)
	}

	var infos []SweepInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		jobID := entry.Name()
		if _, err := os.Stat(fs.resultPath(jobID)); os.IsNotExist(err) {
			continue // Skip directories without result.json
		}

		result, err := fs.LoadResult(jobID)
		if err != nil {
			slog.Warn("Failed to load result for listing", "jobID", jobID, "error", err)
			continue // Skip corrupted results
		}

		infos = append(infos, result.ToInfo())
	}

	slog.Debug("Listed sweep results", "count", len(infos))
	return infos, nil
}

// DeleteResult removes the result and all associated artifacts.
func (fs *FSStore) DeleteResult(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}

	jobDir := fs.jobDir(jobID)

	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return &NotFoundError{JobID: jobID}
	} else if err != nil {
		return fmt.Errorf("failed to stat job directory: %w", err)
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Sweep result deleted", "jobID", jobID, "path", jobDir)
	return nil
}
