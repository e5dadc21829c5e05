package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TrialWriter appends trial records to a JSONL file as a sweep runs,
// so partial progress survives a crashed or cancelled job. It uses
// buffered I/O and is safe for concurrent use.
type TrialWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTrialWriter creates a trial log writer for the given job.
// The log is created at <baseDir>/sweeps/<jobID>/trials.jsonl.
// If append is true, new records are appended to an existing file.
func NewTrialWriter(baseDir, jobID string, append bool) (*TrialWriter, error) {
	jobDir := filepath.Join(baseDir, "sweeps", jobID)

	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	path := filepath.Join(jobDir, "trials.jsonl")

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trial log: %w", err)
	}

	writer := bufio.NewWriterSize(file, 64*1024) // 64KB buffer

	return &TrialWriter{
		file:   file,
		writer: writer,
		path:   path,
	}, nil
}

// Write appends a trial record to the log.
// The record is buffered and will be written on Flush() or Close().
func (tw *TrialWriter) Write(rec TrialRecord) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trial record: %w", err)
	}

	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trial record: %w", err)
	}

	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Flush writes any buffered data to the file.
func (tw *TrialWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trial log: %w", err)
	}

	// Also sync to disk for durability
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trial log: %w", err)
	}

	return nil
}

// Close flushes buffered data and closes the trial log.
func (tw *TrialWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close() // Try to close anyway
		return fmt.Errorf("failed to flush on close: %w", err)
	}

	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trial log: %w", err)
	}

	return nil
}

// Path returns the filesystem path to the trial log.
func (tw *TrialWriter) Path() string {
	return tw.path
}

// TrialReader reads trial records from a JSONL log.
type TrialReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTrialReader creates a trial log reader for the given job.
func NewTrialReader(baseDir, jobID string) (*TrialReader, error) {
	path := filepath.Join(baseDir, "sweeps", jobID, "trials.jsonl")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, fmt.Errorf("failed to open trial log: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Large parameter maps can make long lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 64KB initial, 1MB max

	return &TrialReader{
		file:    file,
		scanner: scanner,
	}, nil
}

// Read reads the next trial record from the log.
// Returns io.EOF when no more records are available.
func (tr *TrialReader) Read() (*TrialRecord, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trial line: %w", err)
		}
		return nil, io.EOF
	}

	line := tr.scanner.Bytes()
	var rec TrialRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trial record: %w", err)
	}

	return &rec, nil
}

// ReadAll reads all trial records from the log.
func (tr *TrialReader) ReadAll() ([]TrialRecord, error) {
	var records []TrialRecord

	for {
		rec, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, nil
}

// Close closes the trial reader.
func (tr *TrialReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trial log: %w", err)
	}
	return nil
}

// DeleteTrials removes the trial log for the given job.
// Returns nil if the file doesn't exist.
func DeleteTrials(baseDir, jobID string) error {
	path := filepath.Join(baseDir, "sweeps", jobID, "trials.jsonl")

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete trial log: %w", err)
	}

	return nil
}
