package store

// Store defines the interface for sweep result persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the sweep doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically persists the result of a finished sweep.
	// An existing result for the same jobID is overwritten. The
	// implementation should use atomic write strategies (e.g., temp
	// file + rename) to prevent corruption in case of failures.
	SaveResult(jobID string, result *SweepResult) error

	// LoadResult retrieves the persisted result for the given job.
	// Returns ErrNotFound if no result exists for this jobID.
	LoadResult(jobID string) (*SweepResult, error)

	// ListResults returns metadata for all persisted sweeps. The
	// returned slice may be empty if no sweeps have been stored.
	ListResults() ([]SweepInfo, error)

	// DeleteResult removes the result and all associated artifacts
	// for the given job, including the trial log.
	// Returns ErrNotFound if no result exists for this jobID.
	DeleteResult(jobID string) error
}

// ErrNotFound is returned when a requested sweep does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing sweep error.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "sweep not found: " + e.JobID
	}
	return "sweep not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
