package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/noisesweep/internal/model"
	"github.com/cwbudde/noisesweep/internal/store"
	"github.com/google/uuid"
)

// JobState represents the current state of a sweep job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// SweepConfig is an alias to avoid duplication with store.SweepConfig
type SweepConfig = store.SweepConfig

// Job represents a sweep job
type Job struct {
	ID          string       `json:"id"`
	State       JobState     `json:"state"`
	Config      SweepConfig  `json:"config"`
	TrialsDone  int          `json:"trialsDone"`
	TrialsTotal int          `json:"trialsTotal"`
	BestIndex   int          `json:"bestIndex"`
	BestParams  model.Params `json:"bestParams,omitempty"`
	BestScore   float64      `json:"bestScore"`
	TestScore   float64      `json:"testScore"`
	StartTime   time.Time    `json:"startTime"`
	EndTime     *time.Time   `json:"endTime,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// JobManager manages the lifecycle of sweep jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	results     map[string]*store.SweepResult
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		results:     make(map[string]*store.SweepResult),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config SweepConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		BestIndex: -1,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	return job, exists
}

// ListJobs returns all jobs
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// SetResult attaches the full sweep result to a finished job so it can
// be served even when no persistent store is configured.
func (jm *JobManager) SetResult(id string, result *store.SweepResult) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	jm.results[id] = result
}

// GetResult retrieves the full sweep result for a finished job
func (jm *JobManager) GetResult(id string) (*store.SweepResult, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	result, exists := jm.results[id]
	return result, exists
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job)
		}
	}
	return runningJobs
}
