package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/noisesweep/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	addr       string
	store      store.Store
	server     *http.Server
}

// NewServer creates a new HTTP server. resultStore may be nil, in which
// case finished sweeps are only held in memory.
func NewServer(addr string, resultStore store.Store) *Server {
	return &Server{
		jobManager: NewJobManager(),
		addr:       addr,
		store:      resultStore,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register UI routes
	mux.HandleFunc("/", s.handleIndex)

	// Register API routes
	mux.HandleFunc("/api/v1/sweeps", s.handleSweeps)
	mux.HandleFunc("/api/v1/sweeps/", s.handleSweepsWithID)

	// Wrap with middleware
	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if running := s.jobManager.GetRunningJobs(); len(running) > 0 {
		slog.Warn("Shutting down with sweeps still running", "count", len(running))
	}
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleSweeps handles /api/v1/sweeps
func (s *Server) handleSweeps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSweep(w, r)
	case http.MethodGet:
		s.handleListSweeps(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSweepsWithID handles /api/v1/sweeps/:id/*
func (s *Server) handleSweepsWithID(w http.ResponseWriter, r *http.Request) {
	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sweeps/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Sweep ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetSweepStatus(w, r, jobID)
	} else if parts[1] == "result" {
		s.handleGetSweepResult(w, r, jobID)
	} else if parts[1] == "stream" {
		s.handleSweepStream(w, r, jobID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateSweep handles POST /api/v1/sweeps
func (s *Server) handleCreateSweep(w http.ResponseWriter, r *http.Request) {
	var config SweepConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// The grid is the one field without a sensible default.
	if len(config.Grid) == 0 {
		http.Error(w, "grid is required", http.StatusBadRequest)
		return
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Create job
	job := s.jobManager.CreateJob(config)

	// Start worker in background
	go runJob(context.Background(), s.jobManager, s.store, job.ID)

	// Return job
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// handleListSweeps handles GET /api/v1/sweeps
func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// handleGetSweepStatus handles GET /api/v1/sweeps/:id/status
func (s *Server) handleGetSweepStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Sweep not found", http.StatusNotFound)
		return
	}

	// Compute elapsed time and throughput
	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	trialsPerSec := float64(0)
	if elapsed.Seconds() > 0 && job.TrialsDone > 0 {
		trialsPerSec = float64(job.TrialsDone) / elapsed.Seconds()
	}

	// Create response
	response := map[string]interface{}{
		"id":           job.ID,
		"state":        job.State,
		"config":       job.Config,
		"trialsDone":   job.TrialsDone,
		"trialsTotal":  job.TrialsTotal,
		"bestIndex":    job.BestIndex,
		"bestParams":   job.BestParams,
		"bestScore":    job.BestScore,
		"testScore":    job.TestScore,
		"elapsed":      elapsed.Seconds(),
		"trialsPerSec": trialsPerSec,
		"startTime":    job.StartTime,
		"endTime":      job.EndTime,
		"error":        job.Error,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetSweepResult handles GET /api/v1/sweeps/:id/result
func (s *Server) handleGetSweepResult(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Sweep not found", http.StatusNotFound)
		return
	}

	result, ok := s.jobManager.GetResult(jobID)
	if !ok && s.store != nil {
		loaded, err := s.store.LoadResult(jobID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			http.Error(w, fmt.Sprintf("Failed to load result: %v", err), http.StatusInternalServerError)
			return
		}
		result, ok = loaded, err == nil
	}
	if !ok {
		http.Error(w, "No result yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
