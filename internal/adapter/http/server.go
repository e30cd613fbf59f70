package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"queuectl/internal/domain"
	"queuectl/internal/worker"
)

// Server is the HTTP adapter for the queue dashboard. It is a thin
// read/write veneer: every handler delegates to the same domain service
// the CLI uses.
type Server struct {
	svc               *domain.Service
	pidFile           *worker.PIDFile
	defaultMaxRetries int
	logger            *slog.Logger
	mux               *http.ServeMux
	server            *http.Server
}

// NewServer creates a new dashboard server. pidFile may be nil; worker
// liveness then reports zero.
func NewServer(svc *domain.Service, pidFile *worker.PIDFile, addr string, defaultMaxRetries int, logger *slog.Logger) *Server {
	s := &Server{
		svc:               svc,
		pidFile:           pidFile,
		defaultMaxRetries: defaultMaxRetries,
		logger:            logger,
	}
	s.mux = http.NewServeMux()
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("POST /api/jobs", s.handleEnqueue)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /api/dlq", s.handleDLQ)
	s.mux.HandleFunc("POST /api/dlq/{id}/retry", s.handleDLQRetry)
}

// enqueueRequest is the request body for POST /api/jobs.
type enqueueRequest struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries"`
}

// jobResponse is the JSON representation of a job.
type jobResponse struct {
	ID            string `json:"id"`
	Command       string `json:"command"`
	State         string `json:"state"`
	Attempts      int    `json:"attempts"`
	MaxRetries    int    `json:"max_retries"`
	LastError     string `json:"last_error,omitempty"`
	NextAttemptAt string `json:"next_attempt_at"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(dashboardHTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.internalError(w, "stats", err)
		return
	}

	activeWorkers := 0
	if s.pidFile != nil && s.pidFile.Alive() {
		if info, err := s.pidFile.Read(); err == nil {
			activeWorkers = info.Count
		}
	}

	total := 0
	counts := make(map[string]int, len(stats))
	for state, n := range stats {
		counts[string(state)] = n
		total += n
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active_workers": activeWorkers,
		"stats":          counts,
		"total":          total,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	state := domain.State(r.URL.Query().Get("state"))
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := s.svc.List(r.Context(), state, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			s.writeError(w, http.StatusBadRequest, "invalid state filter")
			return
		}
		s.internalError(w, "list jobs", err)
		return
	}
	s.writeJobs(w, jobs)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	maxRetries := s.defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	job, err := s.svc.Enqueue(r.Context(), req.ID, req.Command, maxRetries)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCommand):
			s.writeError(w, http.StatusBadRequest, "command is required")
		case errors.Is(err, domain.ErrDuplicateID):
			s.writeError(w, http.StatusConflict, "job id already exists")
		default:
			s.internalError(w, "enqueue", err)
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, jobToResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.internalError(w, "get job", err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobToResponse(job))
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.svc.DLQList(r.Context(), 100)
	if err != nil {
		s.internalError(w, "dlq list", err)
		return
	}
	s.writeJobs(w, jobs)
}

func (s *Server) handleDLQRetry(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.DLQRetry(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			s.writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrInvalidState):
			s.writeError(w, http.StatusConflict, "job is not in the dead letter queue")
		default:
			s.internalError(w, "dlq retry", err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, jobToResponse(job))
}

func (s *Server) writeJobs(w http.ResponseWriter, jobs []domain.Job) {
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobToResponse(&jobs[i]))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("dashboard request failed", "op", op, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func jobToResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		ID:            job.ID,
		Command:       job.Command,
		State:         string(job.State),
		Attempts:      job.Attempts,
		MaxRetries:    job.MaxRetries,
		LastError:     job.LastError,
		NextAttemptAt: job.NextAttemptAt.UTC().Format(time.RFC3339),
		CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
