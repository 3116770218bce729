package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// RecoverResponse reports a stuck-job recovery pass
// @Description Stuck-job recovery outcome
type RecoverResponse struct {
	RecoveredCount  int      `json:"recovered_count"`
	RecoveredJobIDs []string `json:"recovered_job_ids"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and queue connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backend dependency is unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Query endpoints

// handleSubmitQuery godoc
// @Summary      Submit a question
// @Description  Routes a question to a knowledge domain and answers it. Deep mode returns a job handle instead of an immediate answer.
// @Tags         Queries
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SubmitQueryRequest  true  "Question to answer"
// @Success      200      {object}  domain.QueryResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      404      {object}  ErrorResponse  "Thread not found"
// @Failure      503      {object}  ErrorResponse  "Completion service unavailable"
// @Router       /queries [post]
func (s *Server) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.queryService.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "thread not found")
		case errors.Is(err, domain.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "completion service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to answer question")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Job endpoints

// handleJobStatus godoc
// @Summary      Get job status
// @Description  Reports the progress of a deep-mode job
// @Tags         Jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  domain.JobStatusResponse
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Router       /jobs/{id}/status [get]
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	status, err := s.queryService.JobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get job status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleJobResult godoc
// @Summary      Get job result
// @Description  Returns the final persisted answer of a completed deep-mode job
// @Tags         Jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  domain.JobResultResponse
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Failure      409  {object}  ErrorResponse  "Job not completed yet"
// @Router       /jobs/{id}/result [get]
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	result, err := s.queryService.JobResult(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrJobNotCompleted):
			writeError(w, http.StatusConflict, "job not completed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get job result")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListJobs godoc
// @Summary      List jobs
// @Description  Lists deep-mode jobs for observability. Pass active=true for non-terminal jobs only.
// @Tags         Jobs
// @Produce      json
// @Param        active  query     bool  false  "Restrict to non-terminal jobs"
// @Success      200     {array}   domain.Job
// @Failure      500     {object}  ErrorResponse  "Internal server error"
// @Router       /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	jobs, err := s.queryService.ListJobs(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	if jobs == nil {
		jobs = []*domain.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleRecoverJobs godoc
// @Summary      Recover stuck jobs
// @Description  Marks stale non-terminal jobs failed with a timeout notice
// @Tags         Jobs
// @Produce      json
// @Success      200  {object}  RecoverResponse
// @Failure      500  {object}  ErrorResponse  "Recovery failed"
// @Router       /jobs/recover [post]
func (s *Server) handleRecoverJobs(w http.ResponseWriter, r *http.Request) {
	result, err := s.recoveryService.RecoverStuckJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "recovery failed")
		return
	}

	if result.RecoveredJobIDs == nil {
		result.RecoveredJobIDs = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}

// Domain endpoints

// handleListDomains godoc
// @Summary      List knowledge domains
// @Description  Returns the current domain registry snapshot
// @Tags         Domains
// @Produce      json
// @Success      200  {array}  domain.DomainConfig
// @Router       /domains [get]
func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
