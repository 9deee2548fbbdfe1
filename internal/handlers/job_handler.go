package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/orchestrator"
	"github.com/ternarybob/folio/internal/queue"
)

// JobRunner executes a job synchronously
type JobRunner interface {
	Run(ctx context.Context, jobID string) (*orchestrator.Result, error)
}

// JobHandler handles analysis job HTTP requests
type JobHandler struct {
	storage  interfaces.StorageManager
	queueMgr interfaces.QueueManager
	runner   JobRunner
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(storage interfaces.StorageManager, queueMgr interfaces.QueueManager, runner JobRunner, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		storage:  storage,
		queueMgr: queueMgr,
		runner:   runner,
		logger:   logger,
	}
}

// CreateJobHandler handles POST /api/jobs - creates a pending job and
// enqueues its trigger for asynchronous processing.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := h.storage.Users().GetUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to load user")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	job := models.NewJob(req.UserID, models.JobTypePortfolioAnalysis)
	if err := h.storage.Jobs().SaveJob(r.Context(), job); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	trigger := &queue.JobTrigger{JobID: job.ID, Source: "api"}
	if err := h.queueMgr.Enqueue(r.Context(), trigger); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue job trigger")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	h.logger.Info().Str("job_id", job.ID).Str("user_id", req.UserID).Msg("Job created and enqueued")

	WriteJSON(w, http.StatusCreated, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// ListJobsHandler handles GET /api/jobs with optional status filter
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := GetListParams(r)
	opts := &interfaces.ListOptions{
		Limit:  limit,
		Offset: offset,
		Status: r.URL.Query().Get("status"),
	}

	jobs, err := h.storage.Jobs().ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobHandler handles GET /api/jobs/{id} - returns the persisted job
// record including any payload slots written so far.
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.storage.Jobs().GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// RunJobHandler handles POST /api/jobs/{id}/run - runs the analysis
// synchronously and returns the orchestrator result. A resource-limit
// outcome is still a 200 with success=false and a retry recommendation.
func (h *JobHandler) RunJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if strings.TrimSpace(jobID) == "" {
		WriteError(w, http.StatusBadRequest, "Missing job id")
		return
	}

	result, err := h.runner.Run(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Job run failed")
		WriteError(w, http.StatusInternalServerError, "Job run failed")
		return
	}

	WriteJSON(w, result.StatusCode, result)
}
