package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an analysis job
type JobStatus string

const (
	JobStatusPending               JobStatus = "pending"
	JobStatusRunning               JobStatus = "running"
	JobStatusCompleted             JobStatus = "completed"
	JobStatusFailed                JobStatus = "failed"
	JobStatusResourceLimitExceeded JobStatus = "resource_limit_exceeded"
)

// IsTerminal reports whether the status permits no further transitions
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusResourceLimitExceeded:
		return true
	}
	return false
}

// ErrTerminalStatus is returned when a status transition is attempted on
// a job that has already reached a terminal state.
var ErrTerminalStatus = errors.New("job status is terminal")

// JobTypePortfolioAnalysis is the only job type currently produced
const JobTypePortfolioAnalysis = "portfolio_analysis"

// Analyst identifiers recorded in payload attribution
const (
	AgentPlanner    = "planner"
	AgentReporter   = "reporter"
	AgentCharter    = "charter"
	AgentRetirement = "retirement"
)

// RequestPayload captures the inbound trigger that created the job
type RequestPayload struct {
	JobID  string `json:"job_id"`
	Source string `json:"source,omitempty"` // "api", "queue"
}

// ReportPayload is written by the reporter analyst
type ReportPayload struct {
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
	Agent       string    `json:"agent"`
}

// ChartDataPoint is one slice or bar of a chart
type ChartDataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"` // Hex, e.g. "#3B82F6"
}

// Chart is a single renderable dataset produced by the charter analyst
type Chart struct {
	Title       string           `json:"title"`
	Type        string           `json:"type"` // "pie", "bar", "donut", "horizontalBar"
	Description string           `json:"description,omitempty"`
	Data        []ChartDataPoint `json:"data"`
}

// ChartsPayload is written by the charter analyst. Charts is keyed by
// each chart's key slug, e.g. "asset_class_distribution".
type ChartsPayload struct {
	Charts      map[string]Chart `json:"charts"`
	Analysis    string           `json:"analysis,omitempty"` // Raw model output when JSON extraction failed
	GeneratedAt time.Time        `json:"generated_at"`
	Agent       string           `json:"agent"`
}

// RetirementPayload is written by the retirement analyst. Projection
// carries the raw simulation output verbatim so the record round-trips
// without loss.
type RetirementPayload struct {
	Analysis    string          `json:"analysis"`
	Projection  json.RawMessage `json:"projection,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Agent       string          `json:"agent"`
}

// SummaryPayload is written by the orchestrator's final summarization pass
type SummaryPayload struct {
	Content     string    `json:"content"`
	Warnings    []string  `json:"warnings,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Agent       string    `json:"agent"`
}

// Job tracks a portfolio analysis request end to end. Each analyst
// writes exactly one payload slot; the slots are disjoint so analysts
// never contend on the same field.
type Job struct {
	ID                string             `json:"id" badgerhold:"key"`
	UserID            string             `json:"user_id" badgerhold:"index"`
	JobType           string             `json:"job_type"`
	Status            JobStatus          `json:"status" badgerhold:"index"`
	RequestPayload    *RequestPayload    `json:"request_payload,omitempty"`
	ReportPayload     *ReportPayload     `json:"report_payload,omitempty"`
	ChartsPayload     *ChartsPayload     `json:"charts_payload,omitempty"`
	RetirementPayload *RetirementPayload `json:"retirement_payload,omitempty"`
	SummaryPayload    *SummaryPayload    `json:"summary_payload,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	StartedAt         *time.Time         `json:"started_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

// NewJob creates a pending job for the given user
func NewJob(userID, jobType string) *Job {
	job := &Job{
		ID:        "job_" + uuid.New().String(),
		UserID:    userID,
		JobType:   jobType,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
	job.RequestPayload = &RequestPayload{JobID: job.ID, Source: "api"}
	return job
}

// SetStatus transitions the job to a new status. Terminal states are
// final; attempting to leave one returns ErrTerminalStatus. StartedAt
// and CompletedAt are stamped on the matching transitions.
func (j *Job) SetStatus(status JobStatus) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot transition %s -> %s", ErrTerminalStatus, j.Status, status)
	}

	j.Status = status
	now := time.Now()

	switch {
	case status == JobStatusRunning:
		j.StartedAt = &now
	case status.IsTerminal():
		j.CompletedAt = &now
	}

	return nil
}

// Fail marks the job failed with the causal message. Returns
// ErrTerminalStatus if the job is already terminal.
func (j *Job) Fail(message string) error {
	if err := j.SetStatus(JobStatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = message
	return nil
}
