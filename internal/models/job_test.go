package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job := NewJob("user_1", JobTypePortfolioAnalysis)

	assert.NotEmpty(t, job.ID)
	assert.Contains(t, job.ID, "job_")
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, "user_1", job.UserID)
	require.NotNil(t, job.RequestPayload)
	assert.Equal(t, job.ID, job.RequestPayload.JobID)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestJobStatusTransitions(t *testing.T) {
	job := NewJob("user_1", JobTypePortfolioAnalysis)

	require.NoError(t, job.SetStatus(JobStatusRunning))
	require.NotNil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)

	require.NoError(t, job.SetStatus(JobStatusCompleted))
	require.NotNil(t, job.CompletedAt)
}

func TestJobStatusMonotonic(t *testing.T) {
	tests := []struct {
		name     string
		terminal JobStatus
	}{
		{"completed", JobStatusCompleted},
		{"failed", JobStatusFailed},
		{"resource_limit_exceeded", JobStatusResourceLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("user_1", JobTypePortfolioAnalysis)
			require.NoError(t, job.SetStatus(JobStatusRunning))
			require.NoError(t, job.SetStatus(tt.terminal))

			err := job.SetStatus(JobStatusRunning)
			assert.ErrorIs(t, err, ErrTerminalStatus)
			assert.Equal(t, tt.terminal, job.Status)
		})
	}
}

func TestJobFailSetsMessage(t *testing.T) {
	job := NewJob("user_1", JobTypePortfolioAnalysis)
	require.NoError(t, job.SetStatus(JobStatusRunning))

	require.NoError(t, job.Fail("owner not found"))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "owner not found", job.ErrorMessage)
	assert.NotNil(t, job.CompletedAt)
}

func TestJobPayloadRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	job := NewJob("user_1", JobTypePortfolioAnalysis)
	job.ReportPayload = &ReportPayload{
		Content:     "Portfolio Report\n\nTotal value: $50,000",
		GeneratedAt: now,
		Agent:       AgentReporter,
	}
	job.ChartsPayload = &ChartsPayload{
		Charts: map[string]Chart{
			"asset_class_distribution": {
				Title: "Asset Class Distribution",
				Type:  "pie",
				Data: []ChartDataPoint{
					{Name: "Equity", Value: 45000, Color: "#3B82F6"},
					{Name: "Cash", Value: 5000, Color: "#EF4444"},
				},
			},
		},
		GeneratedAt: now,
		Agent:       AgentCharter,
	}
	job.RetirementPayload = &RetirementPayload{
		Analysis:    "On track for retirement in 20 years.",
		Projection:  json.RawMessage(`{"success_rate":0.92,"median_final_value":1250000.5}`),
		GeneratedAt: now,
		Agent:       AgentRetirement,
	}
	job.SummaryPayload = &SummaryPayload{
		Content:     "All analyses completed.",
		Warnings:    []string{"charter returned no charts"},
		GeneratedAt: now,
		Agent:       AgentPlanner,
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var restored Job
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, job.ReportPayload, restored.ReportPayload)
	assert.Equal(t, job.ChartsPayload, restored.ChartsPayload)
	assert.Equal(t, job.SummaryPayload, restored.SummaryPayload)
	require.NotNil(t, restored.RetirementPayload)
	assert.Equal(t, job.RetirementPayload.Analysis, restored.RetirementPayload.Analysis)
	assert.JSONEq(t, string(job.RetirementPayload.Projection), string(restored.RetirementPayload.Projection))
}
