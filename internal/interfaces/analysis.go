package interfaces

import (
	"context"
)

// Analyst produces one slice of a portfolio analysis for a job.
// Implementations load the job's snapshot from storage, run their
// analysis, persist their payload slot on the job record, and return
// the full text of what they produced.
type Analyst interface {
	// Name returns the analyst identifier used in payload attribution
	// and session IDs ("reporter", "charter", "retirement").
	Name() string

	// Analyze runs the analysis for the given job. The returned string
	// is the complete output text; the orchestrator only records a
	// preview of it.
	Analyze(ctx context.Context, jobID string) (string, error)
}
