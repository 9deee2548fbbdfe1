package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/agents"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/portfolio"
	"github.com/ternarybob/folio/internal/services/tagger"
)

// previewLimit bounds analyst output in progress logs. Full text goes
// to the payload slot.
const previewLimit = 300

const summarizerInstructions = `You are a financial analysis coordinator. Summarize the completed portfolio analyses into a concise executive summary for the investor. Highlight the key findings from each analysis and any important action items. Use markdown formatting.`

// Result is the synchronous outcome of a job run, shaped for the run
// endpoint's response body.
type Result struct {
	StatusCode            int      `json:"status_code"`
	Success               bool     `json:"success"`
	Message               string   `json:"message"`
	FinalOutput           string   `json:"final_output,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
	ResourceLimitExceeded bool     `json:"resource_limit_exceeded,omitempty"`
}

// analystOutcome captures one fan-out branch for classification after
// the join.
type analystOutcome struct {
	name   string
	output string
	err    error
}

// Orchestrator coordinates a full analysis run: gap fill, routing,
// analyst fan-out, summarization, and the job's terminal transition.
type Orchestrator struct {
	storage  interfaces.StorageManager
	tagger   *tagger.Service
	llm      interfaces.LLMService
	analysts map[string]interfaces.Analyst
	config   *common.AnalysisConfig
	logger   arbor.ILogger
}

// New creates an orchestrator wired to the three downstream analysts
func New(storage interfaces.StorageManager, taggerService *tagger.Service, llmService interfaces.LLMService, config *common.AnalysisConfig, logger arbor.ILogger) *Orchestrator {
	scenarios := config.MonteCarloScenarios
	return &Orchestrator{
		storage: storage,
		tagger:  taggerService,
		llm:     llmService,
		analysts: map[string]interfaces.Analyst{
			models.AgentReporter:   agents.NewReporter(storage, llmService, logger),
			models.AgentCharter:    agents.NewCharter(storage, llmService, logger),
			models.AgentRetirement: agents.NewRetirementAnalyst(storage, llmService, scenarios, logger),
		},
		config: config,
		logger: logger,
	}
}

// Run executes the analysis pipeline for a job and drives it to a
// terminal status. An unknown job returns interfaces.ErrNotFound
// without touching storage.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (*Result, error) {
	job, err := o.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if err := job.SetStatus(models.JobStatusRunning); err != nil {
		return nil, fmt.Errorf("job %s cannot start: %w", jobID, err)
	}
	if err := o.storage.Jobs().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark job %s running: %w", jobID, err)
	}

	o.logger.Info().Str("job_id", jobID).Str("user_id", job.UserID).Msg("Starting portfolio analysis")

	// Instrument gaps are best-effort: analysts fall back to defaults
	// for anything still unclassified.
	if err := o.tagger.Fill(ctx, job.UserID); err != nil {
		o.logger.Warn().Str("job_id", jobID).Err(err).Msg("Instrument gap fill failed, continuing with defaults")
	}

	user, err := o.storage.Users().GetUser(ctx, job.UserID)
	if err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("failed to load user %s: %v", job.UserID, err))
	}
	stats, err := portfolio.LoadQuickStats(ctx, o.storage, job.UserID)
	if err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("failed to load portfolio: %v", err))
	}

	planned := o.route(stats, user)
	o.logger.Info().
		Str("job_id", jobID).
		Int("positions", stats.NumPositions).
		Int("accounts", stats.NumAccounts).
		Str("analysts", strings.Join(planned, ",")).
		Msg("Routing decision")

	if len(planned) == 0 {
		return o.completeJob(ctx, job, "No analyses applicable for this portfolio", "", nil)
	}

	outcomes := o.fanOut(ctx, job.ID, planned)

	// Resource exhaustion anywhere ends the run as retryable
	for _, outcome := range outcomes {
		var limitErr *agents.ResourceLimitError
		if errors.As(outcome.err, &limitErr) || errors.Is(outcome.err, context.DeadlineExceeded) {
			return o.limitExceeded(ctx, job, outcome)
		}
	}

	var warnings []string
	var completed []analystOutcome
	for _, outcome := range outcomes {
		if outcome.err != nil {
			warnings = append(warnings, fmt.Sprintf("%s analysis failed: %v", outcome.name, outcome.err))
			continue
		}
		completed = append(completed, outcome)
	}

	if len(completed) == 0 {
		return o.failJob(ctx, job, "all analyses failed: "+strings.Join(warnings, "; "))
	}

	finalOutput := o.summarize(ctx, job, completed, warnings)

	message := fmt.Sprintf("Analysis completed: %d of %d analyses succeeded", len(completed), len(outcomes))
	return o.completeJob(ctx, job, message, finalOutput, warnings)
}

// route selects analysts from portfolio shape and user preferences
func (o *Orchestrator) route(stats *portfolio.QuickStats, user *models.User) []string {
	var planned []string
	if stats.NumPositions >= o.config.ReportMinPositions {
		planned = append(planned, models.AgentReporter)
	}
	if stats.NumPositions >= o.config.ChartsMinPositions {
		planned = append(planned, models.AgentCharter)
	}
	if user.YearsUntilRetirement > 0 {
		planned = append(planned, models.AgentRetirement)
	}
	return planned
}

// fanOut dispatches the planned analysts in parallel. Each branch gets
// its own timeout and records its outcome; failures never cancel
// siblings since the payload slots are disjoint.
func (o *Orchestrator) fanOut(ctx context.Context, jobID string, planned []string) []analystOutcome {
	timeout := common.ParseDurationOr(o.config.InvocationTimeout, 5*time.Minute)
	outcomes := make([]analystOutcome, len(planned))

	var g errgroup.Group
	for i, name := range planned {
		analyst := o.analysts[name]
		g.Go(func() error {
			sessionID := common.NewSessionID("planner", jobID)
			o.logger.Info().
				Str("job_id", jobID).
				Str("analyst", name).
				Str("session_id", sessionID).
				Msg("Invoking analyst")

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			output, err := analyst.Analyze(callCtx, jobID)
			outcomes[i] = analystOutcome{name: name, output: output, err: err}

			if err != nil {
				o.logger.Warn().
					Str("job_id", jobID).
					Str("analyst", name).
					Dur("elapsed", time.Since(started)).
					Err(err).
					Msg("Analyst failed")
				return nil
			}

			o.logger.Info().
				Str("job_id", jobID).
				Str("analyst", name).
				Dur("elapsed", time.Since(started)).
				Str("preview", truncate(output, previewLimit)).
				Msg("Analyst completed")
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// summarize runs the optional free-text summarization pass over the
// completed analyses. Failures are swallowed; the summary is a
// convenience layer over the payload slots.
func (o *Orchestrator) summarize(ctx context.Context, job *models.Job, completed []analystOutcome, warnings []string) string {
	if !o.config.SummaryEnabled {
		return completed[0].output
	}

	var b strings.Builder
	b.WriteString("Summarize these completed portfolio analyses:\n")
	for _, outcome := range completed {
		fmt.Fprintf(&b, "\n## %s analysis\n%s\n", outcome.name, outcome.output)
	}
	if len(warnings) > 0 {
		b.WriteString("\nNote: some analyses did not complete:\n")
		for _, warning := range warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}

	summary, err := o.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: summarizerInstructions},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		o.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Summary pass failed, using first analysis as output")
		return completed[0].output
	}

	err = o.storage.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.SummaryPayload = &models.SummaryPayload{
			Content:     summary,
			Warnings:    warnings,
			GeneratedAt: time.Now(),
			Agent:       models.AgentPlanner,
		}
		return nil
	})
	if err != nil {
		o.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Failed to save summary payload")
	}

	return summary
}

func (o *Orchestrator) completeJob(ctx context.Context, job *models.Job, message, finalOutput string, warnings []string) (*Result, error) {
	err := o.storage.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		if j.SummaryPayload == nil && len(warnings) > 0 {
			j.SummaryPayload = &models.SummaryPayload{
				Content:     message,
				Warnings:    warnings,
				GeneratedAt: time.Now(),
				Agent:       models.AgentPlanner,
			}
		}
		return j.SetStatus(models.JobStatusCompleted)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save completed job %s: %w", job.ID, err)
	}

	o.logger.Info().Str("job_id", job.ID).Int("warnings", len(warnings)).Msg("Job completed")

	return &Result{
		StatusCode:  200,
		Success:     true,
		Message:     message,
		FinalOutput: finalOutput,
		Warnings:    warnings,
	}, nil
}

func (o *Orchestrator) limitExceeded(ctx context.Context, job *models.Job, outcome analystOutcome) (*Result, error) {
	err := o.storage.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.ErrorMessage = outcome.err.Error()
		return j.SetStatus(models.JobStatusResourceLimitExceeded)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}

	o.logger.Warn().
		Str("job_id", job.ID).
		Str("analyst", outcome.name).
		Err(outcome.err).
		Msg("Job stopped on resource limits")

	return &Result{
		StatusCode:            200,
		Success:               false,
		Message:               fmt.Sprintf("The %s analysis exceeded resource limits. Retry the job later or reduce the portfolio scope.", outcome.name),
		ResourceLimitExceeded: true,
	}, nil
}

func (o *Orchestrator) failJob(ctx context.Context, job *models.Job, message string) (*Result, error) {
	err := o.storage.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		return j.Fail(message)
	})
	if err != nil {
		o.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to save failed job")
	}

	o.logger.Error().Str("job_id", job.ID).Str("error", message).Msg("Job failed")

	return &Result{
		StatusCode: 500,
		Success:    false,
		Message:    message,
	}, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
