package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/llm"
	"github.com/ternarybob/folio/internal/services/portfolio"
)

const reporterInstructions = `You are an expert portfolio analyst responsible for generating comprehensive investment reports.

Your task is to analyze portfolio data and create detailed, professional reports that help investors understand their current position and make informed decisions.

Key responsibilities:
1. Analyze portfolio composition, diversification, and risk profile
2. Evaluate alignment with retirement goals and timeline
3. Provide actionable recommendations
4. Write in clear, accessible language for retail investors

Important guidelines:
- Be objective and data-driven in your analysis
- Highlight both strengths and areas for improvement
- Use markdown formatting for clear structure
- Include relevant financial metrics and percentages`

// Reporter produces the narrative portfolio report and writes the
// job's report payload slot.
type Reporter struct {
	storage interfaces.StorageManager
	llm     interfaces.LLMService
	logger  arbor.ILogger
}

// NewReporter creates the reporter analyst
func NewReporter(storage interfaces.StorageManager, llmService interfaces.LLMService, logger arbor.ILogger) *Reporter {
	return &Reporter{
		storage: storage,
		llm:     llmService,
		logger:  logger,
	}
}

// Name returns the analyst identifier
func (r *Reporter) Name() string {
	return models.AgentReporter
}

// Analyze generates the portfolio report for a job and saves it to the
// report payload slot. On a resource-limit failure the slot still gets
// the degraded text and a typed error is returned for classification.
func (r *Reporter) Analyze(ctx context.Context, jobID string) (string, error) {
	job, err := r.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("reporter: failed to load job %s: %w", jobID, err)
	}
	user, err := r.storage.Users().GetUser(ctx, job.UserID)
	if err != nil {
		return "", fmt.Errorf("reporter: failed to load user %s: %w", job.UserID, err)
	}

	holdings, err := portfolio.LoadHoldings(ctx, r.storage, user.ID)
	if err != nil {
		return "", fmt.Errorf("reporter: %w", err)
	}

	summary := portfolio.NewAggregator().Summarize(holdings)
	for _, warning := range summary.Warnings {
		r.logger.Warn().Str("job_id", jobID).Msg(warning)
	}

	prompt := formatPortfolioForAnalysis(holdings, summary, user)

	content, err := r.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: reporterInstructions},
		{Role: "user", Content: "Generate a comprehensive investment report for this portfolio:\n\n" + prompt},
	})
	if err != nil {
		if llm.IsRateLimitError(err) {
			// Keep the partial result visible in the slot
			degraded := "Report generation stopped: model token limit reached. Retry with a smaller portfolio scope."
			r.savePayload(ctx, jobID, degraded)
			return degraded, &ResourceLimitError{Agent: r.Name(), Cause: err}
		}
		return "", fmt.Errorf("reporter: report generation failed: %w", err)
	}

	if err := r.savePayload(ctx, jobID, content); err != nil {
		return "", err
	}

	return content, nil
}

func (r *Reporter) savePayload(ctx context.Context, jobID, content string) error {
	err := r.storage.Jobs().UpdateJob(ctx, jobID, func(j *models.Job) error {
		j.ReportPayload = &models.ReportPayload{
			Content:     content,
			GeneratedAt: time.Now(),
			Agent:       r.Name(),
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reporter: failed to save report payload: %w", err)
	}
	return nil
}

// formatPortfolioForAnalysis renders the holdings and user profile as
// the text block the model analyzes.
func formatPortfolioForAnalysis(holdings []portfolio.AccountHoldings, summary *portfolio.Summary, user *models.User) string {
	var b strings.Builder

	uniqueSymbols := make(map[string]struct{})
	for _, account := range holdings {
		for _, holding := range account.Holdings {
			uniqueSymbols[holding.Symbol] = struct{}{}
		}
	}

	b.WriteString("Portfolio Overview:\n")
	fmt.Fprintf(&b, "- %d accounts\n", summary.NumAccounts)
	fmt.Fprintf(&b, "- %d total positions\n", summary.NumPositions)
	fmt.Fprintf(&b, "- %d unique holdings\n", len(uniqueSymbols))
	fmt.Fprintf(&b, "- $%.2f in cash\n", summary.CashTotal)
	if summary.TotalValue > 0 {
		fmt.Fprintf(&b, "- $%.2f total value\n", summary.TotalValue)
	}

	b.WriteString("\nAccount Details:\n")
	for _, account := range holdings {
		fmt.Fprintf(&b, "\n%s ($%.2f cash):\n", account.Name, account.Cash)
		for _, holding := range account.Holdings {
			var hints []string
			if len(holding.AssetClass) > 0 {
				hints = append(hints, "Asset: "+formatAllocation(holding.AssetClass, 0))
			}
			if len(holding.Regions) > 0 {
				hints = append(hints, "Regions: "+formatAllocation(holding.Regions, 2))
			}
			hintText := ""
			if len(hints) > 0 {
				hintText = " (" + strings.Join(hints, ", ") + ")"
			}
			fmt.Fprintf(&b, "  - %s: %.2f shares%s\n", holding.Symbol, holding.Quantity, hintText)
		}
	}

	b.WriteString("\nUser Profile:\n")
	fmt.Fprintf(&b, "- Years to retirement: %d\n", user.YearsUntilRetirement)
	fmt.Fprintf(&b, "- Target retirement income: $%.0f/year\n", user.TargetRetirementIncome)

	return b.String()
}

// formatAllocation renders an allocation map as "k: v%" pairs in
// descending value order. limit 0 means all entries.
func formatAllocation(allocation map[string]float64, limit int) string {
	buckets := make([]portfolio.Bucket, 0, len(allocation))
	for key, value := range allocation {
		buckets = append(buckets, portfolio.Bucket{Key: key, Value: value})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Value != buckets[j].Value {
			return buckets[i].Value > buckets[j].Value
		}
		return buckets[i].Key < buckets[j].Key
	})

	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}

	parts := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		parts = append(parts, fmt.Sprintf("%s: %g%%", bucket.Key, bucket.Value))
	}
	return strings.Join(parts, ", ")
}
