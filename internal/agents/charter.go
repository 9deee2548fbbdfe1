package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/llm"
	"github.com/ternarybob/folio/internal/services/portfolio"
)

const charterInstructions = `You are a Chart Maker Agent that creates visualization data for investment portfolios.

Your task is to analyze the portfolio and output a JSON object containing 4-6 charts that tell a compelling story about the portfolio.

You must output ONLY valid JSON in the exact format shown below. Do not include any text before or after the JSON.

REQUIRED JSON FORMAT:
{
  "charts": [
    {
      "key": "asset_class_distribution",
      "title": "Asset Class Distribution",
      "type": "pie",
      "description": "Shows the distribution of asset classes in the portfolio",
      "data": [
        {"name": "Equity", "value": 146365.00, "color": "#3B82F6"},
        {"name": "Cash", "value": 5000.00, "color": "#EF4444"}
      ]
    }
  ]
}

IMPORTANT RULES:
1. Output ONLY the JSON object, nothing else
2. Each chart must have: key, title, type, description, and data array
3. Chart types: 'pie', 'bar', 'donut', or 'horizontalBar'
4. Values must be dollar amounts, not percentages
5. Colors must be hex format like '#3B82F6'
6. Create 4-6 different charts from different perspectives`

// chartEnvelope mirrors the model's expected output shape
type chartEnvelope struct {
	Charts []chartWithKey `json:"charts"`
}

type chartWithKey struct {
	Key string `json:"key"`
	models.Chart
}

// Charter produces the chart dataset and writes the job's charts
// payload slot.
type Charter struct {
	storage interfaces.StorageManager
	llm     interfaces.LLMService
	logger  arbor.ILogger
}

// NewCharter creates the charter analyst
func NewCharter(storage interfaces.StorageManager, llmService interfaces.LLMService, logger arbor.ILogger) *Charter {
	return &Charter{
		storage: storage,
		llm:     llmService,
		logger:  logger,
	}
}

// Name returns the analyst identifier
func (c *Charter) Name() string {
	return models.AgentCharter
}

// Analyze generates the chart set for a job, converts the charts array
// into a key-indexed map, and saves the charts payload slot. When JSON
// extraction fails the raw model output is preserved in the slot's
// Analysis field instead.
func (c *Charter) Analyze(ctx context.Context, jobID string) (string, error) {
	job, err := c.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("charter: failed to load job %s: %w", jobID, err)
	}

	holdings, err := portfolio.LoadHoldings(ctx, c.storage, job.UserID)
	if err != nil {
		return "", fmt.Errorf("charter: %w", err)
	}

	summary := portfolio.NewAggregator().Summarize(holdings)
	analysis := formatSummaryForCharts(summary)

	response, err := c.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: charterInstructions},
		{Role: "user", Content: fmt.Sprintf(
			"Analyze this investment portfolio and create 4-6 visualization charts.\n\n%s\n\nOUTPUT ONLY THE JSON OBJECT with 4-6 charts - no other text.",
			analysis)},
	})
	if err != nil {
		if llm.IsRateLimitError(err) {
			return "", &ResourceLimitError{Agent: c.Name(), Cause: err}
		}
		return "", fmt.Errorf("charter: chart generation failed: %w", err)
	}

	payload := &models.ChartsPayload{
		GeneratedAt: time.Now(),
		Agent:       c.Name(),
	}

	charts, parseErr := extractCharts(response)
	if parseErr != nil {
		c.logger.Warn().Str("job_id", jobID).Err(parseErr).Msg("Chart JSON extraction failed, storing raw output")
		payload.Analysis = response
	} else {
		payload.Charts = charts
	}

	err = c.storage.Jobs().UpdateJob(ctx, jobID, func(j *models.Job) error {
		j.ChartsPayload = payload
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("charter: failed to save charts payload: %w", err)
	}

	return response, nil
}

// extractCharts pulls the outermost JSON object from the model output
// and converts the charts array into a key-indexed map. Charts without
// a key get a positional one.
func extractCharts(response string) (map[string]models.Chart, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var envelope chartEnvelope
	if err := json.Unmarshal([]byte(response[start:end+1]), &envelope); err != nil {
		return nil, fmt.Errorf("invalid chart JSON: %w", err)
	}
	if len(envelope.Charts) == 0 {
		return nil, fmt.Errorf("no charts in response")
	}

	charts := make(map[string]models.Chart, len(envelope.Charts))
	for i, chart := range envelope.Charts {
		key := chart.Key
		if key == "" {
			key = fmt.Sprintf("chart_%d", i+1)
		}
		charts[key] = chart.Chart
	}
	return charts, nil
}

// formatSummaryForCharts renders the aggregated breakdowns the model
// turns into chart data.
func formatSummaryForCharts(summary *portfolio.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total portfolio value: $%.2f across %d accounts and %d positions.\n",
		summary.TotalValue, summary.NumAccounts, summary.NumPositions)

	writeBuckets := func(title string, buckets []portfolio.Bucket) {
		if len(buckets) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, bucket := range buckets {
			fmt.Fprintf(&b, "  %s: $%.2f\n", bucket.Key, bucket.Value)
		}
	}

	writeBuckets("Asset classes", summary.ByAssetClass)
	writeBuckets("Regions", summary.ByRegion)
	writeBuckets("Sectors", summary.BySector)
	writeBuckets("Value per account", summary.PerAccount)
	writeBuckets("Top holdings", summary.TopHoldings)

	return b.String()
}
