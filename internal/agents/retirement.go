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
	"github.com/ternarybob/folio/internal/services/retirement"
)

// RetirementPriceFallback is the price substituted for unpriced
// positions when valuing the portfolio for projection purposes.
const RetirementPriceFallback = 100.0

// DefaultCurrentAge is assumed until user profiles carry a birth date
const DefaultCurrentAge = 40

const retirementInstructions = `You are a retirement planning specialist analyzing Monte Carlo simulation results.
Provide clear, data-driven retirement readiness assessments for retail investors.
Use markdown formatting with specific numbers and actionable recommendations.`

// RetirementAnalyst runs the projection engine and writes the job's
// retirement payload slot with the narrative plus raw simulation data.
type RetirementAnalyst struct {
	storage   interfaces.StorageManager
	llm       interfaces.LLMService
	engine    *retirement.Engine
	scenarios int
	logger    arbor.ILogger
}

// NewRetirementAnalyst creates the retirement analyst
func NewRetirementAnalyst(storage interfaces.StorageManager, llmService interfaces.LLMService, scenarios int, logger arbor.ILogger) *RetirementAnalyst {
	return &RetirementAnalyst{
		storage:   storage,
		llm:       llmService,
		engine:    retirement.NewEngine(),
		scenarios: scenarios,
		logger:    logger,
	}
}

// Name returns the analyst identifier
func (a *RetirementAnalyst) Name() string {
	return models.AgentRetirement
}

// Analyze projects retirement viability for the job's owner and saves
// the retirement payload slot.
func (a *RetirementAnalyst) Analyze(ctx context.Context, jobID string) (string, error) {
	job, err := a.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("retirement: failed to load job %s: %w", jobID, err)
	}
	user, err := a.storage.Users().GetUser(ctx, job.UserID)
	if err != nil {
		return "", fmt.Errorf("retirement: failed to load user %s: %w", job.UserID, err)
	}

	holdings, err := portfolio.LoadHoldings(ctx, a.storage, user.ID)
	if err != nil {
		return "", fmt.Errorf("retirement: %w", err)
	}

	value, allocation := valueAndAllocation(holdings)

	input := retirement.Input{
		CurrentValue:       value,
		YearsToRetirement:  user.YearsUntilRetirement,
		TargetAnnualIncome: user.TargetRetirementIncome,
		Allocation:         allocation,
		CurrentAge:         DefaultCurrentAge,
		Scenarios:          a.scenarios,
	}

	projection, err := a.engine.Project(ctx, input)
	if err != nil {
		return "", fmt.Errorf("retirement: simulation failed: %w", err)
	}

	prompt := formatProjectionContext(input, allocation, projection)

	analysis, err := a.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: retirementInstructions},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		if llm.IsRateLimitError(err) {
			return "", &ResourceLimitError{Agent: a.Name(), Cause: err}
		}
		return "", fmt.Errorf("retirement: analysis generation failed: %w", err)
	}

	raw, err := json.Marshal(projection)
	if err != nil {
		return "", fmt.Errorf("retirement: failed to encode projection: %w", err)
	}

	err = a.storage.Jobs().UpdateJob(ctx, jobID, func(j *models.Job) error {
		j.RetirementPayload = &models.RetirementPayload{
			Analysis:    analysis,
			Projection:  raw,
			GeneratedAt: time.Now(),
			Agent:       a.Name(),
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("retirement: failed to save retirement payload: %w", err)
	}

	return analysis, nil
}

// valueAndAllocation computes the portfolio's total value and its
// asset-class weights as fractions. Unpriced positions use
// RetirementPriceFallback. A zero-value portfolio yields zero weights.
func valueAndAllocation(holdings []portfolio.AccountHoldings) (float64, retirement.Allocation) {
	var total, equity, bonds, realEstate, commodities, cash float64

	for _, account := range holdings {
		cash += account.Cash
		total += account.Cash

		for _, holding := range account.Holdings {
			price := RetirementPriceFallback
			if holding.Price != nil {
				price = *holding.Price
			}
			value := holding.Quantity * price
			total += value

			equity += value * holding.AssetClass["equity"] / 100
			bonds += value * holding.AssetClass["fixed_income"] / 100
			realEstate += value * holding.AssetClass["real_estate"] / 100
			commodities += value * holding.AssetClass["commodities"] / 100
		}
	}

	if total == 0 {
		return 0, retirement.Allocation{}
	}

	return total, retirement.Allocation{
		Equity:      equity / total,
		Bonds:       bonds / total,
		RealEstate:  realEstate / total,
		Commodities: commodities / total,
		Cash:        cash / total,
	}
}

// formatProjectionContext renders the simulation results as the
// analysis prompt.
func formatProjectionContext(in retirement.Input, alloc retirement.Allocation, projection *retirement.Projection) string {
	var b strings.Builder

	b.WriteString("# Portfolio Analysis Context\n\n")
	b.WriteString("## Current Situation\n")
	fmt.Fprintf(&b, "- Portfolio Value: $%.0f\n", in.CurrentValue)
	fmt.Fprintf(&b, "- Asset Allocation: Equity: %.0f%%, Bonds: %.0f%%, Real Estate: %.0f%%, Cash: %.0f%%\n",
		alloc.Equity*100, alloc.Bonds*100, alloc.RealEstate*100, alloc.Cash*100)
	fmt.Fprintf(&b, "- Years to Retirement: %d\n", in.YearsToRetirement)
	fmt.Fprintf(&b, "- Target Annual Income: $%.0f\n", in.TargetAnnualIncome)
	fmt.Fprintf(&b, "- Current Age: %d\n\n", in.CurrentAge)

	b.WriteString("## Monte Carlo Simulation Results\n")
	fmt.Fprintf(&b, "- Success Rate: %.1f%% (probability of sustaining retirement income for %d years)\n",
		projection.SuccessRate, retirement.RetirementYears)
	fmt.Fprintf(&b, "- Expected Portfolio Value at Retirement: $%.0f\n", projection.ExpectedValueAtRetirement)
	fmt.Fprintf(&b, "- 10th Percentile Outcome: $%.0f (worst case)\n", projection.Percentile10)
	fmt.Fprintf(&b, "- Median Final Value: $%.0f\n", projection.MedianFinalValue)
	fmt.Fprintf(&b, "- 90th Percentile Outcome: $%.0f (best case)\n", projection.Percentile90)
	fmt.Fprintf(&b, "- Average Years Portfolio Lasts: %.1f years\n\n", projection.AverageYearsSustained)

	b.WriteString("## Key Projections (Milestones)\n")
	milestones := projection.Milestones
	if len(milestones) > 6 {
		milestones = milestones[:6]
	}
	for _, m := range milestones {
		if m.Phase == "accumulation" {
			fmt.Fprintf(&b, "- Age %d: $%.0f (building wealth)\n", m.Age, m.PortfolioValue)
		} else {
			fmt.Fprintf(&b, "- Age %d: $%.0f (annual income: $%.0f)\n", m.Age, m.PortfolioValue, m.AnnualIncome)
		}
	}

	b.WriteString("\n## Safe Withdrawal Rate Analysis\n")
	fmt.Fprintf(&b, "- 4%% Rule: $%.0f initial annual income\n", in.CurrentValue*0.04)
	fmt.Fprintf(&b, "- Target Income: $%.0f\n", in.TargetAnnualIncome)
	fmt.Fprintf(&b, "- Gap: $%.0f\n\n", in.TargetAnnualIncome-in.CurrentValue*0.04)

	b.WriteString(`Your task: Analyze this retirement readiness data and provide a comprehensive retirement analysis including:
1. Clear assessment of retirement readiness
2. Specific recommendations to improve success rate
3. Risk mitigation strategies
4. Action items with timeline`)

	return b.String()
}
