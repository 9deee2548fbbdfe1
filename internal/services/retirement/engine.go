package retirement

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Historical return parameters (annualized)
const (
	EquityReturnMean     = 0.07
	EquityReturnStd      = 0.18
	BondReturnMean       = 0.04
	BondReturnStd        = 0.05
	RealEstateReturnMean = 0.06
	RealEstateReturnStd  = 0.12
	CashReturn           = 0.02 // Fixed, not drawn
)

const (
	// AnnualContribution is added to the portfolio every accumulation year
	AnnualContribution = 10000.0

	// RetirementYears is the withdrawal horizon a scenario must sustain
	RetirementYears = 30

	// InflationRate compounds the withdrawal amount each retirement year
	InflationRate = 0.03

	// MilestoneWithdrawalRate sets the income shown at retirement milestones
	MilestoneWithdrawalRate = 0.04

	// DefaultScenarios is used when the input does not specify a count
	DefaultScenarios = 500

	// scenarioBatches bounds the number of parallel simulation batches
	scenarioBatches = 8
)

// Allocation holds portfolio weights as fractions summing to at most 1.
// Missing categories are zero. Commodities carry weight but draw no
// return, matching the simulation's asset model.
type Allocation struct {
	Equity      float64 `json:"equity"`
	Bonds       float64 `json:"bonds"`
	RealEstate  float64 `json:"real_estate"`
	Commodities float64 `json:"commodities"`
	Cash        float64 `json:"cash"`
}

// Input parameterizes a projection run
type Input struct {
	CurrentValue       float64
	YearsToRetirement  int
	TargetAnnualIncome float64
	Allocation         Allocation
	CurrentAge         int
	Scenarios          int // 0 means DefaultScenarios
}

// Milestone is one point on the deterministic expected trajectory
type Milestone struct {
	Year           int     `json:"year"`
	Age            int     `json:"age"`
	PortfolioValue float64 `json:"portfolio_value"`
	AnnualIncome   float64 `json:"annual_income"`
	Phase          string  `json:"phase"` // "accumulation" or "retirement"
}

// Projection is the full simulation output
type Projection struct {
	SuccessRate               float64     `json:"success_rate"`
	MedianFinalValue          float64     `json:"median_final_value"`
	Percentile10              float64     `json:"percentile_10"`
	Percentile90              float64     `json:"percentile_90"`
	AverageYearsSustained     float64     `json:"average_years_lasted"`
	ExpectedValueAtRetirement float64     `json:"expected_value_at_retirement"`
	Milestones                []Milestone `json:"milestones"`
}

// Engine runs Monte Carlo retirement projections. Scenarios are
// independent, so they run in parallel batches; aggregation happens
// only after every batch has finished.
type Engine struct {
	// seedFn produces the base seed for a run; overridable in tests
	// for reproducible draws.
	seedFn func() int64
}

// NewEngine creates a projection engine
func NewEngine() *Engine {
	return &Engine{
		seedFn: func() int64 { return time.Now().UnixNano() },
	}
}

type scenarioResult struct {
	finalValue     float64
	yearsSustained int
}

// Project runs the simulation and the deterministic trajectory
func (e *Engine) Project(ctx context.Context, in Input) (*Projection, error) {
	scenarios := in.Scenarios
	if scenarios <= 0 {
		scenarios = DefaultScenarios
	}

	batches := scenarioBatches
	if scenarios < batches {
		batches = scenarios
	}

	results := make([][]scenarioResult, batches)
	baseSeed := e.seedFn()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < batches; i++ {
		batchIndex := i
		batchSize := scenarios / batches
		if batchIndex < scenarios%batches {
			batchSize++
		}

		g.Go(func() error {
			// Per-batch source: scenarios never share a rand.Rand
			rng := rand.New(rand.NewSource(baseSeed + int64(batchIndex)))
			batch := make([]scenarioResult, 0, batchSize)
			for s := 0; s < batchSize; s++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				batch = append(batch, runScenario(rng, in))
			}
			results[batchIndex] = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	finalValues := make([]float64, 0, scenarios)
	successes := 0
	totalYears := 0
	for _, batch := range results {
		for _, result := range batch {
			finalValues = append(finalValues, result.finalValue)
			totalYears += result.yearsSustained
			if result.yearsSustained >= RetirementYears {
				successes++
			}
		}
	}
	sort.Float64s(finalValues)

	n := len(finalValues)
	projection := &Projection{
		SuccessRate:               round1(float64(successes) / float64(n) * 100),
		MedianFinalValue:          round2(finalValues[n/2]),
		Percentile10:              round2(finalValues[n/10]),
		Percentile90:              round2(finalValues[9*n/10]),
		AverageYearsSustained:     round1(float64(totalYears) / float64(n)),
		ExpectedValueAtRetirement: round2(expectedValueAtRetirement(in)),
		Milestones:                milestones(in),
	}

	return projection, nil
}

// runScenario simulates one accumulation-plus-retirement path
func runScenario(rng *rand.Rand, in Input) scenarioResult {
	value := in.CurrentValue

	for year := 0; year < in.YearsToRetirement; year++ {
		value = value*(1+drawReturn(rng, in.Allocation)) + AnnualContribution
	}

	withdrawal := in.TargetAnnualIncome
	yearsSustained := 0

	for year := 0; year < RetirementYears; year++ {
		if value <= 0 {
			break
		}

		withdrawal *= 1 + InflationRate
		value = value*(1+drawReturn(rng, in.Allocation)) - withdrawal

		if value > 0 {
			yearsSustained++
		}
	}

	return scenarioResult{
		finalValue:     math.Max(0, value),
		yearsSustained: yearsSustained,
	}
}

// drawReturn blends one year of random asset returns by the allocation
// weights. Cash earns a fixed return; commodities earn nothing.
func drawReturn(rng *rand.Rand, alloc Allocation) float64 {
	equity := rng.NormFloat64()*EquityReturnStd + EquityReturnMean
	bonds := rng.NormFloat64()*BondReturnStd + BondReturnMean
	realEstate := rng.NormFloat64()*RealEstateReturnStd + RealEstateReturnMean

	return alloc.Equity*equity +
		alloc.Bonds*bonds +
		alloc.RealEstate*realEstate +
		alloc.Cash*CashReturn
}

// meanReturn is the deterministic counterpart of drawReturn
func meanReturn(alloc Allocation) float64 {
	return alloc.Equity*EquityReturnMean +
		alloc.Bonds*BondReturnMean +
		alloc.RealEstate*RealEstateReturnMean +
		alloc.Cash*CashReturn
}

// expectedValueAtRetirement compounds the mean return through the
// accumulation phase with the annual contribution.
func expectedValueAtRetirement(in Input) float64 {
	expected := meanReturn(in.Allocation)
	value := in.CurrentValue
	for year := 0; year < in.YearsToRetirement; year++ {
		value = value*(1+expected) + AnnualContribution
	}
	return value
}

// milestones samples the deterministic trajectory at 5-year steps,
// switching to 4% withdrawals in retirement and truncating once the
// projected value goes non-positive.
func milestones(in Input) []Milestone {
	expected := meanReturn(in.Allocation)
	value := in.CurrentValue

	var points []Milestone
	for year := 0; year <= in.YearsToRetirement+RetirementYears; year += 5 {
		age := in.CurrentAge + year
		var phase string
		var income float64

		if year <= in.YearsToRetirement {
			steps := year
			if steps > 5 {
				steps = 5
			}
			for i := 0; i < steps; i++ {
				value = value*(1+expected) + AnnualContribution
			}
			phase = "accumulation"
		} else {
			income = value * MilestoneWithdrawalRate
			steps := year - in.YearsToRetirement
			if steps > 5 {
				steps = 5
			}
			for i := 0; i < steps; i++ {
				value = value*(1+expected) - income
			}
			phase = "retirement"
		}

		if value > 0 {
			points = append(points, Milestone{
				Year:           year,
				Age:            age,
				PortfolioValue: round2(value),
				AnnualIncome:   round2(income),
				Phase:          phase,
			})
		}
	}

	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
