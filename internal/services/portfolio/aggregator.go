package portfolio

import (
	"fmt"
	"sort"
)

// DefaultPriceFallback is substituted for positions whose instrument has
// no current price. Missing prices are surfaced as warnings, not errors.
const DefaultPriceFallback = 1.0

// CashCategory is the reserved asset-class bucket for cash balances
const CashCategory = "cash"

// TopHoldingsLimit bounds the top-holdings list in a summary
const TopHoldingsLimit = 10

// Holding is a position joined with its instrument metadata
type Holding struct {
	Symbol     string
	Name       string
	Quantity   float64
	Price      *float64 // nil means no price on record
	AssetClass map[string]float64
	Regions    map[string]float64
	Sectors    map[string]float64
}

// AccountHoldings is one account's cash and positions, ready to aggregate
type AccountHoldings struct {
	AccountID string
	Name      string
	Cash      float64
	Holdings  []Holding
}

// Bucket is a named value used for all summary breakdowns
type Bucket struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Summary is the aggregate view of a user's portfolio. All breakdowns
// are sorted descending by value, ties broken by key for determinism.
type Summary struct {
	TotalValue   float64  `json:"total_value"`
	CashTotal    float64  `json:"cash_total"`
	NumAccounts  int      `json:"num_accounts"`
	NumPositions int      `json:"num_positions"`
	ByAssetClass []Bucket `json:"allocation_by_asset_class"`
	ByRegion     []Bucket `json:"allocation_by_region"`
	BySector     []Bucket `json:"allocation_by_sector"`
	PerAccount   []Bucket `json:"per_account_value"`
	TopHoldings  []Bucket `json:"top_holdings"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Aggregator computes portfolio summaries. It is pure: no I/O, no
// stored state, warnings are returned on the summary for the caller
// to log.
type Aggregator struct{}

// NewAggregator creates an aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Summarize aggregates accounts into a portfolio summary. Position
// value is quantity times price, with DefaultPriceFallback substituted
// (and a warning recorded) when the price is absent. Each position's
// value is spread across the three category breakdowns by its
// instrument's allocation percentages; cash lands in the reserved
// asset-class bucket.
func (a *Aggregator) Summarize(accounts []AccountHoldings) *Summary {
	summary := &Summary{
		NumAccounts: len(accounts),
	}

	bySymbol := make(map[string]float64)
	byAccount := make(map[string]float64)
	byAssetClass := make(map[string]float64)
	byRegion := make(map[string]float64)
	bySector := make(map[string]float64)

	for _, account := range accounts {
		summary.CashTotal += account.Cash
		byAccount[account.Name] += account.Cash

		for _, holding := range account.Holdings {
			summary.NumPositions++

			price := DefaultPriceFallback
			if holding.Price != nil {
				price = *holding.Price
			} else {
				summary.Warnings = append(summary.Warnings,
					fmt.Sprintf("no price for %s, using default %.2f", holding.Symbol, DefaultPriceFallback))
			}

			value := holding.Quantity * price
			summary.TotalValue += value
			bySymbol[holding.Symbol] += value
			byAccount[account.Name] += value

			spreadAllocation(byAssetClass, holding.AssetClass, value)
			spreadAllocation(byRegion, holding.Regions, value)
			spreadAllocation(bySector, holding.Sectors, value)
		}
	}

	summary.TotalValue += summary.CashTotal
	byAssetClass[CashCategory] += summary.CashTotal
	if byAssetClass[CashCategory] == 0 {
		delete(byAssetClass, CashCategory)
	}

	summary.ByAssetClass = sortBuckets(byAssetClass)
	summary.ByRegion = sortBuckets(byRegion)
	summary.BySector = sortBuckets(bySector)
	summary.PerAccount = sortBuckets(byAccount)

	summary.TopHoldings = sortBuckets(bySymbol)
	if len(summary.TopHoldings) > TopHoldingsLimit {
		summary.TopHoldings = summary.TopHoldings[:TopHoldingsLimit]
	}

	return summary
}

// spreadAllocation adds value into category buckets weighted by the
// allocation percentages. Absent maps contribute nothing.
func spreadAllocation(buckets map[string]float64, allocation map[string]float64, value float64) {
	for category, pct := range allocation {
		buckets[category] += value * pct / 100.0
	}
}

// sortBuckets flattens a bucket map sorted descending by value, ties
// broken by key.
func sortBuckets(values map[string]float64) []Bucket {
	buckets := make([]Bucket, 0, len(values))
	for key, value := range values {
		buckets = append(buckets, Bucket{Key: key, Value: value})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Value != buckets[j].Value {
			return buckets[i].Value > buckets[j].Value
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}
