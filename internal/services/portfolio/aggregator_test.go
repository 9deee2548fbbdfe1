package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestSummarizeSingleETFWithCash(t *testing.T) {
	accounts := []AccountHoldings{
		{
			AccountID: "acct_1",
			Name:      "Brokerage",
			Cash:      5000,
			Holdings: []Holding{
				{
					Symbol:   "SPY",
					Name:     "SPDR S&P 500 ETF",
					Quantity: 100,
					Price:    floatPtr(450),
					AssetClass: map[string]float64{
						"equity": 100,
					},
					Regions: map[string]float64{
						"north_america": 100,
					},
					Sectors: map[string]float64{
						"diversified": 100,
					},
				},
			},
		},
	}

	summary := NewAggregator().Summarize(accounts)

	assert.Equal(t, 50000.0, summary.TotalValue)
	assert.Equal(t, 5000.0, summary.CashTotal)
	assert.Equal(t, 1, summary.NumAccounts)
	assert.Equal(t, 1, summary.NumPositions)
	assert.Empty(t, summary.Warnings)

	require.Len(t, summary.ByAssetClass, 2)
	assert.Equal(t, Bucket{Key: "equity", Value: 45000}, summary.ByAssetClass[0])
	assert.Equal(t, Bucket{Key: "cash", Value: 5000}, summary.ByAssetClass[1])

	require.Len(t, summary.TopHoldings, 1)
	assert.Equal(t, Bucket{Key: "SPY", Value: 45000}, summary.TopHoldings[0])

	require.Len(t, summary.PerAccount, 1)
	assert.Equal(t, Bucket{Key: "Brokerage", Value: 50000}, summary.PerAccount[0])
}

func TestSummarizeMissingPriceUsesDefault(t *testing.T) {
	accounts := []AccountHoldings{
		{
			AccountID: "acct_1",
			Name:      "Brokerage",
			Holdings: []Holding{
				{Symbol: "MYSTERY", Quantity: 250},
			},
		},
	}

	summary := NewAggregator().Summarize(accounts)

	assert.Equal(t, 250.0, summary.TotalValue)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "MYSTERY")
}

func TestSummarizeDeterministicOrdering(t *testing.T) {
	accounts := []AccountHoldings{
		{
			AccountID: "acct_1",
			Name:      "Brokerage",
			Holdings: []Holding{
				{Symbol: "BBB", Quantity: 10, Price: floatPtr(100)},
				{Symbol: "AAA", Quantity: 10, Price: floatPtr(100)},
				{Symbol: "CCC", Quantity: 20, Price: floatPtr(100)},
			},
		},
	}

	// Equal values fall back to symbol order
	for i := 0; i < 5; i++ {
		summary := NewAggregator().Summarize(accounts)
		require.Len(t, summary.TopHoldings, 3)
		assert.Equal(t, "CCC", summary.TopHoldings[0].Key)
		assert.Equal(t, "AAA", summary.TopHoldings[1].Key)
		assert.Equal(t, "BBB", summary.TopHoldings[2].Key)
	}
}

func TestSummarizePurity(t *testing.T) {
	accounts := []AccountHoldings{
		{
			AccountID: "acct_1",
			Name:      "Brokerage",
			Cash:      1000,
			Holdings: []Holding{
				{
					Symbol:     "VTI",
					Quantity:   5,
					Price:      floatPtr(200),
					AssetClass: map[string]float64{"equity": 100},
				},
			},
		},
	}

	first := NewAggregator().Summarize(accounts)
	second := NewAggregator().Summarize(accounts)

	assert.Equal(t, first, second)
	// Input untouched
	assert.Equal(t, 1000.0, accounts[0].Cash)
	assert.Equal(t, map[string]float64{"equity": 100}, accounts[0].Holdings[0].AssetClass)
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	summary := NewAggregator().Summarize(nil)

	assert.Equal(t, 0.0, summary.TotalValue)
	assert.Equal(t, 0, summary.NumAccounts)
	assert.Equal(t, 0, summary.NumPositions)
	assert.Empty(t, summary.ByAssetClass)
	assert.Empty(t, summary.TopHoldings)
}

func TestSummarizePartialAllocations(t *testing.T) {
	accounts := []AccountHoldings{
		{
			AccountID: "acct_1",
			Name:      "Brokerage",
			Holdings: []Holding{
				{
					Symbol:   "BLND",
					Quantity: 10,
					Price:    floatPtr(100),
					AssetClass: map[string]float64{
						"equity": 60,
						"bonds":  40,
					},
					// No region or sector data: contributes nothing there
				},
			},
		},
	}

	summary := NewAggregator().Summarize(accounts)

	require.Len(t, summary.ByAssetClass, 2)
	assert.Equal(t, Bucket{Key: "equity", Value: 600}, summary.ByAssetClass[0])
	assert.Equal(t, Bucket{Key: "bonds", Value: 400}, summary.ByAssetClass[1])
	assert.Empty(t, summary.ByRegion)
	assert.Empty(t, summary.BySector)
}

func TestTopHoldingsLimit(t *testing.T) {
	var holdings []Holding
	for i := 0; i < 15; i++ {
		holdings = append(holdings, Holding{
			Symbol:   string(rune('A'+i)) + "XX",
			Quantity: float64(i + 1),
			Price:    floatPtr(10),
		})
	}

	summary := NewAggregator().Summarize([]AccountHoldings{{AccountID: "acct_1", Name: "Big", Holdings: holdings}})

	assert.Equal(t, 15, summary.NumPositions)
	assert.Len(t, summary.TopHoldings, TopHoldingsLimit)
	// Highest value first
	assert.Equal(t, 150.0, summary.TopHoldings[0].Value)
}
