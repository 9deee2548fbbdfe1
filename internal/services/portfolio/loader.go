package portfolio

import (
	"context"
	"fmt"

	"github.com/ternarybob/folio/internal/interfaces"
)

// QuickStats carries the summary statistics the orchestrator's routing
// rules need, without the full breakdowns.
type QuickStats struct {
	TotalValue   float64
	NumAccounts  int
	NumPositions int
}

// LoadHoldings assembles the aggregator's input from storage: the
// user's accounts joined with instrument metadata for each position.
// Positions whose instrument record is missing are kept with a nil
// price and empty allocations.
func LoadHoldings(ctx context.Context, storage interfaces.StorageManager, userID string) ([]AccountHoldings, error) {
	accounts, err := storage.Accounts().GetAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts for user %s: %w", userID, err)
	}

	symbolSet := make(map[string]struct{})
	for _, account := range accounts {
		for _, position := range account.Positions {
			symbolSet[position.Symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	instruments, err := storage.Instruments().GetInstruments(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	holdings := make([]AccountHoldings, 0, len(accounts))
	for _, account := range accounts {
		ah := AccountHoldings{
			AccountID: account.ID,
			Name:      account.Name,
			Cash:      account.Cash(),
		}
		for _, position := range account.Positions {
			holding := Holding{
				Symbol:   position.Symbol,
				Quantity: position.Quantity,
			}
			if instrument, ok := instruments[position.Symbol]; ok {
				holding.Name = instrument.Name
				holding.Price = instrument.CurrentPrice
				holding.AssetClass = instrument.AllocationAssetClass
				holding.Regions = instrument.AllocationRegions
				holding.Sectors = instrument.AllocationSectors
			}
			ah.Holdings = append(ah.Holdings, holding)
		}
		holdings = append(holdings, ah)
	}

	return holdings, nil
}

// LoadQuickStats computes routing statistics for a user's portfolio
func LoadQuickStats(ctx context.Context, storage interfaces.StorageManager, userID string) (*QuickStats, error) {
	holdings, err := LoadHoldings(ctx, storage, userID)
	if err != nil {
		return nil, err
	}

	summary := NewAggregator().Summarize(holdings)
	return &QuickStats{
		TotalValue:   summary.TotalValue,
		NumAccounts:  summary.NumAccounts,
		NumPositions: summary.NumPositions,
	}, nil
}
