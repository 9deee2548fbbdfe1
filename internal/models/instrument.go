package models

import (
	"math"
	"time"
)

// AllocationSumTolerance is the accepted deviation from 100 for the sum
// of an allocation map's percentages.
const AllocationSumTolerance = 3.0

// Instrument represents a tradable security in the shared reference table.
// Allocation maps hold percentage breakdowns (summing to 100); a nil or
// empty map means the instrument has not been classified yet.
type Instrument struct {
	Symbol               string             `json:"symbol" badgerhold:"key"`
	Name                 string             `json:"name"`
	Type                 string             `json:"type"` // "etf", "stock", "bond", "fund", "cash"
	CurrentPrice         *float64           `json:"current_price,omitempty"`
	AllocationAssetClass map[string]float64 `json:"allocation_asset_class,omitempty"`
	AllocationRegions    map[string]float64 `json:"allocation_regions,omitempty"`
	AllocationSectors    map[string]float64 `json:"allocation_sectors,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// Incomplete reports whether any allocation map is missing or empty,
// meaning the instrument needs classification.
func (i *Instrument) Incomplete() bool {
	return len(i.AllocationAssetClass) == 0 ||
		len(i.AllocationRegions) == 0 ||
		len(i.AllocationSectors) == 0
}

// PriceOr returns the current price, or the fallback when no price is set
func (i *Instrument) PriceOr(fallback float64) float64 {
	if i.CurrentPrice != nil {
		return *i.CurrentPrice
	}
	return fallback
}

// ValidAllocation reports whether the map's percentages sum to 100
// within AllocationSumTolerance. Empty maps are not valid allocations.
func ValidAllocation(allocation map[string]float64) bool {
	if len(allocation) == 0 {
		return false
	}
	sum := 0.0
	for _, pct := range allocation {
		sum += pct
	}
	return math.Abs(sum-100.0) <= AllocationSumTolerance
}
