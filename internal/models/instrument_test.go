package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstrumentIncomplete(t *testing.T) {
	full := &Instrument{
		Symbol:               "SPY",
		AllocationAssetClass: map[string]float64{"equity": 100},
		AllocationRegions:    map[string]float64{"north_america": 100},
		AllocationSectors:    map[string]float64{"diversified": 100},
	}
	assert.False(t, full.Incomplete())

	missing := &Instrument{
		Symbol:               "VXUS",
		AllocationAssetClass: map[string]float64{"equity": 100},
	}
	assert.True(t, missing.Incomplete())

	empty := &Instrument{
		Symbol:               "BND",
		AllocationAssetClass: map[string]float64{},
		AllocationRegions:    map[string]float64{"global": 100},
		AllocationSectors:    map[string]float64{"bonds": 100},
	}
	assert.True(t, empty.Incomplete())
}

func TestInstrumentPriceOr(t *testing.T) {
	price := 512.30
	priced := &Instrument{Symbol: "SPY", CurrentPrice: &price}
	assert.Equal(t, 512.30, priced.PriceOr(1.0))

	unpriced := &Instrument{Symbol: "MYSTERY"}
	assert.Equal(t, 1.0, unpriced.PriceOr(1.0))
	assert.Equal(t, 100.0, unpriced.PriceOr(100.0))
}

func TestValidAllocation(t *testing.T) {
	tests := []struct {
		name       string
		allocation map[string]float64
		want       bool
	}{
		{"exact", map[string]float64{"equity": 60, "bonds": 40}, true},
		{"within tolerance high", map[string]float64{"equity": 62, "bonds": 40.5}, true},
		{"within tolerance low", map[string]float64{"equity": 57, "bonds": 40}, true},
		{"too high", map[string]float64{"equity": 70, "bonds": 40}, false},
		{"too low", map[string]float64{"equity": 50, "bonds": 40}, false},
		{"empty", map[string]float64{}, false},
		{"nil", nil, false},
		{"single bucket", map[string]float64{"cash": 100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAllocation(tt.allocation))
		})
	}
}
