package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Allocation category vocabularies the classifier is constrained to
var (
	AssetClassCategories = []string{
		"equity", "fixed_income", "real_estate", "commodities", "cash", "alternatives",
	}
	RegionCategories = []string{
		"north_america", "europe", "asia", "latin_america", "africa",
		"middle_east", "oceania", "global", "international",
	}
	SectorCategories = []string{
		"technology", "healthcare", "financials", "consumer_discretionary",
		"consumer_staples", "industrials", "materials", "energy", "utilities",
		"real_estate", "communication", "treasury", "corporate", "mortgage",
		"government_related", "commodities", "diversified", "other",
	}
)

const classifierSystemPrompt = `You are a financial instrument classification specialist.
For each instrument you are given, provide:
1. Current price per share in USD (approximate market price)
2. Allocation percentages for asset classes, regions, and sectors

Rules:
- Each allocation category must sum to exactly 100.0
- For stocks, typically 100% in one asset class, one region, one sector
- For ETFs, distribute based on underlying holdings
- For bonds and bond funds, use the fixed_income asset class with the matching bond sectors`

// Classification is one instrument's structured classification result
type Classification struct {
	Symbol               string             `json:"symbol" validate:"required"`
	Name                 string             `json:"name"`
	InstrumentType       string             `json:"instrument_type" validate:"required"`
	CurrentPrice         float64            `json:"current_price" validate:"gt=0"`
	AllocationAssetClass map[string]float64 `json:"allocation_asset_class" validate:"allocsum"`
	AllocationRegions    map[string]float64 `json:"allocation_regions" validate:"allocsum"`
	AllocationSectors    map[string]float64 `json:"allocation_sectors" validate:"allocsum"`
}

type classificationResponse struct {
	Instruments []Classification `json:"instruments"`
}

// Classifier turns unclassified instruments into full records via a
// structured LLM call. Results that fail validation are dropped, not
// persisted.
type Classifier struct {
	llm      interfaces.LLMService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewClassifier creates a classifier
func NewClassifier(llm interfaces.LLMService, logger arbor.ILogger) *Classifier {
	validate := validator.New()

	// Allocation maps must sum to 100 within tolerance after pruning
	_ = validate.RegisterValidation("allocsum", func(fl validator.FieldLevel) bool {
		allocation, ok := fl.Field().Interface().(map[string]float64)
		if !ok {
			return false
		}
		return models.ValidAllocation(allocation)
	})

	return &Classifier{
		llm:      llm,
		validate: validate,
		logger:   logger,
	}
}

// Classify runs one batch classification call and returns the valid
// results. Invalid entries are logged and skipped; the call errors only
// when the LLM call or decoding fails outright.
func (c *Classifier) Classify(ctx context.Context, batch []GapInstrument) ([]Classification, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Classify the following instruments:\n")
	for _, item := range batch {
		if item.Name != "" {
			fmt.Fprintf(&prompt, "- %s (%s)\n", item.Symbol, item.Name)
		} else {
			fmt.Fprintf(&prompt, "- %s\n", item.Symbol)
		}
	}

	raw, err := c.llm.ChatStructured(ctx, []interfaces.Message{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: prompt.String()},
	}, classificationSchema())
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	var response classificationResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}

	valid := make([]Classification, 0, len(response.Instruments))
	for _, classification := range response.Instruments {
		pruneZeroEntries(classification.AllocationAssetClass)
		pruneZeroEntries(classification.AllocationRegions)
		pruneZeroEntries(classification.AllocationSectors)

		if err := c.validate.Struct(classification); err != nil {
			c.logger.Warn().
				Str("symbol", classification.Symbol).
				Err(err).
				Msg("Dropping invalid classification")
			continue
		}
		valid = append(valid, classification)
	}

	return valid, nil
}

// pruneZeroEntries drops zero-weight categories so stored allocation
// maps only carry meaningful buckets.
func pruneZeroEntries(allocation map[string]float64) {
	for category, pct := range allocation {
		if pct <= 0 {
			delete(allocation, category)
		}
	}
}

// classificationSchema builds the structured-output schema for one
// classification batch.
func classificationSchema() *interfaces.ResponseSchema {
	return &interfaces.ResponseSchema{
		Type: "object",
		Properties: map[string]*interfaces.ResponseSchema{
			"instruments": {
				Type: "array",
				Items: &interfaces.ResponseSchema{
					Type: "object",
					Properties: map[string]*interfaces.ResponseSchema{
						"symbol":                 {Type: "string", Description: "Ticker symbol"},
						"name":                   {Type: "string", Description: "Instrument name"},
						"instrument_type":        {Type: "string", Description: "etf, stock, mutual_fund, bond_fund"},
						"current_price":          {Type: "number", Description: "Price per share in USD"},
						"allocation_asset_class": allocationSchema(AssetClassCategories),
						"allocation_regions":     allocationSchema(RegionCategories),
						"allocation_sectors":     allocationSchema(SectorCategories),
					},
					Required: []string{
						"symbol", "instrument_type", "current_price",
						"allocation_asset_class", "allocation_regions", "allocation_sectors",
					},
				},
			},
		},
		Required: []string{"instruments"},
	}
}

func allocationSchema(categories []string) *interfaces.ResponseSchema {
	properties := make(map[string]*interfaces.ResponseSchema, len(categories))
	for _, category := range categories {
		properties[category] = &interfaces.ResponseSchema{
			Type:        "number",
			Description: "Percentage 0-100",
		}
	}
	return &interfaces.ResponseSchema{
		Type:        "object",
		Description: "Percentages summing to 100",
		Properties:  properties,
	}
}
