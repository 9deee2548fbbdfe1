package tagger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// GapInstrument identifies an instrument needing classification
type GapInstrument struct {
	Symbol string
	Name   string
}

// Service detects instruments with missing allocation data across a
// user's holdings and fills them via the classifier. Filling is
// idempotent and side-effects only the instrument reference table.
type Service struct {
	storage    interfaces.StorageManager
	classifier *Classifier
	logger     arbor.ILogger
}

// NewService creates a gap-detection service
func NewService(storage interfaces.StorageManager, classifier *Classifier, logger arbor.ILogger) *Service {
	return &Service{
		storage:    storage,
		classifier: classifier,
		logger:     logger,
	}
}

// DetectGaps returns the instruments across the user's positions whose
// records are missing or whose allocation maps are incomplete.
func (s *Service) DetectGaps(ctx context.Context, userID string) ([]GapInstrument, error) {
	accounts, err := s.storage.Accounts().GetAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	seen := make(map[string]struct{})
	var gaps []GapInstrument

	for _, account := range accounts {
		for _, position := range account.Positions {
			if _, ok := seen[position.Symbol]; ok {
				continue
			}
			seen[position.Symbol] = struct{}{}

			instrument, err := s.storage.Instruments().GetInstrument(ctx, position.Symbol)
			if errors.Is(err, interfaces.ErrNotFound) {
				// Unknown instrument: incomplete with an empty name
				gaps = append(gaps, GapInstrument{Symbol: position.Symbol})
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load instrument %s: %w", position.Symbol, err)
			}

			if instrument.Incomplete() {
				gaps = append(gaps, GapInstrument{Symbol: instrument.Symbol, Name: instrument.Name})
			}
		}
	}

	return gaps, nil
}

// Fill classifies every incomplete instrument in the user's holdings
// with a single batch call and upserts the results. Classification
// failure is logged and returned, but callers treat it as non-fatal:
// partial allocations are valid aggregator input.
func (s *Service) Fill(ctx context.Context, userID string) error {
	gaps, err := s.DetectGaps(ctx, userID)
	if err != nil {
		return err
	}
	if len(gaps) == 0 {
		return nil
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("count", len(gaps)).
		Msg("Classifying instruments with missing allocation data")

	classifications, err := s.classifier.Classify(ctx, gaps)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Instrument classification failed, continuing with existing data")
		return err
	}

	for _, classification := range classifications {
		instrument := &models.Instrument{
			Symbol:               classification.Symbol,
			Name:                 classification.Name,
			Type:                 classification.InstrumentType,
			AllocationAssetClass: classification.AllocationAssetClass,
			AllocationRegions:    classification.AllocationRegions,
			AllocationSectors:    classification.AllocationSectors,
		}
		if classification.CurrentPrice > 0 {
			price := classification.CurrentPrice
			instrument.CurrentPrice = &price
		}

		if err := s.storage.Instruments().SaveInstrument(ctx, instrument); err != nil {
			return fmt.Errorf("failed to save classified instrument %s: %w", classification.Symbol, err)
		}

		s.logger.Debug().
			Str("symbol", classification.Symbol).
			Str("type", classification.InstrumentType).
			Msg("Instrument classified")
	}

	return nil
}
