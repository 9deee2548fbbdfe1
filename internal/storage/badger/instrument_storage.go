package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// InstrumentStorage implements the InstrumentStorage interface for Badger
type InstrumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInstrumentStorage creates a new InstrumentStorage instance
func NewInstrumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InstrumentStorage {
	return &InstrumentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveInstrument inserts or updates an instrument, preserving CreatedAt
// on updates.
func (s *InstrumentStorage) SaveInstrument(ctx context.Context, instrument *models.Instrument) error {
	instrument.UpdatedAt = time.Now()

	var existing models.Instrument
	if err := s.db.Store().Get(instrument.Symbol, &existing); err == nil {
		instrument.CreatedAt = existing.CreatedAt
	} else if instrument.CreatedAt.IsZero() {
		instrument.CreatedAt = instrument.UpdatedAt
	}

	if err := s.db.Store().Upsert(instrument.Symbol, instrument); err != nil {
		return fmt.Errorf("failed to save instrument %s: %w", instrument.Symbol, err)
	}
	return nil
}

// SaveInstruments saves a batch of instruments
func (s *InstrumentStorage) SaveInstruments(ctx context.Context, instruments []*models.Instrument) error {
	for _, instrument := range instruments {
		if err := s.SaveInstrument(ctx, instrument); err != nil {
			return err
		}
	}
	return nil
}

// GetInstrument retrieves an instrument by symbol
func (s *InstrumentStorage) GetInstrument(ctx context.Context, symbol string) (*models.Instrument, error) {
	var instrument models.Instrument
	err := s.db.Store().Get(symbol, &instrument)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
	}
	return &instrument, nil
}

// GetInstruments returns the subset of requested symbols that exist,
// keyed by symbol.
func (s *InstrumentStorage) GetInstruments(ctx context.Context, symbols []string) (map[string]*models.Instrument, error) {
	result := make(map[string]*models.Instrument, len(symbols))
	for _, symbol := range symbols {
		var instrument models.Instrument
		err := s.db.Store().Get(symbol, &instrument)
		if err == badgerhold.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
		}
		result[symbol] = &instrument
	}
	return result, nil
}

// ListInstruments returns all instruments sorted by symbol
func (s *InstrumentStorage) ListInstruments(ctx context.Context) ([]*models.Instrument, error) {
	var instruments []*models.Instrument
	if err := s.db.Store().Find(&instruments, badgerhold.Where("Symbol").Ne("").SortBy("Symbol")); err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

// DeleteInstrument removes an instrument record
func (s *InstrumentStorage) DeleteInstrument(ctx context.Context, symbol string) error {
	err := s.db.Store().Delete(symbol, &models.Instrument{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete instrument %s: %w", symbol, err)
	}
	return nil
}

// CountInstruments returns the total number of instruments
func (s *InstrumentStorage) CountInstruments(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Instrument{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count instruments: %w", err)
	}
	return int(count), nil
}
