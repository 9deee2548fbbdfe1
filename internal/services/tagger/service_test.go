package tagger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	badgerstore "github.com/ternarybob/folio/internal/storage/badger"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) ChatStructured(ctx context.Context, messages []interfaces.Message, schema *interfaces.ResponseSchema) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) ProviderName() string { return "fake" }
func (f *fakeLLM) Close() error         { return nil }

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badgerstore.NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "tagger-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func seedUserWithPositions(t *testing.T, storage interfaces.StorageManager) string {
	t.Helper()
	ctx := context.Background()

	user := models.NewUser("Test User")
	require.NoError(t, storage.Users().SaveUser(ctx, user))

	account := models.NewAccount(user.ID, "Brokerage")
	account.AddPosition("SPY", 100)
	account.AddPosition("XYZ", 50)
	require.NoError(t, storage.Accounts().SaveAccount(ctx, account))

	// SPY is fully classified, XYZ has no record at all
	price := 450.0
	require.NoError(t, storage.Instruments().SaveInstrument(ctx, &models.Instrument{
		Symbol:               "SPY",
		Name:                 "SPDR S&P 500 ETF",
		Type:                 "etf",
		CurrentPrice:         &price,
		AllocationAssetClass: map[string]float64{"equity": 100},
		AllocationRegions:    map[string]float64{"north_america": 100},
		AllocationSectors:    map[string]float64{"diversified": 100},
	}))

	return user.ID
}

func TestDetectGaps(t *testing.T) {
	storage := newTestStorage(t)
	userID := seedUserWithPositions(t, storage)

	service := NewService(storage, NewClassifier(&fakeLLM{}, common.GetLogger()), common.GetLogger())

	gaps, err := service.DetectGaps(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, "XYZ", gaps[0].Symbol)
	assert.Empty(t, gaps[0].Name)
}

func TestFillClassifiesAndUpserts(t *testing.T) {
	storage := newTestStorage(t)
	userID := seedUserWithPositions(t, storage)

	llm := &fakeLLM{
		response: `{"instruments":[{
			"symbol":"XYZ",
			"name":"XYZ Corp",
			"instrument_type":"stock",
			"current_price":25.50,
			"allocation_asset_class":{"equity":100,"cash":0},
			"allocation_regions":{"north_america":100},
			"allocation_sectors":{"technology":100}
		}]}`,
	}
	service := NewService(storage, NewClassifier(llm, common.GetLogger()), common.GetLogger())

	require.NoError(t, service.Fill(context.Background(), userID))
	assert.Equal(t, 1, llm.calls)

	instrument, err := storage.Instruments().GetInstrument(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ Corp", instrument.Name)
	assert.Equal(t, "stock", instrument.Type)
	assert.Equal(t, 25.50, instrument.PriceOr(0))
	assert.False(t, instrument.Incomplete())
	// Zero entries pruned
	assert.NotContains(t, instrument.AllocationAssetClass, "cash")
}

func TestFillNoGapsSkipsClassifier(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	user := models.NewUser("Cash Only")
	require.NoError(t, storage.Users().SaveUser(ctx, user))
	account := models.NewAccount(user.ID, "Savings")
	cash := 10000.0
	account.CashBalance = &cash
	require.NoError(t, storage.Accounts().SaveAccount(ctx, account))

	llm := &fakeLLM{}
	service := NewService(storage, NewClassifier(llm, common.GetLogger()), common.GetLogger())

	require.NoError(t, service.Fill(ctx, user.ID))
	assert.Equal(t, 0, llm.calls)
}

func TestFillDropsInvalidClassifications(t *testing.T) {
	storage := newTestStorage(t)
	userID := seedUserWithPositions(t, storage)

	// Asset class sums to 80: outside tolerance, must be dropped
	llm := &fakeLLM{
		response: `{"instruments":[{
			"symbol":"XYZ",
			"name":"XYZ Corp",
			"instrument_type":"stock",
			"current_price":25.50,
			"allocation_asset_class":{"equity":80},
			"allocation_regions":{"north_america":100},
			"allocation_sectors":{"technology":100}
		}]}`,
	}
	service := NewService(storage, NewClassifier(llm, common.GetLogger()), common.GetLogger())

	require.NoError(t, service.Fill(context.Background(), userID))

	_, err := storage.Instruments().GetInstrument(context.Background(), "XYZ")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestFillClassifierFailureReturnsError(t *testing.T) {
	storage := newTestStorage(t)
	userID := seedUserWithPositions(t, storage)

	llm := &fakeLLM{err: errors.New("api unavailable")}
	service := NewService(storage, NewClassifier(llm, common.GetLogger()), common.GetLogger())

	err := service.Fill(context.Background(), userID)
	assert.Error(t, err)
}

func TestClassifierToleratesNearHundredSums(t *testing.T) {
	llm := &fakeLLM{
		response: `{"instruments":[{
			"symbol":"VT",
			"name":"Vanguard Total World",
			"instrument_type":"etf",
			"current_price":110,
			"allocation_asset_class":{"equity":99},
			"allocation_regions":{"global":101.5},
			"allocation_sectors":{"diversified":98.2}
		}]}`,
	}
	classifier := NewClassifier(llm, common.GetLogger())

	results, err := classifier.Classify(context.Background(), []GapInstrument{{Symbol: "VT"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "VT", results[0].Symbol)
}
