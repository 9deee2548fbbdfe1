package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	config := &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "folio-test"),
	}
	manager, err := NewManager(common.GetLogger(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = manager.Close()
	})

	return manager
}

func TestJobStorageRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	job := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, manager.Jobs().SaveJob(ctx, job))

	loaded, err := manager.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)
	assert.Equal(t, models.JobStatusPending, loaded.Status)
	require.NotNil(t, loaded.RequestPayload)
	assert.Equal(t, job.ID, loaded.RequestPayload.JobID)

	_, err = manager.Jobs().GetJob(ctx, "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorageUpdateJob(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	job := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, manager.Jobs().SaveJob(ctx, job))

	require.NoError(t, manager.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.ReportPayload = &models.ReportPayload{Content: "report", Agent: models.AgentReporter}
		return nil
	}))
	require.NoError(t, manager.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.ChartsPayload = &models.ChartsPayload{Agent: models.AgentCharter}
		return nil
	}))

	loaded, err := manager.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ReportPayload)
	assert.Equal(t, "report", loaded.ReportPayload.Content)
	require.NotNil(t, loaded.ChartsPayload)

	err = manager.Jobs().UpdateJob(ctx, "job_missing", func(j *models.Job) error { return nil })
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorageStatusQueries(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	pending := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, manager.Jobs().SaveJob(ctx, pending))

	running := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, running.SetStatus(models.JobStatusRunning))
	require.NoError(t, manager.Jobs().SaveJob(ctx, running))

	jobs, err := manager.Jobs().GetJobsByStatus(ctx, models.JobStatusRunning)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, running.ID, jobs[0].ID)

	filtered, err := manager.Jobs().ListJobs(ctx, &interfaces.ListOptions{Status: string(models.JobStatusPending)})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, pending.ID, filtered[0].ID)
}

func TestJobStorageStaleRunning(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	stale := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, stale.SetStatus(models.JobStatusRunning))
	past := time.Now().Add(-1 * time.Hour)
	stale.StartedAt = &past
	require.NoError(t, manager.Jobs().SaveJob(ctx, stale))

	fresh := models.NewJob("user_1", models.JobTypePortfolioAnalysis)
	require.NoError(t, fresh.SetStatus(models.JobStatusRunning))
	require.NoError(t, manager.Jobs().SaveJob(ctx, fresh))

	found, err := manager.Jobs().GetStaleRunningJobs(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestAccountStorageByUser(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	account := models.NewAccount("user_1", "Brokerage")
	account.AddPosition("SPY", 100)
	account.AddPosition("BND", 50)
	require.NoError(t, manager.Accounts().SaveAccount(ctx, account))

	other := models.NewAccount("user_2", "IRA")
	require.NoError(t, manager.Accounts().SaveAccount(ctx, other))

	accounts, err := manager.Accounts().GetAccountsByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Brokerage", accounts[0].Name)
	require.Len(t, accounts[0].Positions, 2)
	assert.Equal(t, "SPY", accounts[0].Positions[0].Symbol)
}

func TestInstrumentStorageBatchGet(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	price := 512.30
	require.NoError(t, manager.Instruments().SaveInstruments(ctx, []*models.Instrument{
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF", Type: "etf", CurrentPrice: &price},
		{Symbol: "BND", Name: "Vanguard Total Bond Market ETF", Type: "etf"},
	}))

	found, err := manager.Instruments().GetInstruments(ctx, []string{"SPY", "BND", "MISSING"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, 512.30, found["SPY"].PriceOr(1.0))
	assert.Equal(t, 1.0, found["BND"].PriceOr(1.0))
	assert.NotContains(t, found, "MISSING")
}

func TestInstrumentStoragePreservesCreatedAt(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	instrument := &models.Instrument{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Type: "etf"}
	require.NoError(t, manager.Instruments().SaveInstrument(ctx, instrument))

	first, err := manager.Instruments().GetInstrument(ctx, "VTI")
	require.NoError(t, err)

	first.AllocationAssetClass = map[string]float64{"equity": 100}
	require.NoError(t, manager.Instruments().SaveInstrument(ctx, first))

	second, err := manager.Instruments().GetInstrument(ctx, "VTI")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

	// One allocation map out of three is still incomplete
	assert.Len(t, second.AllocationAssetClass, 1)
	assert.True(t, second.Incomplete())
}

func TestStorageCounts(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.Users().SaveUser(ctx, models.NewUser("Alice")))
	require.NoError(t, manager.Users().SaveUser(ctx, models.NewUser("Bob")))
	require.NoError(t, manager.Jobs().SaveJob(ctx, models.NewJob("user_1", models.JobTypePortfolioAnalysis)))

	users, err := manager.Users().CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, users)

	jobs, err := manager.Jobs().CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, jobs)

	accounts, err := manager.Accounts().CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, accounts)

	instruments, err := manager.Instruments().CountInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, instruments)
}

func TestKVStorage(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.KV().Set(ctx, "Gemini_API_Key", "test-key"))

	// Keys are case-insensitive
	value, err := manager.KV().Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "test-key", value)

	_, err = manager.KV().Get(ctx, "unknown")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, manager.KV().Delete(ctx, "GEMINI_API_KEY"))
	_, err = manager.KV().Get(ctx, "gemini_api_key")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
