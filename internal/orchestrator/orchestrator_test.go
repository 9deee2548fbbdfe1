package orchestrator

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
	"github.com/ternarybob/folio/internal/services/portfolio"
	"github.com/ternarybob/folio/internal/services/tagger"
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
	return f.Chat(ctx, messages)
}

func (f *fakeLLM) ProviderName() string { return "fake" }
func (f *fakeLLM) Close() error         { return nil }

func testAnalysisConfig() *common.AnalysisConfig {
	return &common.AnalysisConfig{
		ReportMinPositions:  1,
		ChartsMinPositions:  2,
		InvocationTimeout:   "1m",
		MonteCarloScenarios: 50,
		SummaryEnabled:      true,
	}
}

func newTestOrchestrator(t *testing.T, llm interfaces.LLMService) (*Orchestrator, interfaces.StorageManager) {
	t.Helper()
	logger := common.GetLogger()
	storage, err := badgerstore.NewManager(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "orchestrator-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	taggerService := tagger.NewService(storage, tagger.NewClassifier(llm, logger), logger)
	return New(storage, taggerService, llm, testAnalysisConfig(), logger), storage
}

func seedUser(t *testing.T, storage interfaces.StorageManager, yearsToRetirement, positions int) *models.User {
	t.Helper()
	ctx := context.Background()

	user := models.NewUser("Test Investor")
	user.YearsUntilRetirement = yearsToRetirement
	user.TargetRetirementIncome = 60000
	require.NoError(t, storage.Users().SaveUser(ctx, user))

	symbols := []string{"SPY", "BND", "VNQ"}
	account := models.NewAccount(user.ID, "Brokerage")
	cash := 1000.0
	account.CashBalance = &cash
	for i := 0; i < positions; i++ {
		symbol := symbols[i%len(symbols)]
		account.AddPosition(symbol, 10)

		price := 100.0
		require.NoError(t, storage.Instruments().SaveInstrument(ctx, &models.Instrument{
			Symbol:               symbol,
			Name:                 symbol,
			Type:                 "etf",
			CurrentPrice:         &price,
			AllocationAssetClass: map[string]float64{"equity": 100},
			AllocationRegions:    map[string]float64{"north_america": 100},
			AllocationSectors:    map[string]float64{"diversified": 100},
		}))
	}
	require.NoError(t, storage.Accounts().SaveAccount(ctx, account))
	return user
}

func seedJob(t *testing.T, storage interfaces.StorageManager, userID string) *models.Job {
	t.Helper()
	job := models.NewJob(userID, models.JobTypePortfolioAnalysis)
	require.NoError(t, storage.Jobs().SaveJob(context.Background(), job))
	return job
}

func TestRunUnknownJob(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeLLM{})

	_, err := orch.Run(context.Background(), "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestRunCompletesWithAllAnalysts(t *testing.T) {
	llm := &fakeLLM{response: "analysis text"}
	orch, storage := newTestOrchestrator(t, llm)
	user := seedUser(t, storage, 20, 3)
	job := seedJob(t, storage, user.ID)

	result, err := orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "analysis text", result.FinalOutput)

	saved, err := storage.Jobs().GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, saved.Status)
	assert.NotNil(t, saved.StartedAt)
	assert.NotNil(t, saved.CompletedAt)

	// All three analysts plus the summary wrote their slots
	assert.NotNil(t, saved.ReportPayload)
	assert.NotNil(t, saved.ChartsPayload)
	assert.NotNil(t, saved.RetirementPayload)
	assert.NotNil(t, saved.SummaryPayload)
}

func TestRoutingMatrix(t *testing.T) {
	config := testAnalysisConfig()
	orch := &Orchestrator{config: config}

	tests := []struct {
		name      string
		positions int
		years     int
		expected  []string
	}{
		{"empty portfolio no retirement", 0, 0, nil},
		{"empty portfolio with retirement", 0, 20, []string{models.AgentRetirement}},
		{"single position", 1, 0, []string{models.AgentReporter}},
		{"two positions", 2, 0, []string{models.AgentReporter, models.AgentCharter}},
		{"full routing", 3, 15, []string{models.AgentReporter, models.AgentCharter, models.AgentRetirement}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{YearsUntilRetirement: tt.years}
			stats := &portfolio.QuickStats{NumPositions: tt.positions}
			planned := orch.route(stats, user)
			assert.Equal(t, tt.expected, planned)
		})
	}
}

func TestRunEmptyPortfolioNoRetirement(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	orch, storage := newTestOrchestrator(t, llm)
	user := seedUser(t, storage, 0, 0)
	job := seedJob(t, storage, user.ID)

	result, err := orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, llm.calls)

	saved, err := storage.Jobs().GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, saved.Status)
	assert.Nil(t, saved.ReportPayload)
}

func TestRunResourceLimitClassifiedByType(t *testing.T) {
	llm := &fakeLLM{err: errors.New("Error 429: rate_limit_error")}
	orch, storage := newTestOrchestrator(t, llm)
	user := seedUser(t, storage, 0, 1)
	job := seedJob(t, storage, user.ID)

	result, err := orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.False(t, result.Success)
	assert.True(t, result.ResourceLimitExceeded)
	assert.Contains(t, result.Message, "Retry")

	saved, err := storage.Jobs().GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusResourceLimitExceeded, saved.Status)
	assert.NotEmpty(t, saved.ErrorMessage)
}

func TestRunTerminalJobRejected(t *testing.T) {
	orch, storage := newTestOrchestrator(t, &fakeLLM{})
	user := seedUser(t, storage, 0, 1)
	job := seedJob(t, storage, user.ID)

	require.NoError(t, job.SetStatus(models.JobStatusRunning))
	require.NoError(t, job.SetStatus(models.JobStatusCompleted))
	require.NoError(t, storage.Jobs().SaveJob(context.Background(), job))

	_, err := orch.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, models.ErrTerminalStatus)
}
