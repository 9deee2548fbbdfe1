package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/handlers"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/orchestrator"
	"github.com/ternarybob/folio/internal/queue"
	"github.com/ternarybob/folio/internal/services/llm"
	"github.com/ternarybob/folio/internal/services/sweeper"
	"github.com/ternarybob/folio/internal/services/tagger"
	badgerstore "github.com/ternarybob/folio/internal/storage/badger"
	"github.com/ternarybob/folio/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	QueueManager   interfaces.QueueManager
	LLMService     interfaces.LLMService

	TaggerService *tagger.Service
	Orchestrator  *orchestrator.Orchestrator
	WorkerPool    *worker.Pool
	Sweeper       *sweeper.Sweeper

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	JobHandler     *handlers.JobHandler
	UserHandler    *handlers.UserHandler
	AccountHandler *handlers.AccountHandler
	KVHandler      *handlers.KVHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	if err := app.initQueue(); err != nil {
		storageManager.Close()
		return nil, err
	}

	app.LLMService = llm.NewService(cfg, storageManager.KV(), logger)

	app.TaggerService = tagger.NewService(
		storageManager,
		tagger.NewClassifier(app.LLMService, logger),
		logger,
	)

	app.Orchestrator = orchestrator.New(
		storageManager,
		app.TaggerService,
		app.LLMService,
		&cfg.Analysis,
		logger,
	)

	app.WorkerPool = worker.NewPool(app.QueueManager, app.Orchestrator, &cfg.Queue, logger)
	app.Sweeper = sweeper.New(storageManager, app.QueueManager, &cfg.Sweeper, logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.JobHandler = handlers.NewJobHandler(storageManager, app.QueueManager, app.Orchestrator, logger)
	app.UserHandler = handlers.NewUserHandler(storageManager, logger)
	app.AccountHandler = handlers.NewAccountHandler(storageManager, logger)
	app.KVHandler = handlers.NewKVHandler(storageManager.KV(), logger)

	logger.Info().
		Str("provider", app.LLMService.ProviderName()).
		Str("storage", cfg.Storage.Badger.Path).
		Msg("Application initialized")

	return app, nil
}

// initQueue wires the trigger queue onto the storage manager's Badger
// instance so queue and job records share one database.
func (a *App) initQueue() error {
	store, ok := a.StorageManager.DB().(*badgerhold.Store)
	if !ok {
		return fmt.Errorf("storage manager is not backed by BadgerDB (got %T)", a.StorageManager.DB())
	}

	queueMgr, err := queue.NewBadgerManager(
		store.Badger(),
		a.Config.Queue.QueueName,
		common.ParseDurationOr(a.Config.Queue.VisibilityTimeout, 0),
		a.Config.Queue.MaxReceive,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	a.QueueManager = queueMgr
	return nil
}

// Start launches the background components
func (a *App) Start() error {
	if err := a.WorkerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := a.Sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	return nil
}

// Close shuts down background components and storage in dependency order
func (a *App) Close() error {
	a.Sweeper.Stop()

	if err := a.WorkerPool.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Worker pool stop failed")
	}
	if err := a.QueueManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue close failed")
	}
	if err := a.LLMService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM service close failed")
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
		return err
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
