package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/orchestrator"
	"github.com/ternarybob/folio/internal/queue"
)

// Pool consumes job triggers from the queue and runs the orchestrator
// for each. A trigger is deleted after the orchestrator returns,
// success or not; redelivery is only for crashes and stalls, the job
// record itself tracks failure.
type Pool struct {
	queueMgr     interfaces.QueueManager
	orchestrator *orchestrator.Orchestrator
	config       *common.QueueConfig
	logger       arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool
func NewPool(queueMgr interfaces.QueueManager, orch *orchestrator.Orchestrator, config *common.QueueConfig, logger arbor.ILogger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queueMgr:     queueMgr,
		orchestrator: orch,
		config:       config,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() error {
	p.logger.Info().
		Int("concurrency", p.config.Concurrency).
		Str("poll_interval", p.config.PollInterval).
		Msg("Starting worker pool")

	for i := 0; i < p.config.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish
func (p *Pool) Stop() error {
	p.logger.Info().Msg("Stopping worker pool")
	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	pollInterval := common.ParseDurationOr(p.config.PollInterval, time.Second)

	// Stagger starts to spread polls across the interval
	stagger := pollInterval / time.Duration(p.config.Concurrency) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	p.logger.Debug().Int("worker_id", workerID).Msg("Worker started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().Int("worker_id", workerID).Msg("Worker stopped")
			return
		case <-ticker.C:
			if err := p.processTrigger(workerID); err != nil && !errors.Is(err, queue.ErrNoMessage) {
				p.logger.Warn().Err(err).Int("worker_id", workerID).Msg("Error processing trigger")
			}
		}
	}
}

func (p *Pool) processTrigger(workerID int) error {
	trigger, deleteFn, err := p.queueMgr.Receive(p.ctx)
	if err != nil {
		return err
	}

	p.logger.Info().
		Int("worker_id", workerID).
		Str("job_id", trigger.JobID).
		Str("source", trigger.Source).
		Msg("Processing job trigger")

	started := time.Now()
	result, err := p.orchestrator.Run(p.ctx, trigger.JobID)

	switch {
	case err != nil && errors.Is(err, interfaces.ErrNotFound):
		// Job record is gone, nothing to retry
		p.logger.Warn().Str("job_id", trigger.JobID).Msg("Trigger references unknown job, dropping")
		err = nil
	case err != nil:
		p.logger.Error().
			Str("job_id", trigger.JobID).
			Dur("duration", time.Since(started)).
			Err(err).
			Msg("Job run failed")
	default:
		p.logger.Info().
			Str("job_id", trigger.JobID).
			Dur("duration", time.Since(started)).
			Bool("success", result.Success).
			Int("warnings", len(result.Warnings)).
			Msg("Job run finished")
	}

	if delErr := deleteFn(); delErr != nil {
		p.logger.Warn().Str("job_id", trigger.JobID).Err(delErr).Msg("Failed to delete processed trigger")
		return delErr
	}
	return err
}
