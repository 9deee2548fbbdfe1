package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/queue"
)

// Sweeper requeues jobs stuck in the running state. A worker crash
// leaves the job running forever with its trigger already deleted;
// the sweep resets such jobs to pending and enqueues a fresh trigger.
type Sweeper struct {
	storage  interfaces.StorageManager
	queueMgr interfaces.QueueManager
	config   *common.SweeperConfig
	cron     *cron.Cron
	logger   arbor.ILogger
}

// New creates a sweeper
func New(storage interfaces.StorageManager, queueMgr interfaces.QueueManager, config *common.SweeperConfig, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		storage:  storage,
		queueMgr: queueMgr,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the sweep on the configured cron schedule
func (s *Sweeper) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Job sweeper disabled")
		return nil
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Str("deadline", s.config.Deadline).
		Msg("Job sweeper started")
	return nil
}

// Stop stops the cron scheduler
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Job sweeper stopped")
}

// sweep resets stale running jobs to pending and requeues them
func (s *Sweeper) sweep() {
	ctx := context.Background()
	deadline := common.ParseDurationOr(s.config.Deadline, 30*time.Minute)

	stale, err := s.storage.Jobs().GetStaleRunningJobs(ctx, deadline)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed to query stale jobs")
		return
	}
	if len(stale) == 0 {
		return
	}

	s.logger.Warn().Int("count", len(stale)).Msg("Requeuing stale running jobs")

	for _, job := range stale {
		err := s.storage.Jobs().UpdateJob(ctx, job.ID, func(j *models.Job) error {
			j.Status = models.JobStatusPending
			j.StartedAt = nil
			return nil
		})
		if err != nil {
			s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to reset stale job")
			continue
		}

		trigger := &queue.JobTrigger{JobID: job.ID, Source: "sweeper"}
		if err := s.queueMgr.Enqueue(ctx, trigger); err != nil {
			s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to requeue stale job")
			continue
		}

		s.logger.Info().Str("job_id", job.ID).Msg("Stale job requeued")
	}
}
