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

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob inserts or updates a job record
func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.Store().Get(id, &job)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateJob applies fn to the stored job inside a single badgerhold
// transaction so concurrent slot writers never lose each other's
// updates.
func (s *JobStorage) UpdateJob(ctx context.Context, id string, fn func(*models.Job) error) error {
	matched := false
	err := s.db.Store().UpdateMatching(&models.Job{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		job, ok := record.(*models.Job)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		matched = true
		return fn(job)
	})
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	if !matched {
		return interfaces.ErrNotFound
	}
	return nil
}

// ListJobs returns jobs sorted by creation time, newest first
func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.ListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil && opts.Status != "" {
		query = badgerhold.Where("Status").Eq(models.JobStatus(opts.Status)).Index("Status")
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts != nil {
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}

	var jobs []*models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// GetJobsByStatus returns all jobs with the given status
func (s *JobStorage) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []*models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(status).Index("Status")); err != nil {
		return nil, fmt.Errorf("failed to get jobs by status %s: %w", status, err)
	}
	return jobs, nil
}

// GetStaleRunningJobs returns jobs running longer than the given duration
func (s *JobStorage) GetStaleRunningJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error) {
	running, err := s.GetJobsByStatus(ctx, models.JobStatusRunning)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	var stale []*models.Job
	for _, job := range running {
		if job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			stale = append(stale, job)
		}
	}
	return stale, nil
}

// DeleteJob removes a job record
func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Job{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// CountJobs returns the total number of jobs
func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}
