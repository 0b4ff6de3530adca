package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/patricesweeney/analysis-jobs/internal/store/model"
)

var processableStatuses = []string{string(model.JobStatusPending), string(model.JobStatusRunning)}

// Job interface for job-related database operations. Every write is a
// partial update by id; the status-changing writes are conditional so that a
// terminal job is never overwritten.
type Job interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	// Claim moves a pending or running job to running with the given progress.
	Claim(ctx context.Context, id string, progress int) error
	// UpdateProgress overwrites the progress of a running job.
	UpdateProgress(ctx context.Context, id string, progress int) error
	// Complete stores the result of a running job and marks it done.
	Complete(ctx context.Context, id string, result map[string]any) error
	// Fail marks a pending or running job as errored.
	Fail(ctx context.Context, id string, message string) error
	ClearInputFile(ctx context.Context, id string) error
	// CountStaleRunning counts running jobs not updated since the given time.
	CountStaleRunning(ctx context.Context, notUpdatedSince time.Time) (int64, error)
}

// JobStore implements the Job interface
type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	result := s.db.WithContext(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	result := s.db.WithContext(ctx).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Claim(ctx context.Context, id string, progress int) error {
	return s.conditionalUpdate(ctx, id, processableStatuses, map[string]any{
		"status":   model.JobStatusRunning,
		"progress": progress,
	})
}

func (s *JobStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	return s.conditionalUpdate(ctx, id, []string{string(model.JobStatusRunning)}, map[string]any{
		"progress": progress,
	})
}

func (s *JobStore) Complete(ctx context.Context, id string, result map[string]any) error {
	return s.conditionalUpdate(ctx, id, []string{string(model.JobStatusRunning)}, map[string]any{
		"status":        model.JobStatusDone,
		"progress":      model.ProgressDone,
		"result":        model.MakeJSONField(result),
		"error_message": nil,
	})
}

func (s *JobStore) Fail(ctx context.Context, id string, message string) error {
	return s.conditionalUpdate(ctx, id, processableStatuses, map[string]any{
		"status":        model.JobStatusError,
		"progress":      0,
		"error_message": message,
	})
}

func (s *JobStore) ClearInputFile(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(map[string]any{
		"input_file_path": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("clearing input file: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) CountStaleRunning(ctx context.Context, notUpdatedSince time.Time) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, notUpdatedSince.UTC()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("counting stale jobs: %w", result.Error)
	}
	return count, nil
}

// conditionalUpdate applies values only when the job is in one of the
// expected statuses. A miss is reported as ErrRecordNotFound when the row
// does not exist and ErrStatusConflict otherwise.
func (s *JobStore) conditionalUpdate(ctx context.Context, id string, expected []string, values map[string]any) error {
	result := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}
