package service

import (
	"context"
	"errors"

	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/internal/store/model"
)

// JobService exposes job state to the API. It never mutates jobs.
type JobService struct {
	store store.Store
}

func NewJobService(s store.Store) *JobService {
	return &JobService{store: s}
}

func (s *JobService) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}
