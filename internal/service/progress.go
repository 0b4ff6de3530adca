package service

import (
	"context"

	"github.com/patricesweeney/analysis-jobs/internal/store"
)

// ProgressReporter persists the integer progress of a running job.
type ProgressReporter struct {
	jobs       store.Job
	newBackOff BackOffFactory
}

func NewProgressReporter(jobs store.Job, newBackOff BackOffFactory) *ProgressReporter {
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}
	return &ProgressReporter{jobs: jobs, newBackOff: newBackOff}
}

// SetProgress overwrites the progress of jobID with percent clamped to 0..100.
// Transient store errors are retried; store.ErrStatusConflict is returned
// straight away when the job is no longer running.
func (p *ProgressReporter) SetProgress(ctx context.Context, jobID string, percent int) error {
	percent = min(max(percent, 0), 100)
	return retryWrite(ctx, p.newBackOff, func() error {
		return p.jobs.UpdateProgress(ctx, jobID, percent)
	})
}
