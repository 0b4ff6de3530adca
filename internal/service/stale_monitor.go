package service

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/pkg/metrics"
)

// StaleMonitor reports running jobs that have not been updated for longer
// than the job timeout. It never changes a job.
type StaleMonitor struct {
	jobs     store.Job
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewStaleMonitor(jobs store.Job, interval, maxAge time.Duration) *StaleMonitor {
	return &StaleMonitor{
		jobs:     jobs,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		log:      zap.S().Named("stale_monitor"),
	}
}

// Check counts the stale jobs once and exports the count.
func (m *StaleMonitor) Check(ctx context.Context) (int64, error) {
	count, err := m.jobs.CountStaleRunning(ctx, m.now().Add(-m.maxAge))
	if err != nil {
		return 0, err
	}
	metrics.UpdateStaleRunningJobsMetric(count)
	if count > 0 {
		m.log.Warnw("jobs stuck in running", "count", count, "max_age", m.maxAge)
	}
	return count, nil
}

func (m *StaleMonitor) Run(ctx context.Context) error {
	ticker := jitterbug.New(m.interval, &jitterbug.Norm{Stdev: m.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				m.log.Errorw("failed to count stale jobs", "error", err)
			}
		}
	}
}
