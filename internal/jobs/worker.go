package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"

	"github.com/patricesweeney/analysis-jobs/internal/service"
)

const DefaultJobTimeout = 600 * time.Second

type ProcessJobWorker struct {
	river.WorkerDefaults[ProcessJobArgs]
	processor service.Processor
	timeout   time.Duration
}

func NewProcessJobWorker(processor service.Processor, timeout time.Duration) *ProcessJobWorker {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &ProcessJobWorker{processor: processor, timeout: timeout}
}

func (w *ProcessJobWorker) Timeout(*river.Job[ProcessJobArgs]) time.Duration {
	return w.timeout
}

// Work fails the River job only when the failure could not be recorded on the
// job row. Every other outcome is already visible on the row.
func (w *ProcessJobWorker) Work(ctx context.Context, job *river.Job[ProcessJobArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outcome, err := w.processor.Process(ctx, job.Args.JobID)
	if err != nil {
		return err
	}

	return river.RecordOutput(ctx, outcome)
}
