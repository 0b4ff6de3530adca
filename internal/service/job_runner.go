package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/analysis"
	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/internal/store/model"
	"github.com/patricesweeney/analysis-jobs/pkg/metrics"
	"github.com/patricesweeney/analysis-jobs/pkg/objectstore"
	"github.com/patricesweeney/analysis-jobs/pkg/table"
)

const (
	analysisProgressStart = 40
	analysisProgressEnd   = 90

	alreadyProcessedMessage = "Job already processed"
	failureWriteTimeout     = 30 * time.Second
)

// Outcome is the result of a single Process call.
type Outcome struct {
	Status           model.JobStatus `json:"status"`
	JobID            string          `json:"job_id"`
	Error            string          `json:"error,omitempty"`
	Message          string          `json:"message,omitempty"`
	AlreadyProcessed bool            `json:"-"`
}

type JobRunner struct {
	store      store.Store
	objects    objectstore.ObjectStore
	registry   *analysis.Registry
	progress   *ProgressReporter
	newBackOff BackOffFactory
	log        *zap.SugaredLogger
}

type JobRunnerOption func(r *JobRunner)

// WithBackOff replaces the retry policy of status and progress writes.
func WithBackOff(f BackOffFactory) JobRunnerOption {
	return func(r *JobRunner) {
		r.newBackOff = f
	}
}

func WithRegistry(registry *analysis.Registry) JobRunnerOption {
	return func(r *JobRunner) {
		r.registry = registry
	}
}

func NewJobRunner(s store.Store, objects objectstore.ObjectStore, opts ...JobRunnerOption) *JobRunner {
	r := &JobRunner{
		store:      s,
		objects:    objects,
		registry:   analysis.NewRegistry(),
		newBackOff: defaultBackOff,
		log:        zap.S().Named("job_runner"),
	}
	for _, o := range opts {
		o(r)
	}
	r.progress = NewProgressReporter(s.Job(), r.newBackOff)
	return r
}

// Process executes the job identified by jobID once. Every failure after the
// claim is recorded on the job itself; an error is returned only when the
// job could not be read or its failure could not be recorded.
func (r *JobRunner) Process(ctx context.Context, jobID string) (Outcome, error) {
	start := time.Now()

	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			notFound := NewErrJobNotFound(jobID)
			r.log.Warnw("job not found", "job_id", jobID)
			metrics.IncreaseJobsProcessedMetric(metrics.OutcomeNotFound)
			return Outcome{Status: model.JobStatusError, JobID: jobID, Error: notFound.Error()}, nil
		}
		return Outcome{}, fmt.Errorf("fetching job %s: %w", jobID, err)
	}

	if !job.Status.Processable() {
		return r.alreadyProcessed(job.ID, job.Status), nil
	}

	log := r.log.With("job_id", job.ID, "job_type", job.JobType)
	log.Infow("processing job", "status", job.Status)

	if err := retryWrite(ctx, r.newBackOff, func() error {
		return r.store.Job().Claim(ctx, job.ID, model.ProgressClaimed)
	}); err != nil {
		if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrRecordNotFound) {
			return r.concludedElsewhere(ctx, job.ID), nil
		}
		return r.fail(ctx, log, job.ID, NewErrJobFailed(KindClaim, err))
	}

	result, failure := r.execute(ctx, log, job)
	if failure != nil {
		return r.fail(ctx, log, job.ID, failure)
	}

	if err := retryWrite(ctx, r.newBackOff, func() error {
		return r.store.Job().Complete(ctx, job.ID, result)
	}); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return r.concludedElsewhere(ctx, job.ID), nil
		}
		return r.fail(ctx, log, job.ID, NewErrJobFailed(KindPersist, err))
	}

	r.cleanup(ctx, log, job)

	metrics.IncreaseJobsProcessedMetric(metrics.OutcomeDone)
	metrics.ObserveJobDuration(analysis.ParseJobType(job.JobType).String(), time.Since(start))
	log.Infow("job done", "duration", time.Since(start))

	return Outcome{Status: model.JobStatusDone, JobID: job.ID}, nil
}

// execute runs the steps between the claim and the result write.
func (r *JobRunner) execute(ctx context.Context, log *zap.SugaredLogger, job *model.Job) (analysis.Result, *ErrJobFailed) {
	if !job.HasInput() {
		return nil, NewErrJobFailed(KindMissingInput, fmt.Errorf("job %s has no input file", job.ID))
	}
	key := *job.InputFilePath

	data, err := r.objects.Download(ctx, key)
	if err != nil {
		return nil, NewErrJobFailed(KindDownload, err)
	}

	t, err := table.Parse(key, data)
	if err != nil {
		return nil, NewErrJobFailed(KindParse, err)
	}
	log.Debugw("input parsed", "key", key, "rows", t.NumRows(), "columns", len(t.Columns))

	if job.ColumnConfig != nil {
		t, err = t.Apply(job.ColumnConfig.Data)
		if err != nil {
			return nil, NewErrJobFailed(KindColumnConfig, err)
		}
	}

	onProgress := r.progressFunc(ctx, log, job.ID)
	onProgress(0.1)
	result, err := r.registry.Run(ctx, job.JobType, t, onProgress)
	if err != nil {
		log.Errorw("analysis failed", "error", fmt.Sprintf("%+v", err))
		return nil, NewErrJobFailed(KindHandler, err)
	}
	onProgress(1.0)

	return result, nil
}

// progressFunc maps the analysis fraction into the 40..90 band. Values at or
// below the last persisted progress are not written.
func (r *JobRunner) progressFunc(ctx context.Context, log *zap.SugaredLogger, jobID string) analysis.ProgressFunc {
	var mu sync.Mutex
	last := model.ProgressClaimed

	return func(fraction float64) {
		if math.IsNaN(fraction) {
			return
		}
		fraction = math.Min(math.Max(fraction, 0), 1)
		percent := analysisProgressStart + int(math.Round(fraction*(analysisProgressEnd-analysisProgressStart)))

		mu.Lock()
		defer mu.Unlock()
		if percent <= last {
			return
		}
		if err := r.progress.SetProgress(ctx, jobID, percent); err != nil {
			metrics.IncreaseProgressWriteFailuresMetric()
			log.Warnw("failed to update progress", "progress", percent, "error", err)
			return
		}
		last = percent
	}
}

// cleanup removes the uploaded file and then the reference to it. The job is
// already done at this point so failures are only logged.
func (r *JobRunner) cleanup(ctx context.Context, log *zap.SugaredLogger, job *model.Job) {
	key := *job.InputFilePath
	if err := r.objects.Delete(ctx, key); err != nil {
		log.Warnw("failed to delete input file", "key", key, "error", err)
		return
	}
	if err := r.store.Job().ClearInputFile(ctx, job.ID); err != nil {
		log.Warnw("input file deleted but reference not cleared", "key", key, "error", err)
	}
}

// fail records failure on the job. The write runs on a context detached from
// ctx so that a timed out execution can still be recorded.
func (r *JobRunner) fail(ctx context.Context, log *zap.SugaredLogger, jobID string, failure *ErrJobFailed) (Outcome, error) {
	log.Errorw("job failed", "kind", failure.Kind, "error", failure.Err)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	err := retryWrite(writeCtx, r.newBackOff, func() error {
		return r.store.Job().Fail(writeCtx, jobID, failure.Error())
	})
	if err == nil {
		metrics.IncreaseJobsProcessedMetric(metrics.OutcomeError)
		return Outcome{Status: model.JobStatusError, JobID: jobID, Error: failure.Error()}, nil
	}
	if errors.Is(err, store.ErrStatusConflict) {
		return r.concludedElsewhere(writeCtx, jobID), nil
	}

	unrecorded := NewErrFailureNotRecorded(jobID, failure, err)
	log.Errorw("JOB FAILURE NOT RECORDED, job may be stuck in running", "error", unrecorded, "write_error", err)
	metrics.IncreaseJobsProcessedMetric(metrics.OutcomeUnrecorded)
	return Outcome{Status: model.JobStatusError, JobID: jobID, Error: failure.Error()}, unrecorded
}

// concludedElsewhere reports the status of a job that another execution
// moved to a terminal status in the meantime.
func (r *JobRunner) concludedElsewhere(ctx context.Context, jobID string) Outcome {
	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		r.log.Warnw("failed to read job concluded by another execution", "job_id", jobID, "error", err)
		return r.alreadyProcessed(jobID, "")
	}
	return r.alreadyProcessed(job.ID, job.Status)
}

func (r *JobRunner) alreadyProcessed(jobID string, status model.JobStatus) Outcome {
	r.log.Infow("job already processed", "job_id", jobID, "status", status)
	metrics.IncreaseJobsProcessedMetric(metrics.OutcomeAlreadyProcessed)
	return Outcome{
		Status:           status,
		JobID:            jobID,
		Message:          alreadyProcessedMessage,
		AlreadyProcessed: true,
	}
}
