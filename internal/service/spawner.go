package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSpawnerFull = errors.New("job queue is full")

// Processor executes a single job.
type Processor interface {
	Process(ctx context.Context, jobID string) (Outcome, error)
}

// Spawner hands a job id to an independent execution context. Spawn returns
// once the id is accepted; it never waits for the job.
type Spawner interface {
	Spawn(ctx context.Context, jobID string) error
}

// LocalSpawner runs jobs on a fixed set of goroutines in this process. Queued
// ids are lost when the process exits.
type LocalSpawner struct {
	processor Processor
	timeout   time.Duration
	workers   int
	queue     chan string
	log       *zap.SugaredLogger
}

func NewLocalSpawner(processor Processor, workers int, timeout time.Duration) *LocalSpawner {
	if workers <= 0 {
		workers = 1
	}
	return &LocalSpawner{
		processor: processor,
		timeout:   timeout,
		workers:   workers,
		queue:     make(chan string, workers*16),
		log:       zap.S().Named("local_spawner"),
	}
}

func (s *LocalSpawner) Spawn(_ context.Context, jobID string) error {
	select {
	case s.queue <- jobID:
		return nil
	default:
		return ErrSpawnerFull
	}
}

// Run processes queued jobs until ctx is cancelled and the running jobs
// have returned.
func (s *LocalSpawner) Run(ctx context.Context) error {
	s.log.Infow("starting local spawner", "workers", s.workers, "timeout", s.timeout)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	wg.Wait()

	s.log.Info("local spawner stopped")
	return nil
}

func (s *LocalSpawner) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			s.execute(ctx, jobID)
		}
	}
}

func (s *LocalSpawner) execute(ctx context.Context, jobID string) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	outcome, err := s.processor.Process(ctx, jobID)
	if err != nil {
		s.log.Errorw("job execution failed", "job_id", jobID, "error", err)
		return
	}
	s.log.Debugw("job execution finished", "job_id", jobID, "status", outcome.Status)
}
