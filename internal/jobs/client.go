package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/service"
)

const stopTimeout = 30 * time.Second

// Client is the durable spawner. Triggered ids are inserted in river_job and
// worked by any process running the client.
type Client struct {
	*river.Client[pgx.Tx]
}

var _ service.Spawner = (*Client)(nil)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	// job processing + LISTEN
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	return pgxpool.NewWithConfig(ctx, cfg)
}

func NewClient(pool *pgxpool.Pool, processor service.Processor, workers int, timeout time.Duration) (*Client, error) {
	if workers <= 0 {
		workers = 1
	}

	w := river.NewWorkers()
	river.AddWorker(w, NewProcessJobWorker(processor, timeout))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: workers},
		},
		Workers:    w,
		JobTimeout: timeout,

		FetchCooldown:     50 * time.Millisecond,
		FetchPollInterval: 500 * time.Millisecond,

		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

func (c *Client) Spawn(ctx context.Context, jobID string) error {
	result, err := c.Insert(ctx, ProcessJobArgs{JobID: jobID}, nil)
	if err != nil {
		return err
	}
	if result.UniqueSkippedAsDuplicate {
		zap.S().Named("jobs").Infow("job already queued", "job_id", jobID, "river_job_id", result.Job.ID)
	}
	return nil
}

// Run works queued jobs until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river: %w", err)
	}
	zap.S().Named("jobs").Info("river job queue started")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		zap.S().Named("jobs").Warnw("failed to stop river client", "error", err)
	}
	return nil
}
