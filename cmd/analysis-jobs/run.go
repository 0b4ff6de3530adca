package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apiserver "github.com/patricesweeney/analysis-jobs/internal/api_server"
	"github.com/patricesweeney/analysis-jobs/internal/config"
	"github.com/patricesweeney/analysis-jobs/internal/jobs"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trigger webhook, the job workers and the metrics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		zap.S().Info("Starting analysis jobs service")
		defer zap.S().Info("Analysis jobs service stopped")

		if err := cfg.Validate(); err != nil {
			zap.S().Fatalw("invalid configuration", "error", err)
		}
		zap.S().Infof("Using config: %s", cfg)

		runner, s, err := newRunner(cfg)
		if err != nil {
			zap.S().Fatalw("initializing job runner", "error", err)
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		spawner, err := startSpawner(ctx, g, cfg, runner)
		if err != nil {
			zap.S().Fatalw("initializing spawner", "error", err)
		}

		monitor := service.NewStaleMonitor(s.Job(), cfg.Service.StaleCheckInterval, cfg.Service.JobTimeout)
		g.Go(func() error {
			return monitor.Run(ctx)
		})

		listener, err := newListener(cfg.Service.Address)
		if err != nil {
			zap.S().Fatalw("creating listener", "error", err)
		}
		server := apiserver.New(cfg, s, spawner, listener)
		g.Go(func() error {
			return server.Run(ctx)
		})

		metricsListener, err := newListener(cfg.Service.MetricsAddress)
		if err != nil {
			zap.S().Fatalw("creating metrics listener", "error", err)
		}
		metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, metricsListener)
		g.Go(func() error {
			return metricsServer.Run(ctx)
		})

		return g.Wait()
	},
}

// startSpawner starts the River queue when jobs live in PostgreSQL and an
// in-process pool otherwise.
func startSpawner(ctx context.Context, g *errgroup.Group, cfg *config.Config, runner *service.JobRunner) (service.Spawner, error) {
	if !cfg.UsesPostgres() {
		local := service.NewLocalSpawner(runner, cfg.Service.Workers, cfg.Service.JobTimeout)
		g.Go(func() error {
			return local.Run(ctx)
		})
		return local, nil
	}

	pool, err := jobs.NewPool(ctx, store.DSN(cfg))
	if err != nil {
		return nil, err
	}

	client, err := jobs.NewClient(pool, runner, cfg.Service.Workers, cfg.Service.JobTimeout)
	if err != nil {
		pool.Close()
		return nil, err
	}
	g.Go(func() error {
		defer pool.Close()
		return client.Run(ctx)
	})

	zap.S().Info("River job queue initialized")
	return client, nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
