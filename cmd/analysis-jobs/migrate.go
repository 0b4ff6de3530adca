package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/jobs"
	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		zap.S().Info("Migrating the db")
		defer zap.S().Info("Db migrated")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		s := store.NewStore(db)
		defer s.Close()

		dialect := "sqlite3"
		var pool *pgxpool.Pool
		if cfg.UsesPostgres() {
			dialect = "postgres"
			pool, err = jobs.NewPool(ctx, store.DSN(cfg))
			if err != nil {
				zap.S().Fatalw("initializing pgx pool", "error", err)
			}
			defer pool.Close()
		}

		if err := migrations.MigrateStore(ctx, db, dialect, cfg.Service.MigrationFolder, pool); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		return nil
	},
}
