package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/config"
	"github.com/patricesweeney/analysis-jobs/pkg/log"
)

var (
	envFile string
)

var rootCmd = &cobra.Command{
	Use:          "analysis-jobs",
	Short:        "Background processor for tabular analysis jobs",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(processCmd)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file loaded before reading the environment")
}

// setup reads the configuration and installs the global logger. The
// returned function flushes and restores the logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.New(envFile)
	if err != nil {
		return nil, nil, err
	}

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel), cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)

	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
