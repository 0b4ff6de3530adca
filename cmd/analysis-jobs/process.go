package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/patricesweeney/analysis-jobs/internal/service"
)

var outputFormat string

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Process a single job in the foreground and print its outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "json" && outputFormat != "yaml" {
			return fmt.Errorf("unsupported output format %q", outputFormat)
		}

		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := cfg.Validate(); err != nil {
			return err
		}

		runner, s, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Service.JobTimeout)
		defer cancelTimeout()

		outcome, processErr := runner.Process(ctx, args[0])
		if err := printOutcome(cmd, outcome); err != nil {
			zap.S().Errorw("failed to print outcome", "error", err)
		}
		return processErr
	},
}

func init() {
	processCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or yaml")
}

func printOutcome(cmd *cobra.Command, outcome service.Outcome) error {
	var (
		out []byte
		err error
	)
	switch outputFormat {
	case "yaml":
		out, err = yaml.Marshal(outcome)
	default:
		out, err = json.MarshalIndent(outcome, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
