package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/queue"
	"voidbot/internal/recovery"
	"voidbot/internal/state"
	"voidbot/internal/upstream"
)

func newRecoverCommand(cmdCtx *commandContext) *cobra.Command {
	var windowHours int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Re-enqueue upstream notifications the pipeline never saw",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				source, err := upstream.NewExecSource(cfg, logging.NewNop())
				if err != nil {
					return fmt.Errorf("recovery needs an upstream adapter: %w", err)
				}

				window := time.Duration(cfg.Workflow.RecoveryWindowHours) * time.Hour
				if windowHours > 0 {
					window = time.Duration(windowHours) * time.Hour
				}

				engine := recovery.NewEngine(cfg, source, q, store, logging.NewNop())
				recovered, err := engine.Reconcile(cmd.Context(), window, dryRun)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintf(out, "Would recover %d notifications from the last %s\n", recovered, window)
					return nil
				}
				fmt.Fprintf(out, "Recovered %d notifications from the last %s\n", recovered, window)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&windowHours, "window-hours", 0, "Override the recovery window (default from config)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Count candidates without enqueueing")
	return cmd
}
