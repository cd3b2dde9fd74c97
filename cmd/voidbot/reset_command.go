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
)

func newResetCommand(cmdCtx *commandContext) *cobra.Command {
	var windowHours int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return failed and no-reply records to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				window := time.Duration(windowHours) * time.Hour
				engine := recovery.NewEngine(cfg, nil, q, store, logging.NewNop())
				reset, err := engine.ResetStatus(cmd.Context(), window, dryRun)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintf(out, "Would reset %d records from the last %s\n", reset, window)
					return nil
				}
				fmt.Fprintf(out, "Reset %d records to pending\n", reset)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&windowHours, "window-hours", 24, "Only reset records received within this many hours")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Count candidates without resetting")
	return cmd
}
