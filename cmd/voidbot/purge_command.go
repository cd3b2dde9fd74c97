package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voidbot/internal/config"
	"voidbot/internal/queue"
	"voidbot/internal/state"
)

func newPurgeCommand(cmdCtx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete terminal state records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				retention := cfg.Queue.RetentionDays
				if days > 0 {
					retention = days
				}
				purged, err := store.PurgeOlderThan(cmd.Context(), time.Duration(retention)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d records older than %d days\n", purged, retention)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Override the retention window (default from config)")
	return cmd
}
