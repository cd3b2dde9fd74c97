package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voidbot/internal/alerts"
)

func newTestAlertCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-alert",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Alerts.NtfyTopic == "" {
				return fmt.Errorf("alerts.ntfy_topic is not configured")
			}
			if err := alerts.NewService(cfg).TestAlert(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test alert sent")
			return nil
		},
	}
}
