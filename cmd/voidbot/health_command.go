package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voidbot/internal/config"
	"voidbot/internal/health"
	"voidbot/internal/logging"
	"voidbot/internal/queue"
	"voidbot/internal/state"
)

func newHealthCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report queue and state database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				monitor := health.NewMonitor(cfg, q, store, logging.NewNop())
				report, err := monitor.Observe(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queue health: %s\n", report.Status)
				if len(report.Reasons) > 0 {
					fmt.Fprintf(out, "Reasons: %s\n", strings.Join(report.Reasons, "; "))
				}

				snap := report.Snapshot
				freeDisk := "-"
				if snap.FreeDiskMB >= 0 {
					freeDisk = fmt.Sprintf("%d MB", snap.FreeDiskMB)
				}
				rows := [][]string{
					{"Pending", fmt.Sprintf("%d", snap.Queue.Pending)},
					{"Pending (high)", fmt.Sprintf("%d", snap.Queue.PendingHigh)},
					{"Errors", fmt.Sprintf("%d", snap.Queue.Errors)},
					{"No reply", fmt.Sprintf("%d", snap.Queue.NoReply)},
					{"Error rate", fmt.Sprintf("%.0f%%", snap.Queue.ErrorRate()*100)},
					{"Unique authors", fmt.Sprintf("%d", snap.UniqueHandles)},
					{"Resolved total", fmt.Sprintf("%d", snap.TotalResolved)},
					{"Free disk", freeDisk},
				}
				fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

				dbHealth, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				dbRows := [][]string{
					{"Database", dbHealth.DBPath},
					{"Exists", yesNo(dbHealth.DatabaseExists)},
					{"Readable", yesNo(dbHealth.DatabaseReadable)},
					{"Table present", yesNo(dbHealth.TableExists)},
					{"Integrity check", yesNo(dbHealth.IntegrityCheck)},
					{"Records", fmt.Sprintf("%d", dbHealth.TotalRecords)},
				}
				if dbHealth.Error != "" {
					dbRows = append(dbRows, []string{"Error", dbHealth.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"State store", "Value"}, dbRows, []columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
