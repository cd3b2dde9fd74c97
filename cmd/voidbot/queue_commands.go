package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"voidbot/internal/config"
	"voidbot/internal/queue"
	"voidbot/internal/state"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the durable notification queue",
	}

	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueCountCommand(ctx))
	queueCmd.AddCommand(newQueueDeleteCommand(ctx))
	queueCmd.AddCommand(newQueueRepairCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueCommand(ctx))

	return queueCmd
}

func newQueueStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue bucket counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				stats, err := q.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if stats.Total() == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				oldest := "-"
				if !stats.OldestPending.IsZero() {
					oldest = stats.OldestPending.Local().Format(time.RFC3339)
				}
				rows := [][]string{
					{"Pending", fmt.Sprintf("%d", stats.Pending)},
					{"Pending (high)", fmt.Sprintf("%d", stats.PendingHigh)},
					{"Errors", fmt.Sprintf("%d", stats.Errors)},
					{"No reply", fmt.Sprintf("%d", stats.NoReply)},
					{"Error rate", fmt.Sprintf("%.0f%%", stats.ErrorRate()*100)},
					{"Oldest pending", oldest},
				}
				fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	var bucketFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue records",
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseBucket(bucketFlag)
			if err != nil {
				return err
			}
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				entries, err := q.List(bucket)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No records in the %s bucket\n", bucket)
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					handle := "-"
					id := "-"
					if item, err := entry.Load(); err == nil {
						id = item.ID
						if item.AuthorHandle != "" {
							handle = item.AuthorHandle
						}
					}
					rows = append(rows, []string{
						string(entry.Info.Priority),
						entry.Info.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
						entry.Info.Kind,
						handle,
						id,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Priority", "Received", "Kind", "Author", "ID"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&bucketFlag, "bucket", "b", "pending", "Bucket to list (pending, errors, no_reply)")
	return cmd
}

func newQueueCountCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count <handle>",
		Short: "Count pending records from an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				count, err := q.CountByHandle(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d pending records from %s\n", count, args[0])
				return nil
			})
		},
	}
}

func newQueueDeleteCommand(cmdCtx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "delete <handle>",
		Short: "Delete pending records from an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				out := cmd.OutOrStdout()
				count, err := q.CountByHandle(args[0])
				if err != nil {
					return err
				}
				if count == 0 {
					fmt.Fprintf(out, "No pending records from %s\n", args[0])
					return nil
				}
				if !assumeYes {
					confirmed, err := confirmDeletion(cmd, args[0], count)
					if err != nil {
						return err
					}
					if !confirmed {
						fmt.Fprintln(out, "Aborted")
						return nil
					}
				}
				deleted, err := q.DeleteByHandle(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %d pending records from %s\n", deleted, args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without confirmation")
	return cmd
}

// confirmDeletion asks on the terminal before destructive deletes. Without a
// terminal the caller must pass --yes explicitly.
func confirmDeletion(cmd *cobra.Command, handle string, count int) (bool, error) {
	stdin, ok := cmd.InOrStdin().(*os.File)
	if !ok || !(isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd())) {
		return false, fmt.Errorf("refusing to delete %d records without a terminal; pass --yes to confirm", count)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Delete %d pending records from %s? [y/N] ", count, handle)
	reader := bufio.NewReader(stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newQueueRepairCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Quarantine corrupt queue files and remove stale temp files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				result, err := q.Repair()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Quarantined %d corrupt files, removed %d stale temp files\n",
					result.Quarantined, result.TempsRemoved)
				return nil
			})
		},
	}
}

func newQueueRequeueCommand(cmdCtx *commandContext) *cobra.Command {
	var bucketFlag string
	var sinceHours int

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Move failed records back into the pending bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseBucket(bucketFlag)
			if err != nil {
				return err
			}
			if bucket == queue.BucketPending {
				return fmt.Errorf("requeue source must be errors or no_reply")
			}
			return cmdCtx.withStores(cmd.Context(), func(cfg *config.Config, store *state.Store, q *queue.Queue) error {
				since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
				moved, err := q.RequeueBucket(bucket, since)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d records from %s\n", moved, bucket)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&bucketFlag, "bucket", "b", "errors", "Source bucket (errors, no_reply)")
	cmd.Flags().IntVar(&sinceHours, "since-hours", 24, "Only requeue records received within this many hours")
	return cmd
}

func parseBucket(value string) (queue.Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending", "":
		return queue.BucketPending, nil
	case "errors", "error":
		return queue.BucketErrors, nil
	case "no_reply", "no-reply":
		return queue.BucketNoReply, nil
	default:
		return "", fmt.Errorf("unknown bucket %q (expected pending, errors, or no_reply)", value)
	}
}
