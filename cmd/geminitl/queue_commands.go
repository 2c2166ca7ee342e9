package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AZAnthonyN/GeminiTL/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueSkipCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <jobID>",
		Short: "Mark a job skipped so the next run passes over it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				if job.Status.Terminal() {
					return fmt.Errorf("job %d is already %s", id, job.Status)
				}
				job.Status = queue.StatusSkipped
				if err := store.Update(cmd.Context(), job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d (%s) marked skipped\n", id, job.Folder)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var jobs []*queue.Job
				var err error
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					status, ok := queue.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					jobs, err = store.JobsByStatus(cmd.Context(), status)
				} else {
					jobs, err = store.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Folder,
						string(job.Status),
						formatProgress(job),
						job.CreatedAt.Local().Format(time.RFC3339),
						job.ErrorMessage,
					})
				}
				table := renderTable(
					[]string{"ID", "Folder", "Status", "Progress", "Created", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by job status")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs (done, error, skipped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished jobs\n", removed)
				return nil
			})
		},
	}
}

func formatProgress(job *queue.Job) string {
	if job.FilesTotal <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", job.FilesDone, job.FilesTotal)
}
