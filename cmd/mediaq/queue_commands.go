package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaq/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueMoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueSetDestinationCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Jobs)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderJobTable(resp.Jobs, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func buildQueueListRows(jobs []ipc.JobInfo) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, info := range jobs {
		detail := info.Progress
		if info.ErrorMessage != "" {
			detail = info.ErrorMessage
		}
		rows = append(rows, []string{
			strconv.Itoa(info.Index + 1),
			shortID(info.ID),
			filepath.Base(info.Source),
			info.Status,
			detail,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove jobs from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveJobIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.Remove(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a job to another queue position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Move(from, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved job #%d to #%d\n", from+1, to+1)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed job(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>...",
		Short: "Reset failed or cancelled jobs to ready",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveJobIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.Retry(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d job(s)\n", resp.Retried)
				return nil
			})
		},
	}
}

func newQueueSetDestinationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-destination <id> <path>",
		Short: "Change the output path of a ready job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[1]
			if !filepath.IsAbs(dest) {
				abs, err := filepath.Abs(dest)
				if err != nil {
					return err
				}
				dest = abs
			}
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveJobIDs(client, args[:1])
				if err != nil {
					return err
				}
				resp, err := client.SetDestination(ids[0], dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Destination set to %s\n", resp.Destination)
				return nil
			})
		},
	}
}

// parsePosition converts a 1-based queue position to an index.
func parsePosition(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid queue position %q", value)
	}
	return n - 1, nil
}

// resolveJobIDs expands id prefixes, as printed by `queue list`, into full
// job ids. A prefix matching more than one job is rejected.
func resolveJobIDs(client *ipc.Client, args []string) ([]string, error) {
	resp, err := client.List(nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		prefix := strings.TrimSpace(arg)
		if prefix == "" {
			return nil, fmt.Errorf("job id is required")
		}
		var match string
		for _, info := range resp.Jobs {
			if !strings.HasPrefix(info.ID, prefix) {
				continue
			}
			if match != "" {
				return nil, fmt.Errorf("job id %q is ambiguous", prefix)
			}
			match = info.ID
		}
		if match == "" {
			return nil, fmt.Errorf("no job matches id %q", prefix)
		}
		ids = append(ids, match)
	}
	return ids, nil
}
