package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediaq/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var position int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Add media files or folders to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				paths = append(paths, abs)
			}
			index := -1
			if position > 0 {
				index = position - 1
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(paths, index)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Jobs)
				}
				out := cmd.OutOrStdout()
				for _, info := range resp.Jobs {
					fmt.Fprintf(out, "Queued #%d %s -> %s\n", info.Index+1, filepath.Base(info.Source), info.Destination)
				}
				fmt.Fprintf(out, "Added %d job(s)\n", len(resp.Jobs))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "Insert at this queue position (1 = front) instead of appending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the added jobs as JSON")
	return cmd
}
