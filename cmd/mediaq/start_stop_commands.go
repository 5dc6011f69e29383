package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaq/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start processing ready jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if wait {
					resp, err := client.StartAndWait()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Queue %s: %d succeeded, %d failed\n", resp.State, resp.Succeeded, resp.Failed)
					if resp.LastError != "" {
						fmt.Fprintf(out, "Last error: %s\n", resp.LastError)
					}
					return nil
				}
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else if resp.Started {
					fmt.Fprintln(out, "Queue started")
				} else {
					fmt.Fprintln(out, "Queue already running")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the queue finishes")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the queue, cancelling the running job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue was not running")
				}
				return nil
			})
		},
	}
}
