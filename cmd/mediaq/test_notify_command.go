package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediaq/internal/ipc"
	"mediaq/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var direct bool
	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test message to the configured ntfy topic",
		Long: "Publish a test message to the configured ntfy topic.\n\n" +
			"By default the daemon sends it, which also proves the daemon's network access. " +
			"--direct sends it from this process and works without a running daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if direct {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
					fmt.Fprintln(out, "ntfy topic not configured")
					return nil
				}
				if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
					return fmt.Errorf("publish test notification: %w", err)
				}
				fmt.Fprintf(out, "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
				return nil
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("daemon test notification: %w", err)
				}
				fmt.Fprintln(out, resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "Publish from this process instead of the daemon")
	return cmd
}
