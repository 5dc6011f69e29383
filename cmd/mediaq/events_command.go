package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mediaq/internal/events"
	"mediaq/internal/ipc"
)

const eventsPollSeconds = 5

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent queue events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				resp, err := client.Events(0, limit, 0)
				if err != nil {
					return err
				}
				if err := printEvents(out, resp.Events, jsonOut); err != nil {
					return err
				}
				next := resp.Next
				for follow {
					if err := cmd.Context().Err(); err != nil {
						return nil
					}
					resp, err := client.Events(next, limit, eventsPollSeconds)
					if err != nil {
						return err
					}
					if err := printEvents(out, resp.Events, jsonOut); err != nil {
						return err
					}
					next = resp.Next
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events per batch")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print one JSON object per event")
	return cmd
}

func printEvents(out io.Writer, evts []events.Event, jsonOut bool) error {
	for _, evt := range evts {
		if jsonOut {
			if err := writeJSONLine(out, evt); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, formatEvent(evt))
	}
	return nil
}

func formatEvent(evt events.Event) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(string(evt.Type))
	switch evt.Type {
	case events.TypeWorking:
		fmt.Fprintf(&b, " #%d %3.0f%%", evt.Index+1, evt.Percent)
		if evt.Description != "" {
			b.WriteString(" ")
			b.WriteString(evt.Description)
		}
	case events.TypeFailed:
		fmt.Fprintf(&b, " #%d %s: %s", evt.Index+1, shortID(evt.JobID), evt.Error)
	case events.TypeCancelled:
		fmt.Fprintf(&b, " #%d %s", evt.Index+1, shortID(evt.JobID))
	case events.TypeCompleted:
		fmt.Fprintf(&b, " %d succeeded, %d failed", evt.Completed, evt.Failed)
	}
	return b.String()
}
