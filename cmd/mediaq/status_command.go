package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaq/internal/daemonctl"
	"mediaq/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snapshot)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(snapshot, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func renderStatus(s *ipc.StatusResponse, colorize bool) string {
	r := newStatusReport(colorize)

	r.section("Daemon")
	if s.Running {
		r.row("process", toneGood, "running (pid "+strconv.Itoa(s.PID)+")")
	} else {
		r.row("process", toneAttention, "not running")
	}
	r.row("lock", toneNeutral, s.LockPath)
	r.row("database", toneNeutral, s.QueueDBPath)
	if s.Database != nil {
		r.row("db health", databaseTone(s.Database), describeDatabase(s.Database))
	}

	r.section("Queue")
	r.row("state", jobStatusTone(s.State), s.State)
	if s.Current != nil {
		current := fmt.Sprintf("#%d %s", s.Current.Index+1, filepath.Base(s.Current.Source))
		if s.Current.Progress != "" {
			current += " (" + s.Current.Progress + ")"
		}
		r.row("converting", toneGood, current)
	}
	r.row("jobs", toneNeutral, formatCounts(s.Total, s.Counts))
	if s.Succeeded > 0 || s.Failed > 0 {
		t := toneGood
		if s.Failed > 0 {
			t = toneAttention
		}
		r.row("last run", t, fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed))
	}
	if s.LastError != "" {
		r.row("last error", toneBad, s.LastError)
	}

	if len(s.Checks) > 0 {
		r.section("Dependencies")
		for _, check := range s.Checks {
			t := toneGood
			if !check.Passed {
				t = toneBad
			}
			r.row(check.Name, t, check.Detail)
		}
	}
	return r.String()
}

func databaseTone(db *ipc.DatabaseInfo) tone {
	switch {
	case db.Healthy():
		return toneGood
	case db.Error != "":
		return toneAttention
	default:
		return toneBad
	}
}

func describeDatabase(db *ipc.DatabaseInfo) string {
	if db.Error != "" {
		return "check failed: " + db.Error
	}
	schema := fmt.Sprintf("schema v%d", db.SchemaVersion)
	if !db.SchemaCurrent {
		schema += " (unsupported)"
	}
	return fmt.Sprintf("%s, integrity %s, %d stored", schema, db.Integrity, db.StoredJobs)
}

func formatCounts(total int, counts map[string]int) string {
	if total == 0 {
		return "empty"
	}
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return fmt.Sprintf("%d total (%s)", total, strings.Join(parts, ", "))
}
