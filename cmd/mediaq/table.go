package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mediaq/internal/ipc"
)

const queueDetailWidth = 48

// renderJobTable lays out queue entries as a bordered table. With colorize
// the status cell takes the colour of its tone.
func renderJobTable(jobs []ipc.JobInfo, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ID", "Source", "Status", "Detail"})
	for i, row := range buildQueueListRows(jobs) {
		status := row[3]
		if colorize {
			status = statusColors(jobStatusTone(jobs[i].Status)).Sprint(status)
		}
		tw.AppendRow(table.Row{row[0], row[1], row[2], status, row[4]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignRight},
		{Number: 5, WidthMax: queueDetailWidth, WidthMaxEnforcer: text.Trim},
	})
	return tw.Render() + "\n"
}

func statusColors(t tone) text.Colors {
	switch t {
	case toneGood:
		return text.Colors{text.FgGreen}
	case toneAttention:
		return text.Colors{text.FgYellow}
	case toneBad:
		return text.Colors{text.FgRed}
	default:
		return nil
	}
}
