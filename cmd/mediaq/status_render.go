package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// tone classifies a status row; it picks the marker and the colour.
type tone int

const (
	toneNeutral tone = iota
	toneGood
	toneAttention
	toneBad
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

const reportLabelWidth = 16

func (t tone) marker() string {
	switch t {
	case toneGood:
		return "ok"
	case toneAttention:
		return "!!"
	case toneBad:
		return "xx"
	default:
		return "--"
	}
}

func (t tone) color() string {
	switch t {
	case toneGood:
		return ansiGreen
	case toneAttention:
		return ansiYellow
	case toneBad:
		return ansiRed
	default:
		return ""
	}
}

// jobStatusTone maps a job or queue state name to a tone.
func jobStatusTone(status string) tone {
	switch status {
	case "completed", "working":
		return toneGood
	case "cancelled", "offline":
		return toneAttention
	case "failed":
		return toneBad
	default:
		return toneNeutral
	}
}

// statusReport accumulates titled sections of "label  [mk] value" rows.
type statusReport struct {
	b        strings.Builder
	colorize bool
}

func newStatusReport(colorize bool) *statusReport {
	return &statusReport{colorize: colorize}
}

func (r *statusReport) section(title string) {
	if r.b.Len() > 0 {
		r.b.WriteByte('\n')
	}
	if r.colorize {
		r.b.WriteString(ansiBold + title + ansiReset + "\n")
		return
	}
	r.b.WriteString(title + "\n")
}

func (r *statusReport) row(label string, t tone, value string) {
	r.b.WriteString(formatReportRow(label, t, value, r.colorize))
	r.b.WriteByte('\n')
}

func (r *statusReport) String() string {
	return r.b.String()
}

func formatReportRow(label string, t tone, value string, colorize bool) string {
	mark := "[" + t.marker() + "]"
	if colorize && t.color() != "" {
		mark = t.color() + mark + ansiReset
	}
	line := fmt.Sprintf("  %-*s %s", reportLabelWidth, label, mark)
	if value != "" {
		line += " " + value
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
