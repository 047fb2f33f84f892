// Package output renders dirwatcher's history and daemon state for the terminal.
//
// Tables are drawn with go-pretty. Colour is used only when stdout is a
// terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/dirwatcher/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// maxTextWidth caps the matched-line column.
const maxTextWidth = 60

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, s string) string {
	if IsColorEnabled() {
		return color + s + colorReset
	}
	return s
}

// DaemonStatus describes the background watcher as seen by `dirwatcher status`.
type DaemonStatus struct {
	Running bool
	PID     int
	PIDFile string
}

func newTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	return tw
}

// RenderMatches renders recorded matches as a table, newest first as given.
func RenderMatches(matches []*store.Match) string {
	if len(matches) == 0 {
		return "No matches recorded.\n"
	}

	tw := newTable("Found", "File", "Line", "Text")
	for _, m := range matches {
		tw.AppendRow(table.Row{
			m.FoundAt.Local().Format("2006-01-02 15:04:05"),
			m.File,
			m.Line,
			truncate(m.Text, maxTextWidth),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n"
}

// RenderRuns renders run history with per-run match counts. Runs without an
// entry in counts show zero.
func RenderRuns(runs []*store.Run, counts map[string]int, now time.Time) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	tw := newTable("Run", "Started", "Dir", "Ext", "Magic", "Duration", "Matches")
	for _, r := range runs {
		tw.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Dir,
			r.Ext,
			r.Magic,
			runDuration(r, now),
			counts[r.ID],
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n"
}

// RenderStatus renders the daemon state and, when available, the latest run.
func RenderStatus(daemon DaemonStatus, latest *store.Run, matchCount int, now time.Time) string {
	var sb strings.Builder

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if daemon.Running {
		tw.AppendRow(table.Row{"Daemon", colorize(colorGreen, "running")})
		tw.AppendRow(table.Row{"PID", daemon.PID})
	} else {
		tw.AppendRow(table.Row{"Daemon", colorize(colorYellow, "stopped")})
	}
	tw.AppendRow(table.Row{"PID file", daemon.PIDFile})

	if latest != nil {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"Last run", latest.ID})
		tw.AppendRow(table.Row{"Directory", latest.Dir})
		tw.AppendRow(table.Row{"Extension", latest.Ext})
		tw.AppendRow(table.Row{"Magic word", latest.Magic})
		tw.AppendRow(table.Row{"Started", fmt.Sprintf("%s (%s)",
			latest.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRelativeTime(latest.StartedAt, now))})
		if latest.StoppedAt != nil {
			tw.AppendRow(table.Row{"Stopped", fmt.Sprintf("%s (ran %s)",
				latest.StoppedAt.Local().Format("2006-01-02 15:04:05"),
				runDuration(latest, now))})
		} else {
			tw.AppendRow(table.Row{"Uptime", runDuration(latest, now)})
		}
		tw.AppendRow(table.Row{"Matches", matchCount})
	}

	sb.WriteString(tw.Render())
	sb.WriteString("\n")
	if latest == nil {
		sb.WriteString(colorize(colorGray, "No runs recorded. Start one with 'dirwatcher --record MAGIC'."))
		sb.WriteString("\n")
	}
	return sb.String()
}

func runDuration(r *store.Run, now time.Time) string {
	end := now
	if r.StoppedAt != nil {
		end = *r.StoppedAt
	}
	return formatDuration(end.Sub(r.StartedAt))
}

// formatDuration renders d in whole seconds, e.g. "1h02m05s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return strconv.FormatInt(s, 10) + "s"
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := now.Sub(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate truncates a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
