// Package cli formats run reports and status for the docindex commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/hyperjump/docindex/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// dimStyle for labels and metadata
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// maxPathLen bounds file paths in the per-file listing.
const maxPathLen = 80

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReport writes a run report to w in the given format.
func WriteReport(w io.Writer, report *models.RunReport, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, report)
	}
	writeReportText(w, report)
	return nil
}

func writeReportText(w io.Writer, report *models.RunReport) {
	status := successStyle.Render("COMMITTED")
	if !report.Committed {
		status = errorStyle.Render("NOT COMMITTED")
	}
	summary := fmt.Sprintf("%s %s\n%s %d  %s %d  %s %d\n%s %s  %s",
		dimStyle.Render("Run:"), report.RunID,
		dimStyle.Render("Files:"), report.Files,
		dimStyle.Render("Records:"), report.Records,
		dimStyle.Render("Anomalies:"), report.Anomalies,
		dimStyle.Render("Took:"), report.Duration().Round(time.Millisecond),
		status,
	)
	fmt.Fprintln(w, boxStyle.Render(summary))

	if len(report.FileStats) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Files"))
		for _, f := range report.FileStats {
			line := fmt.Sprintf("  %s  %d records", utils.Truncate(f.Path, maxPathLen), f.Records)
			if f.Anomalies > 0 {
				line += "  " + warnStyle.Render(fmt.Sprintf("%d anomalies", f.Anomalies))
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(report.Kinds) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Contexts"))
		fmt.Fprintln(w, "  "+formatKinds(report.Kinds))
	}
	if len(report.PathErrors) > 0 {
		fmt.Fprintln(w, errorStyle.Render("Path errors"))
		for _, pe := range report.PathErrors {
			fmt.Fprintf(w, "  %s: %s\n", pe.Path, pe.Error)
		}
	}
}

// formatKinds renders kind counts sorted by name.
func formatKinds(kinds map[string]int) string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	return strings.Join(parts, " ")
}

// Status is what the status command reports.
type Status struct {
	Records        int64             `json:"records"`
	LastRun        *models.RunReport `json:"last_run,omitempty"`
	DatabasePath   string            `json:"database_path"`
	BleveIndexPath string            `json:"bleve_index_path,omitempty"`
	DiskUsageBytes int64             `json:"disk_usage_bytes"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, st)
	}
	lines := []string{
		fmt.Sprintf("%s %d", dimStyle.Render("Records:"), st.Records),
		fmt.Sprintf("%s %s", dimStyle.Render("Database:"), st.DatabasePath),
	}
	if st.BleveIndexPath != "" {
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render("Bleve index:"), st.BleveIndexPath))
	}
	lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render("Disk usage:"), FormatBytes(st.DiskUsageBytes)))
	if st.LastRun == nil {
		lines = append(lines, dimStyle.Render("No runs recorded"))
	} else {
		r := st.LastRun
		state := successStyle.Render("committed")
		if !r.Committed {
			state = errorStyle.Render("not committed")
		}
		lines = append(lines, fmt.Sprintf("%s %s  %d files, %d records  %s",
			dimStyle.Render("Last run:"), r.StartedAt.Format("2006-01-02 15:04:05"), r.Files, r.Records, state))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
