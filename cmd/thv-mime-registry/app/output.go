package app

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", fmt.Errorf("failed to read format flag: %w", err)
	}
	switch format {
	case formatTable, formatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, want %s or %s", format, formatTable, formatJSON)
	}
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
	)

	headerAny := make([]any, len(header))
	for i, h := range header {
		headerAny[i] = h
	}
	table.Header(headerAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		if err := table.Append(rowAny...); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}
	return table.Render()
}

// writeReport prints a cycle report. Sources are listed by name.
func writeReport(w io.Writer, format string, report *pkgsync.CycleReport) error {
	if format == formatJSON || report == nil {
		return writeJSON(w, report)
	}

	names := make([]string, 0, len(report.Sources))
	for name := range report.Sources {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		src := report.Sources[name]
		rows = append(rows, []string{name, string(src.Outcome), src.Version, strconv.Itoa(src.Added), src.Error})
	}
	if err := writeTable(w, []string{"Source", "Outcome", "Version", "Added", "Error"}, rows); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "added %d associations in %s, persisted: %t\n",
		report.Added, report.Duration, report.Persisted)
	if err == nil && report.Error != "" {
		_, err = fmt.Fprintf(w, "error: %s\n", report.Error)
	}
	return err
}
