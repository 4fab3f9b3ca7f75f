package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagereport/internal/usage"
)

var inspectTop int

var inspectCmd = &cobra.Command{
	Use:   "inspect [report.csv|summary.json]",
	Short: "Inspect a generated report or run summary",
	Long: `Reads a report written by 'usagereport report' back in and prints per-user
totals and daily totals. Given a run summary (.json) it prints the run details.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectTop, "top", 10, "Number of users to show (0 = all)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return inspectSummary(cmd, path)
	}

	table, err := usage.ReadReportFile(path)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d users, %s (%d days)\n", path, table.Len(), table.Range(), table.Range().Len())

	records := table.Records()
	if inspectTop > 0 && len(records) > inspectTop {
		records = records[:inspectTop]
	}

	fmt.Fprintln(out, "----------------------------------------")
	fmt.Fprintf(out, "%-12s  %-16s  %10s\n", "Org", "User", "Total")
	fmt.Fprintln(out, "----------------------------------------")
	for _, rec := range records {
		fmt.Fprintf(out, "%-12s  %-16s  %10s\n", rec.OrgCode, rec.UserID, humanize.Comma(int64(rec.Total())))
	}
	fmt.Fprintln(out, "----------------------------------------")

	dates := table.Dates()
	totals := usage.DailyTotals(table)
	var grand, busiest int
	for i, n := range totals {
		grand += n
		if n > totals[busiest] {
			busiest = i
		}
	}
	fmt.Fprintf(out, "Total: %s\n", humanize.Comma(int64(grand)))
	if len(dates) > 0 {
		fmt.Fprintf(out, "Busiest day: %s (%s)\n", dates[busiest], humanize.Comma(int64(totals[busiest])))
	}
	return nil
}

func inspectSummary(cmd *cobra.Command, path string) error {
	s, err := usage.ReadSummary(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s at %s\n", s.RunID, s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Range: %s..%s  output: %s  split by: %s\n", s.StartDate, s.EndDate, s.Output, s.SplitBy)
	fmt.Fprintf(out, "Users: %s  rows: %s read, %s accepted, %s skipped\n",
		humanize.Comma(int64(s.Users)), humanize.Comma(int64(s.RowsRead)),
		humanize.Comma(int64(s.RowsAccepted)), humanize.Comma(int64(s.RowsSkipped)))
	for _, f := range s.Files {
		status := "ok"
		if f.Error != "" {
			status = f.Error
		}
		fmt.Fprintf(out, "  %-14s %s: %d rows, %d skipped (%s)\n", f.Category, f.Path, f.Rows, f.Skipped, status)
	}
	for _, o := range s.Outputs {
		fmt.Fprintf(out, "  -> %s\n", o)
	}
	return nil
}
