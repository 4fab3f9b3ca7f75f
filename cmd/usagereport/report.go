package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagereport/internal/config"
	"github.com/jgoulah/usagereport/internal/usage"
)

var (
	reportStart     string
	reportEnd       string
	reportOutput    string
	reportInputDir  string
	reportOutputDir string
	reportSplitBy   string
	reportStrict    bool
	reportYes       bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build per-user usage reports from tracker exports",
	Long: `Reads every matching tracker export in the input directory, builds one
record per user over the date range and writes the selected reports.

Output types: combined, separate, both, old_only, new_only`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportStart, "start-date", "s", "", "First day of the report, YYYY-MM-DD (default: pilot start date)")
	reportCmd.Flags().StringVarP(&reportEnd, "end-date", "e", "", "Last day of the report, YYYY-MM-DD (default: today)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "both", "Output type ("+strings.Join(usage.OutputTypeNames(), ", ")+")")
	reportCmd.Flags().StringVar(&reportInputDir, "input-dir", "", "Directory containing tracker exports")
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "", "Directory to write reports into")
	reportCmd.Flags().StringVar(&reportSplitBy, "split-by", "", "Grouping for separate output (category, file, org)")
	reportCmd.Flags().BoolVar(&reportStrict, "strict", false, "Abort on the first rejected row")
	reportCmd.Flags().BoolVarP(&reportYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	printBanner(out)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyReportFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	dates, err := resolveRange(cfg, reportStart, reportEnd, time.Now())
	if err != nil {
		return err
	}

	outputType, err := usage.ParseOutputType(reportOutput)
	if err != nil {
		return err
	}

	sources, err := usage.Discover(cfg.GetInputDir(), cfg.GetFilePattern(), cfg.GetCategories())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Date range: %s (%d days)\n", dates, dates.Len())
	fmt.Fprintf(out, "Output:     %s -> %s\n", outputType, cfg.GetOutputDir())
	fmt.Fprintf(out, "Input files (%d):\n", len(sources))
	for _, src := range sources {
		fmt.Fprintf(out, "  %-14s %s\n", src.Category, src.Path)
	}

	if !reportYes {
		if !stdinIsTerminal() {
			return fmt.Errorf("stdin is not a terminal; pass --yes to run without confirmation")
		}
		ok, err := confirm(cmd.InOrStdin(), out, "Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	rec := usage.New(usage.Options{
		Range:   dates,
		Policy:  cfg.GetPolicy(),
		SplitBy: cfg.GetSplitBy(),
		Strict:  cfg.Strict,
	}, logger)

	res, err := rec.Run(sources)
	if err != nil {
		return fmt.Errorf("building usage table: %w", err)
	}

	emitter := usage.NewEmitter(cfg.GetOutputDir(), cfg.GetOutputPrefix(), logger)
	paths, err := emitter.Emit(res, outputType)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	if cfg.GetWriteSummary() {
		summaryPath, err := emitter.WriteSummary(usage.NewSummary(res, outputType, cfg.GetSplitBy(), paths))
		if err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		paths = append(paths, summaryPath)
	}

	printRunSummary(cmd, res, paths)
	return nil
}

// applyReportFlags lets command-line flags override config values
func applyReportFlags(cfg *config.Config) {
	if reportInputDir != "" {
		cfg.InputDir = reportInputDir
	}
	if reportOutputDir != "" {
		cfg.OutputDir = reportOutputDir
	}
	if reportSplitBy != "" {
		cfg.SplitBy = reportSplitBy
	}
	if reportStrict {
		cfg.Strict = true
	}
}

// resolveRange fills in the default start (pilot start) and end (today) dates
func resolveRange(cfg *config.Config, start, end string, now time.Time) (usage.DateRange, error) {
	if start == "" {
		start = cfg.GetPilotStartDate()
	}
	if end == "" {
		end = now.Format(usage.DateLayout)
	}
	return usage.ParseDateRange(start, end)
}

func printRunSummary(cmd *cobra.Command, res *usage.Result, paths []string) {
	out := cmd.OutOrStdout()
	report := res.Report

	fmt.Fprintln(out, "----------------------------------------")
	fmt.Fprintf(out, "Users:         %s\n", humanize.Comma(int64(res.Combined.Len())))
	fmt.Fprintf(out, "Rows read:     %s\n", humanize.Comma(int64(report.RowsRead)))
	fmt.Fprintf(out, "Rows accepted: %s\n", humanize.Comma(int64(report.RowsAccepted)))
	fmt.Fprintf(out, "Rows skipped:  %s\n", humanize.Comma(int64(len(report.Skipped))))
	if len(report.Failed) > 0 {
		fmt.Fprintf(out, "Failed files (%d):\n", len(report.Failed))
		for _, fe := range report.Failed {
			fmt.Fprintf(out, "  %s: %v\n", fe.Path, fe.Err)
		}
	}
	fmt.Fprintln(out, "----------------------------------------")
	for _, p := range paths {
		fmt.Fprintf(out, "✓ %s\n", p)
	}

	if len(report.Failed) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: some input files could not be read; see above")
	}
}
